package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(downloadedBytes)
	AddDownloadedBytes(8192)
	AddDownloadedBytes(100)
	assert.InDelta(t, before+8292, testutil.ToFloat64(downloadedBytes), 0.001)

	IncRepoResult("processed")
	IncRepoResult("processed")
	IncRepoResult("error")
	assert.InDelta(t, 2, testutil.ToFloat64(repoResults.WithLabelValues("processed")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(repoResults.WithLabelValues("error")), 0.001)

	IncMirrorFailure("mirror.example.org")
	assert.InDelta(t, 1, testutil.ToFloat64(mirrorFailures.WithLabelValues("mirror.example.org")), 0.001)

	IncPassRetry()
	assert.InDelta(t, 1, testutil.ToFloat64(passRetries), 0.001)

	SetUpdatesAvailable(4)
	assert.InDelta(t, 4, testutil.ToFloat64(updatesAvailable), 0.001)
}

func TestObservePass(t *testing.T) {
	ObservePass(2 * time.Second)
	assert.Equal(t, 1, testutil.CollectAndCount(passDuration))
}
