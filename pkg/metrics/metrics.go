// Package metrics exposes Prometheus counters for repository synchronization.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cperrin88/reposync/internal/logger"
)

const namespace = "reposync"

var (
	downloadedBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "bytes_total",
			Help:      "Total number of index bytes written to disk",
		},
	)

	mirrorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "download",
			Name:      "mirror_failures_total",
			Help:      "Transport failures per mirror host that caused a failover",
		},
		[]string{"host"},
	)

	repoResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "repo_results_total",
			Help:      "Repository update results by kind",
		},
		[]string{"result"},
	)

	passDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "pass_duration_seconds",
			Help:      "Duration of a full repository update pass",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	passRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "pass_retries_total",
			Help:      "Scheduled update passes retried after a failure",
		},
	)

	updatesAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "updates_available",
			Help:      "Number of installed apps with an update after the last scan",
		},
	)
)

// AddDownloadedBytes counts bytes written by the downloader.
func AddDownloadedBytes(n int) {
	downloadedBytes.Add(float64(n))
}

// IncMirrorFailure counts a transport failure on host.
func IncMirrorFailure(host string) {
	mirrorFailures.WithLabelValues(host).Inc()
}

// IncRepoResult counts one per-repository result.
func IncRepoResult(result string) {
	repoResults.WithLabelValues(result).Inc()
}

// ObservePass records the duration of an update pass.
func ObservePass(d time.Duration) {
	passDuration.Observe(d.Seconds())
}

// IncPassRetry counts a retried scheduled pass.
func IncPassRetry() {
	passRetries.Inc()
}

// SetUpdatesAvailable records the result of the last update scan.
func SetUpdatesAvailable(n int) {
	updatesAvailable.Set(float64(n))
}

// SetupMetricsEndpoint serves /metrics on addr in the background.
// Shut the returned server down to stop it.
func SetupMetricsEndpoint(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.For("metrics").Error("metrics endpoint stopped", "error", err)
		}
	}()

	return server
}
