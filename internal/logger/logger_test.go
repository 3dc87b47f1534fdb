package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capture runs fn against a fresh logger writing into a buffer.
func capture(t *testing.T, level string, format OutputFormat, fn func()) string {
	t.Helper()
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	t.Cleanup(UnsetTestOutput)

	logger = nil
	InitLogger(level, format)
	fn()
	return buf.String()
}

// records decodes JSON log lines.
func records(t *testing.T, out string) []map[string]any {
	t.Helper()
	var recs []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec), line)
		recs = append(recs, rec)
	}
	return recs
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		logFn func()
		want  string // empty when nothing must be written
	}{
		{"info at info", "info", func() { Info("Updating repositories") }, "INFO"},
		{"debug at debug", "debug", func() { Debug("Repository entry is not newer") }, "DEBUG"},
		{"debug at info", "info", func() { Debug("Repository entry is not newer") }, ""},
		{"warn at error", "error", func() { Warn("Mirror failed") }, ""},
		{"error at error", "error", func() { Error("Commit failed") }, "ERROR"},
		{"formatted warn", "warn", func() { Warnf("%d of %d repositories failed", 1, 2) }, "WARN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs := records(t, capture(t, tt.level, FormatJSON, tt.logFn))
			if tt.want == "" {
				assert.Empty(t, recs)
				return
			}
			require.Len(t, recs, 1)
			assert.Equal(t, tt.want, recs[0]["level"])
		})
	}
}

func TestFieldsInBothFormats(t *testing.T) {
	logFn := func() {
		Warn("Mirror failed", Fields{"repo": "https://f-droid.example.org/repo", "attempt": 2, "onion": false})
	}

	text := capture(t, "info", FormatText, logFn)
	assert.Contains(t, text, `msg="Mirror failed"`)
	assert.Contains(t, text, "repo=https://f-droid.example.org/repo")
	assert.Contains(t, text, "attempt=2")

	recs := records(t, capture(t, "info", FormatJSON, logFn))
	require.Len(t, recs, 1)
	assert.Equal(t, "Mirror failed", recs[0]["msg"])
	assert.Equal(t, "https://f-droid.example.org/repo", recs[0]["repo"])
	assert.EqualValues(t, 2, recs[0]["attempt"])
	assert.Equal(t, false, recs[0]["onion"])
}

func TestSuccessAddsStatus(t *testing.T) {
	recs := records(t, capture(t, "info", FormatJSON, func() {
		Success("Repository added", Fields{"id": 3})
	}))
	require.Len(t, recs, 1)
	assert.Equal(t, "success", recs[0]["status"])
	assert.EqualValues(t, 3, recs[0]["id"])
}

func TestDebugfWithFields(t *testing.T) {
	out := capture(t, "debug", FormatText, func() {
		DebugfWithFields(Fields{"repo": "main"}, "processed %d of %d packages", 10, 20)
	})
	assert.Contains(t, out, "processed 10 of 20 packages")
	assert.Contains(t, out, "repo=main")
}

func TestSetOutputFormatKeepsLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	SetTestOutput(buf)
	defer UnsetTestOutput()

	logger = nil
	InitLogger("warn", FormatText)
	SetOutputFormat(FormatJSON)
	Info("dropped")
	Warn("kept")

	recs := records(t, buf.String())
	require.Len(t, recs, 1)
	assert.Equal(t, "kept", recs[0]["msg"])
}

func TestGetLoggerInitializesLazily(t *testing.T) {
	logger = nil
	assert.NotPanics(t, func() {
		assert.NotNil(t, GetLogger())
	})
}

func TestMergeFieldsLaterWins(t *testing.T) {
	attrs := mergeFields(Fields{"repo": "a"}, Fields{"repo": "b", "bytes": 10})
	got := map[string]any{}
	for i := 0; i < len(attrs); i += 2 {
		got[attrs[i].(string)] = attrs[i+1]
	}
	assert.Len(t, attrs, 6)
	assert.Equal(t, "b", got["repo"])
	assert.Equal(t, 10, got["bytes"])
}

func TestFor_TagsComponent(t *testing.T) {
	out := capture(t, "info", FormatText, func() {
		For("mirror").Info("trying mirror", "mirror", "https://example.org/repo")
	})
	assert.Contains(t, out, "component=mirror")
	assert.Contains(t, out, "mirror=https://example.org/repo")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", ParseLevel("Debug").String())
	assert.Equal(t, "WARN", ParseLevel("warning").String())
	assert.Equal(t, "ERROR", ParseLevel("error").String())
	assert.Equal(t, "INFO", ParseLevel("nonsense").String())
}
