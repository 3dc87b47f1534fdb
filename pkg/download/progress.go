package download

import "time"

// progressInterval is the minimum time between two progress reports.
const progressInterval = 100 * time.Millisecond

// throttle coalesces progress reports. Only the most recent reading inside an interval is
// delivered; a forced report is always delivered.
type throttle struct {
	fn       ProgressFunc
	interval time.Duration
	now      func() time.Time
	last     time.Time
	reported bool
}

func newThrottle(fn ProgressFunc, now func() time.Time) *throttle {
	return &throttle{fn: fn, interval: progressInterval, now: now}
}

func (t *throttle) report(bytesRead, totalBytes int64, force bool) {
	if t == nil || t.fn == nil {
		return
	}
	now := t.now()
	if !force && t.reported && now.Sub(t.last) < t.interval {
		return
	}
	t.last = now
	t.reported = true
	t.fn(bytesRead, totalBytes)
}
