package repository

import "time"

// commitInterval is the minimum time between two commit progress reports.
const commitInterval = time.Second

// downloadPercent maps byte progress into the 0-50 range.
func downloadPercent(bytesRead, totalBytes int64) int {
	if totalBytes <= 0 {
		return 0
	}
	return int(min(bytesRead, totalBytes) * 50 / totalBytes)
}

// commitPercent maps package progress into the 50-100 range. An unknown total stays at 50.
func commitPercent(processed, total int64) int {
	return 50 + percent(processed, total)/2
}

func percent(processed, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(min(processed, total) * 100 / total)
}

// commitThrottle drops commit reports closer than commitInterval, except the final one.
type commitThrottle struct {
	now  func() time.Time
	last time.Time
}

func (t *commitThrottle) allow(processed, total int64) bool {
	now := t.now()
	if processed == total || t.last.IsZero() || now.Sub(t.last) >= commitInterval {
		t.last = now
		return true
	}
	return false
}
