package cache

import "fmt"

var (
	// ErrCacheDirectory means no cache directory is configured.
	ErrCacheDirectory = fmt.Errorf("invalid cache directory")
	// ErrCacheInfo wraps failures while measuring the cache.
	ErrCacheInfo = fmt.Errorf("failed to get cache info")
	// ErrCacheClean wraps failures while removing repository directories.
	ErrCacheClean = fmt.Errorf("failed to clean cache")
)
