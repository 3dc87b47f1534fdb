// Package cache inspects and cleans the index cache. The repository updater keeps the
// files of each repository in a directory named after the repository id, so that an
// interrupted download can resume on the next pass.
package cache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/cperrin88/reposync/internal/logger"
)

// RepoUsage is the disk usage of one repository.
type RepoUsage struct {
	RepoID int64 `json:"repoId"`
	Size   int64 `json:"size"`
	Files  int   `json:"files"`
}

// Info represents cache information.
type Info struct {
	Directory    string      `json:"directory"`
	TotalSize    int64       `json:"totalSize"`
	Files        int         `json:"files"`
	Repositories []RepoUsage `json:"repositories"`
}

// CleanResult contains information about what was cleaned.
type CleanResult struct {
	Freed        int64 `json:"freed"`
	Repositories int   `json:"repositories"`
}

// Manager manages an index cache directory.
type Manager struct {
	directory string
}

// NewManager creates a cache manager for directory.
func NewManager(directory string) (*Manager, error) {
	if directory == "" {
		return nil, ErrCacheDirectory
	}
	return &Manager{directory: directory}, nil
}

// Directory returns the cache directory path.
func (m *Manager) Directory() string {
	return m.directory
}

// RepoDir returns the cache directory of a repository.
func (m *Manager) RepoDir(id int64) string {
	return filepath.Join(m.directory, strconv.FormatInt(id, 10))
}

// GetInfo returns the usage of the whole cache and of each repository, ordered by id.
func (m *Manager) GetInfo() (*Info, error) {
	info := &Info{Directory: m.directory, Repositories: []RepoUsage{}}
	ids, err := m.repoIDs()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheInfo, err)
	}
	for _, id := range ids {
		size, files, err := getDirSizeAndFiles(m.RepoDir(id))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCacheInfo, err)
		}
		info.Repositories = append(info.Repositories, RepoUsage{RepoID: id, Size: size, Files: files})
		info.TotalSize += size
		info.Files += files
	}
	return info, nil
}

// Clean removes the cached files of the given repositories, of all repositories when no
// id is given.
func (m *Manager) Clean(ids ...int64) (*CleanResult, error) {
	if len(ids) == 0 {
		var err error
		if ids, err = m.repoIDs(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCacheClean, err)
		}
	}
	result := &CleanResult{}
	for _, id := range ids {
		freed, removed, err := cleanDirectory(m.RepoDir(id))
		if err != nil {
			return result, fmt.Errorf("%w: %w", ErrCacheClean, err)
		}
		if removed {
			result.Repositories++
			result.Freed += freed
		}
	}
	logger.Debug("Index cache cleaned", logger.Fields{"repositories": result.Repositories, "freed": result.Freed})
	return result, nil
}

// Prune removes the cache of every repository that keep does not report as existing.
func (m *Manager) Prune(keep func(id int64) bool) (*CleanResult, error) {
	ids, err := m.repoIDs()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheClean, err)
	}
	ids = slices.DeleteFunc(ids, keep)
	if len(ids) == 0 {
		return &CleanResult{}, nil
	}
	return m.Clean(ids...)
}

// repoIDs lists the repository directories. Other entries are ignored.
func (m *Manager) repoIDs() ([]int64, error) {
	entries, err := os.ReadDir(m.directory)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []int64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil || id <= 0 {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// cleanDirectory removes a directory and returns bytes freed.
func cleanDirectory(dir string) (freed int64, removed bool, err error) {
	size, _, err := getDirSizeAndFiles(dir)
	if err != nil {
		return 0, false, err
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return 0, false, nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return 0, false, fmt.Errorf("failed to remove directory %s: %w", dir, err)
	}
	return size, true, nil
}

// getDirSizeAndFiles calculates directory size and file count. A missing directory is empty.
func getDirSizeAndFiles(dir string) (size int64, count int, err error) {
	if _, err = os.Stat(dir); os.IsNotExist(err) {
		return 0, 0, nil
	}

	err = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		count++
		return nil
	})
	if err != nil {
		err = fmt.Errorf("error walking directory %s: %w", dir, err)
	}
	return size, count, err
}
