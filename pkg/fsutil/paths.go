package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName is the directory name used below the platform data and cache directories.
const AppName = "reposync"

// DatabaseFile is the name of the catalog database inside the data directory.
const DatabaseFile = "catalog.db"

// GetCacheDir returns the platform-specific cache directory for downloaded index files.
func GetCacheDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, AppName), nil
}

// GetDataDir returns the platform-specific data directory holding the catalog.
// XDG_DATA_HOME is honoured on Unix systems other than macOS.
func GetDataDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, AppName), nil
		}
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, AppName), nil
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", AppName), nil
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", AppName), nil
	}
}

// GetConfigPath returns the default location of the configuration file.
func GetConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName, "config.yaml"), nil
}

// EnsureDir creates path and its parents with DirModeSecure.
func EnsureDir(path string) error {
	return os.MkdirAll(path, DirModeSecure)
}

// EnsureFileDir creates the parent directory of filePath.
func EnsureFileDir(filePath string) error {
	return EnsureDir(filepath.Dir(filePath))
}
