package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/fsutil"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Settings.LogLevel)
	assert.Equal(t, DefaultHTTPTimeout, cfg.Settings.HTTPTimeout)
	assert.Equal(t, DefaultUpdateInterval, cfg.Settings.UpdateInterval)
	assert.Positive(t, cfg.Settings.Device.SDKInt)
	assert.NotEmpty(t, cfg.Settings.Device.ABIs)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `repositories:
  - name: main
    address: https://repo.example.org/repo/
    fingerprint: "AB:CD:EF"
    mirrors:
      - https://mirror.example.org/repo
    auth:
      basic:
        username: alice
        password: secret
  - name: archive
    address: https://repo.example.org/archive
    enabled: false
settings:
  log_level: debug
  http_timeout: 10s
  update_interval: 1h
  parallel_repos: 2
  locales: [de-DE, en-US]
  release_channels: [Beta]
  device:
    sdk_int: 30
    abis: [arm64-v8a]
    features: [android.hardware.camera]`

	require.NoError(t, os.WriteFile(configPath, []byte(configContent), fsutil.FileModePrivate))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	require.Len(t, cfg.Repositories, 2)
	assert.True(t, cfg.Repositories[0].IsEnabled())
	assert.False(t, cfg.Repositories[1].IsEnabled())
	assert.Equal(t, "debug", cfg.Settings.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.Settings.HTTPTimeout)
	assert.Equal(t, time.Hour, cfg.Settings.UpdateInterval)
	assert.Equal(t, 2, cfg.Settings.ParallelRepos)
	assert.Equal(t, []string{"de-DE", "en-US"}, cfg.Settings.Locales)
	assert.Equal(t, 30, cfg.Settings.Device.SDKInt)
	assert.Equal(t, []string{"arm64-v8a"}, cfg.Settings.Device.ABIs)
	assert.NotEmpty(t, cfg.Settings.DataDir, "defaults fill the gaps")

	repo := cfg.Repositories[0].ToRepository()
	assert.Equal(t, "https://repo.example.org/repo", repo.Address)
	assert.Equal(t, "abcdef", repo.Fingerprint)
	assert.Equal(t, "main", repo.DisplayName())
	assert.Equal(t, "alice", repo.Username)
	require.Len(t, repo.UserMirrors, 1)
	assert.True(t, repo.UserMirrors[0].IsUserMirror)
	assert.True(t, repo.Enabled)
}

func TestLoadConfig_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Settings.UpdateInterval, cfg.Settings.UpdateInterval)

	_, err = LoadConfig("")
	assert.ErrorIs(t, err, errors.ErrEmptyConfigPath)
}

func TestSaveConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.LogLevel = "debug"
	cfg.Settings.UpdateInterval = 2 * time.Hour
	require.NoError(t, cfg.AddRepository(&RepositoryConfig{Name: "main", Address: "https://repo.example.org/repo"}))

	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.SaveConfig(configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(fsutil.FileModePrivate), info.Mode().Perm())
	_, err = os.Stat(configPath + ".tmp")
	assert.True(t, os.IsNotExist(err))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "update_interval: 2h0m0s")

	loaded, err := LoadConfig(configPath)
	require.NoError(t, err)
	assert.Equal(t, "debug", loaded.Settings.LogLevel)
	assert.Equal(t, 2*time.Hour, loaded.Settings.UpdateInterval)
	require.NotNil(t, loaded.GetRepository("main"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"negative timeout", func(c *Config) { c.Settings.HTTPTimeout = -time.Second }, errors.ErrHTTPTimeoutNegative},
		{"interval too short", func(c *Config) { c.Settings.UpdateInterval = 10 * time.Second }, errors.ErrUpdateIntervalInvalid},
		{"negative parallelism", func(c *Config) { c.Settings.ParallelRepos = -1 }, errors.ErrParallelReposInvalid},
		{"bad proxy", func(c *Config) { c.Settings.Proxy = "not a url" }, errors.ErrInvalidProxy},
		{"bad log level", func(c *Config) { c.Settings.LogLevel = "loud" }, errors.ErrConfigValidation},
		{"bad output format", func(c *Config) { c.Settings.OutputFormat = "xml" }, errors.ErrConfigValidation},
		{"repository without name", func(c *Config) {
			c.Repositories = []*RepositoryConfig{{Address: "https://a.example.org"}}
		}, errors.ErrInvalidRepository},
		{"repository without address", func(c *Config) {
			c.Repositories = []*RepositoryConfig{{Name: "a"}}
		}, errors.ErrInvalidRepository},
		{"relative address", func(c *Config) {
			c.Repositories = []*RepositoryConfig{{Name: "a", Address: "repo/path"}}
		}, errors.ErrInvalidRepository},
		{"duplicate repository", func(c *Config) {
			c.Repositories = []*RepositoryConfig{
				{Name: "a", Address: "https://a.example.org"},
				{Name: "a", Address: "https://b.example.org"},
			}
		}, errors.ErrInvalidRepository},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRepositories(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.AddRepository(&RepositoryConfig{Name: "a", Address: "https://a.example.org"}))
	assert.ErrorIs(t, cfg.AddRepository(&RepositoryConfig{Name: "a", Address: "https://b.example.org"}), errors.ErrInvalidRepository)
	assert.Equal(t, "a.example.org", cfg.GetRepository("a").GetURL().Host)
	assert.True(t, cfg.RemoveRepository("a"))
	assert.False(t, cfg.RemoveRepository("a"))
	assert.Nil(t, cfg.GetRepository("a"))
}

func TestSetAndGetValue(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.SetValue("update_interval", "90m"))
	require.NoError(t, cfg.SetValue("locales", "de-DE, en-US"))
	require.NoError(t, cfg.SetValue("parallel_repos", "3"))
	require.NoError(t, cfg.SetValue("include_known_vulnerabilities", "true"))

	assert.Equal(t, 90*time.Minute, cfg.Settings.UpdateInterval)
	v, err := cfg.GetValue("locales")
	require.NoError(t, err)
	assert.Equal(t, "de-DE,en-US", v)
	v, err = cfg.GetValue("update_interval")
	require.NoError(t, err)
	assert.Equal(t, "1h30m0s", v)

	assert.Error(t, cfg.SetValue("parallel_repos", "many"))
	assert.Error(t, cfg.SetValue("update_interval", "5s"), "validation runs after the change")
	assert.Error(t, cfg.SetValue("nope", "1"))
	_, err = cfg.GetValue("nope")
	assert.Error(t, err)
}

func TestToMap(t *testing.T) {
	m := DefaultConfig().ToMap()
	for _, key := range []string{"data_dir", "cache_dir", "http_timeout", "update_interval", "device", "log_level"} {
		assert.Contains(t, m, key)
	}
	assert.True(t, strings.HasPrefix(m["device"], "sdk"), m["device"])
}

func TestPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Settings.DataDir = "/data"
	cfg.Settings.CacheDir = "/cache"
	assert.Equal(t, filepath.Join("/data", "catalog.db"), cfg.GetDatabasePath())
	assert.Equal(t, filepath.Join("/cache", "indexes"), cfg.GetIndexCacheDir())

	p, err := GetDefaultConfigPath()
	if err == nil {
		assert.Equal(t, "config.yaml", filepath.Base(p))
	}
}
