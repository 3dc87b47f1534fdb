// Package config loads and saves the reposync configuration file. It holds the
// repositories seeded into the catalog on first start and the settings of the sync engine,
// and fills in defaults for everything the file leaves out.
package config

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cperrin88/reposync/pkg/errors"
	"github.com/cperrin88/reposync/pkg/fsutil"
	"github.com/cperrin88/reposync/pkg/platform"
)

// Config represents the application configuration.
type Config struct {
	Repositories []*RepositoryConfig `yaml:"repositories"`
	Settings     Settings            `yaml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// Storage
	DataDir  string `yaml:"data_dir,omitempty"`
	CacheDir string `yaml:"cache_dir,omitempty"`

	// Network
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	Proxy       string        `yaml:"proxy,omitempty"`
	UserAgent   string        `yaml:"user_agent,omitempty"`

	// Update checks
	Locales                     []string        `yaml:"locales,omitempty"`
	ReleaseChannels             []string        `yaml:"release_channels,omitempty"`
	IncludeKnownVulnerabilities bool            `yaml:"include_known_vulnerabilities,omitempty"`
	UpdateInterval              time.Duration   `yaml:"update_interval"`
	ParallelRepos               int             `yaml:"parallel_repos,omitempty"`
	Device                      platform.Device `yaml:"device,omitempty"`

	// Daemon
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
	HooksDir    string `yaml:"hooks_dir,omitempty"`

	// Output
	OutputFormat string `yaml:"output_format"` // text, json
	LogLevel     string `yaml:"log_level"`     // debug, info, warn, error
}

// Default configuration values.
const (
	DefaultHTTPTimeout    = 30 * time.Second
	DefaultUpdateInterval = 4 * time.Hour
	MinUpdateInterval     = time.Minute

	// YAMLIndent is the number of spaces to use for YAML indentation.
	YAMLIndent = 2
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dataDir, err := fsutil.GetDataDir()
	if err != nil {
		dataDir = filepath.Join(".", fsutil.AppName)
	}
	cacheDir, err := fsutil.GetCacheDir()
	if err != nil {
		cacheDir = filepath.Join(os.TempDir(), fsutil.AppName)
	}

	return &Config{
		Repositories: []*RepositoryConfig{},
		Settings: Settings{
			DataDir:        dataDir,
			CacheDir:       cacheDir,
			HTTPTimeout:    DefaultHTTPTimeout,
			UpdateInterval: DefaultUpdateInterval,
			Device:         platform.CurrentDevice(),
			OutputFormat:   "text",
			LogLevel:       "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrConfigValidation, err.Error())
	}
	return &config, nil
}

// SaveConfig writes the configuration through a temporary file and renames it into place.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}
	if err := os.MkdirAll(filepath.Dir(absPath), fsutil.DirModeDefault); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModePrivate)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)
	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}
	// Credentials may be stored in the file.
	if err := os.Chmod(absPath, fsutil.FileModePrivate); err != nil {
		return errors.Wrap(errors.ErrConfigFileChmod, err.Error())
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigMarshal, err.Error())
	}
	return data, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if err := validateRepositories(c.Repositories); err != nil {
		return err
	}
	return validateSettings(c.Settings)
}

func validateRepositories(repos []*RepositoryConfig) error {
	names := make(map[string]bool)
	for i, repo := range repos {
		if repo.Name == "" {
			return errors.ErrEmptyRepositoryNameWithIndex(i)
		}
		if repo.Address == "" {
			return errors.ErrRepositoryAddressEmptyWithName(repo.Name)
		}
		if u, err := url.Parse(repo.Address); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%w: repository %q has an invalid address %q", errors.ErrInvalidRepository, repo.Name, repo.Address)
		}
		if names[repo.Name] {
			return errors.ErrRepositoryExistsWithName(repo.Name)
		}
		names[repo.Name] = true
	}
	return nil
}

func validateSettings(s Settings) error {
	if s.HTTPTimeout < 0 {
		return errors.ErrHTTPTimeoutNegative
	}
	if s.UpdateInterval < MinUpdateInterval {
		return errors.ErrUpdateIntervalInvalid
	}
	if s.ParallelRepos < 0 {
		return errors.ErrParallelReposInvalid
	}
	if _, err := s.ProxyURL(); err != nil {
		return err
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[s.OutputFormat] {
		return errors.ErrInvalidOutputFormatWithDetails(s.OutputFormat)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(s.LogLevel)] {
		return errors.ErrInvalidLogLevelWithDetails(s.LogLevel)
	}
	return nil
}

// ProxyURL parses the configured proxy, nil when none is set.
func (s Settings) ProxyURL() (*url.URL, error) {
	if s.Proxy == "" {
		return nil, nil
	}
	u, err := url.Parse(s.Proxy)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", errors.ErrInvalidProxy, s.Proxy)
	}
	return u, nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	path, err := fsutil.GetConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return path, nil
}

// AddRepository adds a repository. It fails if the name is already taken.
func (c *Config) AddRepository(repo *RepositoryConfig) error {
	if c.GetRepository(repo.Name) != nil {
		return errors.ErrRepositoryExistsWithName(repo.Name)
	}
	c.Repositories = append(c.Repositories, repo)
	return nil
}

// RemoveRepository removes a repository by name.
func (c *Config) RemoveRepository(name string) bool {
	for i, repo := range c.Repositories {
		if repo.Name == name {
			c.Repositories = append(c.Repositories[:i], c.Repositories[i+1:]...)
			return true
		}
	}
	return false
}

// GetRepository gets a repository configuration by name.
func (c *Config) GetRepository(name string) *RepositoryConfig {
	for _, repo := range c.Repositories {
		if repo.Name == name {
			return repo
		}
	}
	return nil
}

// GetDatabasePath returns the path of the catalog database.
func (c *Config) GetDatabasePath() string {
	return filepath.Join(c.Settings.DataDir, "catalog.db")
}

// GetIndexCacheDir returns the directory downloaded index files are kept in.
func (c *Config) GetIndexCacheDir() string {
	return filepath.Join(c.Settings.CacheDir, "indexes")
}

// applyDefaults fills in missing values with defaults.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Settings.DataDir == "" {
		c.Settings.DataDir = defaults.Settings.DataDir
	}
	if c.Settings.CacheDir == "" {
		c.Settings.CacheDir = defaults.Settings.CacheDir
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = defaults.Settings.HTTPTimeout
	}
	if c.Settings.UpdateInterval == 0 {
		c.Settings.UpdateInterval = defaults.Settings.UpdateInterval
	}
	if c.Settings.OutputFormat == "" {
		c.Settings.OutputFormat = defaults.Settings.OutputFormat
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = defaults.Settings.LogLevel
	}
	c.Settings.Device = c.Settings.Device.WithDefaults()
	if c.Repositories == nil {
		c.Repositories = []*RepositoryConfig{}
	}
}
