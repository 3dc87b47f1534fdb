package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// SetValue sets a setting by its YAML key. List settings take comma separated values.
func (c *Config) SetValue(key, value string) error {
	s := &c.Settings
	switch key {
	case "data_dir":
		s.DataDir = value
	case "cache_dir":
		s.CacheDir = value
	case "proxy":
		s.Proxy = value
	case "user_agent":
		s.UserAgent = value
	case "metrics_addr":
		s.MetricsAddr = value
	case "hooks_dir":
		s.HooksDir = value
	case "output_format":
		s.OutputFormat = value
	case "log_level":
		s.LogLevel = value
	case "locales":
		s.Locales = splitList(value)
	case "release_channels":
		s.ReleaseChannels = splitList(value)
	case "http_timeout", "update_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %s", key, value)
		}
		if key == "http_timeout" {
			s.HTTPTimeout = d
		} else {
			s.UpdateInterval = d
		}
	case "parallel_repos":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer value for %s: %s", key, value)
		}
		s.ParallelRepos = n
	case "include_known_vulnerabilities":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %s", key, value)
		}
		s.IncludeKnownVulnerabilities = b
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return c.Validate()
}

// GetValue returns a setting by its YAML key.
func (c *Config) GetValue(key string) (string, error) {
	v, ok := c.ToMap()[key]
	if !ok {
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
	return v, nil
}

// ToMap renders the settings keyed by their YAML names, for display.
func (c *Config) ToMap() map[string]string {
	result := make(map[string]string)
	settingsValue := reflect.ValueOf(c.Settings)
	settingsType := settingsValue.Type()

	for i := 0; i < settingsValue.NumField(); i++ {
		yamlKey := strings.Split(settingsType.Field(i).Tag.Get("yaml"), ",")[0]
		if yamlKey == "" || yamlKey == "-" {
			continue
		}
		result[yamlKey] = formatValue(settingsValue.Field(i))
	}
	return result
}

func formatValue(v reflect.Value) string {
	if s, ok := v.Interface().(fmt.Stringer); ok {
		return s.String()
	}
	if v.Kind() == reflect.Slice {
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = fmt.Sprint(v.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v.Interface())
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
