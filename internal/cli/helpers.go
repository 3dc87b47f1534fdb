package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/cperrin88/reposync/internal/logger"
	"github.com/cperrin88/reposync/pkg/config"
	"github.com/cperrin88/reposync/pkg/orchestrator"
)

// These variables will be set by the main package.
var (
	ConfigPath   *string
	Verbose      *bool
	OutputFormat *string
)

// loadConfig loads the configuration file and applies the global flags.
func loadConfig() (*config.Config, error) {
	configPath := getConfigPath()
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if OutputFormat != nil && *OutputFormat != "" {
		cfg.Settings.OutputFormat = *OutputFormat
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	level := cfg.Settings.LogLevel
	if Verbose != nil && *Verbose {
		level = "debug"
	}
	format := logger.FormatText
	if cfg.Settings.OutputFormat == "json" {
		format = logger.FormatJSON
	}
	logger.InitLogger(level, format)
	return cfg, nil
}

func getConfigPath() string {
	if ConfigPath != nil && *ConfigPath != "" {
		return *ConfigPath
	}

	defaultPath, err := config.GetDefaultConfigPath()
	if err != nil {
		logger.Warn("Failed to get default config path, using empty path", logger.Fields{"error": err.Error()})
		return ""
	}
	return defaultPath
}

func jsonOutput(cfg *config.Config) bool {
	return cfg.Settings.OutputFormat == "json"
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, TabWidth, ' ', 0)
}

// printEvent renders progress events for interactive commands.
func printEvent(e orchestrator.Event) {
	switch {
	case e.Phase == orchestrator.PhaseError:
		fmt.Fprintf(os.Stderr, "error: %s\n", e.Msg)
	case e.Msg == "":
		fmt.Printf("%s\n", e.Phase)
	case e.Percent > 0 && e.Percent < 100:
		fmt.Printf("%s: %s [%d%%]\n", e.Phase, e.Msg, e.Percent)
	default:
		fmt.Printf("%s: %s\n", e.Phase, e.Msg)
	}
}

func formatMillis(ms int64) string {
	if ms <= 0 {
		return "never"
	}
	return time.UnixMilli(ms).Local().Format(time.DateTime)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

func parseID(arg string) (int64, bool) {
	id, err := strconv.ParseInt(arg, 10, 64)
	return id, err == nil && id > 0
}
