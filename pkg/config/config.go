// Package config holds the driftlens configuration: instrumentation
// behavior, comparison thresholds and logging verbosity. Configuration is
// read from YAML; every field has a default so an absent file is valid.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the configuration file looked up by the CLIs.
const DefaultFile = "driftlens.yaml"

// Config is the root configuration.
type Config struct {
	Instrumentation Instrumentation `yaml:"instrumentation" json:"instrumentation"`
	Comparison      Comparison      `yaml:"comparison" json:"comparison"`
	Driver          Driver          `yaml:"driver" json:"driver"`
	Logging         LoggingConfig   `yaml:"logging" json:"logging"`
}

// Instrumentation configures an instrumentation session.
type Instrumentation struct {
	// Per-wrapper switches
	EnableScroll   bool `yaml:"enable_scroll" json:"enable_scroll"`
	EnableVideo    bool `yaml:"enable_video" json:"enable_video"`
	EnableTimer    bool `yaml:"enable_timer" json:"enable_timer"`
	EnableViewport bool `yaml:"enable_viewport" json:"enable_viewport"`

	// Verbose enables per-call entries (timer fires, scroll events, viewport checks)
	Verbose bool `yaml:"verbose" json:"verbose"`

	// ExportLogs flushes the log to the capture store after every append
	ExportLogs bool `yaml:"export_logs" json:"export_logs"`

	MaxLogEntries    int           `yaml:"max_log_entries" json:"max_log_entries"`
	IntervalLogEvery int           `yaml:"interval_log_every" json:"interval_log_every"`
	ScrollDebounce   time.Duration `yaml:"scroll_debounce" json:"scroll_debounce"`

	// Readiness polling for primitives defined after page load
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`
	PollTimeout  time.Duration `yaml:"poll_timeout" json:"poll_timeout"`
	PollBackoff  float64       `yaml:"poll_backoff" json:"poll_backoff"`

	StoragePath string `yaml:"storage_path" json:"storage_path"`
	DownloadDir string `yaml:"download_dir" json:"download_dir"`
}

// Comparison configures the comparison engine.
type Comparison struct {
	ResultsDir string `yaml:"results_dir" json:"results_dir"`
	Reference  string `yaml:"reference" json:"reference"`
	Candidate  string `yaml:"candidate" json:"candidate"`

	CategoryDeltaThreshold int     `yaml:"category_delta_threshold" json:"category_delta_threshold"`
	CriticalRatio          float64 `yaml:"critical_ratio" json:"critical_ratio"`
	HighRatio              float64 `yaml:"high_ratio" json:"high_ratio"`
	MetricDeltaMs          float64 `yaml:"metric_delta_ms" json:"metric_delta_ms"`
	DriftThresholdMs       float64 `yaml:"drift_threshold_ms" json:"drift_threshold_ms"`
	DriftDiffThreshold     int     `yaml:"drift_diff_threshold" json:"drift_diff_threshold"`

	// IgnoreMessages are glob patterns over "CATEGORY:message" keys excluded
	// from the unique-message diff.
	IgnoreMessages []string `yaml:"ignore_messages" json:"ignore_messages"`

	// MaxListed caps how many unique messages the console report prints per side.
	MaxListed int `yaml:"max_listed" json:"max_listed"`

	WriteArtifacts bool `yaml:"write_artifacts" json:"write_artifacts"`
}

// Driver configures browser-driven capture runs.
type Driver struct {
	URL      string   `yaml:"url" json:"url"`
	Browsers []string `yaml:"browsers" json:"browsers"`
	Headless bool     `yaml:"headless" json:"headless"`

	ViewportWidth  int `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height" json:"viewport_height"`

	// Expression that turns truthy once the page's monitors are created
	ReadyExpression string        `yaml:"ready_expression" json:"ready_expression"`
	ReadyTimeout    time.Duration `yaml:"ready_timeout" json:"ready_timeout"`

	// SettleTime is how long the page runs before the initial capture
	SettleTime     time.Duration `yaml:"settle_time" json:"settle_time"`
	ScrollDistance int           `yaml:"scroll_distance" json:"scroll_distance"`
	ScrollEndWait  time.Duration `yaml:"scroll_end_wait" json:"scroll_end_wait"`
}

// LoggingConfig defines logging configuration.
type LoggingConfig struct {
	// Verbosity controls console output: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Instrumentation: DefaultInstrumentation(),
		Comparison:      DefaultComparison(),
		Driver:          DefaultDriver(),
		Logging:         LoggingConfig{Verbosity: "normal"},
	}
}

// DefaultInstrumentation returns the default instrumentation settings.
func DefaultInstrumentation() Instrumentation {
	return Instrumentation{
		EnableScroll:     true,
		EnableVideo:      true,
		EnableTimer:      true,
		EnableViewport:   true,
		Verbose:          true,
		ExportLogs:       true,
		MaxLogEntries:    1000,
		IntervalLogEvery: 10,
		ScrollDebounce:   150 * time.Millisecond,
		PollInterval:     100 * time.Millisecond,
		PollTimeout:      10 * time.Second,
		PollBackoff:      1,
		StoragePath:      ".driftlens/stored-capture.json",
		DownloadDir:      ".",
	}
}

// DefaultComparison returns the default comparison thresholds.
func DefaultComparison() Comparison {
	return Comparison{
		ResultsDir:             "results",
		Reference:              "chromium",
		Candidate:              "webkit",
		CategoryDeltaThreshold: 5,
		CriticalRatio:          2,
		HighRatio:              1.5,
		MetricDeltaMs:          100,
		DriftThresholdMs:       50,
		DriftDiffThreshold:     5,
		MaxListed:              10,
		WriteArtifacts:         true,
	}
}

// DefaultDriver returns the default capture-run settings.
func DefaultDriver() Driver {
	return Driver{
		Browsers:        []string{"chromium", "webkit"},
		Headless:        true,
		ViewportWidth:   1280,
		ViewportHeight:  720,
		ReadyExpression: "typeof monitors !== 'undefined' && monitors.length > 0",
		ReadyTimeout:    30 * time.Second,
		SettleTime:      5 * time.Second,
		ScrollDistance:  500,
		ScrollEndWait:   2 * time.Second,
	}
}

// Validate checks the configuration and fills the logging default.
func (c *Config) Validate() error {
	if err := c.Instrumentation.Validate(); err != nil {
		return fmt.Errorf("instrumentation: %w", err)
	}
	if err := c.Comparison.Validate(); err != nil {
		return fmt.Errorf("comparison: %w", err)
	}
	if err := c.Driver.Validate(); err != nil {
		return fmt.Errorf("driver: %w", err)
	}

	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}
	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// Validate checks instrumentation settings.
func (i Instrumentation) Validate() error {
	if i.MaxLogEntries <= 0 {
		return fmt.Errorf("max_log_entries must be positive")
	}
	if i.IntervalLogEvery <= 0 {
		return fmt.Errorf("interval_log_every must be positive")
	}
	if i.ScrollDebounce <= 0 {
		return fmt.Errorf("scroll_debounce must be positive")
	}
	if i.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if i.PollTimeout < i.PollInterval {
		return fmt.Errorf("poll_timeout (%s) must be at least poll_interval (%s)", i.PollTimeout, i.PollInterval)
	}
	if i.PollBackoff < 1 {
		return fmt.Errorf("poll_backoff must be >= 1")
	}
	return nil
}

// Validate checks comparison thresholds.
func (c Comparison) Validate() error {
	if c.ResultsDir == "" {
		return fmt.Errorf("results_dir is required")
	}
	if c.Reference == "" || c.Candidate == "" {
		return fmt.Errorf("reference and candidate environments are required")
	}
	if c.Reference == c.Candidate {
		return fmt.Errorf("reference and candidate must differ (both %q)", c.Reference)
	}
	if c.CategoryDeltaThreshold < 0 || c.DriftDiffThreshold < 0 {
		return fmt.Errorf("count thresholds cannot be negative")
	}
	if c.HighRatio <= 1 || c.CriticalRatio < c.HighRatio {
		return fmt.Errorf("ratios must satisfy 1 < high_ratio <= critical_ratio")
	}
	if c.MetricDeltaMs < 0 || c.DriftThresholdMs < 0 {
		return fmt.Errorf("millisecond thresholds cannot be negative")
	}
	return nil
}

// Validate checks capture-run settings. The URL is only required when a run
// starts, so it is not checked here.
func (d Driver) Validate() error {
	if len(d.Browsers) == 0 {
		return fmt.Errorf("at least one browser is required")
	}
	for _, b := range d.Browsers {
		switch b {
		case "chromium", "webkit", "firefox":
		default:
			return fmt.Errorf("unknown browser %q (must be chromium, webkit or firefox)", b)
		}
	}
	if d.ViewportWidth <= 0 || d.ViewportHeight <= 0 {
		return fmt.Errorf("viewport dimensions must be positive")
	}
	if d.ReadyTimeout <= 0 || d.ScrollEndWait <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if d.SettleTime < 0 {
		return fmt.Errorf("settle_time cannot be negative")
	}
	return nil
}

// Load reads a YAML configuration file on top of the defaults. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
