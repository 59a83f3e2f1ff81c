package config

import (
	"fmt"
	"time"
)

// Config is the complete tool configuration.
type Config struct {
	// BaseDir is the directory policy content files resolve against
	BaseDir string `yaml:"base_dir"`

	// Manifest is the path to the policy manifest
	Manifest string `yaml:"manifest"`

	// DryRun computes and reports mutations without invoking them
	DryRun bool `yaml:"dry_run"`

	// SkipUnchanged short-circuits updates when remote state already
	// matches. Off by default: updates are otherwise unconditional.
	SkipUnchanged bool `yaml:"skip_unchanged"`

	// Endpoint configures the management-plane connection
	Endpoint EndpointConfig `yaml:"endpoint"`

	// Retry configures the remote-call retry decorator
	Retry RetryConfig `yaml:"retry"`

	// History configures the local action log
	History HistoryConfig `yaml:"history"`

	// Watch configures watch mode
	Watch WatchConfig `yaml:"watch"`

	// Logging configures structured logging
	Logging LoggingConfig `yaml:"logging"`
}

// EndpointConfig configures the management-plane HTTP binding.
type EndpointConfig struct {
	// URL is the API base, e.g. "https://mgmt.example.com"
	URL string `yaml:"url"`

	// Token is the bearer token. Prefer the SATURN_TOKEN environment
	// variable over committing a token to disk.
	Token string `yaml:"token"`

	// Timeout is the per-request timeout
	Timeout time.Duration `yaml:"timeout"`
}

// RetryConfig bounds remote-call retries.
type RetryConfig struct {
	// Attempts is the total tries per call, including the first
	Attempts uint `yaml:"attempts"`

	// Delay is the base delay between tries
	Delay time.Duration `yaml:"delay"`
}

// HistoryConfig configures the local SQLite action log.
type HistoryConfig struct {
	// Enabled turns action recording on
	Enabled bool `yaml:"enabled"`

	// Path is the database file path
	Path string `yaml:"path"`
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	// Debounce is the quiet period between the last file change and the
	// triggered run
	Debounce time.Duration `yaml:"debounce"`

	// Schedule is an optional cron expression for periodic runs
	Schedule string `yaml:"schedule"`

	// MetricsAddr, when set, serves Prometheus metrics on this address
	// while watch mode runs
	MetricsAddr string `yaml:"metrics_addr"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error")
	Level string `yaml:"level"`

	// Format is the output format ("text", "json")
	Format string `yaml:"format"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		BaseDir:  ".",
		Manifest: "rcp-manifest.yaml",
		Endpoint: EndpointConfig{
			Timeout: 30 * time.Second,
		},
		Retry: RetryConfig{
			Attempts: 3,
			Delay:    250 * time.Millisecond,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "saturn-history.db",
		},
		Watch: WatchConfig{
			Debounce: 500 * time.Millisecond,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks the configuration for values no run can work with.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level %q: must be debug, info, warn, or error", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid logging.format %q: must be text or json", c.Logging.Format)
	}

	if c.Manifest == "" {
		return fmt.Errorf("manifest must not be empty")
	}
	if c.BaseDir == "" {
		return fmt.Errorf("base_dir must not be empty")
	}
	if c.Retry.Attempts == 0 {
		return fmt.Errorf("retry.attempts must be at least 1")
	}
	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history.path must not be empty when history is enabled")
	}

	return nil
}
