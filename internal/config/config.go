package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/treetile/internal/runtimepath"
)

const (
	DefaultLogLevel                 = "info"
	DefaultAlerts                   = "auto"
	DefaultReconcileIntervalSeconds = 5
	DefaultSettleDelayMS            = 150
	DefaultErrorLogMaxSizeMB        = 10
	DefaultErrorLogMaxFiles         = 3
)

// ErrorLogConfig controls the persisted error record.
type ErrorLogConfig struct {
	Enabled   bool   `yaml:"enabled"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files"`
}

// Config is the effective configuration of the daemon and CLI.
type Config struct {
	InnerGap   int      `yaml:"inner_gap"`
	OuterGap   int      `yaml:"outer_gap"`
	Workspaces []string `yaml:"workspaces"`

	LogLevel string         `yaml:"log_level"`
	ErrorLog ErrorLogConfig `yaml:"error_log"`
	Alerts   string         `yaml:"alerts"`

	// ReconcileIntervalSeconds is how often the reconciler compares the
	// tree against the window system. 0 disables it.
	ReconcileIntervalSeconds int `yaml:"reconcile_interval_seconds"`
	// SettleDelayMS is how long a window must stay still before a move or
	// resize is reported.
	SettleDelayMS int `yaml:"settle_delay_ms"`

	Display string `yaml:"display,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		InnerGap:   0,
		OuterGap:   0,
		Workspaces: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9"},
		LogLevel:   DefaultLogLevel,
		ErrorLog: ErrorLogConfig{
			Enabled:   true,
			MaxSizeMB: DefaultErrorLogMaxSizeMB,
			MaxFiles:  DefaultErrorLogMaxFiles,
		},
		Alerts:                   DefaultAlerts,
		ReconcileIntervalSeconds: DefaultReconcileIntervalSeconds,
		SettleDelayMS:            DefaultSettleDelayMS,
	}
}

// GetErrorLogConfig returns the error log configuration with the default
// file location filled in.
func (c *Config) GetErrorLogConfig() ErrorLogConfig {
	if c == nil {
		return ErrorLogConfig{}
	}
	cfg := c.ErrorLog
	if cfg.File == "" {
		cfg.File = filepath.Join(runtimepath.StateDir(), "errors.log")
	}
	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = DefaultErrorLogMaxSizeMB
	}
	if cfg.MaxFiles == 0 {
		cfg.MaxFiles = DefaultErrorLogMaxFiles
	}
	return cfg
}

// SlogLevel maps log_level onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLogLevel(c.LogLevel)
	return level
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("must be one of debug, info, warn, error")
	}
}

// SaveTo writes the configuration to path. It marshals the effective
// config, so comments and include structure are not preserved.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks value ranges and cross-field rules.
func (c *Config) Validate() error {
	if c.InnerGap < 0 {
		return &ValidationError{Path: "inner_gap", Err: fmt.Errorf("must be >= 0")}
	}
	if c.OuterGap < 0 {
		return &ValidationError{Path: "outer_gap", Err: fmt.Errorf("must be >= 0")}
	}

	if len(c.Workspaces) == 0 {
		return &ValidationError{Path: "workspaces", Err: fmt.Errorf("at least one workspace is required")}
	}
	seen := make(map[string]bool, len(c.Workspaces))
	for i, name := range c.Workspaces {
		if strings.TrimSpace(name) == "" {
			return &ValidationError{Path: "workspaces", Err: fmt.Errorf("entry %d is empty", i)}
		}
		if seen[name] {
			return &ValidationError{Path: "workspaces", Err: fmt.Errorf("duplicate workspace %q", name)}
		}
		seen[name] = true
	}

	if _, err := parseLogLevel(c.LogLevel); err != nil {
		return &ValidationError{Path: "log_level", Err: err}
	}
	switch strings.ToLower(strings.TrimSpace(c.Alerts)) {
	case "auto", "terminal", "notify", "off":
	default:
		return &ValidationError{Path: "alerts", Err: fmt.Errorf("must be one of auto, terminal, notify, off")}
	}

	if c.ErrorLog.MaxSizeMB < 0 {
		return &ValidationError{Path: "error_log.max_size_mb", Err: fmt.Errorf("must be >= 0")}
	}
	if c.ErrorLog.MaxFiles < 0 {
		return &ValidationError{Path: "error_log.max_files", Err: fmt.Errorf("must be >= 0")}
	}
	if c.ReconcileIntervalSeconds < 0 {
		return &ValidationError{Path: "reconcile_interval_seconds", Err: fmt.Errorf("must be >= 0")}
	}
	if c.SettleDelayMS < 0 {
		return &ValidationError{Path: "settle_delay_ms", Err: fmt.Errorf("must be >= 0")}
	}
	return nil
}
