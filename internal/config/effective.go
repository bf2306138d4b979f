package config

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BuildEffectiveConfig applies raw on top of the defaults.
func BuildEffectiveConfig(raw RawConfig) *Config {
	cfg := DefaultConfig()

	if raw.InnerGap != nil {
		cfg.InnerGap = *raw.InnerGap
	}
	if raw.OuterGap != nil {
		cfg.OuterGap = *raw.OuterGap
	}
	if raw.Workspaces != nil {
		cfg.Workspaces = make([]string, 0, len(raw.Workspaces))
		for _, name := range raw.Workspaces {
			cfg.Workspaces = append(cfg.Workspaces, strings.TrimSpace(name))
		}
	}
	if raw.LogLevel != nil {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}
	if raw.ErrorLog != nil {
		if raw.ErrorLog.Enabled != nil {
			cfg.ErrorLog.Enabled = *raw.ErrorLog.Enabled
		}
		if raw.ErrorLog.File != nil {
			cfg.ErrorLog.File = *raw.ErrorLog.File
		}
		if raw.ErrorLog.MaxSizeMB != nil {
			cfg.ErrorLog.MaxSizeMB = *raw.ErrorLog.MaxSizeMB
		}
		if raw.ErrorLog.MaxFiles != nil {
			cfg.ErrorLog.MaxFiles = *raw.ErrorLog.MaxFiles
		}
	}
	if raw.Alerts != nil {
		cfg.Alerts = strings.ToLower(strings.TrimSpace(*raw.Alerts))
	}
	if raw.ReconcileIntervalSeconds != nil {
		cfg.ReconcileIntervalSeconds = *raw.ReconcileIntervalSeconds
	}
	if raw.SettleDelayMS != nil {
		cfg.SettleDelayMS = *raw.SettleDelayMS
	}
	if raw.Display != nil {
		cfg.Display = strings.TrimSpace(*raw.Display)
	}

	return cfg
}
