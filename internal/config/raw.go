package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// IncludeList supports either:
//
//	include: "/path/to/file.yaml"
//
// or:
//
//	include:
//	  - "/path/to/file.yaml"
//	  - "/path/to/dir"
type IncludeList []string

func (l *IncludeList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case 0:
		// Not present.
		*l = nil
		return nil
	case yaml.ScalarNode:
		if value.Tag != "!!str" {
			return fmt.Errorf("include must be a string or list of strings")
		}
		*l = []string{value.Value}
		return nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(value.Content))
		for _, item := range value.Content {
			if item.Kind != yaml.ScalarNode || item.Tag != "!!str" {
				return fmt.Errorf("include entries must be strings")
			}
			out = append(out, item.Value)
		}
		*l = out
		return nil
	default:
		return fmt.Errorf("include must be a string or list of strings")
	}
}

type RawErrorLogConfig struct {
	Enabled   *bool   `yaml:"enabled"`
	File      *string `yaml:"file"`
	MaxSizeMB *int    `yaml:"max_size_mb"`
	MaxFiles  *int    `yaml:"max_files"`
}

// RawConfig mirrors Config with optional fields so that files can be merged
// key by key before defaults apply.
type RawConfig struct {
	Include                  IncludeList        `yaml:"include"`
	InnerGap                 *int               `yaml:"inner_gap"`
	OuterGap                 *int               `yaml:"outer_gap"`
	Workspaces               []string           `yaml:"workspaces"`
	LogLevel                 *string            `yaml:"log_level"`
	ErrorLog                 *RawErrorLogConfig `yaml:"error_log"`
	Alerts                   *string            `yaml:"alerts"`
	ReconcileIntervalSeconds *int               `yaml:"reconcile_interval_seconds"`
	SettleDelayMS            *int               `yaml:"settle_delay_ms"`
	Display                  *string            `yaml:"display"`
}

// merge returns c overlaid with every field overlay sets.
func (c RawConfig) merge(overlay RawConfig) RawConfig {
	out := c
	if overlay.InnerGap != nil {
		out.InnerGap = overlay.InnerGap
	}
	if overlay.OuterGap != nil {
		out.OuterGap = overlay.OuterGap
	}
	if overlay.Workspaces != nil {
		out.Workspaces = append([]string(nil), overlay.Workspaces...)
	}
	if overlay.LogLevel != nil {
		out.LogLevel = overlay.LogLevel
	}
	if overlay.ErrorLog != nil {
		out.ErrorLog = mergeRawErrorLog(out.ErrorLog, overlay.ErrorLog)
	}
	if overlay.Alerts != nil {
		out.Alerts = overlay.Alerts
	}
	if overlay.ReconcileIntervalSeconds != nil {
		out.ReconcileIntervalSeconds = overlay.ReconcileIntervalSeconds
	}
	if overlay.SettleDelayMS != nil {
		out.SettleDelayMS = overlay.SettleDelayMS
	}
	if overlay.Display != nil {
		out.Display = overlay.Display
	}
	return out
}

func mergeRawErrorLog(base, overlay *RawErrorLogConfig) *RawErrorLogConfig {
	if base == nil {
		copied := *overlay
		return &copied
	}
	out := *base
	if overlay.Enabled != nil {
		out.Enabled = overlay.Enabled
	}
	if overlay.File != nil {
		out.File = overlay.File
	}
	if overlay.MaxSizeMB != nil {
		out.MaxSizeMB = overlay.MaxSizeMB
	}
	if overlay.MaxFiles != nil {
		out.MaxFiles = overlay.MaxFiles
	}
	return &out
}
