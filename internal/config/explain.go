package config

import (
	"fmt"
	"strings"
)

// Explain returns the effective value at the given YAML-like path and its source.
//
// Supported paths:
//
//	inner_gap
//	outer_gap
//	workspaces
//	log_level
//	alerts
//	reconcile_interval_seconds
//	settle_delay_ms
//	display
//	error_log.enabled
//	error_log.file
//	error_log.max_size_mb
//	error_log.max_files
func Explain(res *LoadResult, path string) (any, Source, error) {
	if res == nil || res.Config == nil {
		return nil, Source{}, fmt.Errorf("no config loaded")
	}
	if path == "" {
		return nil, Source{}, fmt.Errorf("path is empty")
	}

	value, err := lookupValue(res.Config, path)
	if err != nil {
		return nil, Source{}, err
	}

	if src, ok := res.Sources[path]; ok {
		return value, src, nil
	}
	return value, Source{Kind: SourceDefault, Name: "defaults"}, nil
}

func lookupValue(cfg *Config, path string) (any, error) {
	parts := strings.Split(path, ".")
	if parts[0] == "error_log" {
		if len(parts) != 2 {
			return nil, fmt.Errorf("unsupported path %q", path)
		}
		errLog := cfg.GetErrorLogConfig()
		switch parts[1] {
		case "enabled":
			return errLog.Enabled, nil
		case "file":
			return errLog.File, nil
		case "max_size_mb":
			return errLog.MaxSizeMB, nil
		case "max_files":
			return errLog.MaxFiles, nil
		}
		return nil, fmt.Errorf("unsupported path %q", path)
	}

	if len(parts) != 1 {
		return nil, fmt.Errorf("unsupported path %q", path)
	}
	switch path {
	case "inner_gap":
		return cfg.InnerGap, nil
	case "outer_gap":
		return cfg.OuterGap, nil
	case "workspaces":
		return append([]string(nil), cfg.Workspaces...), nil
	case "log_level":
		return cfg.LogLevel, nil
	case "alerts":
		return cfg.Alerts, nil
	case "reconcile_interval_seconds":
		return cfg.ReconcileIntervalSeconds, nil
	case "settle_delay_ms":
		return cfg.SettleDelayMS, nil
	case "display":
		return cfg.Display, nil
	}
	return nil, fmt.Errorf("unsupported path %q", path)
}
