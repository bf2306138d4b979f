package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/1broseidon/treetile/internal/alert"
	"github.com/1broseidon/treetile/internal/bus"
	"github.com/1broseidon/treetile/internal/config"
	"github.com/1broseidon/treetile/internal/daemon"
	"github.com/1broseidon/treetile/internal/errorlog"
	"github.com/1broseidon/treetile/internal/ipc"
	"github.com/1broseidon/treetile/internal/platform"
	"github.com/1broseidon/treetile/internal/runtimepath"
)

func runDaemon(args []string) int {
	fs := flag.NewFlagSet("daemon", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: treetile daemon [--path PATH]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the window manager in the foreground. SIGHUP reloads gaps from config.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}
	path := fs.String("path", "", "Config file path (default: ~/.config/treetile/config.yaml)")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon takes no arguments")
		fs.Usage()
		return 2
	}

	cfg, err := loadConfig(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	logger.Info("configuration loaded", "inner_gap", cfg.InnerGap, "outer_gap", cfg.OuterGap, "workspaces", len(cfg.Workspaces))

	elCfg := cfg.GetErrorLogConfig()
	errLog, err := errorlog.Open(errorlog.Config{
		Enabled:   elCfg.Enabled,
		FilePath:  elCfg.File,
		MaxSizeMB: elCfg.MaxSizeMB,
		MaxFiles:  elCfg.MaxFiles,
	})
	if err != nil {
		logger.Warn("error log disabled", "error", err)
		errLog = nil
	}
	defer errLog.Close()

	mode, err := alert.ParseMode(cfg.Alerts)
	if err != nil {
		// Validate already rejected this; keep the daemon usable anyway.
		mode = alert.ModeAuto
	}
	alerter := alert.New(mode, logger)

	backend, err := platform.NewLinuxBackendFromDisplay(cfg.Display)
	if err != nil {
		alerter.Alert(err)
		return 1
	}
	defer backend.Disconnect()

	socketPath, err := runtimepath.SocketPath()
	if err != nil {
		logger.Warn("IPC disabled", "error", err)
		socketPath = ""
	} else if ipc.NewClientAt(socketPath).Ping() == nil {
		fmt.Fprintf(os.Stderr, "a treetile daemon is already running on %s\n", socketPath)
		return 1
	}

	var recorder bus.Recorder
	if errLog != nil {
		recorder = errLog
	}
	d, err := daemon.New(daemon.Options{
		Config:     cfg,
		Source:     backend,
		SocketPath: socketPath,
		Logger:     logger,
		Recorder:   recorder,
		Alerter:    alerter,
	})
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)
	go func() {
		for {
			select {
			case sig := <-sigCh:
				if sig != syscall.SIGHUP {
					cancel()
					return
				}
				logger.Info("received SIGHUP, reloading config")
				newCfg, err := loadConfig(*path)
				if err != nil {
					logger.Error("config reload failed", "error", err)
					continue
				}
				if err := d.Reload(newCfg); err != nil {
					logger.Error("config reload failed", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := d.Run(ctx); err != nil {
		if bus.IsUserFatal(err) {
			alerter.Alert(err)
		}
		logger.Error("daemon stopped", "error", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	res, err := config.LoadFromPath(path)
	if err != nil {
		return nil, err
	}
	return res.Config, nil
}

func loadConfigWithSources(path string) (*config.LoadResult, error) {
	if path == "" {
		return config.LoadWithSources()
	}
	return config.LoadFromPath(path)
}
