// Package daemon wires the bus, the container tree, the OS backend and the
// IPC server into one long-running process.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/1broseidon/treetile/internal/bus"
	"github.com/1broseidon/treetile/internal/config"
	"github.com/1broseidon/treetile/internal/container"
	"github.com/1broseidon/treetile/internal/ipc"
	"github.com/1broseidon/treetile/internal/platform"
	"github.com/1broseidon/treetile/internal/wm"
)

// Source is a backend that also produces window notifications.
type Source interface {
	platform.Backend
	// Listen installs the notification hook. sink must not block.
	Listen(sink func(platform.Event), settle time.Duration, logger *slog.Logger) error
	// EventLoop delivers notifications until Quit is called.
	EventLoop()
	Quit()
}

// Options configures a Daemon.
type Options struct {
	Config *config.Config
	Source Source
	// SocketPath enables the IPC server when set.
	SocketPath string
	Logger     *slog.Logger
	Recorder   bus.Recorder
	Alerter    bus.Alerter
}

// Daemon owns the running window manager.
type Daemon struct {
	cfg    *config.Config
	source Source
	logger *slog.Logger

	bus        *bus.Bus
	svc        *container.Service
	queue      *bus.Queue
	reconciler *Reconciler
	socketPath string
}

// New builds the bus and registers every handler. It fails when a declared
// command has no handler.
func New(opts Options) (*Daemon, error) {
	if opts.Source == nil {
		return nil, errors.New("daemon: source is required")
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	b := bus.New(bus.Options{Logger: logger, Recorder: opts.Recorder, Alerter: opts.Alerter})
	svc := container.NewService(container.Options{
		DPI:      opts.Source,
		InnerGap: cfg.InnerGap,
		OuterGap: cfg.OuterGap,
	})
	if err := wm.New(svc, opts.Source, logger).Register(b); err != nil {
		return nil, fmt.Errorf("register handlers: %w", err)
	}
	if err := b.RequireCommands(wm.Commands()...); err != nil {
		return nil, fmt.Errorf("startup validation: %w", err)
	}

	queue := bus.NewQueue()
	d := &Daemon{
		cfg:        cfg,
		source:     opts.Source,
		logger:     logger,
		bus:        b,
		svc:        svc,
		queue:      queue,
		socketPath: opts.SocketPath,
	}
	d.reconciler = NewReconciler(ReconcilerConfig{
		Interval: time.Duration(cfg.ReconcileIntervalSeconds) * time.Second,
		Logger:   logger,
	}, opts.Source, b, svc.Tree(), queue)
	return d, nil
}

// Bus returns the dispatch facility.
func (d *Daemon) Bus() *bus.Bus { return d.bus }

// Tree returns the managed tree. Read it inside Bus().Exclusive.
func (d *Daemon) Tree() *container.Tree { return d.svc.Tree() }

// Run attaches monitors, adopts existing windows and processes notifications
// until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.attachMonitors(); err != nil {
		return err
	}

	sink := func(ev platform.Event) {
		if evt, ok := wm.FromPlatform(ev); ok {
			d.queue.Post(evt)
		}
	}
	settle := time.Duration(d.cfg.SettleDelayMS) * time.Millisecond
	if err := d.source.Listen(sink, settle, d.logger); err != nil {
		return fmt.Errorf("listen for window events: %w", err)
	}

	var server *ipc.Server
	if d.socketPath != "" {
		srv, err := ipc.NewServer(d.bus, d.svc.Tree(), ipc.ServerOptions{SocketPath: d.socketPath, Logger: d.logger})
		if err != nil {
			return fmt.Errorf("failed to create IPC server: %w", err)
		}
		if err := srv.Start(); err != nil {
			return fmt.Errorf("failed to start IPC server: %w", err)
		}
		server = srv
		defer server.Stop()
	}

	// Windows that existed before the daemon are adopted through the same
	// path as newly shown ones.
	if posted := d.reconciler.ReconcileNow(); posted > 0 {
		d.logger.Info("adopting existing windows", "count", posted)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// The event loop only notices Quit on its next event, so shutdown does
	// not wait for it.
	go func() {
		d.source.EventLoop()
		// A dead event loop means the display is gone.
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = d.queue.Run(ctx, d.bus)
	}()
	if d.cfg.ReconcileIntervalSeconds > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.reconciler.Run(ctx)
		}()
	}

	d.logger.Info("treetile daemon started")
	<-ctx.Done()

	d.logger.Info("shutting down treetile daemon")
	d.source.Quit()
	wg.Wait()
	return nil
}

// attachMonitors adds one monitor per display and deals the configured
// workspaces across them in order. A display left without a configured
// workspace gets one named after it.
func (d *Daemon) attachMonitors() error {
	displays, err := d.source.Displays()
	if err != nil {
		return bus.UserFatal(fmt.Errorf("query displays: %w", err))
	}
	if len(displays) == 0 {
		return bus.UserFatal(errors.New("no displays found"))
	}

	names := make([][]string, len(displays))
	for i, ws := range d.cfg.Workspaces {
		slot := i % len(displays)
		names[slot] = append(names[slot], ws)
	}

	for i, disp := range displays {
		workspaces := names[i]
		if len(workspaces) == 0 {
			workspaces = []string{disp.Name}
		}
		bounds := disp.Usable
		if bounds.Width <= 0 || bounds.Height <= 0 {
			bounds = disp.Bounds
		}
		cmd := wm.AddMonitor{DeviceName: disp.Name, Bounds: bounds, Workspaces: workspaces}
		if _, err := d.bus.Invoke(cmd); err != nil {
			return err
		}
	}
	return nil
}

// Reload applies a new configuration to the running tree. Gaps take effect
// on the immediate redraw; workspace names and intervals need a restart.
func (d *Daemon) Reload(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("reload: config is nil")
	}
	return d.bus.Exclusive(func(disp bus.Dispatcher) error {
		d.cfg.InnerGap = cfg.InnerGap
		d.cfg.OuterGap = cfg.OuterGap
		d.svc.SetGaps(cfg.InnerGap, cfg.OuterGap)
		for _, ws := range d.svc.Tree().Workspaces() {
			d.svc.MarkDirty(ws)
		}
		_, err := disp.Invoke(wm.RedrawContainers{})
		if err == nil {
			d.logger.Info("config reloaded", "inner_gap", cfg.InnerGap, "outer_gap", cfg.OuterGap)
		}
		return err
	})
}
