package daemon

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/1broseidon/treetile/internal/bus"
	"github.com/1broseidon/treetile/internal/container"
	"github.com/1broseidon/treetile/internal/platform"
	"github.com/1broseidon/treetile/internal/wm"
)

// Poster accepts events for later dispatch. *bus.Queue implements it.
type Poster interface {
	Post(evt bus.Event)
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically compares the managed tree against the window
// system and posts the notifications that were missed.
type Reconciler struct {
	interval time.Duration
	backend  platform.Backend
	bus      *bus.Bus
	tree     *container.Tree
	out      Poster
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler with the given configuration.
func NewReconciler(cfg ReconcilerConfig, backend platform.Backend, b *bus.Bus, tree *container.Tree, out Poster) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Reconciler{
		interval: interval,
		backend:  backend,
		bus:      b,
		tree:     tree,
		out:      out,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile()
		}
	}
}

// ReconcileNow runs one pass immediately and returns how many events it
// posted.
func (r *Reconciler) ReconcileNow() int {
	return r.reconcile()
}

func (r *Reconciler) reconcile() (posted int) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	listed, err := r.backend.ListWindows()
	if err != nil {
		r.logger.Error("reconciler: failed to list windows", "error", err)
		return 0
	}

	managed := make(map[container.Handle]bool)
	_ = r.bus.Exclusive(func(bus.Dispatcher) error {
		for _, w := range r.tree.Windows() {
			managed[w.Handle()] = true
		}
		return nil
	})

	seen := make(map[container.Handle]bool, len(listed))
	for _, w := range listed {
		handle := container.Handle(w.ID)
		seen[handle] = true
		if managed[handle] || !r.backend.IsManageable(w.ID) {
			continue
		}
		r.logger.Info("reconciler: unmanaged window detected", "hwnd", uint32(handle), "title", w.Title)
		r.out.Post(wm.WindowShown{Handle: handle})
		posted++
	}

	// Windows on other desktops drop out of the listing, so absence alone
	// does not mean the window is gone.
	for handle := range managed {
		if seen[handle] || r.backend.Exists(platform.WindowID(handle)) {
			continue
		}
		r.logger.Info("reconciler: vanished window detected", "hwnd", uint32(handle))
		r.out.Post(wm.WindowDestroyed{Handle: handle})
		posted++
	}
	return posted
}
