package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/1broseidon/treetile/internal/bus"
	"github.com/1broseidon/treetile/internal/config"
	"github.com/1broseidon/treetile/internal/container"
	"github.com/1broseidon/treetile/internal/geom"
	"github.com/1broseidon/treetile/internal/ipc"
	"github.com/1broseidon/treetile/internal/platform"
	"github.com/1broseidon/treetile/internal/wm"
)

type fakeSource struct {
	*platform.Memory
	mu   sync.Mutex
	sink func(platform.Event)
	quit chan struct{}
	once sync.Once
}

func newFakeSource(displays ...platform.Display) *fakeSource {
	return &fakeSource{Memory: platform.NewMemory(displays...), quit: make(chan struct{})}
}

func (f *fakeSource) Listen(sink func(platform.Event), _ time.Duration, _ *slog.Logger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sink = sink
	return nil
}

func (f *fakeSource) EventLoop() { <-f.quit }

func (f *fakeSource) Quit() { f.once.Do(func() { close(f.quit) }) }

func (f *fakeSource) emit(ev platform.Event) {
	f.mu.Lock()
	sink := f.sink
	f.mu.Unlock()
	sink(ev)
}

var (
	left  = geom.Rect{Width: 1000, Height: 500}
	right = geom.Rect{X: 1000, Width: 800, Height: 600}
)

func twoDisplays() *fakeSource {
	return newFakeSource(
		platform.Display{ID: 0, Name: "DP-1", Bounds: left, Usable: left},
		platform.Display{ID: 1, Name: "HDMI-1", Bounds: right, Usable: right},
	)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Workspaces = []string{"1", "2", "3"}
	cfg.ReconcileIntervalSeconds = 0
	return cfg
}

func managedCount(t *testing.T, d *Daemon) int {
	t.Helper()
	n := 0
	_ = d.Bus().Exclusive(func(bus.Dispatcher) error {
		n = len(d.Tree().Windows())
		return nil
	})
	return n
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func workspaceNames(tree *container.Tree, device string) []string {
	var out []string
	for _, c := range tree.Children(tree.MonitorByName(device)) {
		out = append(out, c.(*container.Workspace).Name)
	}
	return out
}

func TestDaemon_RunAdoptsWindowsAndServesIPC(t *testing.T) {
	src := twoDisplays()
	src.AddWindow(platform.Window{ID: 5, Bounds: geom.Rect{Width: 300, Height: 200}}, true)

	socket := filepath.Join(t.TempDir(), "d.sock")
	d, err := New(Options{Config: testConfig(), Source: src, SocketPath: socket})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	waitFor(t, "window 5 adopted", func() bool { return managedCount(t, d) == 1 })

	_ = d.Bus().Exclusive(func(bus.Dispatcher) error {
		tree := d.Tree()
		if got := workspaceNames(tree, "DP-1"); len(got) != 2 || got[0] != "1" || got[1] != "3" {
			t.Errorf("expected DP-1 workspaces [1 3], got %v", got)
		}
		if got := workspaceNames(tree, "HDMI-1"); len(got) != 1 || got[0] != "2" {
			t.Errorf("expected HDMI-1 workspaces [2], got %v", got)
		}
		return nil
	})

	src.AddWindow(platform.Window{ID: 9, Bounds: geom.Rect{Width: 300, Height: 200}}, true)
	src.emit(platform.Event{Kind: platform.EventShown, Window: 9})
	waitFor(t, "window 9 managed", func() bool { return managedCount(t, d) == 2 })

	status, err := ipc.NewClientAt(socket).GetStatus()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Windows != 2 || status.Monitors != 2 {
		t.Fatalf("expected 2 windows on 2 monitors, got %+v", status)
	}

	src.RemoveWindow(5)
	src.emit(platform.Event{Kind: platform.EventDestroyed, Window: 5})
	waitFor(t, "window 5 unmanaged", func() bool { return managedCount(t, d) == 1 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("daemon did not stop")
	}
}

func TestDaemon_DisplayWithoutWorkspaceGetsOneNamedAfterIt(t *testing.T) {
	cfg := testConfig()
	cfg.Workspaces = []string{"main"}
	d, err := New(Options{Config: cfg, Source: twoDisplays()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := d.attachMonitors(); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if got := workspaceNames(d.Tree(), "HDMI-1"); len(got) != 1 || got[0] != "HDMI-1" {
		t.Fatalf("expected workspace HDMI-1, got %v", got)
	}
}

func TestDaemon_NoDisplaysIsUserFatal(t *testing.T) {
	d, err := New(Options{Config: testConfig(), Source: newFakeSource()})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	err = d.Run(context.Background())
	if err == nil || !bus.IsUserFatal(err) {
		t.Fatalf("expected user-fatal error, got %v", err)
	}
}

func TestDaemon_ReloadAppliesGaps(t *testing.T) {
	src := twoDisplays()
	d, err := New(Options{Config: testConfig(), Source: src})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := d.attachMonitors(); err != nil {
		t.Fatalf("attach: %v", err)
	}
	src.AddWindow(platform.Window{ID: 5, Bounds: geom.Rect{Width: 300, Height: 200}}, true)
	if err := d.Bus().RaiseEvent(wm.WindowShown{Handle: 5}); err != nil {
		t.Fatalf("shown: %v", err)
	}
	src.ResetCalls()

	cfg := testConfig()
	cfg.OuterGap = 10
	if err := d.Reload(cfg); err != nil {
		t.Fatalf("reload: %v", err)
	}

	want := geom.Rect{X: 10, Y: 10, Width: 980, Height: 480}
	var got []geom.Rect
	for _, c := range src.Calls() {
		if c.Op == "move_resize" && c.Window == 5 {
			got = append(got, c.Bounds)
		}
	}
	if len(got) != 1 || got[0] != want {
		t.Fatalf("expected one move_resize to %+v, got %+v", want, got)
	}
}

type recorder struct{ events []bus.Event }

func (r *recorder) Post(evt bus.Event) { r.events = append(r.events, evt) }

func TestReconciler_PostsMissedNotifications(t *testing.T) {
	src := twoDisplays()
	d, err := New(Options{Config: testConfig(), Source: src})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := d.attachMonitors(); err != nil {
		t.Fatalf("attach: %v", err)
	}
	rec := &recorder{}
	r := NewReconciler(ReconcilerConfig{}, src, d.Bus(), d.Tree(), rec)

	src.AddWindow(platform.Window{ID: 5}, true)
	src.AddWindow(platform.Window{ID: 6}, false)
	if n := r.ReconcileNow(); n != 1 {
		t.Fatalf("expected 1 event, got %d", n)
	}
	if shown, ok := rec.events[0].(wm.WindowShown); !ok || shown.Handle != 5 {
		t.Fatalf("expected WindowShown for 5, got %#v", rec.events[0])
	}

	for _, evt := range rec.events {
		if err := d.Bus().RaiseEvent(evt); err != nil {
			t.Fatalf("raise: %v", err)
		}
	}
	rec.events = nil
	if n := r.ReconcileNow(); n != 0 {
		t.Fatalf("expected steady state, got %d events: %#v", n, rec.events)
	}

	// Off the listing but still alive: left alone.
	src.AddWindow(platform.Window{ID: 5}, false)
	if n := r.ReconcileNow(); n != 0 {
		t.Fatalf("expected no events for a hidden but existing window, got %#v", rec.events)
	}

	src.RemoveWindow(5)
	if n := r.ReconcileNow(); n != 1 {
		t.Fatalf("expected 1 event, got %d", n)
	}
	if gone, ok := rec.events[0].(wm.WindowDestroyed); !ok || gone.Handle != 5 {
		t.Fatalf("expected WindowDestroyed for 5, got %#v", rec.events[0])
	}
}
