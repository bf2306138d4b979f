package wm

import (
	"errors"
	"reflect"
	"testing"

	"github.com/1broseidon/treetile/internal/bus"
	"github.com/1broseidon/treetile/internal/container"
	"github.com/1broseidon/treetile/internal/geom"
	"github.com/1broseidon/treetile/internal/platform"
	"github.com/1broseidon/treetile/internal/tiling"
)

var screen = geom.Rect{X: 0, Y: 0, Width: 1000, Height: 500}

type fixture struct {
	t   *testing.T
	bus *bus.Bus
	svc *container.Service
	os  *platform.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := platform.NewMemory(platform.Display{Name: "DP-1", Bounds: screen, Usable: screen})
	svc := container.NewService(container.Options{DPI: mem})
	b := bus.New(bus.Options{})
	if err := New(svc, mem, nil).Register(b); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := b.Invoke(AddMonitor{DeviceName: "DP-1", Bounds: screen, Workspaces: []string{"1", "2"}}); err != nil {
		t.Fatalf("add monitor: %v", err)
	}
	return &fixture{t: t, bus: b, svc: svc, os: mem}
}

// show creates an OS window and announces it.
func (f *fixture) show(handle container.Handle) container.Window {
	f.t.Helper()
	f.os.AddWindow(platform.Window{ID: platform.WindowID(handle), Bounds: geom.Rect{X: 40, Y: 40, Width: 300, Height: 200}}, true)
	if err := f.bus.RaiseEvent(WindowShown{Handle: handle}); err != nil {
		f.t.Fatalf("shown %d: %v", handle, err)
	}
	return f.window(handle)
}

func (f *fixture) focus(handle container.Handle) {
	f.t.Helper()
	if err := f.bus.RaiseEvent(WindowFocused{Handle: handle}); err != nil {
		f.t.Fatalf("focused %d: %v", handle, err)
	}
}

func (f *fixture) window(handle container.Handle) container.Window {
	f.t.Helper()
	w, ok := f.svc.Tree().WindowByHandle(handle)
	if !ok {
		f.t.Fatalf("expected window %d in tree", handle)
	}
	return w
}

func (f *fixture) workspace() *container.Workspace {
	return f.svc.Tree().WorkspaceByName("1")
}

func (f *fixture) order() []container.Handle {
	var out []container.Handle
	for _, c := range f.svc.Tree().Children(f.workspace()) {
		if w, ok := c.(container.Window); ok {
			out = append(out, w.Handle())
		}
	}
	return out
}

func (f *fixture) validate() {
	f.t.Helper()
	if err := f.svc.Tree().Validate(); err != nil {
		f.t.Fatalf("invalid tree: %v", err)
	}
}

func countCalls(calls []platform.Call, op string, id platform.WindowID) int {
	n := 0
	for _, c := range calls {
		if c.Op == op && c.Window == id {
			n++
		}
	}
	return n
}

func TestCommands_AllRegistered(t *testing.T) {
	f := newFixture(t)
	if err := f.bus.RequireCommands(Commands()...); err != nil {
		t.Fatalf("expected every command registered, got %v", err)
	}

	empty := bus.New(bus.Options{})
	err := empty.RequireCommands(Commands()...)
	if kind, ok := bus.KindOf(err); !ok || kind != bus.KindNoHandler {
		t.Fatalf("expected no-handler error, got %v", err)
	}
}

func TestRegister_TwiceFailsWithDuplicate(t *testing.T) {
	f := newFixture(t)
	err := New(f.svc, f.os, nil).Register(f.bus)
	if !bus.IsConfigError(err) {
		t.Fatalf("expected duplicate handler error, got %v", err)
	}
}

func TestWindowShown_ManagesAndTiles(t *testing.T) {
	f := newFixture(t)
	f.show(1)
	f.focus(1)
	f.show(2)

	if got := f.order(); !reflect.DeepEqual(got, []container.Handle{1, 2}) {
		t.Fatalf("expected order [1 2], got %v", got)
	}
	left, _ := f.os.WindowBounds(1)
	right, _ := f.os.WindowBounds(2)
	if left != (geom.Rect{X: 0, Y: 0, Width: 500, Height: 500}) {
		t.Fatalf("unexpected left cell %+v", left)
	}
	if right != (geom.Rect{X: 500, Y: 0, Width: 500, Height: 500}) {
		t.Fatalf("unexpected right cell %+v", right)
	}
	f.validate()
}

func TestWindowShown_KnownOrUnmanageableIsNoop(t *testing.T) {
	f := newFixture(t)
	f.show(1)
	f.os.ResetCalls()

	if err := f.bus.RaiseEvent(WindowShown{Handle: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.os.AddWindow(platform.Window{ID: 3}, false)
	if err := f.bus.RaiseEvent(WindowShown{Handle: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, ok := f.svc.Tree().WindowByHandle(3); ok {
		t.Fatalf("expected unmanageable window to stay out of the tree")
	}
	if calls := f.os.Calls(); len(calls) != 0 {
		t.Fatalf("expected no effects, got %+v", calls)
	}
}

func TestManageWindow_AppliesFrameExtents(t *testing.T) {
	f := newFixture(t)
	f.os.AddWindow(platform.Window{ID: 4, Bounds: geom.Rect{X: 100, Y: 100, Width: 200, Height: 100}}, true)
	f.os.SetFrameExtents(4, geom.RectDelta{DeltaLeft: 2, DeltaTop: 20, DeltaRight: 2, DeltaBottom: 2})

	resp, err := f.bus.Invoke(ManageWindow{Handle: 4})
	if err != nil {
		t.Fatalf("manage: %v", err)
	}
	w := resp.Data.(container.Window)
	if w.FloatingPlacement() != (geom.Rect{X: 98, Y: 80, Width: 204, Height: 122}) {
		t.Fatalf("unexpected placement %+v", w.FloatingPlacement())
	}
	if got, _ := f.os.WindowBounds(4); got != (geom.Rect{X: 2, Y: 20, Width: 996, Height: 478}) {
		t.Fatalf("expected client inset by frame, got %+v", got)
	}
}

// A tiling window is minimized and later restored by the OS. It returns as a
// tiling window right after the workspace's last focused resizable, with an
// unmeasured share, in a single redraw.
func TestMinimizeRestore_Scenario(t *testing.T) {
	f := newFixture(t)
	for _, h := range []container.Handle{5, 7, 9} {
		f.show(h)
		f.focus(h)
	}
	if got := f.order(); !reflect.DeepEqual(got, []container.Handle{5, 7, 9}) {
		t.Fatalf("expected order [5 7 9], got %v", got)
	}

	f.os.SetVisualState(7, platform.VisualMinimized)
	if err := f.bus.RaiseEvent(WindowMinimized{Handle: 7}); err != nil {
		t.Fatalf("minimized: %v", err)
	}
	minimized, ok := f.window(7).(*container.MinimizedWindow)
	if !ok {
		t.Fatalf("expected minimized node, got %T", f.window(7))
	}
	if minimized.PreviousState() != container.StateTiling {
		t.Fatalf("expected previous state tiling, got %s", minimized.PreviousState())
	}
	if got, _ := f.os.WindowBounds(9); got.Width != 500 {
		t.Fatalf("expected remaining windows to share the workspace, got %+v", got)
	}

	f.focus(5)
	f.os.ResetCalls()
	f.os.SetVisualState(7, platform.VisualNormal)
	if err := f.bus.RaiseEvent(WindowMinimizeEnded{Handle: 7}); err != nil {
		t.Fatalf("minimize ended: %v", err)
	}

	restored, ok := f.window(7).(*container.TilingWindow)
	if !ok {
		t.Fatalf("expected tiling node, got %T", f.window(7))
	}
	if idx := f.svc.Tree().Index(restored); idx != 1 {
		t.Fatalf("expected restored window right after 5, got index %d", idx)
	}
	if restored.SizePercentage() != 0 {
		t.Fatalf("expected size percentage 0, got %v", restored.SizePercentage())
	}
	if pending := f.svc.PendingRedraw(); len(pending) != 0 {
		t.Fatalf("expected empty dirty set, got %d", len(pending))
	}
	if n := countCalls(f.os.Calls(), "move_resize", 7); n != 1 {
		t.Fatalf("expected exactly one redraw of 7, got %d", n)
	}
	if got, _ := f.os.WindowBounds(7); got != (geom.Rect{X: 333, Y: 0, Width: 333, Height: 500}) {
		t.Fatalf("unexpected restored geometry %+v", got)
	}
	f.validate()
}

func TestMinimizeRestore_InsertsAfterLastFocused(t *testing.T) {
	f := newFixture(t)
	for _, h := range []container.Handle{5, 7, 9} {
		f.show(h)
		f.focus(h)
	}
	if _, err := f.bus.Invoke(SetWindowState{Window: f.window(5), State: container.StateMinimized}); err != nil {
		t.Fatalf("minimize: %v", err)
	}
	f.focus(9)

	if err := f.bus.RaiseEvent(WindowMinimizeEnded{Handle: 5}); err != nil {
		t.Fatalf("minimize ended: %v", err)
	}
	if got := f.order(); !reflect.DeepEqual(got, []container.Handle{7, 9, 5}) {
		t.Fatalf("expected order [7 9 5], got %v", got)
	}
}

func TestMinimizeEnded_UnresolvedHandleIsNoop(t *testing.T) {
	f := newFixture(t)
	f.show(1)
	before := f.svc.Tree().Snapshot()
	f.os.ResetCalls()

	for _, h := range []container.Handle{42, 1} {
		if err := f.bus.RaiseEvent(WindowMinimizeEnded{Handle: h}); err != nil {
			t.Fatalf("hwnd %d: expected no error, got %v", h, err)
		}
	}

	if after := f.svc.Tree().Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("expected tree unchanged")
	}
	if calls := f.os.Calls(); len(calls) != 0 {
		t.Fatalf("expected no effects, got %+v", calls)
	}
}

func TestResizeWindowBorders(t *testing.T) {
	f := newFixture(t)
	w := f.show(1)

	t.Run("tiling redraws", func(t *testing.T) {
		f.os.ResetCalls()
		delta := geom.RectDelta{DeltaLeft: 7, DeltaRight: 7, DeltaBottom: 7}
		if _, err := f.bus.Invoke(ResizeWindowBorders{Window: w, Delta: delta}); err != nil {
			t.Fatalf("resize borders: %v", err)
		}
		got, _ := f.os.WindowBounds(1)
		if got != (geom.Rect{X: -7, Y: 0, Width: 1014, Height: 507}) {
			t.Fatalf("unexpected geometry %+v", got)
		}
	})

	t.Run("floating only accrues", func(t *testing.T) {
		resp, err := f.bus.Invoke(SetWindowState{Window: w, State: container.StateFloating})
		if err != nil {
			t.Fatalf("float: %v", err)
		}
		floating := resp.Data.(container.Window)
		f.os.ResetCalls()

		resp, err = f.bus.Invoke(ResizeWindowBorders{Window: floating, Delta: geom.RectDelta{DeltaTop: 3}})
		if err != nil || !resp.Success {
			t.Fatalf("expected success, got %+v (err=%v)", resp, err)
		}
		if calls := f.os.Calls(); len(calls) != 0 {
			t.Fatalf("expected no redraw, got %+v", calls)
		}
		want := geom.RectDelta{DeltaLeft: 7, DeltaTop: 3, DeltaRight: 7, DeltaBottom: 7}
		if floating.BorderDelta() != want {
			t.Fatalf("expected %+v, got %+v", want, floating.BorderDelta())
		}
	})
}

func TestSetWindowState_SelfTransitionLeavesTreeUnchanged(t *testing.T) {
	f := newFixture(t)
	w := f.show(1)
	before := f.svc.Tree().Snapshot()

	_, err := f.bus.Invoke(SetWindowState{Window: w, State: container.StateTiling})
	if !errors.Is(err, container.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
	if after := f.svc.Tree().Snapshot(); !reflect.DeepEqual(before, after) {
		t.Fatalf("expected tree unchanged")
	}
}

func TestSetWindowState_MaximizeSetsVisualState(t *testing.T) {
	f := newFixture(t)
	f.show(1)
	f.show(2)

	if _, err := f.bus.Invoke(SetWindowState{Window: f.window(2), State: container.StateMaximized}); err != nil {
		t.Fatalf("maximize: %v", err)
	}
	if vs, _ := f.os.VisualState(2); vs != platform.VisualMaximized {
		t.Fatalf("expected maximized, got %s", vs)
	}
	if got, _ := f.os.WindowBounds(1); got.Width != 1000 {
		t.Fatalf("expected the tiling window to take the whole workspace, got %+v", got)
	}
}

func TestWindowDestroyed(t *testing.T) {
	f := newFixture(t)
	f.show(1)
	f.show(2)
	events, cancel := f.bus.Subscribe(8)
	defer cancel()

	if err := f.bus.RaiseEvent(WindowDestroyed{Handle: 99}); err != nil {
		t.Fatalf("unknown handle: %v", err)
	}
	if err := f.bus.RaiseEvent(WindowDestroyed{Handle: 1}); err != nil {
		t.Fatalf("destroyed: %v", err)
	}

	if _, ok := f.svc.Tree().WindowByHandle(1); ok {
		t.Fatalf("expected window 1 removed")
	}
	var unmanaged bool
	for len(events) > 0 {
		if evt, ok := (<-events).(WindowUnmanaged); ok && evt.Handle == 1 {
			unmanaged = true
		}
	}
	if !unmanaged {
		t.Fatalf("expected WindowUnmanaged to be published")
	}
	f.validate()
}

func TestWindowHidden(t *testing.T) {
	f := newFixture(t)
	f.show(1)
	f.show(2)

	f.os.SetVisualState(2, platform.VisualMinimized)
	if err := f.bus.RaiseEvent(WindowHidden{Handle: 2}); err != nil {
		t.Fatalf("hidden: %v", err)
	}
	if _, ok := f.svc.Tree().WindowByHandle(2); !ok {
		t.Fatalf("expected OS-minimized window to stay managed")
	}

	if err := f.bus.RaiseEvent(WindowHidden{Handle: 1}); err != nil {
		t.Fatalf("hidden: %v", err)
	}
	if _, ok := f.svc.Tree().WindowByHandle(1); ok {
		t.Fatalf("expected hidden window unmanaged")
	}
}

func TestFocusCycle(t *testing.T) {
	f := newFixture(t)
	for _, h := range []container.Handle{1, 2, 3} {
		f.show(h)
		f.focus(h)
	}
	f.focus(1)

	resp, err := f.bus.Invoke(FocusCycle{Direction: Next})
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if got := resp.Data.(container.Window).Handle(); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	if got := f.svc.Tree().FocusedWindow().Handle(); got != 2 {
		t.Fatalf("expected focus on 2, got %d", got)
	}

	f.focus(1)
	resp, _ = f.bus.Invoke(FocusCycle{Direction: Prev})
	if got := resp.Data.(container.Window).Handle(); got != 3 {
		t.Fatalf("expected prev to wrap to 3, got %d", got)
	}
	if n := countCalls(f.os.Calls(), "focus", 3); n != 1 {
		t.Fatalf("expected one focus call for 3, got %d", n)
	}
}

func TestWindowLocationChanged_FollowsOSState(t *testing.T) {
	f := newFixture(t)
	f.show(1)

	f.os.SetVisualState(1, platform.VisualFullscreen)
	if err := f.bus.RaiseEvent(WindowLocationChanged{Handle: 1}); err != nil {
		t.Fatalf("location changed: %v", err)
	}
	if s := f.window(1).State(); s != container.StateFullscreen {
		t.Fatalf("expected fullscreen, got %s", s)
	}

	f.os.SetVisualState(1, platform.VisualNormal)
	if err := f.bus.RaiseEvent(WindowLocationChanged{Handle: 1}); err != nil {
		t.Fatalf("location changed: %v", err)
	}
	if s := f.window(1).State(); s != container.StateTiling {
		t.Fatalf("expected tiling after restore, got %s", s)
	}
}

func TestWindowMovedOrResized(t *testing.T) {
	f := newFixture(t)
	f.show(1)

	f.os.SetBounds(1, geom.Rect{X: 10, Y: 10, Width: 100, Height: 100})
	f.os.ResetCalls()
	if err := f.bus.RaiseEvent(WindowMovedOrResized{Handle: 1}); err != nil {
		t.Fatalf("moved: %v", err)
	}
	if got, _ := f.os.WindowBounds(1); got != screen {
		t.Fatalf("expected tiling window snapped back, got %+v", got)
	}

	resp, _ := f.bus.Invoke(SetWindowState{Window: f.window(1), State: container.StateFloating})
	floating := resp.Data.(container.Window)
	dragged := geom.Rect{X: 200, Y: 150, Width: 320, Height: 240}
	f.os.SetBounds(1, dragged)
	if err := f.bus.RaiseEvent(WindowMovedOrResized{Handle: 1}); err != nil {
		t.Fatalf("moved: %v", err)
	}
	if floating.FloatingPlacement() != dragged {
		t.Fatalf("expected placement %+v, got %+v", dragged, floating.FloatingPlacement())
	}
}

func TestChangeTilingDirection(t *testing.T) {
	f := newFixture(t)
	w1 := f.show(1)

	if _, err := f.bus.Invoke(ChangeTilingDirection{Window: w1, Orientation: tiling.Vertical}); err != nil {
		t.Fatalf("change direction: %v", err)
	}
	if f.workspace().Orientation() != tiling.Vertical {
		t.Fatalf("expected lone window's workspace reoriented")
	}

	f.focus(1)
	w2 := f.show(2)
	if _, err := f.bus.Invoke(ChangeTilingDirection{Window: w2, Orientation: tiling.Horizontal}); err != nil {
		t.Fatalf("change direction: %v", err)
	}
	split, ok := f.svc.Tree().Parent(w2).(*container.SplitContainer)
	if !ok || split.Orientation() != tiling.Horizontal {
		t.Fatalf("expected window wrapped in a horizontal split, got %T", f.svc.Tree().Parent(w2))
	}
	f.validate()
}

func TestMoveWindowAndResize(t *testing.T) {
	f := newFixture(t)
	for _, h := range []container.Handle{1, 2, 3} {
		f.show(h)
		f.focus(h)
	}

	if _, err := f.bus.Invoke(MoveWindow{Window: f.window(1), Direction: Next}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := f.order(); !reflect.DeepEqual(got, []container.Handle{2, 1, 3}) {
		t.Fatalf("expected [2 1 3], got %v", got)
	}
	if _, err := f.bus.Invoke(MoveWindow{Window: f.window(2), Direction: Prev}); err != nil {
		t.Fatalf("move at edge: %v", err)
	}
	if got := f.order(); !reflect.DeepEqual(got, []container.Handle{2, 1, 3}) {
		t.Fatalf("expected order unchanged at the edge, got %v", got)
	}

	if _, err := f.bus.Invoke(ResizeWindow{Window: f.window(3), Delta: 0.2}); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if got, _ := f.os.WindowBounds(3); got.Width <= 334 {
		t.Fatalf("expected window 3 to grow, got %+v", got)
	}
}

func TestMoveWindow_KeepsFocusedWindow(t *testing.T) {
	f := newFixture(t)
	for _, h := range []container.Handle{1, 2, 3} {
		f.show(h)
		f.focus(h)
	}
	f.focus(2)

	if _, err := f.bus.Invoke(MoveWindow{Window: f.window(2), Direction: Next}); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := f.order(); !reflect.DeepEqual(got, []container.Handle{1, 3, 2}) {
		t.Fatalf("expected [1 3 2], got %v", got)
	}
	focused := f.svc.Tree().FocusedWindow()
	if focused == nil || focused.Handle() != 2 {
		t.Fatalf("expected focused window 2 after move, got %v", focused)
	}

	// The next managed window is inserted after the still-focused one.
	f.show(4)
	if got := f.order(); !reflect.DeepEqual(got, []container.Handle{1, 3, 2, 4}) {
		t.Fatalf("expected [1 3 2 4], got %v", got)
	}
	f.validate()
}

func TestWindowDestroyed_FocusedWindowHandsFocusOn(t *testing.T) {
	f := newFixture(t)
	for _, h := range []container.Handle{1, 2} {
		f.show(h)
		f.focus(h)
	}

	if err := f.bus.RaiseEvent(WindowDestroyed{Handle: 2}); err != nil {
		t.Fatalf("destroyed: %v", err)
	}
	focused := f.svc.Tree().FocusedWindow()
	if focused == nil || focused.Handle() != 1 {
		t.Fatalf("expected focus to fall back to 1, got %v", focused)
	}
	f.validate()
}

func TestFromPlatform(t *testing.T) {
	evt, ok := FromPlatform(platform.Event{Kind: platform.EventMinimizeEnded, Window: 7})
	if !ok || evt != (WindowMinimizeEnded{Handle: 7}) {
		t.Fatalf("unexpected event %#v", evt)
	}
	if _, ok := FromPlatform(platform.Event{Kind: platform.EventKind(99)}); ok {
		t.Fatalf("expected unknown kind to be rejected")
	}
}
