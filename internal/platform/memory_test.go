package platform

import (
	"errors"
	"testing"

	"github.com/1broseidon/treetile/internal/geom"
)

func TestMemory_RecordsEffects(t *testing.T) {
	m := NewMemory(Display{Name: "DP-1", Bounds: geom.Rect{Width: 1920, Height: 1080}})
	m.AddWindow(Window{ID: 7}, true)

	r := geom.Rect{X: 10, Y: 20, Width: 300, Height: 200}
	if err := m.MoveResize(7, r); err != nil {
		t.Fatalf("MoveResize: %v", err)
	}
	if err := m.SetState(7, VisualMaximized); err != nil {
		t.Fatalf("SetState: %v", err)
	}

	calls := m.Calls()
	if len(calls) != 2 || calls[0].Op != "move_resize" || calls[1].Op != "set_state" {
		t.Fatalf("unexpected calls %+v", calls)
	}
	if got, _ := m.WindowBounds(7); got != r {
		t.Fatalf("expected bounds %+v, got %+v", r, got)
	}
	if got, _ := m.VisualState(7); got != VisualMaximized {
		t.Fatalf("expected maximized, got %s", got)
	}
}

func TestMemory_UnknownAndFailingWindows(t *testing.T) {
	m := NewMemory()
	if err := m.Focus(3); !errors.Is(err, ErrNoWindow) {
		t.Fatalf("expected ErrNoWindow, got %v", err)
	}

	m.AddWindow(Window{ID: 4}, true)
	boom := errors.New("bad window")
	m.FailWindow(4, boom)
	if err := m.MoveResize(4, geom.Rect{}); !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}
	m.FailWindow(4, nil)
	if err := m.MoveResize(4, geom.Rect{}); err != nil {
		t.Fatalf("expected failure cleared, got %v", err)
	}
}

func TestMemory_ListWindowsSkipsUnmanageable(t *testing.T) {
	m := NewMemory()
	m.AddWindow(Window{ID: 9}, true)
	m.AddWindow(Window{ID: 2}, false)
	m.AddWindow(Window{ID: 5}, true)

	got, _ := m.ListWindows()
	if len(got) != 2 || got[0].ID != 5 || got[1].ID != 9 {
		t.Fatalf("expected [5 9], got %+v", got)
	}
}
