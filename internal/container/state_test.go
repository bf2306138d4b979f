package container

import (
	"errors"
	"testing"

	"github.com/1broseidon/treetile/internal/geom"
)

var allStates = []State{StateTiling, StateFloating, StateMaximized, StateFullscreen, StateMinimized}

func windowIn(state State, h Handle, placement geom.Rect, delta geom.RectDelta) Window {
	switch state {
	case StateTiling:
		return NewTilingWindow(h, placement, delta, 0.5)
	case StateFloating:
		return NewFloatingWindow(h, placement, delta)
	case StateMaximized:
		return NewMaximizedWindow(h, placement, delta, StateTiling)
	case StateFullscreen:
		return NewFullscreenWindow(h, placement, delta, StateFloating)
	default:
		return NewMinimizedWindow(h, placement, delta, StateTiling)
	}
}

func TestNextState_RejectsSelfTransition(t *testing.T) {
	for _, s := range allStates {
		w := windowIn(s, 1, geom.Rect{}, geom.RectDelta{})
		_, err := NextState(w, s)
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s -> %s: expected ErrInvalidTransition, got %v", s, s, err)
		}
		var te *TransitionError
		if !errors.As(err, &te) || te.From != s || te.To != s {
			t.Fatalf("expected *TransitionError{%s, %s}, got %v", s, s, err)
		}
	}
}

func TestNextState_RejectsUnknownTarget(t *testing.T) {
	w := windowIn(StateTiling, 1, geom.Rect{}, geom.RectDelta{})
	if _, err := NextState(w, State(42)); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestTransition_IsAtomicAtTreePosition(t *testing.T) {
	placement := geom.Rect{X: 40, Y: 30, Width: 640, Height: 480}
	delta := geom.RectDelta{DeltaLeft: 7, DeltaRight: 7, DeltaBottom: 7}

	for _, from := range allStates {
		for _, to := range allStates {
			if from == to {
				continue
			}
			t.Run(from.String()+"->"+to.String(), func(t *testing.T) {
				f := newFixture(t)
				f.tile(t, f.ws, 1)
				old := windowIn(from, 7, placement, delta)
				if err := f.svc.Attach(old, f.ws, 1); err != nil {
					t.Fatalf("attach: %v", err)
				}
				f.tile(t, f.ws, 2)
				parent, index := f.svc.Tree().Parent(old), f.svc.Tree().Index(old)

				next, err := NextState(old, to)
				if err != nil {
					t.Fatalf("next state: %v", err)
				}
				if err := f.svc.Replace(old, next); err != nil {
					t.Fatalf("replace: %v", err)
				}

				tree := f.svc.Tree()
				occupant := tree.Children(parent)[index]
				if occupant != next {
					t.Fatalf("expected replacement at position %d", index)
				}
				if len(tree.Children(parent)) != 3 {
					t.Fatalf("expected exactly 3 children, got %d", len(tree.Children(parent)))
				}
				if next.State() != to {
					t.Fatalf("expected state %s, got %s", to, next.State())
				}
				if next.Handle() != 7 || next.FloatingPlacement() != placement || next.BorderDelta() != delta {
					t.Fatalf("expected identity fields carried over, got handle=%d placement=%+v delta=%+v",
						next.Handle(), next.FloatingPlacement(), next.BorderDelta())
				}
				if tw, ok := next.(*TilingWindow); ok && tw.SizePercentage() != 0 {
					t.Fatalf("expected tiling share 0, got %v", tw.SizePercentage())
				}
				if r, ok := next.(Restorable); ok && r.PreviousState() != from {
					t.Fatalf("expected previous state %s, got %s", from, r.PreviousState())
				}
				mustValidate(t, tree)
			})
		}
	}
}

func TestRestoreState(t *testing.T) {
	w := NewMinimizedWindow(1, geom.Rect{}, geom.RectDelta{}, StateFloating)
	got, err := RestoreState(w)
	if err != nil {
		t.Fatalf("restore state: %v", err)
	}
	if got != StateFloating {
		t.Fatalf("expected floating, got %s", got)
	}

	if _, err := RestoreState(NewFloatingWindow(2, geom.Rect{}, geom.RectDelta{})); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for a non-restorable window, got %v", err)
	}
}

func TestParseState(t *testing.T) {
	for _, s := range allStates {
		got, err := ParseState(s.String())
		if err != nil || got != s {
			t.Fatalf("expected %s, got %s (err=%v)", s, got, err)
		}
	}
	if _, err := ParseState("shaded"); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}
