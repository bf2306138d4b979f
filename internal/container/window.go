package container

import (
	"fmt"
	"strings"

	"github.com/1broseidon/treetile/internal/geom"
)

// State is the mutually-exclusive display state of a managed window.
type State int

const (
	StateTiling State = iota
	StateFloating
	StateMaximized
	StateFullscreen
	StateMinimized
)

// String returns the config/IPC spelling of the state.
func (s State) String() string {
	switch s {
	case StateTiling:
		return "tiling"
	case StateFloating:
		return "floating"
	case StateMaximized:
		return "maximized"
	case StateFullscreen:
		return "fullscreen"
	case StateMinimized:
		return "minimized"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Valid reports whether s names one of the five window states.
func (s State) Valid() bool {
	return s >= StateTiling && s <= StateMinimized
}

// ParseState converts a string to a State.
func ParseState(s string) (State, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tiling":
		return StateTiling, nil
	case "floating":
		return StateFloating, nil
	case "maximized":
		return StateMaximized, nil
	case "fullscreen":
		return StateFullscreen, nil
	case "minimized":
		return StateMinimized, nil
	default:
		return 0, fmt.Errorf("unknown window state %q", s)
	}
}

// Window is a tree node wrapping an OS window. The concrete variant occupying
// a tree position is the window's state.
type Window interface {
	Container
	Handle() Handle
	State() State
	BorderDelta() geom.RectDelta
	FloatingPlacement() geom.Rect
	window() *windowBase
}

// Restorable is implemented by states that remember where they came from.
type Restorable interface {
	Window
	PreviousState() State
}

type windowBase struct {
	node
	handle            Handle
	floatingPlacement geom.Rect
	borderDelta       geom.RectDelta
}

func newWindowBase(handle Handle, placement geom.Rect, delta geom.RectDelta) windowBase {
	return windowBase{
		node:              newNode(),
		handle:            handle,
		floatingPlacement: placement,
		borderDelta:       delta,
	}
}

func (w *windowBase) Kind() Kind                   { return KindWindow }
func (w *windowBase) Handle() Handle               { return w.handle }
func (w *windowBase) BorderDelta() geom.RectDelta  { return w.borderDelta }
func (w *windowBase) FloatingPlacement() geom.Rect { return w.floatingPlacement }
func (w *windowBase) window() *windowBase          { return w }

// TilingWindow participates in split-ratio layout.
type TilingWindow struct {
	windowBase
	sizePercentage float64
}

// NewTilingWindow creates a detached tiling window.
func NewTilingWindow(handle Handle, placement geom.Rect, delta geom.RectDelta, sizePercentage float64) *TilingWindow {
	return &TilingWindow{
		windowBase:     newWindowBase(handle, placement, delta),
		sizePercentage: sizePercentage,
	}
}

func (w *TilingWindow) State() State                { return StateTiling }
func (w *TilingWindow) SizePercentage() float64     { return w.sizePercentage }
func (w *TilingWindow) setSizePercentage(p float64) { w.sizePercentage = p }

// FloatingWindow is free-placed at its floating placement.
type FloatingWindow struct {
	windowBase
}

// NewFloatingWindow creates a detached floating window.
func NewFloatingWindow(handle Handle, placement geom.Rect, delta geom.RectDelta) *FloatingWindow {
	return &FloatingWindow{windowBase: newWindowBase(handle, placement, delta)}
}

func (w *FloatingWindow) State() State { return StateFloating }

// MaximizedWindow covers its monitor's work area.
type MaximizedWindow struct {
	windowBase
	previousState State
}

// NewMaximizedWindow creates a detached maximized window.
func NewMaximizedWindow(handle Handle, placement geom.Rect, delta geom.RectDelta, previous State) *MaximizedWindow {
	return &MaximizedWindow{windowBase: newWindowBase(handle, placement, delta), previousState: previous}
}

func (w *MaximizedWindow) State() State         { return StateMaximized }
func (w *MaximizedWindow) PreviousState() State { return w.previousState }

// FullscreenWindow covers its whole monitor.
type FullscreenWindow struct {
	windowBase
	previousState State
}

// NewFullscreenWindow creates a detached fullscreen window.
func NewFullscreenWindow(handle Handle, placement geom.Rect, delta geom.RectDelta, previous State) *FullscreenWindow {
	return &FullscreenWindow{windowBase: newWindowBase(handle, placement, delta), previousState: previous}
}

func (w *FullscreenWindow) State() State         { return StateFullscreen }
func (w *FullscreenWindow) PreviousState() State { return w.previousState }

// MinimizedWindow stays in the tree at its last position but takes no space.
type MinimizedWindow struct {
	windowBase
	previousState State
}

// NewMinimizedWindow creates a detached minimized window.
func NewMinimizedWindow(handle Handle, placement geom.Rect, delta geom.RectDelta, previous State) *MinimizedWindow {
	return &MinimizedWindow{windowBase: newWindowBase(handle, placement, delta), previousState: previous}
}

func (w *MinimizedWindow) State() State         { return StateMinimized }
func (w *MinimizedWindow) PreviousState() State { return w.previousState }
