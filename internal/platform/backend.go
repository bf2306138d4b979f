package platform

import "github.com/1broseidon/treetile/internal/geom"

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// VisualState is the state the window system currently shows a window in.
type VisualState int

const (
	VisualNormal VisualState = iota
	VisualMinimized
	VisualMaximized
	VisualFullscreen
)

// String returns the lowercase name of the state.
func (s VisualState) String() string {
	switch s {
	case VisualNormal:
		return "normal"
	case VisualMinimized:
		return "minimized"
	case VisualMaximized:
		return "maximized"
	case VisualFullscreen:
		return "fullscreen"
	default:
		return "unknown"
	}
}

// Display describes a physical display and its usable work area.
type Display struct {
	ID     int
	Name   string
	Bounds geom.Rect
	Usable geom.Rect
}

// Window contains metadata and geometry for a top-level window.
type Window struct {
	ID     WindowID
	PID    int
	AppID  string
	Title  string
	Bounds geom.Rect
}

// EventKind enumerates the window notifications a backend produces.
type EventKind int

const (
	EventShown EventKind = iota
	EventHidden
	EventDestroyed
	EventFocused
	EventMinimized
	EventMinimizeEnded
	EventLocationChanged
	EventMovedOrResized
)

func (k EventKind) String() string {
	switch k {
	case EventShown:
		return "shown"
	case EventHidden:
		return "hidden"
	case EventDestroyed:
		return "destroyed"
	case EventFocused:
		return "focused"
	case EventMinimized:
		return "minimized"
	case EventMinimizeEnded:
		return "minimize_ended"
	case EventLocationChanged:
		return "location_changed"
	case EventMovedOrResized:
		return "moved_or_resized"
	default:
		return "unknown"
	}
}

// Event is a decoded notification about one window.
type Event struct {
	Kind   EventKind
	Window WindowID
}

// Backend abstracts window-system queries and effects.
type Backend interface {
	Displays() ([]Display, error)
	// MonitorDPI returns the DPI of the named display, 0 when unknown.
	MonitorDPI(name string) (uint32, error)
	ListWindows() ([]Window, error)
	WindowBounds(id WindowID) (geom.Rect, error)
	VisualState(id WindowID) (VisualState, error)
	// IsManageable reports whether the window is a normal top-level client
	// that should be tiled.
	IsManageable(id WindowID) bool
	Exists(id WindowID) bool
	// FrameExtents returns the decoration sizes drawn around the client area.
	FrameExtents(id WindowID) geom.RectDelta

	MoveResize(id WindowID, bounds geom.Rect) error
	SetState(id WindowID, state VisualState) error
	Focus(id WindowID) error
}
