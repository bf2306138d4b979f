package wm

import (
	"github.com/1broseidon/treetile/internal/bus"
	"github.com/1broseidon/treetile/internal/container"
	"github.com/1broseidon/treetile/internal/platform"
)

// Inbound notifications from the OS hook. Each carries only the handle;
// handlers resolve it and treat an unknown handle as a no-op.
type (
	WindowShown           struct{ Handle container.Handle }
	WindowHidden          struct{ Handle container.Handle }
	WindowDestroyed       struct{ Handle container.Handle }
	WindowFocused         struct{ Handle container.Handle }
	WindowMinimized       struct{ Handle container.Handle }
	WindowMinimizeEnded   struct{ Handle container.Handle }
	WindowLocationChanged struct{ Handle container.Handle }
	WindowMovedOrResized  struct{ Handle container.Handle }
)

func (WindowShown) Name() string           { return "WindowShown" }
func (WindowHidden) Name() string          { return "WindowHidden" }
func (WindowDestroyed) Name() string       { return "WindowDestroyed" }
func (WindowFocused) Name() string         { return "WindowFocused" }
func (WindowMinimized) Name() string       { return "WindowMinimized" }
func (WindowMinimizeEnded) Name() string   { return "WindowMinimizeEnded" }
func (WindowLocationChanged) Name() string { return "WindowLocationChanged" }
func (WindowMovedOrResized) Name() string  { return "WindowMovedOrResized" }

// WindowManaged is raised after a window joins the tree.
type WindowManaged struct {
	Handle    container.Handle `json:"handle"`
	Workspace string           `json:"workspace"`
}

// WindowUnmanaged is raised after a window leaves the tree.
type WindowUnmanaged struct {
	Handle container.Handle `json:"handle"`
}

// WindowStateChanged is raised after a state transition completes.
type WindowStateChanged struct {
	Handle container.Handle `json:"handle"`
	From   string           `json:"from"`
	To     string           `json:"to"`
}

// FocusChanged is raised when the focused window changes.
type FocusChanged struct {
	Handle container.Handle `json:"handle"`
}

func (WindowManaged) Name() string      { return "WindowManaged" }
func (WindowUnmanaged) Name() string    { return "WindowUnmanaged" }
func (WindowStateChanged) Name() string { return "WindowStateChanged" }
func (FocusChanged) Name() string       { return "FocusChanged" }

// FromPlatform converts a backend notification into the bus event it
// stands for.
func FromPlatform(ev platform.Event) (bus.Event, bool) {
	h := container.Handle(ev.Window)
	switch ev.Kind {
	case platform.EventShown:
		return WindowShown{h}, true
	case platform.EventHidden:
		return WindowHidden{h}, true
	case platform.EventDestroyed:
		return WindowDestroyed{h}, true
	case platform.EventFocused:
		return WindowFocused{h}, true
	case platform.EventMinimized:
		return WindowMinimized{h}, true
	case platform.EventMinimizeEnded:
		return WindowMinimizeEnded{h}, true
	case platform.EventLocationChanged:
		return WindowLocationChanged{h}, true
	case platform.EventMovedOrResized:
		return WindowMovedOrResized{h}, true
	default:
		return nil, false
	}
}
