package wm

import (
	"fmt"
	"strings"

	"github.com/1broseidon/treetile/internal/bus"
	"github.com/1broseidon/treetile/internal/container"
	"github.com/1broseidon/treetile/internal/geom"
	"github.com/1broseidon/treetile/internal/tiling"
)

// Direction selects the neighbour for focus cycling and window moves.
type Direction int

const (
	Next Direction = iota
	Prev
)

func (d Direction) String() string {
	if d == Prev {
		return "prev"
	}
	return "next"
}

// ParseDirection converts "next" or "prev" to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "next", "":
		return Next, nil
	case "prev", "previous":
		return Prev, nil
	default:
		return 0, fmt.Errorf("unknown direction %q", s)
	}
}

// RedrawContainers lays out every dirty container and applies the resulting
// geometry and state effects.
type RedrawContainers struct{}

// ResizeWindowBorders adds Delta to a window's border delta.
type ResizeWindowBorders struct {
	Window container.Window
	Delta  geom.RectDelta
}

// ReplaceContainer swaps Old for New at the same tree position.
type ReplaceContainer struct {
	Old container.Container
	New container.Container
}

// MoveContainerWithinTree relocates a container.
type MoveContainerWithinTree struct {
	Container      container.Container
	Parent         container.Container
	Index          int
	PreserveLayout bool
}

// SetWindowState transitions a window to State. The response carries the
// node that replaced Window.
type SetWindowState struct {
	Window container.Window
	State  container.State
}

// ManageWindow starts tiling an OS window on the focused workspace. The
// response carries the new node.
type ManageWindow struct {
	Handle container.Handle
}

// UnmanageWindow removes a window from the tree.
type UnmanageWindow struct {
	Window container.Window
}

// SetFocusedDescendant records Container as the focus target along its
// ancestor chain.
type SetFocusedDescendant struct {
	Container container.Container
}

// FocusCycle focuses the neighbour of the focused window on the focused
// workspace. The response carries the newly focused window.
type FocusCycle struct {
	Direction Direction
}

// ChangeTilingDirection makes Window's children-to-be tile along
// Orientation: the window's parent is reoriented when Window is its only
// child, otherwise Window is wrapped in a new split.
type ChangeTilingDirection struct {
	Window      container.Window
	Orientation tiling.Orientation
}

// ResizeWindow grows a tiling window's size share by Delta (negative shrinks).
type ResizeWindow struct {
	Window container.Window
	Delta  float64
}

// MoveWindow reorders a window among its siblings.
type MoveWindow struct {
	Window    container.Window
	Direction Direction
}

// AddMonitor attaches a monitor and its workspaces. The response carries the
// new monitor.
type AddMonitor struct {
	DeviceName string
	Bounds     geom.Rect
	Workspaces []string
}

func (RedrawContainers) Name() string        { return "RedrawContainers" }
func (ResizeWindowBorders) Name() string     { return "ResizeWindowBorders" }
func (ReplaceContainer) Name() string        { return "ReplaceContainer" }
func (MoveContainerWithinTree) Name() string { return "MoveContainerWithinTree" }
func (SetWindowState) Name() string          { return "SetWindowState" }
func (ManageWindow) Name() string            { return "ManageWindow" }
func (UnmanageWindow) Name() string          { return "UnmanageWindow" }
func (SetFocusedDescendant) Name() string    { return "SetFocusedDescendant" }
func (FocusCycle) Name() string              { return "FocusCycle" }
func (ChangeTilingDirection) Name() string   { return "ChangeTilingDirection" }
func (ResizeWindow) Name() string            { return "ResizeWindow" }
func (MoveWindow) Name() string              { return "MoveWindow" }
func (AddMonitor) Name() string              { return "AddMonitor" }

// Commands lists one value of every command type. Startup passes it to
// bus.RequireCommands.
func Commands() []bus.Command {
	return []bus.Command{
		RedrawContainers{},
		ResizeWindowBorders{},
		ReplaceContainer{},
		MoveContainerWithinTree{},
		SetWindowState{},
		ManageWindow{},
		UnmanageWindow{},
		SetFocusedDescendant{},
		FocusCycle{},
		ChangeTilingDirection{},
		ResizeWindow{},
		MoveWindow{},
		AddMonitor{},
	}
}
