package container

import (
	"github.com/1broseidon/treetile/internal/geom"
	"github.com/1broseidon/treetile/internal/tiling"
	"github.com/google/uuid"
)

// ID identifies a container within the tree arena.
type ID = uuid.UUID

// Handle is an opaque OS window handle.
type Handle uint32

// Kind distinguishes the node variants of the tree.
type Kind int

const (
	KindMonitor Kind = iota
	KindWorkspace
	KindSplit
	KindWindow
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindMonitor:
		return "monitor"
	case KindWorkspace:
		return "workspace"
	case KindSplit:
		return "split"
	case KindWindow:
		return "window"
	default:
		return "unknown"
	}
}

// Container is a node in the window-management tree. The interface is sealed:
// only variants declared in this package satisfy it, and the structural
// fields behind it are mutated exclusively by Service.
type Container interface {
	ID() ID
	Kind() Kind
	// Rect returns the geometry computed by the most recent layout pass.
	Rect() geom.Rect
	base() *node
}

// Resizable is implemented by containers that take a share of their parent's
// tiling area.
type Resizable interface {
	Container
	SizePercentage() float64
	setSizePercentage(float64)
}

// node holds the structural state shared by every variant. Children are owned;
// parent and lastFocused are non-owning ID links validated on every read.
type node struct {
	id          ID
	parent      ID
	children    []Container
	lastFocused ID
	rect        geom.Rect
}

func newNode() node {
	return node{id: uuid.New()}
}

func (n *node) ID() ID          { return n.id }
func (n *node) Rect() geom.Rect { return n.rect }
func (n *node) base() *node     { return n }

func (n *node) indexOf(id ID) int {
	for i, c := range n.children {
		if c.ID() == id {
			return i
		}
	}
	return -1
}

// Monitor is a root-level container representing a physical display.
type Monitor struct {
	node
	DeviceName string
}

// NewMonitor creates a detached monitor with the given bounds.
func NewMonitor(deviceName string, bounds geom.Rect) *Monitor {
	m := &Monitor{node: newNode(), DeviceName: deviceName}
	m.rect = bounds
	return m
}

func (m *Monitor) Kind() Kind { return KindMonitor }

// Bounds returns the display rectangle of the monitor.
func (m *Monitor) Bounds() geom.Rect { return m.rect }

// Workspace is a named virtual desktop belonging to one monitor at a time.
type Workspace struct {
	node
	Name        string
	orientation tiling.Orientation
}

// NewWorkspace creates a detached workspace.
func NewWorkspace(name string, orientation tiling.Orientation) *Workspace {
	return &Workspace{node: newNode(), Name: name, orientation: orientation}
}

func (w *Workspace) Kind() Kind { return KindWorkspace }

// Orientation returns the tiling direction of the workspace's direct children.
func (w *Workspace) Orientation() tiling.Orientation { return w.orientation }

// SplitContainer groups children for tiling math. It has no OS identity.
type SplitContainer struct {
	node
	orientation    tiling.Orientation
	sizePercentage float64
}

// NewSplitContainer creates a detached split container.
func NewSplitContainer(orientation tiling.Orientation, sizePercentage float64) *SplitContainer {
	return &SplitContainer{node: newNode(), orientation: orientation, sizePercentage: sizePercentage}
}

func (s *SplitContainer) Kind() Kind { return KindSplit }

// Orientation returns the tiling direction of the split's children.
func (s *SplitContainer) Orientation() tiling.Orientation { return s.orientation }

func (s *SplitContainer) SizePercentage() float64     { return s.sizePercentage }
func (s *SplitContainer) setSizePercentage(p float64) { s.sizePercentage = p }

// orientationOf returns the tiling direction a container applies to its
// children. Only workspaces and split containers tile.
func orientationOf(c Container) (tiling.Orientation, bool) {
	switch v := c.(type) {
	case *Workspace:
		return v.orientation, true
	case *SplitContainer:
		return v.orientation, true
	default:
		return 0, false
	}
}
