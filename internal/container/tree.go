package container

import (
	"fmt"

	"github.com/google/uuid"
)

// Tree is the arena owning every attached container. Monitors sit directly
// under an implicit forest root. Read access is free for any holder; all
// structural edits go through Service.
type Tree struct {
	nodes          map[ID]Container
	handles        map[Handle]ID
	monitors       []Container
	focusedMonitor ID
}

func newTree() *Tree {
	return &Tree{
		nodes:   make(map[ID]Container),
		handles: make(map[Handle]ID),
	}
}

// Get returns the attached container with the given ID.
func (t *Tree) Get(id ID) (Container, bool) {
	c, ok := t.nodes[id]
	return c, ok
}

// Contains reports whether c is currently attached to the tree.
func (t *Tree) Contains(c Container) bool {
	if c == nil {
		return false
	}
	existing, ok := t.nodes[c.ID()]
	return ok && existing == c
}

// Len returns the number of attached containers.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Parent returns the parent of c, or nil for monitors and detached nodes.
func (t *Tree) Parent(c Container) Container {
	if c == nil {
		return nil
	}
	id := c.base().parent
	if id == uuid.Nil {
		return nil
	}
	return t.nodes[id]
}

// Children returns a copy of c's ordered child sequence.
func (t *Tree) Children(c Container) []Container {
	if c == nil {
		return nil
	}
	children := c.base().children
	out := make([]Container, len(children))
	copy(out, children)
	return out
}

// Index returns the position of c within its parent, or within the monitor
// list for monitors. It returns -1 for detached containers.
func (t *Tree) Index(c Container) int {
	if !t.Contains(c) {
		return -1
	}
	if parent := t.Parent(c); parent != nil {
		return parent.base().indexOf(c.ID())
	}
	for i, m := range t.monitors {
		if m.ID() == c.ID() {
			return i
		}
	}
	return -1
}

// Monitors returns the root-level monitors in order.
func (t *Tree) Monitors() []*Monitor {
	out := make([]*Monitor, 0, len(t.monitors))
	for _, c := range t.monitors {
		out = append(out, c.(*Monitor))
	}
	return out
}

// MonitorByName returns the monitor with the given device name.
func (t *Tree) MonitorByName(deviceName string) *Monitor {
	for _, m := range t.Monitors() {
		if m.DeviceName == deviceName {
			return m
		}
	}
	return nil
}

// Ancestors returns the ancestors of c, nearest first.
func (t *Tree) Ancestors(c Container) []Container {
	var out []Container
	for p := t.Parent(c); p != nil; p = t.Parent(p) {
		out = append(out, p)
	}
	return out
}

// Depth returns the number of parent links between c and the forest root.
// Monitors have depth 1.
func (t *Tree) Depth(c Container) int {
	if !t.Contains(c) {
		return 0
	}
	return len(t.Ancestors(c)) + 1
}

// Descendants returns every container below c in pre-order.
func (t *Tree) Descendants(c Container) []Container {
	var out []Container
	var walk func(Container)
	walk = func(n Container) {
		for _, child := range n.base().children {
			out = append(out, child)
			walk(child)
		}
	}
	if c != nil {
		walk(c)
	}
	return out
}

// Windows returns every attached window in pre-order across all monitors.
func (t *Tree) Windows() []Window {
	var out []Window
	for _, m := range t.monitors {
		for _, c := range t.Descendants(m) {
			if w, ok := c.(Window); ok {
				out = append(out, w)
			}
		}
	}
	return out
}

// WindowByHandle resolves an OS handle to its window node.
func (t *Tree) WindowByHandle(h Handle) (Window, bool) {
	id, ok := t.handles[h]
	if !ok {
		return nil, false
	}
	w, ok := t.nodes[id].(Window)
	return w, ok
}

// Workspaces returns every workspace, grouped by monitor order.
func (t *Tree) Workspaces() []*Workspace {
	var out []*Workspace
	for _, m := range t.monitors {
		for _, c := range m.base().children {
			out = append(out, c.(*Workspace))
		}
	}
	return out
}

// WorkspaceByName returns the workspace with the given name.
func (t *Tree) WorkspaceByName(name string) *Workspace {
	for _, ws := range t.Workspaces() {
		if ws.Name == name {
			return ws
		}
	}
	return nil
}

// WorkspaceOf returns the workspace containing c, or c itself when c is a
// workspace.
func (t *Tree) WorkspaceOf(c Container) *Workspace {
	if ws, ok := c.(*Workspace); ok {
		return ws
	}
	for _, a := range t.Ancestors(c) {
		if ws, ok := a.(*Workspace); ok {
			return ws
		}
	}
	return nil
}

// MonitorOf returns the monitor containing c, or c itself when c is a monitor.
func (t *Tree) MonitorOf(c Container) *Monitor {
	if m, ok := c.(*Monitor); ok {
		return m
	}
	for _, a := range t.Ancestors(c) {
		if m, ok := a.(*Monitor); ok {
			return m
		}
	}
	return nil
}

// LastFocusedChild returns c's last focused child if it is still one of its
// children.
func (t *Tree) LastFocusedChild(c Container) Container {
	if c == nil {
		return nil
	}
	n := c.base()
	if n.lastFocused == uuid.Nil {
		return nil
	}
	if i := n.indexOf(n.lastFocused); i >= 0 {
		return n.children[i]
	}
	return nil
}

// FocusOrder returns c's children with the last focused child first and the
// rest in index order.
func (t *Tree) FocusOrder(c Container) []Container {
	children := c.base().children
	out := make([]Container, 0, len(children))
	focused := t.LastFocusedChild(c)
	if focused != nil {
		out = append(out, focused)
	}
	for _, child := range children {
		if focused != nil && child.ID() == focused.ID() {
			continue
		}
		out = append(out, child)
	}
	return out
}

// LastFocusedDescendant performs a depth-first search over focus order and
// returns the first descendant of c matching pred.
func (t *Tree) LastFocusedDescendant(c Container, pred func(Container) bool) Container {
	if c == nil {
		return nil
	}
	for _, child := range t.FocusOrder(c) {
		if pred(child) {
			return child
		}
		if found := t.LastFocusedDescendant(child, pred); found != nil {
			return found
		}
	}
	return nil
}

// FocusedMonitor returns the most recently focused monitor, falling back to
// the first one.
func (t *Tree) FocusedMonitor() *Monitor {
	if c, ok := t.nodes[t.focusedMonitor]; ok {
		if m, ok := c.(*Monitor); ok {
			return m
		}
	}
	if len(t.monitors) > 0 {
		return t.monitors[0].(*Monitor)
	}
	return nil
}

// DisplayedWorkspace returns the workspace currently shown on m.
func (t *Tree) DisplayedWorkspace(m *Monitor) *Workspace {
	if m == nil {
		return nil
	}
	if ws, ok := t.LastFocusedChild(m).(*Workspace); ok {
		return ws
	}
	if len(m.children) > 0 {
		return m.children[0].(*Workspace)
	}
	return nil
}

// IsDisplayed reports whether ws is the workspace shown on its monitor.
func (t *Tree) IsDisplayed(ws *Workspace) bool {
	displayed := t.DisplayedWorkspace(t.MonitorOf(ws))
	return displayed != nil && displayed == ws
}

// FocusedWorkspace returns the displayed workspace of the focused monitor.
func (t *Tree) FocusedWorkspace() *Workspace {
	return t.DisplayedWorkspace(t.FocusedMonitor())
}

// FocusedWindow follows the focus chain from the focused workspace down to a
// window.
func (t *Tree) FocusedWindow() Window {
	ws := t.FocusedWorkspace()
	if ws == nil {
		return nil
	}
	var c Container = ws
	for c != nil {
		if w, ok := c.(Window); ok {
			return w
		}
		c = t.LastFocusedChild(c)
	}
	return nil
}

// Validate checks every structural invariant of the tree and returns the
// first violation found.
func (t *Tree) Validate() error {
	seen := make(map[ID]bool, len(t.nodes))
	handles := make(map[Handle]ID)

	var check func(c Container, parent Container, depth int) error
	check = func(c Container, parent Container, depth int) error {
		n := c.base()
		if seen[n.id] {
			return fmt.Errorf("container %s appears more than once", n.id)
		}
		seen[n.id] = true

		if registered, ok := t.nodes[n.id]; !ok || registered != c {
			return fmt.Errorf("container %s is reachable but not registered", n.id)
		}

		var parentID ID
		if parent != nil {
			parentID = parent.ID()
		}
		if n.parent != parentID {
			return fmt.Errorf("container %s has parent %s, expected %s", n.id, n.parent, parentID)
		}
		if err := checkPlacement(c, parent); err != nil {
			return err
		}
		if n.lastFocused != uuid.Nil && n.indexOf(n.lastFocused) < 0 {
			return fmt.Errorf("container %s last focused child %s is not a child", n.id, n.lastFocused)
		}

		if w, ok := c.(Window); ok {
			if other, dup := handles[w.Handle()]; dup {
				return fmt.Errorf("handle %d shared by %s and %s", w.Handle(), other, n.id)
			}
			handles[w.Handle()] = n.id
			if t.handles[w.Handle()] != n.id {
				return fmt.Errorf("handle index for %d does not point at %s", w.Handle(), n.id)
			}
		}

		if got := t.Depth(c); got != depth {
			return fmt.Errorf("container %s depth %d, expected %d", n.id, got, depth)
		}

		for _, child := range n.children {
			if err := check(child, c, depth+1); err != nil {
				return err
			}
		}
		return nil
	}

	for _, m := range t.monitors {
		if err := check(m, nil, 1); err != nil {
			return err
		}
	}

	if len(seen) != len(t.nodes) {
		return fmt.Errorf("arena holds %d containers but %d are reachable", len(t.nodes), len(seen))
	}
	if len(handles) != len(t.handles) {
		return fmt.Errorf("handle index holds %d entries but %d windows are reachable", len(t.handles), len(handles))
	}
	return nil
}
