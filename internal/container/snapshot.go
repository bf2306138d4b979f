package container

import "github.com/1broseidon/treetile/internal/geom"

// Node is the JSON view of a container and its subtree.
type Node struct {
	ID             string          `json:"id"`
	Kind           string          `json:"kind"`
	Name           string          `json:"name,omitempty"`
	DeviceName     string          `json:"device_name,omitempty"`
	Displayed      bool            `json:"displayed,omitempty"`
	Orientation    string          `json:"orientation,omitempty"`
	Handle         uint32          `json:"handle,omitempty"`
	State          string          `json:"state,omitempty"`
	PreviousState  string          `json:"previous_state,omitempty"`
	SizePercentage float64         `json:"size_percentage,omitempty"`
	Rect           geom.Rect       `json:"rect"`
	BorderDelta    *geom.RectDelta `json:"border_delta,omitempty"`
	Focused        bool            `json:"focused,omitempty"`
	Children       []Node          `json:"children,omitempty"`
}

// Snapshot returns the whole tree, one entry per monitor.
func (t *Tree) Snapshot() []Node {
	focused := t.FocusedWindow()
	out := make([]Node, 0, len(t.monitors))
	for _, m := range t.monitors {
		out = append(out, t.snapshot(m, focused))
	}
	return out
}

func (t *Tree) snapshot(c Container, focused Window) Node {
	n := Node{
		ID:   c.ID().String(),
		Kind: c.Kind().String(),
		Rect: c.Rect(),
	}
	switch v := c.(type) {
	case *Monitor:
		n.DeviceName = v.DeviceName
	case *Workspace:
		n.Name = v.Name
		n.Orientation = v.orientation.String()
		n.Displayed = t.IsDisplayed(v)
	case *SplitContainer:
		n.Orientation = v.orientation.String()
	}
	if r, ok := c.(Resizable); ok {
		n.SizePercentage = r.SizePercentage()
	}
	if w, ok := c.(Window); ok {
		n.Handle = uint32(w.Handle())
		n.State = w.State().String()
		if r, ok := w.(Restorable); ok {
			n.PreviousState = r.PreviousState().String()
		}
		if d := w.BorderDelta(); !d.IsZero() {
			n.BorderDelta = &d
		}
		n.Focused = focused != nil && focused.ID() == w.ID()
	}
	for _, child := range c.base().children {
		n.Children = append(n.Children, t.snapshot(child, focused))
	}
	return n
}
