package mcp

import "github.com/1broseidon/treetile/internal/geom"

// GetTreeInput is the input for the get_tree tool.
type GetTreeInput struct {
	Workspace string `json:"workspace,omitempty" jsonschema:"Only return the named workspace (default: the whole tree)"`
}

// GetTreeOutput is the output for the get_tree tool. The tree is flattened
// in pre-order; Parent names the enclosing node's ID.
type GetTreeOutput struct {
	Nodes []TreeEntry `json:"nodes"`
}

// TreeEntry is one container of the flattened tree.
type TreeEntry struct {
	ID             string          `json:"id"`
	Parent         string          `json:"parent,omitempty"`
	Depth          int             `json:"depth"`
	Kind           string          `json:"kind"`
	Name           string          `json:"name,omitempty"`
	DeviceName     string          `json:"device_name,omitempty"`
	Displayed      bool            `json:"displayed,omitempty"`
	Orientation    string          `json:"orientation,omitempty"`
	Handle         uint32          `json:"handle,omitempty"`
	State          string          `json:"state,omitempty"`
	SizePercentage float64         `json:"size_percentage,omitempty"`
	Rect           geom.Rect       `json:"rect"`
	BorderDelta    *geom.RectDelta `json:"border_delta,omitempty"`
	Focused        bool            `json:"focused,omitempty"`
}

// FocusCycleInput is the input for the focus_cycle tool.
type FocusCycleInput struct {
	Direction string `json:"direction,omitempty" jsonschema:"next or prev (default: next)"`
}

// WindowOutput identifies the window a tool acted on.
type WindowOutput struct {
	Handle uint32 `json:"handle"`
	State  string `json:"state"`
}

// SetWindowStateInput is the input for the set_window_state tool.
type SetWindowStateInput struct {
	Handle uint32 `json:"handle,omitempty" jsonschema:"OS window handle (default: the focused window)"`
	State  string `json:"state" jsonschema:"required,One of tiling, floating, maximized, fullscreen, minimized"`
}

// ResizeBordersInput is the input for the resize_borders tool.
type ResizeBordersInput struct {
	Handle uint32 `json:"handle,omitempty" jsonschema:"OS window handle (default: the focused window)"`
	Left   int    `json:"left,omitempty" jsonschema:"Pixels added to the left border delta (negative shrinks)"`
	Top    int    `json:"top,omitempty" jsonschema:"Pixels added to the top border delta"`
	Right  int    `json:"right,omitempty" jsonschema:"Pixels added to the right border delta"`
	Bottom int    `json:"bottom,omitempty" jsonschema:"Pixels added to the bottom border delta"`
}

// SplitWindowInput is the input for the split_window tool.
type SplitWindowInput struct {
	Handle      uint32 `json:"handle,omitempty" jsonschema:"OS window handle (default: the focused window)"`
	Orientation string `json:"orientation" jsonschema:"required,horizontal or vertical"`
}

// ResizeWindowInput is the input for the resize_window tool.
type ResizeWindowInput struct {
	Handle uint32  `json:"handle,omitempty" jsonschema:"OS window handle (default: the focused window)"`
	Delta  float64 `json:"delta" jsonschema:"required,Change of the window's size share within its parent, e.g. 0.1 or -0.1"`
}

// MoveWindowInput is the input for the move_window tool.
type MoveWindowInput struct {
	Handle    uint32 `json:"handle,omitempty" jsonschema:"OS window handle (default: the focused window)"`
	Direction string `json:"direction,omitempty" jsonschema:"next or prev (default: next)"`
}

// OKOutput is returned by tools with nothing else to report.
type OKOutput struct {
	OK bool `json:"ok"`
}
