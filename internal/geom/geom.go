package geom

// Rect describes a rectangular region in absolute screen coordinates with a
// top-left origin.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// RectDelta holds signed adjustments applied to each edge of a rendered
// window. Deltas accumulate additively and never alter logical geometry.
type RectDelta struct {
	DeltaLeft   int `json:"delta_left"`
	DeltaTop    int `json:"delta_top"`
	DeltaRight  int `json:"delta_right"`
	DeltaBottom int `json:"delta_bottom"`
}

// Add returns the component-wise sum of d and o.
func (d RectDelta) Add(o RectDelta) RectDelta {
	return RectDelta{
		DeltaLeft:   d.DeltaLeft + o.DeltaLeft,
		DeltaTop:    d.DeltaTop + o.DeltaTop,
		DeltaRight:  d.DeltaRight + o.DeltaRight,
		DeltaBottom: d.DeltaBottom + o.DeltaBottom,
	}
}

// Negate returns the delta with every component's sign flipped.
func (d RectDelta) Negate() RectDelta {
	return RectDelta{-d.DeltaLeft, -d.DeltaTop, -d.DeltaRight, -d.DeltaBottom}
}

// IsZero reports whether every component is zero.
func (d RectDelta) IsZero() bool {
	return d == RectDelta{}
}

// Apply expands r by the border delta: positive deltas push each edge outward
// to cover chrome the OS draws outside the client area.
func (r Rect) Apply(d RectDelta) Rect {
	return Rect{
		X:      r.X - d.DeltaLeft,
		Y:      r.Y - d.DeltaTop,
		Width:  r.Width + d.DeltaLeft + d.DeltaRight,
		Height: r.Height + d.DeltaTop + d.DeltaBottom,
	}
}

// Inset shrinks r by n pixels on every side, clamping to a 1x1 minimum.
func (r Rect) Inset(n int) Rect {
	out := Rect{
		X:      r.X + n,
		Y:      r.Y + n,
		Width:  r.Width - 2*n,
		Height: r.Height - 2*n,
	}
	if out.Width < 1 {
		out.Width = 1
	}
	if out.Height < 1 {
		out.Height = 1
	}
	return out
}

// Contains reports whether the point (x, y) lies inside r.
func (r Rect) Contains(x, y int) bool {
	return x >= r.X && x < r.X+r.Width && y >= r.Y && y < r.Y+r.Height
}

// Center returns the midpoint of r.
func (r Rect) Center() (int, int) {
	return r.X + r.Width/2, r.Y + r.Height/2
}
