package tiling

import (
	"fmt"
	"math"
	"strings"

	"github.com/1broseidon/treetile/internal/geom"
)

// Orientation defines the axis along which a container arranges its children.
type Orientation int

const (
	Horizontal Orientation = iota // Children side-by-side, left to right.
	Vertical                      // Children stacked, top to bottom.
)

// String returns the config/IPC spelling of the orientation.
func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return "unknown"
	}
}

// Inverse returns the perpendicular orientation.
func (o Orientation) Inverse() Orientation {
	if o == Horizontal {
		return Vertical
	}
	return Horizontal
}

// ParseOrientation converts a string to an Orientation.
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal", "h":
		return Horizontal, nil
	case "vertical", "v":
		return Vertical, nil
	default:
		return 0, fmt.Errorf("unknown orientation %q", s)
	}
}

// NormalizeShares rescales shares so they sum to 1. Negative shares count as
// zero; an all-zero input yields equal shares.
func NormalizeShares(shares []float64) []float64 {
	if len(shares) == 0 {
		return nil
	}

	total := 0.0
	for _, s := range shares {
		if s > 0 {
			total += s
		}
	}

	out := make([]float64, len(shares))
	if total <= 0 {
		equal := 1.0 / float64(len(shares))
		for i := range out {
			out[i] = equal
		}
		return out
	}

	for i, s := range shares {
		if s > 0 {
			out[i] = s / total
		}
	}
	return out
}

// SplitRect divides parent along the orientation into len(shares) cells with
// gapSize pixels between neighbours. Shares are normalised first. The last
// cell absorbs the rounding remainder so the cells always cover the parent.
func SplitRect(parent geom.Rect, orientation Orientation, shares []float64, gapSize int) ([]geom.Rect, error) {
	n := len(shares)
	if n == 0 {
		return nil, nil
	}

	length := parent.Width
	if orientation == Vertical {
		length = parent.Height
	}

	// Available space excludes one gap between each pair of neighbours.
	available := length - (n-1)*gapSize
	if available < n {
		return nil, fmt.Errorf(
			"insufficient space for split: length=%d children=%d gap=%d",
			length, n, gapSize,
		)
	}

	normalized := NormalizeShares(shares)
	cells := make([]geom.Rect, n)
	used := 0

	for i, share := range normalized {
		size := int(math.Floor(float64(available) * share))
		if size < 1 {
			size = 1
		}
		if i == n-1 {
			size = available - used
		}

		pos := used + i*gapSize
		cell := parent
		if orientation == Horizontal {
			cell.X = parent.X + pos
			cell.Width = size
		} else {
			cell.Y = parent.Y + pos
			cell.Height = size
		}
		cells[i] = cell
		used += size
	}

	return cells, nil
}
