package x11

import (
	"testing"

	"github.com/1broseidon/treetile/internal/geom"
)

func TestMonitorDPI(t *testing.T) {
	tests := []struct {
		name    string
		width   int
		widthMM uint32
		want    uint32
	}{
		{"1080p 24 inch", 1920, 531, 92},
		{"4k 27 inch", 3840, 597, 163},
		{"unknown physical size", 1920, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Monitor{Bounds: geom.Rect{Width: tt.width, Height: 1080}, WidthMM: tt.widthMM}
			if got := m.DPI(); got != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestStrutsApply(t *testing.T) {
	left := geom.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}
	right := geom.Rect{X: 1920, Y: 0, Width: 1920, Height: 1080}

	reserved := struts{
		{sideTop, geom.Rect{X: 0, Y: 0, Width: 1920, Height: 30}},
		{sideBottom, geom.Rect{X: 1920, Y: 1040, Width: 1920, Height: 40}},
		{sideLeft, geom.Rect{X: 0, Y: 0, Width: 50, Height: 1080}},
	}

	if got, want := reserved.apply(left), (geom.Rect{X: 50, Y: 30, Width: 1870, Height: 1050}); got != want {
		t.Fatalf("left monitor: expected %+v, got %+v", want, got)
	}
	if got, want := reserved.apply(right), (geom.Rect{X: 1920, Y: 0, Width: 1920, Height: 1040}); got != want {
		t.Fatalf("right monitor: expected %+v, got %+v", want, got)
	}
}

func TestIntersect(t *testing.T) {
	a := geom.Rect{X: 0, Y: 0, Width: 100, Height: 100}
	if _, ok := intersect(a, geom.Rect{X: 100, Y: 0, Width: 10, Height: 10}); ok {
		t.Fatalf("expected touching rects not to intersect")
	}
	got, ok := intersect(a, geom.Rect{X: 90, Y: 80, Width: 50, Height: 50})
	if !ok || got != (geom.Rect{X: 90, Y: 80, Width: 10, Height: 20}) {
		t.Fatalf("unexpected intersection %+v (ok=%v)", got, ok)
	}
}
