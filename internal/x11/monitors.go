package x11

import (
	"fmt"
	"math"

	"github.com/1broseidon/treetile/internal/geom"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// Monitor represents a physical display
type Monitor struct {
	ID     int
	Name   string
	Bounds geom.Rect
	// Usable excludes the struts reserved by docks and panels.
	Usable geom.Rect
	// WidthMM is the physical width reported by the output, 0 when unknown.
	WidthMM uint32
}

// DPI derives dots per inch from the pixel and physical widths. It returns 0
// when the output does not report a physical size.
func (m Monitor) DPI() uint32 {
	if m.WidthMM == 0 || m.Bounds.Width <= 0 {
		return 0
	}
	return uint32(math.Round(float64(m.Bounds.Width) * 25.4 / float64(m.WidthMM)))
}

// GetMonitors retrieves all active monitors using XRandR
func (c *Connection) GetMonitors() ([]Monitor, error) {
	if err := randr.Init(c.XUtil.Conn()); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}

	resources, err := randr.GetScreenResources(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var monitors []Monitor
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(c.XUtil.Conn(), crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}

		// Skip disabled CRTCs
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		m := Monitor{
			ID:   i,
			Name: fmt.Sprintf("Monitor%d", i),
			Bounds: geom.Rect{
				X:      int(crtcInfo.X),
				Y:      int(crtcInfo.Y),
				Width:  int(crtcInfo.Width),
				Height: int(crtcInfo.Height),
			},
		}
		outputInfo, err := randr.GetOutputInfo(c.XUtil.Conn(), crtcInfo.Outputs[0], resources.ConfigTimestamp).Reply()
		if err == nil {
			m.Name = string(outputInfo.Name)
			m.WidthMM = outputInfo.MmWidth
		}
		monitors = append(monitors, m)
	}

	reserved := c.dockStruts()
	for i := range monitors {
		monitors[i].Usable = reserved.apply(monitors[i].Bounds)
	}
	return monitors, nil
}

// MonitorDPI returns the DPI of the named output.
func (c *Connection) MonitorDPI(name string) (uint32, error) {
	monitors, err := c.GetMonitors()
	if err != nil {
		return 0, err
	}
	for _, m := range monitors {
		if m.Name == name {
			return m.DPI(), nil
		}
	}
	return 0, fmt.Errorf("monitor %q not found", name)
}

type side int

const (
	sideTop side = iota
	sideBottom
	sideLeft
	sideRight
)

// strut is a screen-edge strip reserved by a dock, in root coordinates.
type strut struct {
	side side
	rect geom.Rect
}

type struts []strut

// apply shrinks bounds by every reserved strip overlapping it.
func (s struts) apply(bounds geom.Rect) geom.Rect {
	out := bounds
	for _, st := range s {
		isect, ok := intersect(bounds, st.rect)
		if !ok {
			continue
		}
		switch st.side {
		case sideTop:
			if edge := isect.Y + isect.Height; edge > out.Y {
				out.Height -= edge - out.Y
				out.Y = edge
			}
		case sideBottom:
			if edge := isect.Y; edge < out.Y+out.Height {
				out.Height = edge - out.Y
			}
		case sideLeft:
			if edge := isect.X + isect.Width; edge > out.X {
				out.Width -= edge - out.X
				out.X = edge
			}
		case sideRight:
			if edge := isect.X; edge < out.X+out.Width {
				out.Width = edge - out.X
			}
		}
	}
	if out.Width < 1 {
		out.Width = 1
	}
	if out.Height < 1 {
		out.Height = 1
	}
	return out
}

// dockStruts collects _NET_WM_STRUT_PARTIAL (or _NET_WM_STRUT) strips from
// every dock window in the client list.
func (c *Connection) dockStruts() struts {
	rootGeom, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(c.Root)).Reply()
	if err != nil {
		return nil
	}
	rootW, rootH := int(rootGeom.Width), int(rootGeom.Height)

	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return nil
	}

	var out struts
	for _, windowID := range clients {
		if !c.hasWindowType(windowID, "_NET_WM_WINDOW_TYPE_DOCK") {
			continue
		}

		sp, err := ewmh.WmStrutPartialGet(c.XUtil, windowID)
		if err != nil {
			// Some docks only set _NET_WM_STRUT (no partial ranges).
			s, serr := ewmh.WmStrutGet(c.XUtil, windowID)
			if serr != nil {
				continue
			}
			sp = &ewmh.WmStrutPartial{
				Left: s.Left, Right: s.Right, Top: s.Top, Bottom: s.Bottom,
				LeftEndY: uint(rootH - 1), RightEndY: uint(rootH - 1),
				TopEndX: uint(rootW - 1), BottomEndX: uint(rootW - 1),
			}
		}

		if sp.Top > 0 {
			out = append(out, strut{sideTop, geom.Rect{X: int(sp.TopStartX), Y: 0, Width: int(sp.TopEndX-sp.TopStartX) + 1, Height: int(sp.Top)}})
		}
		if sp.Bottom > 0 {
			out = append(out, strut{sideBottom, geom.Rect{X: int(sp.BottomStartX), Y: rootH - int(sp.Bottom), Width: int(sp.BottomEndX-sp.BottomStartX) + 1, Height: int(sp.Bottom)}})
		}
		if sp.Left > 0 {
			out = append(out, strut{sideLeft, geom.Rect{X: 0, Y: int(sp.LeftStartY), Width: int(sp.Left), Height: int(sp.LeftEndY-sp.LeftStartY) + 1}})
		}
		if sp.Right > 0 {
			out = append(out, strut{sideRight, geom.Rect{X: rootW - int(sp.Right), Y: int(sp.RightStartY), Width: int(sp.Right), Height: int(sp.RightEndY-sp.RightStartY) + 1}})
		}
	}
	return out
}

func intersect(a, b geom.Rect) (geom.Rect, bool) {
	x1, y1 := max(a.X, b.X), max(a.Y, b.Y)
	x2, y2 := min(a.X+a.Width, b.X+b.Width), min(a.Y+a.Height, b.Y+b.Height)
	if x2 <= x1 || y2 <= y1 {
		return geom.Rect{}, false
	}
	return geom.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}, true
}
