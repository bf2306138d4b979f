package x11

import (
	"fmt"

	"github.com/1broseidon/treetile/internal/geom"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// WindowState is the display state a window manager reports for a client.
type WindowState int

const (
	StateNormal WindowState = iota
	StateIconic
	StateMaximized
	StateFullscreen
)

const (
	netStateRemove = 0
	netStateAdd    = 1

	netMaxVert    = "_NET_WM_STATE_MAXIMIZED_VERT"
	netMaxHorz    = "_NET_WM_STATE_MAXIMIZED_HORZ"
	netFullscreen = "_NET_WM_STATE_FULLSCREEN"
	netHidden     = "_NET_WM_STATE_HIDDEN"
)

// ClientList returns the windows the running window manager manages.
func (c *Connection) ClientList() ([]xproto.Window, error) {
	return ewmh.ClientListGet(c.XUtil)
}

// MoveResizeWindow moves and resizes a window to the specified geometry
func (c *Connection) MoveResizeWindow(windowID xproto.Window, r geom.Rect) error {
	// A maximized window ignores geometry requests on most window managers.
	c.setNetState(windowID, netStateRemove, netMaxHorz, netMaxVert)

	// Use EWMH MoveResize for better WM compatibility
	if err := ewmh.MoveresizeWindow(c.XUtil, windowID, r.X, r.Y, r.Width, r.Height); err != nil {
		// Fallback to direct window manipulation
		xwindow.New(c.XUtil, windowID).MoveResize(r.X, r.Y, r.Width, r.Height)
	}
	return nil
}

// GetWindowState reads WM_STATE and _NET_WM_STATE for a window.
func (c *Connection) GetWindowState(windowID xproto.Window) (WindowState, error) {
	if st, err := icccm.WmStateGet(c.XUtil, windowID); err == nil && st.State == icccm.StateIconic {
		return StateIconic, nil
	}

	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return StateNormal, nil
	}
	var maxH, maxV bool
	for _, s := range states {
		switch s {
		case netHidden:
			return StateIconic, nil
		case netFullscreen:
			return StateFullscreen, nil
		case netMaxHorz:
			maxH = true
		case netMaxVert:
			maxV = true
		}
	}
	if maxH && maxV {
		return StateMaximized, nil
	}
	return StateNormal, nil
}

// SetWindowState asks the window manager to show a window in state.
func (c *Connection) SetWindowState(windowID xproto.Window, state WindowState) error {
	switch state {
	case StateIconic:
		return c.iconify(windowID)
	case StateMaximized:
		c.setNetState(windowID, netStateRemove, netFullscreen, "")
		return ewmh.WmStateReqExtra(c.XUtil, windowID, netStateAdd, netMaxVert, netMaxHorz, 2)
	case StateFullscreen:
		return ewmh.WmStateReq(c.XUtil, windowID, netStateAdd, netFullscreen)
	case StateNormal:
		if current, err := c.GetWindowState(windowID); err == nil && current == StateIconic {
			if err := xproto.MapWindowChecked(c.XUtil.Conn(), windowID).Check(); err != nil {
				return fmt.Errorf("map window %d: %w", windowID, err)
			}
		}
		c.setNetState(windowID, netStateRemove, netFullscreen, "")
		c.setNetState(windowID, netStateRemove, netMaxHorz, netMaxVert)
		return nil
	default:
		return fmt.Errorf("unsupported window state %d", state)
	}
}

// setNetState sends a best-effort _NET_WM_STATE request for up to two atoms.
func (c *Connection) setNetState(windowID xproto.Window, action int, first, second string) {
	if second == "" {
		_ = ewmh.WmStateReq(c.XUtil, windowID, action, first)
		return
	}
	_ = ewmh.WmStateReqExtra(c.XUtil, windowID, action, first, second, 2)
}

// iconify minimizes a window via WM_CHANGE_STATE.
func (c *Connection) iconify(windowID xproto.Window) error {
	atom, err := c.internAtom("WM_CHANGE_STATE")
	if err != nil {
		return err
	}

	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{icccm.StateIconic, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// FocusWindow activates and raises a window using _NET_ACTIVE_WINDOW.
// The message is built by hand because the ewmh helper panics on this
// library version.
func (c *Connection) FocusWindow(windowID xproto.Window) error {
	atom, err := c.internAtom("_NET_ACTIVE_WINDOW")
	if err != nil {
		return err
	}

	const sourceIndication = 2 // pager/direct action
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: windowID,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{sourceIndication, 0, 0, 0, 0}),
	}

	return xproto.SendEventChecked(
		c.XUtil.Conn(),
		false,
		c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

// WindowBounds returns a window's geometry in root coordinates.
func (c *Connection) WindowBounds(windowID xproto.Window) (geom.Rect, error) {
	g, err := xproto.GetGeometry(c.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return geom.Rect{}, fmt.Errorf("get geometry of %d: %w", windowID, err)
	}

	translate, err := xproto.TranslateCoordinates(c.XUtil.Conn(), windowID, c.Root, 0, 0).Reply()
	if err != nil {
		return geom.Rect{}, fmt.Errorf("translate coordinates of %d: %w", windowID, err)
	}

	return geom.Rect{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(g.Width),
		Height: int(g.Height),
	}, nil
}

// WindowExists reports whether the server still knows the window.
func (c *Connection) WindowExists(windowID xproto.Window) bool {
	_, err := xproto.GetWindowAttributes(c.XUtil.Conn(), windowID).Reply()
	return err == nil
}

// GetFrameExtents returns the window decoration sizes (zero when unset)
func (c *Connection) GetFrameExtents(windowID xproto.Window) geom.RectDelta {
	extents, err := ewmh.FrameExtentsGet(c.XUtil, windowID)
	if err != nil {
		return geom.RectDelta{}
	}
	return geom.RectDelta{
		DeltaLeft:   int(extents.Left),
		DeltaTop:    int(extents.Top),
		DeltaRight:  int(extents.Right),
		DeltaBottom: int(extents.Bottom),
	}
}

// WindowTitle returns _NET_WM_NAME, falling back to WM_NAME.
func (c *Connection) WindowTitle(windowID xproto.Window) string {
	if title, err := ewmh.WmNameGet(c.XUtil, windowID); err == nil && title != "" {
		return title
	}
	if title, err := icccm.WmNameGet(c.XUtil, windowID); err == nil {
		return title
	}
	return ""
}

// WindowClass returns the WM_CLASS class part.
func (c *Connection) WindowClass(windowID xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, windowID)
	if err != nil {
		return ""
	}
	return wmClass.Class
}

// WindowPID returns _NET_WM_PID, 0 when unset.
func (c *Connection) WindowPID(windowID xproto.Window) int {
	pid, err := ewmh.WmPidGet(c.XUtil, windowID)
	if err != nil {
		return 0
	}
	return int(pid)
}

// IsNormalWindow checks if a window is a normal application window
func (c *Connection) IsNormalWindow(windowID xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		// If we can't determine type, assume it's normal
		return true
	}

	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return false
		}
	}

	// If no specific type is set, assume it's normal
	return len(types) == 0
}

func (c *Connection) hasWindowType(windowID xproto.Window, want string) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	for _, t := range types {
		if t == want {
			return true
		}
	}
	return false
}

// ActiveWindow returns the window named by _NET_ACTIVE_WINDOW.
func (c *Connection) ActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}
