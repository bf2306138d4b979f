//go:build linux

package platform

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/1broseidon/treetile/internal/geom"
	"github.com/1broseidon/treetile/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// LinuxBackend wraps an existing X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackendFromDisplay opens a fresh X11 connection to display
// ($DISPLAY when empty).
func NewLinuxBackendFromDisplay(display string) (*LinuxBackend, error) {
	conn, err := x11.NewConnection(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// Listen installs the X11 event hook and forwards every decoded notification
// to sink. sink runs on the event loop goroutine and must not block.
func (b *LinuxBackend) Listen(sink func(Event), settle time.Duration, logger *slog.Logger) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}

	forward := func(kind EventKind) func(xproto.Window) {
		return func(w xproto.Window) {
			sink(Event{Kind: kind, Window: WindowID(w)})
		}
	}
	_, err = conn.InstallHook(x11.HookCallbacks{
		Shown:           forward(EventShown),
		Hidden:          forward(EventHidden),
		Destroyed:       forward(EventDestroyed),
		Focused:         forward(EventFocused),
		Minimized:       forward(EventMinimized),
		MinimizeEnded:   forward(EventMinimizeEnded),
		LocationChanged: forward(EventLocationChanged),
		MovedOrResized:  forward(EventMovedOrResized),
	}, settle, logger)
	if err != nil {
		return fmt.Errorf("install event hook: %w", err)
	}
	return nil
}

// EventLoop runs the X11 event loop until Quit is called (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// Quit stops EventLoop.
func (b *LinuxBackend) Quit() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
	}
}

// Displays returns all active displays.
func (b *LinuxBackend) Displays() ([]Display, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	displays := make([]Display, 0, len(monitors))
	for _, m := range monitors {
		displays = append(displays, Display{
			ID:     m.ID,
			Name:   m.Name,
			Bounds: m.Bounds,
			Usable: m.Usable,
		})
	}

	sort.Slice(displays, func(i, j int) bool {
		return displays[i].ID < displays[j].ID
	})

	return displays, nil
}

// MonitorDPI returns the DPI of the named output.
func (b *LinuxBackend) MonitorDPI(name string) (uint32, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	return conn.MonitorDPI(name)
}

// ListWindows returns the manageable clients on the current virtual desktop.
func (b *LinuxBackend) ListWindows() ([]Window, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	clients, err := conn.ClientList()
	if err != nil {
		return nil, err
	}

	// Get current desktop for filtering.
	currentDesktop, desktopErr := ewmh.CurrentDesktopGet(conn.XUtil)
	hasCurrentDesktop := desktopErr == nil

	windows := make([]Window, 0, len(clients))
	for _, windowID := range clients {
		if !conn.IsNormalWindow(windowID) {
			continue
		}

		if hasCurrentDesktop {
			desktop, err := ewmh.WmDesktopGet(conn.XUtil, windowID)
			if err == nil && desktop != uint(0xFFFFFFFF) && desktop != currentDesktop {
				continue
			}
		}

		rect, err := conn.WindowBounds(windowID)
		if err != nil {
			continue
		}

		windows = append(windows, Window{
			ID:     WindowID(windowID),
			PID:    conn.WindowPID(windowID),
			AppID:  strings.TrimSpace(conn.WindowClass(windowID)),
			Title:  strings.TrimSpace(conn.WindowTitle(windowID)),
			Bounds: rect,
		})
	}

	sort.Slice(windows, func(i, j int) bool {
		return windows[i].ID < windows[j].ID
	})

	return windows, nil
}

// WindowBounds returns a window's current geometry.
func (b *LinuxBackend) WindowBounds(id WindowID) (geom.Rect, error) {
	conn, err := b.connection()
	if err != nil {
		return geom.Rect{}, err
	}
	return conn.WindowBounds(xproto.Window(id))
}

// VisualState reports how the window manager currently shows a window.
func (b *LinuxBackend) VisualState(id WindowID) (VisualState, error) {
	conn, err := b.connection()
	if err != nil {
		return VisualNormal, err
	}
	st, err := conn.GetWindowState(xproto.Window(id))
	if err != nil {
		return VisualNormal, err
	}
	return visualFromX11(st), nil
}

// IsManageable reports whether id is a normal window in the client list.
func (b *LinuxBackend) IsManageable(id WindowID) bool {
	conn, err := b.connection()
	if err != nil {
		return false
	}
	clients, err := conn.ClientList()
	if err != nil || !slices.Contains(clients, xproto.Window(id)) {
		return false
	}
	return conn.IsNormalWindow(xproto.Window(id))
}

// Exists reports whether the window is still alive.
func (b *LinuxBackend) Exists(id WindowID) bool {
	conn, err := b.connection()
	if err != nil {
		return false
	}
	return conn.WindowExists(xproto.Window(id))
}

// FrameExtents returns _NET_FRAME_EXTENTS for the window.
func (b *LinuxBackend) FrameExtents(id WindowID) geom.RectDelta {
	conn, err := b.connection()
	if err != nil {
		return geom.RectDelta{}
	}
	return conn.GetFrameExtents(xproto.Window(id))
}

// MoveResize moves and resizes a window to the specified bounds.
func (b *LinuxBackend) MoveResize(id WindowID, bounds geom.Rect) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.MoveResizeWindow(xproto.Window(id), bounds)
}

// SetState asks the window manager to show the window in state.
func (b *LinuxBackend) SetState(id WindowID, state VisualState) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.SetWindowState(xproto.Window(id), x11FromVisual(state))
}

// Focus activates the window.
func (b *LinuxBackend) Focus(id WindowID) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.FocusWindow(xproto.Window(id))
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

func visualFromX11(st x11.WindowState) VisualState {
	switch st {
	case x11.StateIconic:
		return VisualMinimized
	case x11.StateMaximized:
		return VisualMaximized
	case x11.StateFullscreen:
		return VisualFullscreen
	default:
		return VisualNormal
	}
}

func x11FromVisual(s VisualState) x11.WindowState {
	switch s {
	case VisualMinimized:
		return x11.StateIconic
	case VisualMaximized:
		return x11.StateMaximized
	case VisualFullscreen:
		return x11.StateFullscreen
	default:
		return x11.StateNormal
	}
}
