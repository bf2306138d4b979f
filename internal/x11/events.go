package x11

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// HookCallbacks receives decoded window notifications. Callbacks run on the
// event loop goroutine (or a debounce timer) and must not block.
type HookCallbacks struct {
	Shown           func(xproto.Window)
	Hidden          func(xproto.Window)
	Destroyed       func(xproto.Window)
	Focused         func(xproto.Window)
	Minimized       func(xproto.Window)
	MinimizeEnded   func(xproto.Window)
	LocationChanged func(xproto.Window)
	MovedOrResized  func(xproto.Window)
}

// DefaultSettleDelay is how long a window must stop moving before
// MovedOrResized fires.
const DefaultSettleDelay = 150 * time.Millisecond

// Hook decodes X11 notifications from the root window and from every client
// of the running window manager.
type Hook struct {
	conn     *Connection
	cb       HookCallbacks
	settle   time.Duration
	logger   *slog.Logger
	mu       sync.Mutex
	clients  map[xproto.Window]bool
	iconic   map[xproto.Window]bool
	settling map[xproto.Window]*time.Timer
}

// InstallHook starts listening for notifications. Events are delivered once
// EventLoop runs.
func (c *Connection) InstallHook(cb HookCallbacks, settle time.Duration, logger *slog.Logger) (*Hook, error) {
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	h := &Hook{
		conn:     c,
		cb:       cb,
		settle:   settle,
		logger:   logger,
		clients:  make(map[xproto.Window]bool),
		iconic:   make(map[xproto.Window]bool),
		settling: make(map[xproto.Window]*time.Timer),
	}

	root := xwindow.New(c.XUtil, c.Root)
	if err := root.Listen(xproto.EventMaskSubstructureNotify, xproto.EventMaskPropertyChange); err != nil {
		return nil, err
	}

	xevent.MapNotifyFun(h.onRootMap).Connect(c.XUtil, c.Root)
	xevent.PropertyNotifyFun(h.onRootProperty).Connect(c.XUtil, c.Root)

	if clients, err := c.ClientList(); err == nil {
		for _, w := range clients {
			h.watch(w)
		}
	}
	return h, nil
}

// watch subscribes to a client's own structure and property notifications.
// It reports whether the window was new.
func (h *Hook) watch(w xproto.Window) bool {
	h.mu.Lock()
	if h.clients[w] {
		h.mu.Unlock()
		return false
	}
	h.clients[w] = true
	h.mu.Unlock()

	xu := h.conn.XUtil
	if err := xwindow.New(xu, w).Listen(xproto.EventMaskStructureNotify, xproto.EventMaskPropertyChange); err != nil {
		h.logger.Debug("listen on client failed", "hwnd", uint32(w), "error", err)
	}
	if st, err := icccm.WmStateGet(xu, w); err == nil && st.State == icccm.StateIconic {
		h.setIconic(w, true)
	}

	xevent.UnmapNotifyFun(h.onUnmap).Connect(xu, w)
	xevent.DestroyNotifyFun(h.onDestroy).Connect(xu, w)
	xevent.ConfigureNotifyFun(h.onConfigure).Connect(xu, w)
	xevent.PropertyNotifyFun(h.onClientProperty).Connect(xu, w)
	return true
}

func (h *Hook) forget(w xproto.Window) {
	h.mu.Lock()
	delete(h.clients, w)
	delete(h.iconic, w)
	if t := h.settling[w]; t != nil {
		t.Stop()
		delete(h.settling, w)
	}
	h.mu.Unlock()
	xevent.Detach(h.conn.XUtil, w)
}

func (h *Hook) setIconic(w xproto.Window, iconic bool) (changed bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.iconic[w] == iconic {
		return false
	}
	if iconic {
		h.iconic[w] = true
	} else {
		delete(h.iconic, w)
	}
	return true
}

// onRootMap covers non-reparenting window managers, where clients map as
// direct children of the root.
func (h *Hook) onRootMap(xu *xgbutil.XUtil, ev xevent.MapNotifyEvent) {
	if ev.OverrideRedirect {
		return
	}
	h.watch(ev.Window)
	emit(h.cb.Shown, ev.Window)
}

func (h *Hook) onRootProperty(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
	name, err := xprop.AtomName(xu, ev.Atom)
	if err != nil {
		return
	}

	switch name {
	case "_NET_ACTIVE_WINDOW":
		if w, err := h.conn.ActiveWindow(); err == nil && w != 0 {
			emit(h.cb.Focused, w)
		}
	case "_NET_CLIENT_LIST":
		h.syncClientList()
	}
}

// syncClientList diffs _NET_CLIENT_LIST against the watched set, reporting
// new clients as shown and vanished clients as destroyed.
func (h *Hook) syncClientList() {
	clients, err := h.conn.ClientList()
	if err != nil {
		return
	}

	current := make(map[xproto.Window]bool, len(clients))
	for _, w := range clients {
		current[w] = true
		if h.watch(w) {
			emit(h.cb.Shown, w)
		}
	}

	h.mu.Lock()
	var gone []xproto.Window
	for w := range h.clients {
		if !current[w] {
			gone = append(gone, w)
		}
	}
	h.mu.Unlock()

	for _, w := range gone {
		h.forget(w)
		emit(h.cb.Destroyed, w)
	}
}

func (h *Hook) onUnmap(xu *xgbutil.XUtil, ev xevent.UnmapNotifyEvent) {
	// An iconified client unmaps too; report it as minimized instead.
	if st, err := icccm.WmStateGet(xu, ev.Window); err == nil && st.State == icccm.StateIconic {
		if h.setIconic(ev.Window, true) {
			emit(h.cb.Minimized, ev.Window)
		}
		return
	}
	emit(h.cb.Hidden, ev.Window)
}

func (h *Hook) onDestroy(xu *xgbutil.XUtil, ev xevent.DestroyNotifyEvent) {
	h.forget(ev.Window)
	emit(h.cb.Destroyed, ev.Window)
}

func (h *Hook) onConfigure(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
	w := ev.Window
	emit(h.cb.LocationChanged, w)

	h.mu.Lock()
	defer h.mu.Unlock()
	if t := h.settling[w]; t != nil {
		t.Reset(h.settle)
		return
	}
	h.settling[w] = time.AfterFunc(h.settle, func() {
		h.mu.Lock()
		delete(h.settling, w)
		h.mu.Unlock()
		emit(h.cb.MovedOrResized, w)
	})
}

func (h *Hook) onClientProperty(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
	name, err := xprop.AtomName(xu, ev.Atom)
	if err != nil {
		return
	}

	switch name {
	case "WM_STATE":
		st, err := icccm.WmStateGet(xu, ev.Window)
		if err != nil {
			return
		}
		switch st.State {
		case icccm.StateIconic:
			if h.setIconic(ev.Window, true) {
				emit(h.cb.Minimized, ev.Window)
			}
		case icccm.StateNormal:
			if h.setIconic(ev.Window, false) {
				emit(h.cb.MinimizeEnded, ev.Window)
			}
		}
	case "_NET_WM_STATE":
		emit(h.cb.LocationChanged, ev.Window)
	}
}

func emit(fn func(xproto.Window), w xproto.Window) {
	if fn != nil {
		fn(w)
	}
}
