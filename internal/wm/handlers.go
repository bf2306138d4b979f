// Package wm holds the command and event handlers that drive the container
// tree from OS notifications and user requests.
package wm

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/1broseidon/treetile/internal/bus"
	"github.com/1broseidon/treetile/internal/container"
	"github.com/1broseidon/treetile/internal/platform"
	"github.com/1broseidon/treetile/internal/tiling"
)

// Handlers binds the container service and the OS backend to the bus.
type Handlers struct {
	svc     *container.Service
	backend platform.Backend
	logger  *slog.Logger
}

// New creates the handler set.
func New(svc *container.Service, backend platform.Backend, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handlers{svc: svc, backend: backend, logger: logger}
}

// Register installs every command and event handler on b.
func (h *Handlers) Register(b *bus.Bus) error {
	errs := []error{
		bus.HandleCommand(b, h.redraw),
		bus.HandleCommand(b, h.resizeWindowBorders),
		bus.HandleCommand(b, h.replaceContainer),
		bus.HandleCommand(b, h.moveContainer),
		bus.HandleCommand(b, h.setWindowState),
		bus.HandleCommand(b, h.manageWindow),
		bus.HandleCommand(b, h.unmanageWindow),
		bus.HandleCommand(b, h.setFocusedDescendant),
		bus.HandleCommand(b, h.focusCycle),
		bus.HandleCommand(b, h.changeTilingDirection),
		bus.HandleCommand(b, h.resizeWindow),
		bus.HandleCommand(b, h.moveWindow),
		bus.HandleCommand(b, h.addMonitor),
	}

	bus.HandleEvent(b, h.onShown)
	bus.HandleEvent(b, h.onHidden)
	bus.HandleEvent(b, h.onDestroyed)
	bus.HandleEvent(b, h.onFocused)
	bus.HandleEvent(b, h.onMinimized)
	bus.HandleEvent(b, h.onMinimizeEnded)
	bus.HandleEvent(b, h.onLocationChanged)
	bus.HandleEvent(b, h.onMovedOrResized)

	return errors.Join(errs...)
}

func (h *Handlers) redraw(_ bus.Dispatcher, _ RedrawContainers) (bus.Response, error) {
	effects := h.svc.Redraw()
	for _, e := range effects {
		if err := h.apply(e); err != nil {
			h.logger.Warn("redraw effect failed", "hwnd", uint32(e.Handle), "state", e.State.String(), "error", err)
		}
	}
	return bus.Response{Success: true, Data: effects}, nil
}

// apply pushes one effect to the backend. Maximized, fullscreen and
// minimized windows are placed by the window system once their state is set.
func (h *Handlers) apply(e container.Effect) error {
	id := platform.WindowID(e.Handle)
	current, err := h.backend.VisualState(id)
	if err != nil {
		return err
	}

	want := visualOf(e.State)
	if current != want {
		if err := h.backend.SetState(id, want); err != nil {
			return fmt.Errorf("set state %s: %w", want, err)
		}
	}
	if want == platform.VisualNormal {
		if err := h.backend.MoveResize(id, e.Rect); err != nil {
			return fmt.Errorf("move resize: %w", err)
		}
	}
	return nil
}

func visualOf(s container.State) platform.VisualState {
	switch s {
	case container.StateMaximized:
		return platform.VisualMaximized
	case container.StateFullscreen:
		return platform.VisualFullscreen
	case container.StateMinimized:
		return platform.VisualMinimized
	default:
		return platform.VisualNormal
	}
}

func (h *Handlers) resizeWindowBorders(d bus.Dispatcher, cmd ResizeWindowBorders) (bus.Response, error) {
	if err := h.svc.ResizeBorders(cmd.Window, cmd.Delta); err != nil {
		return bus.Response{}, err
	}
	if !container.IsTiling(cmd.Window) {
		return bus.OK, nil
	}
	h.svc.MarkDirty(cmd.Window)
	return d.Invoke(RedrawContainers{})
}

func (h *Handlers) replaceContainer(_ bus.Dispatcher, cmd ReplaceContainer) (bus.Response, error) {
	if err := h.svc.Replace(cmd.Old, cmd.New); err != nil {
		return bus.Response{}, err
	}
	return bus.Response{Success: true, Data: cmd.New}, nil
}

func (h *Handlers) moveContainer(_ bus.Dispatcher, cmd MoveContainerWithinTree) (bus.Response, error) {
	if err := h.svc.Move(cmd.Container, cmd.Parent, cmd.Index, cmd.PreserveLayout); err != nil {
		return bus.Response{}, err
	}
	return bus.OK, nil
}

// setWindowState replaces the window with a node of the target state at the
// same position, moves a window entering Tiling next to the workspace's last
// focused resizable, then redraws the workspace.
func (h *Handlers) setWindowState(d bus.Dispatcher, cmd SetWindowState) (bus.Response, error) {
	tree := h.svc.Tree()
	if cmd.Window == nil || !tree.Contains(cmd.Window) {
		return bus.Response{}, fmt.Errorf("set window state: %w", container.ErrNotAttached)
	}
	from := cmd.Window.State()
	next, err := container.NextState(cmd.Window, cmd.State)
	if err != nil {
		return bus.Response{}, err
	}
	ws := tree.WorkspaceOf(cmd.Window)

	if _, err := d.Invoke(ReplaceContainer{Old: cmd.Window, New: next}); err != nil {
		return bus.Response{}, err
	}
	if cmd.State == container.StateTiling {
		parent, index := h.svc.TilingInsertionPoint(ws, next)
		move := MoveContainerWithinTree{Container: next, Parent: parent, Index: index, PreserveLayout: true}
		if _, err := d.Invoke(move); err != nil {
			return bus.Response{}, err
		}
	}

	h.svc.MarkDirty(ws)
	if _, err := d.Invoke(RedrawContainers{}); err != nil {
		return bus.Response{}, err
	}

	h.logger.Info("window state changed", "hwnd", uint32(next.Handle()), "from", from.String(), "state", cmd.State.String())
	evt := WindowStateChanged{Handle: next.Handle(), From: from.String(), To: cmd.State.String()}
	if err := d.RaiseEvent(evt); err != nil {
		return bus.Response{}, err
	}
	return bus.Response{Success: true, Data: next}, nil
}

func (h *Handlers) manageWindow(d bus.Dispatcher, cmd ManageWindow) (bus.Response, error) {
	tree := h.svc.Tree()
	if w, ok := tree.WindowByHandle(cmd.Handle); ok {
		return bus.Response{Success: true, Data: w}, nil
	}
	ws := tree.FocusedWorkspace()
	if ws == nil {
		return bus.Response{}, fmt.Errorf("manage window %d: no workspace available", cmd.Handle)
	}

	id := platform.WindowID(cmd.Handle)
	bounds, err := h.backend.WindowBounds(id)
	if err != nil {
		if !h.backend.Exists(id) {
			h.logger.Debug("window vanished before it was managed", "hwnd", uint32(cmd.Handle))
			return bus.OK, nil
		}
		return bus.Response{}, fmt.Errorf("manage window %d: %w", cmd.Handle, err)
	}

	// The layout rect describes the outer frame; the client is inset by
	// the decorations the window manager draws.
	delta := h.backend.FrameExtents(id).Negate()
	placement := bounds.Apply(delta.Negate())

	var w container.Window = container.NewTilingWindow(cmd.Handle, placement, delta, 0)
	if vs, err := h.backend.VisualState(id); err == nil && vs == platform.VisualMinimized {
		w = container.NewMinimizedWindow(cmd.Handle, placement, delta, container.StateTiling)
	}

	parent, index := h.svc.TilingInsertionPoint(ws, nil)
	if err := h.svc.Attach(w, parent, index); err != nil {
		return bus.Response{}, err
	}

	h.svc.MarkDirty(ws)
	if _, err := d.Invoke(RedrawContainers{}); err != nil {
		return bus.Response{}, err
	}

	h.logger.Info("window managed", "hwnd", uint32(cmd.Handle), "workspace", ws.Name, "state", w.State().String())
	if err := d.RaiseEvent(WindowManaged{Handle: cmd.Handle, Workspace: ws.Name}); err != nil {
		return bus.Response{}, err
	}
	return bus.Response{Success: true, Data: w}, nil
}

func (h *Handlers) unmanageWindow(d bus.Dispatcher, cmd UnmanageWindow) (bus.Response, error) {
	tree := h.svc.Tree()
	ws := tree.WorkspaceOf(cmd.Window)
	if err := h.svc.Detach(cmd.Window); err != nil {
		return bus.Response{}, err
	}

	if ws != nil {
		h.svc.MarkDirty(ws)
		if _, err := d.Invoke(RedrawContainers{}); err != nil {
			return bus.Response{}, err
		}
	}

	h.logger.Info("window unmanaged", "hwnd", uint32(cmd.Window.Handle()))
	if err := d.RaiseEvent(WindowUnmanaged{Handle: cmd.Window.Handle()}); err != nil {
		return bus.Response{}, err
	}
	return bus.OK, nil
}

func (h *Handlers) setFocusedDescendant(_ bus.Dispatcher, cmd SetFocusedDescendant) (bus.Response, error) {
	if err := h.svc.SetFocusedDescendant(cmd.Container); err != nil {
		return bus.Response{}, err
	}
	return bus.OK, nil
}

func (h *Handlers) focusCycle(d bus.Dispatcher, cmd FocusCycle) (bus.Response, error) {
	tree := h.svc.Tree()
	ws := tree.FocusedWorkspace()
	if ws == nil {
		return bus.OK, nil
	}

	var candidates []container.Window
	for _, c := range tree.Descendants(ws) {
		if w, ok := c.(container.Window); ok && w.State() != container.StateMinimized {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return bus.OK, nil
	}

	current := -1
	if focused := tree.FocusedWindow(); focused != nil {
		for i, w := range candidates {
			if w.ID() == focused.ID() {
				current = i
			}
		}
	}

	n := len(candidates)
	var target int
	switch {
	case current < 0 && cmd.Direction == Prev:
		target = n - 1
	case current < 0:
		target = 0
	case cmd.Direction == Prev:
		target = (current - 1 + n) % n
	default:
		target = (current + 1) % n
	}
	next := candidates[target]

	if err := h.backend.Focus(platform.WindowID(next.Handle())); err != nil {
		return bus.Response{}, fmt.Errorf("focus window %d: %w", next.Handle(), err)
	}
	if _, err := d.Invoke(SetFocusedDescendant{Container: next}); err != nil {
		return bus.Response{}, err
	}
	if err := d.RaiseEvent(FocusChanged{Handle: next.Handle()}); err != nil {
		return bus.Response{}, err
	}
	return bus.Response{Success: true, Data: next}, nil
}

func (h *Handlers) changeTilingDirection(d bus.Dispatcher, cmd ChangeTilingDirection) (bus.Response, error) {
	if !container.IsTiling(cmd.Window) {
		return bus.OK, nil
	}
	tree := h.svc.Tree()
	parent := tree.Parent(cmd.Window)
	if parent == nil {
		return bus.Response{}, fmt.Errorf("change tiling direction: %w", container.ErrNotAttached)
	}

	if len(tree.Children(parent)) == 1 {
		if err := h.svc.SetOrientation(parent, cmd.Orientation); err != nil {
			return bus.Response{}, err
		}
	} else if _, err := h.svc.Wrap(cmd.Window, cmd.Orientation); err != nil {
		return bus.Response{}, err
	}

	h.svc.MarkDirty(tree.WorkspaceOf(cmd.Window))
	return d.Invoke(RedrawContainers{})
}

func (h *Handlers) resizeWindow(d bus.Dispatcher, cmd ResizeWindow) (bus.Response, error) {
	tw, ok := cmd.Window.(*container.TilingWindow)
	if !ok {
		return bus.OK, nil
	}
	if err := h.svc.ResizeShare(tw, cmd.Delta); err != nil {
		return bus.Response{}, err
	}
	h.svc.MarkDirty(h.svc.Tree().Parent(tw))
	return d.Invoke(RedrawContainers{})
}

func (h *Handlers) moveWindow(d bus.Dispatcher, cmd MoveWindow) (bus.Response, error) {
	tree := h.svc.Tree()
	parent := tree.Parent(cmd.Window)
	if parent == nil {
		return bus.Response{}, fmt.Errorf("move window: %w", container.ErrNotAttached)
	}
	index := tree.Index(cmd.Window)
	last := len(tree.Children(parent)) - 1

	// Indices refer to positions before the window is taken out.
	var target int
	switch {
	case cmd.Direction == Next && index < last:
		target = index + 2
	case cmd.Direction == Prev && index > 0:
		target = index - 1
	default:
		return bus.OK, nil
	}

	move := MoveContainerWithinTree{Container: cmd.Window, Parent: parent, Index: target, PreserveLayout: true}
	if _, err := d.Invoke(move); err != nil {
		return bus.Response{}, err
	}
	h.svc.MarkDirty(parent)
	return d.Invoke(RedrawContainers{})
}

func (h *Handlers) addMonitor(_ bus.Dispatcher, cmd AddMonitor) (bus.Response, error) {
	tree := h.svc.Tree()
	if m := tree.MonitorByName(cmd.DeviceName); m != nil {
		return bus.Response{Success: true, Data: m}, nil
	}

	m := container.NewMonitor(cmd.DeviceName, cmd.Bounds)
	if err := h.svc.Attach(m, nil, -1); err != nil {
		return bus.Response{}, bus.UserFatal(fmt.Errorf("add monitor %s: %w", cmd.DeviceName, err))
	}
	for _, name := range cmd.Workspaces {
		if tree.WorkspaceByName(name) != nil {
			continue
		}
		if err := h.svc.Attach(container.NewWorkspace(name, tiling.Horizontal), m, -1); err != nil {
			return bus.Response{}, fmt.Errorf("add workspace %s: %w", name, err)
		}
	}

	h.logger.Info("monitor added",
		"device", cmd.DeviceName,
		"workspaces", len(tree.Children(m)),
		"dpi", h.svc.MonitorDPI(m),
		"scale", h.svc.ScaleFactor(m),
	)
	h.svc.MarkDirty(m)
	return bus.Response{Success: true, Data: m}, nil
}
