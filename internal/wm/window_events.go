package wm

import (
	"github.com/1broseidon/treetile/internal/bus"
	"github.com/1broseidon/treetile/internal/container"
	"github.com/1broseidon/treetile/internal/platform"
)

func (h *Handlers) lookup(handle container.Handle) (container.Window, bool) {
	return h.svc.Tree().WindowByHandle(handle)
}

func (h *Handlers) onShown(d bus.Dispatcher, evt WindowShown) error {
	if _, ok := h.lookup(evt.Handle); ok {
		return nil
	}
	if !h.backend.IsManageable(platform.WindowID(evt.Handle)) {
		h.logger.Debug("ignoring unmanageable window", "hwnd", uint32(evt.Handle))
		return nil
	}
	_, err := d.Invoke(ManageWindow{Handle: evt.Handle})
	return err
}

// onHidden unmanages a window that disappears from a displayed workspace
// without being minimized.
func (h *Handlers) onHidden(d bus.Dispatcher, evt WindowHidden) error {
	w, ok := h.lookup(evt.Handle)
	if !ok {
		return nil
	}
	tree := h.svc.Tree()
	if ws := tree.WorkspaceOf(w); ws == nil || !tree.IsDisplayed(ws) {
		return nil
	}
	if w.State() == container.StateMinimized {
		return nil
	}
	if vs, err := h.backend.VisualState(platform.WindowID(evt.Handle)); err == nil && vs == platform.VisualMinimized {
		return nil
	}

	h.logger.Debug("window hidden", "hwnd", uint32(evt.Handle))
	_, err := d.Invoke(UnmanageWindow{Window: w})
	return err
}

func (h *Handlers) onDestroyed(d bus.Dispatcher, evt WindowDestroyed) error {
	w, ok := h.lookup(evt.Handle)
	if !ok {
		return nil
	}
	h.logger.Debug("window destroyed", "hwnd", uint32(evt.Handle))
	_, err := d.Invoke(UnmanageWindow{Window: w})
	return err
}

func (h *Handlers) onFocused(d bus.Dispatcher, evt WindowFocused) error {
	w, ok := h.lookup(evt.Handle)
	if !ok {
		return nil
	}
	if focused := h.svc.Tree().FocusedWindow(); focused != nil && focused.ID() == w.ID() {
		return nil
	}

	h.logger.Debug("window focused", "hwnd", uint32(evt.Handle))
	if _, err := d.Invoke(SetFocusedDescendant{Container: w}); err != nil {
		return err
	}
	return d.RaiseEvent(FocusChanged{Handle: evt.Handle})
}

func (h *Handlers) onMinimized(d bus.Dispatcher, evt WindowMinimized) error {
	w, ok := h.lookup(evt.Handle)
	if !ok || w.State() == container.StateMinimized {
		return nil
	}
	h.logger.Debug("window minimized", "hwnd", uint32(evt.Handle))
	_, err := d.Invoke(SetWindowState{Window: w, State: container.StateMinimized})
	return err
}

// onMinimizeEnded restores a minimized window to the state it was minimized
// from. Handles that do not resolve to a minimized window are ignored.
func (h *Handlers) onMinimizeEnded(d bus.Dispatcher, evt WindowMinimizeEnded) error {
	w, ok := h.lookup(evt.Handle)
	if !ok {
		return nil
	}
	minimized, ok := w.(*container.MinimizedWindow)
	if !ok {
		return nil
	}

	h.logger.Debug("window minimize ended", "hwnd", uint32(evt.Handle))
	_, err := d.Invoke(SetWindowState{Window: minimized, State: minimized.PreviousState()})
	return err
}

// onLocationChanged follows maximize and fullscreen changes made outside the
// tree, e.g. from a title bar button.
func (h *Handlers) onLocationChanged(d bus.Dispatcher, evt WindowLocationChanged) error {
	w, ok := h.lookup(evt.Handle)
	if !ok || w.State() == container.StateMinimized {
		return nil
	}
	vs, err := h.backend.VisualState(platform.WindowID(evt.Handle))
	if err != nil {
		return nil
	}

	target := w.State()
	switch vs {
	case platform.VisualMaximized:
		target = container.StateMaximized
	case platform.VisualFullscreen:
		target = container.StateFullscreen
	case platform.VisualNormal:
		if w.State() == container.StateMaximized || w.State() == container.StateFullscreen {
			target, _ = container.RestoreState(w)
			if target == container.StateMinimized {
				target = container.StateTiling
			}
		}
	}
	if target == w.State() {
		return nil
	}

	_, err = d.Invoke(SetWindowState{Window: w, State: target})
	return err
}

// onMovedOrResized keeps the floating placement in sync with user drags and
// snaps tiling windows back into their layout.
func (h *Handlers) onMovedOrResized(d bus.Dispatcher, evt WindowMovedOrResized) error {
	w, ok := h.lookup(evt.Handle)
	if !ok {
		return nil
	}
	bounds, err := h.backend.WindowBounds(platform.WindowID(evt.Handle))
	if err != nil {
		return nil
	}

	switch w.State() {
	case container.StateFloating:
		return h.svc.SetFloatingPlacement(w, bounds.Apply(w.BorderDelta().Negate()))
	case container.StateTiling:
		if bounds == w.Rect().Apply(w.BorderDelta()) {
			return nil
		}
		h.svc.MarkDirty(w)
		_, err := d.Invoke(RedrawContainers{})
		return err
	}
	return nil
}
