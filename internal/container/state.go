package container

// NextState builds the detached node that takes over w's tree position in
// state to. The OS handle, floating placement and border delta carry over
// unchanged. A window entering Tiling starts with a size share of 0 so the
// layout it lands in measures it afresh. Maximized, Fullscreen and Minimized
// nodes remember the state they were entered from.
func NextState(w Window, to State) (Window, error) {
	from := w.State()
	if !from.Valid() || !to.Valid() || from == to {
		return nil, &TransitionError{From: from, To: to}
	}

	handle, placement, delta := w.Handle(), w.FloatingPlacement(), w.BorderDelta()
	switch to {
	case StateTiling:
		return NewTilingWindow(handle, placement, delta, 0), nil
	case StateFloating:
		return NewFloatingWindow(handle, placement, delta), nil
	case StateMaximized:
		return NewMaximizedWindow(handle, placement, delta, from), nil
	case StateFullscreen:
		return NewFullscreenWindow(handle, placement, delta, from), nil
	case StateMinimized:
		return NewMinimizedWindow(handle, placement, delta, from), nil
	}
	return nil, &TransitionError{From: from, To: to}
}

// RestoreState returns the state a window returns to when its current state
// ends without an explicit target.
func RestoreState(w Window) (State, error) {
	r, ok := w.(Restorable)
	if !ok {
		return 0, &TransitionError{From: w.State(), To: w.State()}
	}
	return r.PreviousState(), nil
}

// IsTiling reports whether c is a tiling window.
func IsTiling(c Container) bool {
	_, ok := c.(*TilingWindow)
	return ok
}
