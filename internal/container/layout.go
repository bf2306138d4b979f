package container

import (
	"github.com/1broseidon/treetile/internal/geom"
	"github.com/1broseidon/treetile/internal/tiling"
)

// Effect instructs the OS window subsystem to show a window in a state at a
// rectangle. Rect already includes the window's border delta and is zero for
// minimized windows.
type Effect struct {
	Handle Handle
	State  State
	Rect   geom.Rect
}

// Redraw consumes the dirty set, recomputes geometry for every workspace
// holding a dirty container and returns effects for the windows inside the
// dirty subtrees, in tree pre-order. Only displayed workspaces are laid out.
func (s *Service) Redraw() []Effect {
	dirty := s.TakeDirty()
	if len(dirty) == 0 {
		return nil
	}

	roots := make(map[ID]bool, len(dirty))
	workspaces := make(map[ID]bool)
	for _, c := range dirty {
		if m, ok := c.(*Monitor); ok {
			if ws := s.tree.DisplayedWorkspace(m); ws != nil {
				roots[ws.ID()] = true
				workspaces[ws.ID()] = true
			}
			continue
		}
		if ws := s.tree.WorkspaceOf(c); ws != nil {
			roots[c.ID()] = true
			workspaces[ws.ID()] = true
		}
	}

	var effects []Effect
	for _, ws := range s.tree.Workspaces() {
		if !workspaces[ws.ID()] || !s.tree.IsDisplayed(ws) {
			continue
		}
		monitor := s.tree.MonitorOf(ws)
		ws.rect = monitor.Bounds().Inset(s.opts.OuterGap)
		effects = s.layoutChildren(ws, monitor.Bounds(), roots[ws.ID()], roots, effects)
	}
	return effects
}

func (s *Service) layoutChildren(parent Container, monitorBounds geom.Rect, emit bool, roots map[ID]bool, effects []Effect) []Effect {
	orientation, _ := orientationOf(parent)
	cells := s.splitCells(parent.Rect(), orientation, resizableChildren(parent))

	next := 0
	for _, child := range parent.base().children {
		switch v := child.(type) {
		case Resizable:
			v.base().rect = cells[next]
			next++
		case *FloatingWindow:
			v.rect = v.floatingPlacement
		case *MaximizedWindow:
			v.rect = monitorBounds
		case *FullscreenWindow:
			v.rect = monitorBounds
		}

		emitChild := emit || roots[child.ID()]
		if w, ok := child.(Window); ok && emitChild {
			effect := Effect{Handle: w.Handle(), State: w.State()}
			if w.State() != StateMinimized {
				effect.Rect = w.Rect().Apply(w.BorderDelta())
			}
			effects = append(effects, effect)
		}
		if _, tiles := orientationOf(child); tiles {
			effects = s.layoutChildren(child, monitorBounds, emitChild, roots, effects)
		}
	}
	return effects
}

// splitCells divides area among the resizable children, dropping the gap and
// then the split itself when the area is too small to divide.
func (s *Service) splitCells(area geom.Rect, orientation tiling.Orientation, children []Resizable) []geom.Rect {
	if len(children) == 0 {
		return nil
	}
	shares := effectiveShares(children)
	if cells, err := tiling.SplitRect(area, orientation, shares, s.opts.InnerGap); err == nil {
		return cells
	}
	if cells, err := tiling.SplitRect(area, orientation, shares, 0); err == nil {
		return cells
	}
	cells := make([]geom.Rect, len(children))
	for i := range cells {
		cells[i] = area
	}
	return cells
}
