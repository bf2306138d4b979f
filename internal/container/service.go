package container

import (
	"fmt"

	"github.com/1broseidon/treetile/internal/geom"
	"github.com/1broseidon/treetile/internal/tiling"
	"github.com/google/uuid"
)

// DefaultDPI is assumed for monitors the display collaborator cannot describe.
const DefaultDPI = 96

// DPIQuerier reports the DPI of a monitor. Implementations must be free of
// side effects.
type DPIQuerier interface {
	MonitorDPI(deviceName string) (uint32, error)
}

// Options configures a Service.
type Options struct {
	DPI      DPIQuerier
	InnerGap int
	OuterGap int
}

// Service owns the tree and is the only code path that mutates its structure.
// It is not safe for concurrent use; callers serialize access through the bus.
type Service struct {
	tree     *Tree
	opts     Options
	dirty    []ID
	dirtySet map[ID]struct{}
}

// NewService creates a service with an empty tree.
func NewService(opts Options) *Service {
	return &Service{
		tree:     newTree(),
		opts:     opts,
		dirtySet: make(map[ID]struct{}),
	}
}

// Tree returns the read-only query surface of the managed tree.
func (s *Service) Tree() *Tree {
	return s.tree
}

// SetGaps updates the gaps used by subsequent layout passes.
func (s *Service) SetGaps(inner, outer int) {
	s.opts.InnerGap = inner
	s.opts.OuterGap = outer
}

// Attach inserts a detached container (and any children it already holds)
// under parent at index. An index outside the child range appends. Monitors
// attach with a nil parent.
func (s *Service) Attach(c, parent Container, index int) error {
	if c == nil {
		return fmt.Errorf("attach: nil container")
	}
	if _, exists := s.tree.nodes[c.ID()]; exists || c.base().parent != uuid.Nil {
		return fmt.Errorf("attach %s: %w", c.ID(), ErrAlreadyAttached)
	}
	if parent != nil && !s.tree.Contains(parent) {
		return fmt.Errorf("attach %s: parent %s: %w", c.ID(), parent.ID(), ErrNotAttached)
	}
	if err := checkPlacement(c, parent); err != nil {
		return fmt.Errorf("attach %s: %w", c.ID(), err)
	}

	subtree := append([]Container{c}, s.tree.Descendants(c)...)
	seen := make(map[Handle]bool)
	for _, n := range subtree {
		w, ok := n.(Window)
		if !ok {
			continue
		}
		if _, dup := s.tree.handles[w.Handle()]; dup || seen[w.Handle()] {
			return fmt.Errorf("attach %s: handle %d: %w", c.ID(), w.Handle(), ErrDuplicateHandle)
		}
		seen[w.Handle()] = true
	}

	s.link(c, parent, index)
	for _, n := range subtree {
		s.register(n)
	}
	if _, ok := c.(*Monitor); ok && s.tree.focusedMonitor == uuid.Nil {
		s.tree.focusedMonitor = c.ID()
	}
	return nil
}

// Detach removes c and its subtree from the tree. Split containers left empty
// are removed and those left with a single child are flattened into it.
func (s *Service) Detach(c Container) error {
	if !s.tree.Contains(c) {
		return fmt.Errorf("detach: %w", ErrNotAttached)
	}

	parent := s.tree.Parent(c)
	wasFocused := parent != nil && parent.base().lastFocused == c.ID()
	s.unlink(c)
	for _, n := range append([]Container{c}, s.tree.Descendants(c)...) {
		s.unregister(n)
	}
	if s.tree.focusedMonitor == c.ID() {
		s.tree.focusedMonitor = uuid.Nil
	}
	if wasFocused {
		s.refocusWithin(parent)
	}

	s.rebalance(parent)
	s.collapse(parent)
	return nil
}

// Replace swaps oldNode for newNode at the identical tree position: same
// parent, same index. Children and focus links move to the new node.
func (s *Service) Replace(oldNode, newNode Container) error {
	if !s.tree.Contains(oldNode) {
		return fmt.Errorf("replace: %w", ErrNotAttached)
	}
	if newNode == nil {
		return fmt.Errorf("replace: nil container")
	}
	if _, exists := s.tree.nodes[newNode.ID()]; exists || newNode.base().parent != uuid.Nil {
		return fmt.Errorf("replace %s: %w", oldNode.ID(), ErrAlreadyAttached)
	}
	if len(newNode.base().children) > 0 {
		return fmt.Errorf("replace %s: replacement must not hold children", oldNode.ID())
	}

	parent := s.tree.Parent(oldNode)
	if err := checkPlacement(newNode, parent); err != nil {
		return fmt.Errorf("replace %s: %w", oldNode.ID(), err)
	}
	for _, child := range oldNode.base().children {
		if err := checkPlacement(child, newNode); err != nil {
			return fmt.Errorf("replace %s: %w", oldNode.ID(), err)
		}
	}
	if w, ok := newNode.(Window); ok {
		if id, dup := s.tree.handles[w.Handle()]; dup && id != oldNode.ID() {
			return fmt.Errorf("replace %s: handle %d: %w", oldNode.ID(), w.Handle(), ErrDuplicateHandle)
		}
	}

	oldBase, newBase := oldNode.base(), newNode.base()
	if parent != nil {
		pb := parent.base()
		pb.children[pb.indexOf(oldNode.ID())] = newNode
		if pb.lastFocused == oldNode.ID() {
			pb.lastFocused = newNode.ID()
		}
	} else {
		s.tree.monitors[s.tree.Index(oldNode)] = newNode
		if s.tree.focusedMonitor == oldNode.ID() {
			s.tree.focusedMonitor = newNode.ID()
		}
	}
	newBase.parent = oldBase.parent
	newBase.children, oldBase.children = oldBase.children, nil
	newBase.lastFocused, oldBase.lastFocused = oldBase.lastFocused, uuid.Nil
	newBase.rect = oldBase.rect
	for _, child := range newBase.children {
		child.base().parent = newBase.id
	}

	wasDirty := s.isDirty(oldNode.ID())
	s.unregister(oldNode)
	oldBase.parent = uuid.Nil
	s.register(newNode)
	if wasDirty {
		s.MarkDirty(newNode)
	}
	return nil
}

// Move relocates an attached container under newParent at newIndex. For a
// move within the same parent, newIndex refers to positions in the sequence
// before the container is taken out. With preserveLayout the container keeps
// its size share and last rendered rect; otherwise both reset so the next
// layout pass measures it afresh.
func (s *Service) Move(c, newParent Container, newIndex int, preserveLayout bool) error {
	if !s.tree.Contains(c) {
		return fmt.Errorf("move: %w", ErrNotAttached)
	}
	if !s.tree.Contains(newParent) {
		return fmt.Errorf("move %s: parent: %w", c.ID(), ErrNotAttached)
	}
	if err := checkPlacement(c, newParent); err != nil {
		return fmt.Errorf("move %s: %w", c.ID(), err)
	}
	if newParent.ID() == c.ID() || s.isAncestor(c, newParent) {
		return fmt.Errorf("move %s: %w: target is inside the moved subtree", c.ID(), ErrInvalidParent)
	}

	oldParent := s.tree.Parent(c)
	wasFocused := oldParent.base().lastFocused == c.ID()
	var focused Window
	if w := s.tree.FocusedWindow(); w != nil && (w.ID() == c.ID() || s.isAncestor(c, w)) {
		focused = w
	}

	if oldParent.ID() == newParent.ID() {
		current := s.tree.Index(c)
		if newIndex > current {
			newIndex--
		}
		s.unlink(c)
		s.link(c, newParent, newIndex)
		if wasFocused {
			oldParent.base().lastFocused = c.ID()
		}
	} else {
		s.unlink(c)
		s.link(c, newParent, newIndex)
		if wasFocused {
			s.refocusWithin(oldParent)
		}
		s.rebalance(oldParent)
		s.collapse(oldParent)
		if focused != nil {
			// Focus follows the window it was on.
			_ = s.SetFocusedDescendant(focused)
		}
	}

	if !preserveLayout {
		if r, ok := c.(Resizable); ok {
			r.setSizePercentage(0)
		}
		c.base().rect = geom.Rect{}
	}
	return nil
}

// Wrap replaces c with a new split container of the given orientation that
// holds c as its only child. The split inherits c's size share.
func (s *Service) Wrap(c Container, orientation tiling.Orientation) (*SplitContainer, error) {
	if !s.tree.Contains(c) {
		return nil, fmt.Errorf("wrap: %w", ErrNotAttached)
	}
	parent := s.tree.Parent(c)
	if _, ok := orientationOf(parent); !ok {
		return nil, fmt.Errorf("wrap %s: %w", c.ID(), ErrInvalidParent)
	}

	share := 0.0
	if r, ok := c.(Resizable); ok {
		share = r.SizePercentage()
	}
	split := NewSplitContainer(orientation, share)
	split.rect = c.Rect()
	index := s.tree.Index(c)
	focused := parent.base().lastFocused == c.ID()

	s.unlink(c)
	s.link(split, parent, index)
	s.register(split)
	s.link(c, split, 0)
	split.lastFocused = c.ID()
	if focused {
		parent.base().lastFocused = split.ID()
	}
	if r, ok := c.(Resizable); ok {
		r.setSizePercentage(1)
	}
	return split, nil
}

// SetOrientation changes the tiling direction of a workspace or split.
func (s *Service) SetOrientation(c Container, orientation tiling.Orientation) error {
	if !s.tree.Contains(c) {
		return fmt.Errorf("set orientation: %w", ErrNotAttached)
	}
	switch v := c.(type) {
	case *Workspace:
		v.orientation = orientation
	case *SplitContainer:
		v.orientation = orientation
	default:
		return fmt.Errorf("set orientation: %s does not tile its children", c.Kind())
	}
	return nil
}

// SetFocusedDescendant records c as the focus path on every ancestor.
func (s *Service) SetFocusedDescendant(c Container) error {
	if !s.tree.Contains(c) {
		return fmt.Errorf("set focused descendant: %w", ErrNotAttached)
	}
	child := c
	for parent := s.tree.Parent(child); parent != nil; parent = s.tree.Parent(child) {
		parent.base().lastFocused = child.ID()
		child = parent
	}
	if m, ok := child.(*Monitor); ok {
		s.tree.focusedMonitor = m.ID()
	}
	return nil
}

// ResizeBorders accrues delta into the window's border delta. Repeated calls
// accumulate component-wise.
func (s *Service) ResizeBorders(w Window, delta geom.RectDelta) error {
	if !s.tree.Contains(w) {
		return fmt.Errorf("resize borders: %w", ErrNotAttached)
	}
	base := w.window()
	base.borderDelta = base.borderDelta.Add(delta)
	return nil
}

// SetFloatingPlacement records where the window sits when floating.
func (s *Service) SetFloatingPlacement(w Window, placement geom.Rect) error {
	if !s.tree.Contains(w) {
		return fmt.Errorf("set floating placement: %w", ErrNotAttached)
	}
	w.window().floatingPlacement = placement
	return nil
}

// MinShare bounds how small a resized container may become.
const MinShare = 0.05

// ResizeShare grows (or shrinks, for negative delta) the share of r within its
// parent. Sibling shares are materialised first and absorb the difference in
// proportion to their size.
func (s *Service) ResizeShare(r Resizable, delta float64) error {
	if !s.tree.Contains(r) {
		return fmt.Errorf("resize: %w", ErrNotAttached)
	}
	siblings := resizableChildren(s.tree.Parent(r))
	if len(siblings) < 2 {
		return nil
	}

	shares := effectiveShares(siblings)
	self := -1
	for i, sib := range siblings {
		if sib.ID() == r.ID() {
			self = i
		}
	}

	maxShare := 1 - MinShare*float64(len(siblings)-1)
	target := clamp(shares[self]+delta, MinShare, maxShare)
	applied := target - shares[self]
	rest := 1 - shares[self]

	for i, sib := range siblings {
		if i == self {
			sib.setSizePercentage(target)
			continue
		}
		next := shares[i] - applied*(shares[i]/rest)
		sib.setSizePercentage(clamp(next, MinShare, 1))
	}
	normalizeInPlace(siblings)
	return nil
}

// MarkDirty queues c for the next redraw pass. Marking twice is a no-op.
func (s *Service) MarkDirty(c Container) {
	if c == nil {
		return
	}
	if _, ok := s.dirtySet[c.ID()]; ok {
		return
	}
	s.dirtySet[c.ID()] = struct{}{}
	s.dirty = append(s.dirty, c.ID())
}

// PendingRedraw returns the queued containers still attached to the tree,
// without clearing the set.
func (s *Service) PendingRedraw() []Container {
	out := make([]Container, 0, len(s.dirty))
	for _, id := range s.dirty {
		if c, ok := s.tree.nodes[id]; ok {
			out = append(out, c)
		}
	}
	return out
}

// TakeDirty returns the queued containers and clears the set.
func (s *Service) TakeDirty() []Container {
	out := s.PendingRedraw()
	s.dirty = nil
	clear(s.dirtySet)
	return out
}

// MonitorDPI queries the display collaborator, falling back to DefaultDPI.
func (s *Service) MonitorDPI(m *Monitor) uint32 {
	if s.opts.DPI == nil || m == nil {
		return DefaultDPI
	}
	dpi, err := s.opts.DPI.MonitorDPI(m.DeviceName)
	if err != nil || dpi == 0 {
		return DefaultDPI
	}
	return dpi
}

// ScaleFactor returns dpi/96 for the monitor.
func (s *Service) ScaleFactor(m *Monitor) float64 {
	return float64(s.MonitorDPI(m)) / DefaultDPI
}

// TilingInsertionPoint returns where a window entering Tiling belongs: right
// after the workspace's last focused resizable descendant, or at index 0 of
// the workspace when there is none. exclude and its ancestors never serve as
// the anchor.
func (s *Service) TilingInsertionPoint(ws *Workspace, exclude Container) (Container, int) {
	anchor := s.tree.LastFocusedDescendant(ws, func(c Container) bool {
		if _, ok := c.(Resizable); !ok {
			return false
		}
		if exclude == nil {
			return true
		}
		return c.ID() != exclude.ID() && !s.isAncestor(c, exclude)
	})
	if anchor == nil {
		return ws, 0
	}
	return s.tree.Parent(anchor), s.tree.Index(anchor) + 1
}

func (s *Service) isDirty(id ID) bool {
	_, ok := s.dirtySet[id]
	return ok
}

// isAncestor reports whether a is a strict ancestor of c.
func (s *Service) isAncestor(a, c Container) bool {
	for p := s.tree.Parent(c); p != nil; p = s.tree.Parent(p) {
		if p.ID() == a.ID() {
			return true
		}
	}
	return false
}

func (s *Service) register(c Container) {
	s.tree.nodes[c.ID()] = c
	if w, ok := c.(Window); ok {
		s.tree.handles[w.Handle()] = c.ID()
	}
}

func (s *Service) unregister(c Container) {
	delete(s.tree.nodes, c.ID())
	if w, ok := c.(Window); ok && s.tree.handles[w.Handle()] == c.ID() {
		delete(s.tree.handles, w.Handle())
	}
	if s.isDirty(c.ID()) {
		delete(s.dirtySet, c.ID())
		for i, id := range s.dirty {
			if id == c.ID() {
				s.dirty = append(s.dirty[:i], s.dirty[i+1:]...)
				break
			}
		}
	}
}

func (s *Service) link(c, parent Container, index int) {
	if parent == nil {
		s.tree.monitors = insertAt(s.tree.monitors, c, index)
		return
	}
	pb := parent.base()
	pb.children = insertAt(pb.children, c, index)
	c.base().parent = pb.id
}

func (s *Service) unlink(c Container) {
	parent := s.tree.Parent(c)
	if parent == nil {
		s.tree.monitors = removeID(s.tree.monitors, c.ID())
		return
	}
	pb := parent.base()
	pb.children = removeID(pb.children, c.ID())
	if pb.lastFocused == c.ID() {
		pb.lastFocused = uuid.Nil
	}
	c.base().parent = uuid.Nil
}

// refocusWithin points parent's focus chain at its most recently focused
// non-minimized window after the focused child left. Links above parent are
// untouched.
func (s *Service) refocusWithin(parent Container) {
	target := s.tree.LastFocusedDescendant(parent, func(c Container) bool {
		w, ok := c.(Window)
		return ok && w.State() != StateMinimized
	})
	if target == nil {
		return
	}
	for child := target; child.ID() != parent.ID(); child = s.tree.Parent(child) {
		s.tree.Parent(child).base().lastFocused = child.ID()
	}
}

// rebalance re-normalises the measured shares of parent's resizable children.
func (s *Service) rebalance(parent Container) {
	if _, ok := orientationOf(parent); !ok {
		return
	}
	children := resizableChildren(parent)
	for _, c := range children {
		if c.SizePercentage() <= 0 {
			return
		}
	}
	normalizeInPlace(children)
}

// collapse removes an empty split and flattens a split holding one child.
func (s *Service) collapse(c Container) {
	split, ok := c.(*SplitContainer)
	if !ok || !s.tree.Contains(split) {
		return
	}
	switch len(split.children) {
	case 0:
		parent := s.tree.Parent(split)
		s.unlink(split)
		s.unregister(split)
		s.rebalance(parent)
		s.collapse(parent)
	case 1:
		child := split.children[0]
		parent := s.tree.Parent(split)
		index := s.tree.Index(split)
		focused := parent.base().lastFocused == split.ID()
		dirty := s.isDirty(split.ID())

		s.unlink(child)
		s.unlink(split)
		s.unregister(split)
		s.link(child, parent, index)
		if focused {
			parent.base().lastFocused = child.ID()
		}
		if r, ok := child.(Resizable); ok {
			r.setSizePercentage(split.sizePercentage)
		}
		if dirty {
			s.MarkDirty(child)
		}
	}
}

func resizableChildren(parent Container) []Resizable {
	if parent == nil {
		return nil
	}
	var out []Resizable
	for _, c := range parent.base().children {
		if r, ok := c.(Resizable); ok {
			out = append(out, r)
		}
	}
	return out
}

// effectiveShares gives every unmeasured (zero) share an equal 1/n slot and
// normalises the result.
func effectiveShares(children []Resizable) []float64 {
	shares := make([]float64, len(children))
	equal := 1.0 / float64(len(children))
	for i, c := range children {
		shares[i] = c.SizePercentage()
		if shares[i] <= 0 {
			shares[i] = equal
		}
	}
	return tiling.NormalizeShares(shares)
}

func normalizeInPlace(children []Resizable) {
	shares := make([]float64, len(children))
	for i, c := range children {
		shares[i] = c.SizePercentage()
	}
	for i, share := range tiling.NormalizeShares(shares) {
		children[i].setSizePercentage(share)
	}
}

func insertAt(list []Container, c Container, index int) []Container {
	if index < 0 || index >= len(list) {
		return append(list, c)
	}
	list = append(list, nil)
	copy(list[index+1:], list[index:])
	list[index] = c
	return list
}

func removeID(list []Container, id ID) []Container {
	for i, c := range list {
		if c.ID() == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
