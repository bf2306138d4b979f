package platform

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/1broseidon/treetile/internal/geom"
)

// ErrNoWindow is returned by Memory for windows it does not know.
var ErrNoWindow = errors.New("window does not exist")

// Call records one effect issued against a Memory backend.
type Call struct {
	Op     string // "move_resize", "set_state" or "focus"
	Window WindowID
	Bounds geom.Rect
	State  VisualState
}

type memWindow struct {
	Window
	state      VisualState
	manageable bool
	extents    geom.RectDelta
}

// Memory is an in-process Backend that keeps window state in maps and
// records every effect. It backs tests and dry runs.
type Memory struct {
	mu       sync.Mutex
	displays []Display
	dpi      map[string]uint32
	windows  map[WindowID]*memWindow
	failing  map[WindowID]error
	calls    []Call
}

var _ Backend = (*Memory)(nil)

// NewMemory creates a Memory backend with the given displays.
func NewMemory(displays ...Display) *Memory {
	return &Memory{
		displays: displays,
		dpi:      make(map[string]uint32),
		windows:  make(map[WindowID]*memWindow),
		failing:  make(map[WindowID]error),
	}
}

// SetDPI sets the DPI reported for a display name.
func (m *Memory) SetDPI(name string, dpi uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dpi[name] = dpi
}

// AddWindow registers a window in the normal state.
func (m *Memory) AddWindow(w Window, manageable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.windows[w.ID] = &memWindow{Window: w, manageable: manageable}
}

// RemoveWindow forgets a window, as if it had been destroyed.
func (m *Memory) RemoveWindow(id WindowID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, id)
}

// SetVisualState changes the state reported for a window without recording a call.
func (m *Memory) SetVisualState(id WindowID, s VisualState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w := m.windows[id]; w != nil {
		w.state = s
	}
}

// SetBounds changes the geometry reported for a window without recording a call.
func (m *Memory) SetBounds(id WindowID, r geom.Rect) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w := m.windows[id]; w != nil {
		w.Bounds = r
	}
}

// SetFrameExtents sets the decoration sizes reported for a window.
func (m *Memory) SetFrameExtents(id WindowID, d geom.RectDelta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w := m.windows[id]; w != nil {
		w.extents = d
	}
}

// FailWindow makes every effect on id return err. A nil err clears it.
func (m *Memory) FailWindow(id WindowID, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failing, id)
		return
	}
	m.failing[id] = err
}

// Calls returns a copy of the recorded effects.
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// ResetCalls clears the recorded effects.
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

func (m *Memory) Displays() ([]Display, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Display(nil), m.displays...), nil
}

func (m *Memory) MonitorDPI(name string) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.displays {
		if d.Name == name {
			return m.dpi[name], nil
		}
	}
	return 0, fmt.Errorf("monitor %q not found", name)
}

func (m *Memory) ListWindows() ([]Window, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Window, 0, len(m.windows))
	for _, w := range m.windows {
		if w.manageable {
			out = append(out, w.Window)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) WindowBounds(id WindowID) (geom.Rect, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.windows[id]
	if w == nil {
		return geom.Rect{}, ErrNoWindow
	}
	return w.Bounds, nil
}

func (m *Memory) VisualState(id WindowID) (VisualState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.windows[id]
	if w == nil {
		return VisualNormal, ErrNoWindow
	}
	return w.state, nil
}

func (m *Memory) IsManageable(id WindowID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.windows[id]
	return w != nil && w.manageable
}

func (m *Memory) Exists(id WindowID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.windows[id] != nil
}

func (m *Memory) FrameExtents(id WindowID) geom.RectDelta {
	m.mu.Lock()
	defer m.mu.Unlock()
	if w := m.windows[id]; w != nil {
		return w.extents
	}
	return geom.RectDelta{}
}

func (m *Memory) MoveResize(id WindowID, bounds geom.Rect) error {
	return m.effect(Call{Op: "move_resize", Window: id, Bounds: bounds}, func(w *memWindow) {
		w.Bounds = bounds
	})
}

func (m *Memory) SetState(id WindowID, state VisualState) error {
	return m.effect(Call{Op: "set_state", Window: id, State: state}, func(w *memWindow) {
		w.state = state
	})
}

func (m *Memory) Focus(id WindowID) error {
	return m.effect(Call{Op: "focus", Window: id}, func(*memWindow) {})
}

func (m *Memory) effect(c Call, apply func(*memWindow)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
	if err := m.failing[c.Window]; err != nil {
		return err
	}
	w := m.windows[c.Window]
	if w == nil {
		return ErrNoWindow
	}
	apply(w)
	return nil
}
