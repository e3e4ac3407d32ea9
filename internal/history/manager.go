// Package history records immutable state snapshots for undo/redo, with
// time-based coalescing of rapid edits and a bounded history depth.
package history

import (
	"sync"
	"time"
)

// Default policy values.
const (
	// DefaultCapacity bounds both the undo and the redo stack; pushing
	// beyond it evicts the oldest entry.
	DefaultCapacity = 100

	// DefaultCoalesceWindow merges edits recorded in rapid succession
	// (e.g. a slider drag) into a single history entry.
	DefaultCoalesceWindow = 100 * time.Millisecond
)

// Snapshot is an opaque serialized state capture. The manager never
// inspects its contents.
type Snapshot []byte

// Manager owns the undo and redo stacks. No other component mutates
// history directly.
type Manager struct {
	mu sync.Mutex

	undo [][]byte
	redo [][]byte

	capacity   int
	coalesce   time.Duration
	lastRecord time.Time

	// recording is disabled while a snapshot is being applied (to avoid
	// snapshot-of-a-snapshot recursion) or while a modal surface is open.
	applying bool
	modal    bool

	now func() time.Time
}

// Options configures a Manager. Zero values select the defaults.
type Options struct {
	Capacity       int
	CoalesceWindow time.Duration

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewManager creates an empty history.
func NewManager(opts Options) *Manager {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	coalesce := opts.CoalesceWindow
	if coalesce <= 0 {
		coalesce = DefaultCoalesceWindow
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		capacity: capacity,
		coalesce: coalesce,
		now:      now,
	}
}

// Record captures the state after an undoable edit. If the previous
// snapshot is younger than the coalescing window it is replaced instead of
// appended. Recording a new edit always clears the redo stack.
func (m *Manager) Record(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.applying || m.modal {
		return
	}

	ts := m.now()
	if len(m.undo) > 0 && ts.Sub(m.lastRecord) < m.coalesce {
		m.undo = m.undo[:len(m.undo)-1]
	}
	for len(m.undo) >= m.capacity {
		m.undo = m.undo[1:]
	}
	m.undo = append(m.undo, append([]byte(nil), s...))
	m.redo = m.redo[:0]
	m.lastRecord = ts
}

// Undo moves the current state onto the redo stack and returns the
// previous snapshot to apply. ok is false when there is nothing to undo.
func (m *Manager) Undo() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.modal || len(m.undo) < 2 {
		return nil, false
	}

	top := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	for len(m.redo) >= m.capacity {
		m.redo = m.redo[1:]
	}
	m.redo = append(m.redo, top)

	return Snapshot(m.undo[len(m.undo)-1]), true
}

// Redo is the inverse of Undo.
func (m *Manager) Redo() (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.modal || len(m.redo) == 0 {
		return nil, false
	}

	top := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	for len(m.undo) >= m.capacity {
		m.undo = m.undo[1:]
	}
	m.undo = append(m.undo, top)

	return Snapshot(top), true
}

// Applying wraps the application of a snapshot, suppressing any Record
// calls the apply path triggers.
func (m *Manager) Applying(fn func()) {
	m.mu.Lock()
	m.applying = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.applying = false
		m.mu.Unlock()
	}()

	fn()
}

// SetModal suppresses recording and undo/redo while a modal or popup
// surface is active.
func (m *Manager) SetModal(active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.modal = active
}

// Depth returns the current undo and redo stack sizes.
func (m *Manager) Depth() (undo, redo int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo), len(m.redo)
}

// Clear drops all history, e.g. after deleting all data.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = nil
	m.redo = nil
	m.lastRecord = time.Time{}
}
