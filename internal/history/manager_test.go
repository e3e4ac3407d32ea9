package history

import (
	"fmt"
	"testing"
	"time"
)

// fakeClock advances only when told to, making coalescing deterministic.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestManager(capacity int) (*Manager, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	return NewManager(Options{
		Capacity:       capacity,
		CoalesceWindow: 100 * time.Millisecond,
		Now:            clock.now,
	}), clock
}

func TestManager_UndoRedoRoundTrip(t *testing.T) {
	m, clock := newTestManager(0)

	for _, s := range []string{"v1", "v2", "v3"} {
		m.Record(Snapshot(s))
		clock.advance(time.Second)
	}

	snap, ok := m.Undo()
	if !ok || string(snap) != "v2" {
		t.Fatalf("expected undo to v2, got %q ok=%v", snap, ok)
	}
	snap, ok = m.Undo()
	if !ok || string(snap) != "v1" {
		t.Fatalf("expected undo to v1, got %q ok=%v", snap, ok)
	}
	if _, ok := m.Undo(); ok {
		t.Error("undo past the first snapshot must fail")
	}

	snap, ok = m.Redo()
	if !ok || string(snap) != "v2" {
		t.Fatalf("expected redo to v2, got %q ok=%v", snap, ok)
	}
	snap, ok = m.Redo()
	if !ok || string(snap) != "v3" {
		t.Fatalf("expected redo to v3, got %q ok=%v", snap, ok)
	}
	if _, ok := m.Redo(); ok {
		t.Error("redo with empty stack must fail")
	}
}

func TestManager_RecordClearsRedo(t *testing.T) {
	m, clock := newTestManager(0)

	m.Record(Snapshot("v1"))
	clock.advance(time.Second)
	m.Record(Snapshot("v2"))
	clock.advance(time.Second)

	if _, ok := m.Undo(); !ok {
		t.Fatal("undo failed")
	}
	m.Record(Snapshot("v2b"))

	if _, ok := m.Redo(); ok {
		t.Error("recording a new edit must clear the redo stack")
	}
	snap, ok := m.Undo()
	if !ok || string(snap) != "v1" {
		t.Errorf("expected undo back to v1, got %q ok=%v", snap, ok)
	}
}

func TestManager_CoalescesRapidEdits(t *testing.T) {
	m, clock := newTestManager(0)

	m.Record(Snapshot("base"))
	clock.advance(time.Second)

	// A drag gesture: many snapshots inside the coalescing window should
	// collapse into the latest one.
	for i := 0; i < 10; i++ {
		m.Record(Snapshot(fmt.Sprintf("drag-%d", i)))
		clock.advance(10 * time.Millisecond)
	}

	if undo, _ := m.Depth(); undo != 2 {
		t.Fatalf("expected base + coalesced drag, got depth %d", undo)
	}
	snap, ok := m.Undo()
	if !ok || string(snap) != "base" {
		t.Errorf("expected single undo back to base, got %q ok=%v", snap, ok)
	}
	snap, ok = m.Redo()
	if !ok || string(snap) != "drag-9" {
		t.Errorf("expected latest drag state kept, got %q ok=%v", snap, ok)
	}
}

func TestManager_CoalesceBoundaryIsExclusive(t *testing.T) {
	m, clock := newTestManager(0)

	m.Record(Snapshot("a"))
	clock.advance(99 * time.Millisecond)
	m.Record(Snapshot("b")) // inside the window: replaces "a"

	clock.advance(100 * time.Millisecond)
	m.Record(Snapshot("c")) // exactly at the window: appended

	if undo, _ := m.Depth(); undo != 2 {
		t.Fatalf("expected [b c], got depth %d", undo)
	}
	snap, ok := m.Undo()
	if !ok || string(snap) != "b" {
		t.Errorf("expected undo to reach %q, got %q ok=%v", "b", snap, ok)
	}
}

func TestManager_CapacityEvictsOldest(t *testing.T) {
	m, clock := newTestManager(5)

	for i := 0; i < 20; i++ {
		m.Record(Snapshot(fmt.Sprintf("v%d", i)))
		clock.advance(time.Second)
	}

	if undo, _ := m.Depth(); undo != 5 {
		t.Fatalf("expected capped depth 5, got %d", undo)
	}

	// Walk back as far as possible: oldest reachable is v15.
	var last Snapshot
	for {
		snap, ok := m.Undo()
		if !ok {
			break
		}
		last = snap
	}
	if string(last) != "v15" {
		t.Errorf("expected oldest retained snapshot v15, got %q", last)
	}
}

func TestManager_ApplyingSuppressesRecording(t *testing.T) {
	m, clock := newTestManager(0)
	m.Record(Snapshot("v1"))
	clock.advance(time.Second)

	m.Applying(func() {
		m.Record(Snapshot("side-effect"))
	})

	if undo, _ := m.Depth(); undo != 1 {
		t.Errorf("records during apply must be suppressed, depth %d", undo)
	}

	// Recording resumes after the apply completes.
	m.Record(Snapshot("v2"))
	if undo, _ := m.Depth(); undo != 2 {
		t.Errorf("expected recording to resume, depth %d", undo)
	}
}

func TestManager_ModalSuppression(t *testing.T) {
	m, clock := newTestManager(0)
	m.Record(Snapshot("v1"))
	clock.advance(time.Second)
	m.Record(Snapshot("v2"))
	clock.advance(time.Second)

	m.SetModal(true)
	if _, ok := m.Undo(); ok {
		t.Error("undo must be rejected while a modal is active")
	}
	m.Record(Snapshot("ignored"))
	m.SetModal(false)

	snap, ok := m.Undo()
	if !ok || string(snap) != "v1" {
		t.Errorf("expected undo to v1 after modal closed, got %q ok=%v", snap, ok)
	}
}

func TestManager_SnapshotIsolated(t *testing.T) {
	m, clock := newTestManager(0)

	buf := []byte("original")
	m.Record(Snapshot(buf))
	clock.advance(time.Second)
	m.Record(Snapshot("other"))
	copy(buf, "mutated!")

	snap, ok := m.Undo()
	if !ok || string(snap) != "original" {
		t.Errorf("recorded snapshot must not alias caller memory, got %q", snap)
	}
}
