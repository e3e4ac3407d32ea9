package ingestion

import (
	"math"
	"sync"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/store"
)

// PendingBuffer is the staging area between a streamer's receive goroutines
// and the runner. Producers push samples under the lock; the runner swaps
// the whole map out in one operation.
type PendingBuffer struct {
	mu        sync.Mutex
	pending   *store.SeriesMap
	maxRangeX float64

	arrived chan struct{}
}

// NewPendingBuffer creates an empty buffer with an unbounded horizon.
func NewPendingBuffer() *PendingBuffer {
	return &PendingBuffer{
		pending:   store.NewSeriesMap(),
		maxRangeX: math.Inf(1),
		arrived:   make(chan struct{}, 1),
	}
}

// PushNumeric appends one numeric sample to the buffer.
func (b *PendingBuffer) PushNumeric(series string, t, v float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.pending.AddNumeric(series)
	if err != nil {
		return err
	}
	if err := s.Append(domain.Point[float64]{Time: t, Value: v}); err != nil {
		return err
	}
	b.signal()
	return nil
}

// PushString appends one string sample to the buffer.
func (b *PendingBuffer) PushString(series string, t float64, v string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.pending.AddString(series)
	if err != nil {
		return err
	}
	if err := s.Append(domain.Point[string]{Time: t, Value: v}); err != nil {
		return err
	}
	b.signal()
	return nil
}

// signal is called with mu held; the channel has capacity one so repeated
// pushes coalesce into a single notification.
func (b *PendingBuffer) signal() {
	select {
	case b.arrived <- struct{}{}:
	default:
	}
}

// Drain swaps the pending map for a fresh one and returns the old map. Only
// the swap happens under the lock.
func (b *PendingBuffer) Drain() *store.SeriesMap {
	fresh := store.NewSeriesMap()

	b.mu.Lock()
	fresh.SetMaximumRangeX(b.maxRangeX)
	out := b.pending
	b.pending = fresh
	b.mu.Unlock()

	return out
}

// DataArrived returns the coalesced notification channel.
func (b *PendingBuffer) DataArrived() <-chan struct{} { return b.arrived }

// SetMaximumRangeX bounds the buffered history in seconds of data time.
func (b *PendingBuffer) SetMaximumRangeX(seconds float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maxRangeX = seconds
	b.pending.SetMaximumRangeX(seconds)
}
