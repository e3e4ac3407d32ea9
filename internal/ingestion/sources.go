// Package ingestion brings samples into the engine: batch loaders for data
// files and live streamers feeding a mutex-guarded pending buffer that the
// runner drains on a coalesced schedule.
package ingestion

import (
	"context"

	"telemetry-lab/internal/store"
)

// Loader reads a complete data file into a fresh series map. Loaded data is
// merged with the Replace policy so a reload supersedes earlier contents.
type Loader interface {
	Load(path string) (*store.SeriesMap, error)
}

// Streamer produces live samples into an internal pending buffer. The main
// store is never touched from the streamer's goroutines; the runner drains
// the buffer and merges with the Append policy.
type Streamer interface {
	// Start begins producing samples. It returns once the stream is
	// established; delivery continues on background goroutines.
	Start(ctx context.Context) error

	// Shutdown stops delivery and releases resources. Idempotent.
	Shutdown()

	// Drain swaps the pending buffer for an empty one and returns the
	// accumulated samples. The swap happens under the buffer's lock; no
	// per-point work is done while it is held.
	Drain() *store.SeriesMap

	// DataArrived signals that the pending buffer is non-empty. The
	// channel has capacity one; signals coalesce.
	DataArrived() <-chan struct{}

	// SetMaximumRangeX bounds how much history the pending buffer keeps,
	// in seconds of data time.
	SetMaximumRangeX(seconds float64)
}
