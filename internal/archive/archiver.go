// Package archive persists streamed numeric samples into a
// storage.SeriesPointStore, incrementally: each flush writes only the
// points that appeared since the previous one.
package archive

import (
	"context"
	"fmt"
	"log"
	"math"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/storage"
	"telemetry-lab/internal/store"
)

// Archiver tracks the high-water mark per series and appends new points to
// the backing store. It is driven by the ingestion runner's update hook.
type Archiver struct {
	store     storage.SeriesPointStore
	sessionID string
	logger    *log.Logger

	// lastTime is the newest archived timestamp per series.
	lastTime map[string]float64
}

// Options configures an Archiver.
type Options struct {
	Store     storage.SeriesPointStore
	SessionID string
	Logger    *log.Logger
}

// New creates an archiver for one stream session.
func New(opts Options) (*Archiver, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("archive: store is required")
	}
	if opts.SessionID == "" {
		return nil, fmt.Errorf("archive: session id is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Archiver{
		store:     opts.Store,
		sessionID: opts.SessionID,
		logger:    logger,
		lastTime:  make(map[string]float64),
	}, nil
}

// Flush writes every numeric point newer than the series' high-water mark.
// It returns the number of points archived.
func (a *Archiver) Flush(ctx context.Context, sm *store.SeriesMap) (int, error) {
	var batch []*domain.ArchivedPoint

	for _, name := range sm.Names() {
		s, ok := sm.Numeric(name)
		if !ok {
			continue // only numeric series are archived
		}
		mark, seen := a.lastTime[name]
		if !seen {
			mark = math.Inf(-1)
		}
		for _, p := range s.Points() {
			if p.Time <= mark {
				continue
			}
			batch = append(batch, &domain.ArchivedPoint{
				SessionID:  a.sessionID,
				SeriesName: name,
				Time:       p.Time,
				Value:      p.Value,
			})
		}
	}

	if len(batch) == 0 {
		return 0, nil
	}
	if err := a.store.InsertBulk(ctx, batch); err != nil {
		return 0, fmt.Errorf("archive flush: %w", err)
	}

	// Advance marks only after a successful write, so a failed flush is
	// retried in full next time.
	for _, p := range batch {
		if p.Time > a.lastTime[p.SeriesName] || !a.has(p.SeriesName) {
			a.lastTime[p.SeriesName] = p.Time
		}
	}
	return len(batch), nil
}

func (a *Archiver) has(name string) bool {
	_, ok := a.lastTime[name]
	return ok
}
