// Package storage defines the persistence contracts for the engine: the
// append-only series point archive and the layout document store.
package storage

import (
	"context"

	"telemetry-lab/internal/domain"
)

// SeriesPointStore archives streamed numeric samples per session.
type SeriesPointStore interface {
	// InsertBulk adds multiple points. Fails the entire batch with
	// ErrDuplicateKey on any duplicate (session_id, series_name, time).
	InsertBulk(ctx context.Context, points []*domain.ArchivedPoint) error

	// GetBySession retrieves all points of a session, ordered by series
	// name then time ASC.
	GetBySession(ctx context.Context, sessionID string) ([]*domain.ArchivedPoint, error)

	// GetBySeries retrieves all points of one series within a session,
	// ordered by time ASC.
	GetBySeries(ctx context.Context, sessionID, seriesName string) ([]*domain.ArchivedPoint, error)

	// GetByTimeRange retrieves points of one series within [start, end]
	// (inclusive), ordered by time ASC.
	GetByTimeRange(ctx context.Context, sessionID, seriesName string, start, end float64) ([]*domain.ArchivedPoint, error)
}

// LayoutStore persists named layout documents.
type LayoutStore interface {
	// Save inserts or replaces the layout under its name.
	Save(ctx context.Context, rec *domain.LayoutRecord) error

	// Get retrieves a layout by name. Returns ErrNotFound if not exists.
	Get(ctx context.Context, name string) (*domain.LayoutRecord, error)

	// List returns all layout names, sorted.
	List(ctx context.Context) ([]string, error)

	// Delete removes a layout by name. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, name string) error
}
