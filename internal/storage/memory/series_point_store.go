// Package memory provides in-memory storage implementations, used in tests
// and when the engine runs without external databases.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/storage"
)

// SeriesPointStore is an in-memory implementation of storage.SeriesPointStore.
type SeriesPointStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ArchivedPoint // keyed by (session_id, series_name, time)
}

// NewSeriesPointStore creates a new in-memory series point store.
func NewSeriesPointStore() *SeriesPointStore {
	return &SeriesPointStore{
		data: make(map[string]*domain.ArchivedPoint),
	}
}

// Compile-time interface check.
var _ storage.SeriesPointStore = (*SeriesPointStore)(nil)

func pointKey(sessionID, seriesName string, time float64) string {
	return fmt.Sprintf("%s|%s|%g", sessionID, seriesName, time)
}

// InsertBulk adds multiple points. Fails the entire batch on any duplicate.
func (s *SeriesPointStore) InsertBulk(_ context.Context, points []*domain.ArchivedPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: validate and detect duplicates (existing + intra-batch).
	batchKeys := make(map[string]struct{}, len(points))
	for _, p := range points {
		if p == nil || p.SessionID == "" || p.SeriesName == "" {
			return storage.ErrInvalidInput
		}
		key := pointKey(p.SessionID, p.SeriesName, p.Time)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all.
	for _, p := range points {
		pointCopy := *p
		s.data[pointKey(p.SessionID, p.SeriesName, p.Time)] = &pointCopy
	}
	return nil
}

// GetBySession retrieves all points of a session, ordered by series name
// then time ASC.
func (s *SeriesPointStore) GetBySession(_ context.Context, sessionID string) ([]*domain.ArchivedPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ArchivedPoint
	for _, p := range s.data {
		if p.SessionID == sessionID {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SeriesName != result[j].SeriesName {
			return result[i].SeriesName < result[j].SeriesName
		}
		return result[i].Time < result[j].Time
	})
	return result, nil
}

// GetBySeries retrieves all points of one series, ordered by time ASC.
func (s *SeriesPointStore) GetBySeries(_ context.Context, sessionID, seriesName string) ([]*domain.ArchivedPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ArchivedPoint
	for _, p := range s.data {
		if p.SessionID == sessionID && p.SeriesName == seriesName {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Time < result[j].Time })
	return result, nil
}

// GetByTimeRange retrieves points within [start, end] inclusive, ordered by
// time ASC.
func (s *SeriesPointStore) GetByTimeRange(_ context.Context, sessionID, seriesName string, start, end float64) ([]*domain.ArchivedPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ArchivedPoint
	for _, p := range s.data {
		if p.SessionID == sessionID && p.SeriesName == seriesName &&
			p.Time >= start && p.Time <= end {
			pointCopy := *p
			result = append(result, &pointCopy)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Time < result[j].Time })
	return result, nil
}
