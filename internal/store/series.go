// Package store owns all raw and derived series, keyed by name and
// partitioned by value kind. It implements bounded retention for streaming
// mode and batch merge with append/replace policies.
package store

import (
	"errors"
	"fmt"
	"math"

	"telemetry-lab/internal/domain"
)

// Errors returned by series and store operations.
var (
	// ErrKindMismatch is returned when a name is accessed (or created)
	// with a value kind different from the one it is bound to. This is a
	// programming-contract violation, not a recoverable condition.
	ErrKindMismatch = errors.New("series kind mismatch")

	// ErrTimeRegression is returned when an append would violate the
	// non-decreasing time invariant.
	ErrTimeRegression = errors.New("append would move time backwards")
)

// Series is an ordered sequence of (time, value) points under one name.
// Time is strictly non-decreasing; ties are permitted. A series never
// changes its name while alive.
type Series[V any] struct {
	name      string
	group     string
	points    []domain.Point[V]
	maxRangeX float64
	rev       uint64
	evicted   uint64
}

func newSeries[V any](name string, maxRangeX float64) *Series[V] {
	return &Series[V]{name: name, maxRangeX: maxRangeX}
}

// Name returns the series name.
func (s *Series[V]) Name() string { return s.name }

// Group returns the non-owning group label, or "" when unset.
func (s *Series[V]) Group() string { return s.group }

// SetGroup sets the group label used for bulk deletion of related series.
func (s *Series[V]) SetGroup(group string) { s.group = group }

// Len returns the number of points.
func (s *Series[V]) Len() int { return len(s.points) }

// At returns the point at index i.
func (s *Series[V]) At(i int) domain.Point[V] { return s.points[i] }

// Points returns the backing slice. Callers must not mutate it.
func (s *Series[V]) Points() []domain.Point[V] { return s.points }

// Front returns the oldest point. The series must not be empty.
func (s *Series[V]) Front() domain.Point[V] { return s.points[0] }

// Back returns the newest point. The series must not be empty.
func (s *Series[V]) Back() domain.Point[V] { return s.points[len(s.points)-1] }

// TimeRange returns the first and last times, or ok=false when empty.
func (s *Series[V]) TimeRange() (first, last float64, ok bool) {
	if len(s.points) == 0 {
		return 0, 0, false
	}
	return s.points[0].Time, s.points[len(s.points)-1].Time, true
}

// Revision increases on every mutation. Transform dirty-tracking compares
// revisions to skip recomputation of unchanged sources.
func (s *Series[V]) Revision() uint64 { return s.rev }

// Evicted returns the cumulative number of points trimmed by retention.
func (s *Series[V]) Evicted() uint64 { return s.evicted }

// MaximumRangeX returns the retention horizon in seconds.
func (s *Series[V]) MaximumRangeX() float64 { return s.maxRangeX }

// SetMaximumRangeX sets the retention horizon. +Inf disables eviction.
// A finite horizon is applied immediately to existing points.
func (s *Series[V]) SetMaximumRangeX(x float64) {
	s.maxRangeX = x
	if s.trim() {
		s.rev++
	}
}

// Append adds a point, enforcing non-decreasing time, then trims leading
// points that fall outside the retention horizon.
func (s *Series[V]) Append(p domain.Point[V]) error {
	if n := len(s.points); n > 0 && p.Time < s.points[n-1].Time {
		return fmt.Errorf("%w: series %q, last=%g new=%g",
			ErrTimeRegression, s.name, s.points[n-1].Time, p.Time)
	}
	s.points = append(s.points, p)
	s.trim()
	s.rev++
	return nil
}

// Clear removes all points but keeps the series (and its name) alive.
func (s *Series[V]) Clear() {
	s.points = s.points[:0]
	s.rev++
}

// trim evicts front points older than back.Time - maxRangeX.
// Never trims from the middle or the back.
func (s *Series[V]) trim() bool {
	if math.IsInf(s.maxRangeX, 1) || len(s.points) == 0 {
		return false
	}
	cutoff := s.points[len(s.points)-1].Time - s.maxRangeX
	first := 0
	for first < len(s.points) && s.points[first].Time < cutoff {
		first++
	}
	if first == 0 {
		return false
	}
	s.evicted += uint64(first)
	s.points = append(s.points[:0], s.points[first:]...)
	return true
}
