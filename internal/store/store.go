package store

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// SeriesMap is the owning collection of all series, partitioned into three
// mappings because value types differ. A name exists in at most one mapping
// at a time.
//
// Mutation is driven by a single owner goroutine; the lock exists for the
// narrow read paths (metrics, streamer pending buffers) that inspect the map
// from other goroutines.
type SeriesMap struct {
	mu          sync.RWMutex
	numeric     map[string]*Series[float64]
	strings     map[string]*Series[string]
	userDefined map[string]*Series[any]
	maxRangeX   float64
}

// NewSeriesMap creates an empty store with an infinite retention horizon.
func NewSeriesMap() *SeriesMap {
	return &SeriesMap{
		numeric:     make(map[string]*Series[float64]),
		strings:     make(map[string]*Series[string]),
		userDefined: make(map[string]*Series[any]),
		maxRangeX:   math.Inf(1),
	}
}

// kindOf reports which mapping holds name, or "" when absent.
func (m *SeriesMap) kindOf(name string) string {
	if _, ok := m.numeric[name]; ok {
		return "numeric"
	}
	if _, ok := m.strings[name]; ok {
		return "string"
	}
	if _, ok := m.userDefined[name]; ok {
		return "user_defined"
	}
	return ""
}

// AddNumeric creates an empty numeric series if absent and returns it.
// Idempotent. Returns ErrKindMismatch if the name is bound to another kind.
func (m *SeriesMap) AddNumeric(name string) (*Series[float64], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.numeric[name]; ok {
		return s, nil
	}
	if k := m.kindOf(name); k != "" {
		return nil, fmt.Errorf("%w: %q is %s, requested numeric", ErrKindMismatch, name, k)
	}
	s := newSeries[float64](name, m.maxRangeX)
	m.numeric[name] = s
	return s, nil
}

// AddString creates an empty string series if absent and returns it.
func (m *SeriesMap) AddString(name string) (*Series[string], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.strings[name]; ok {
		return s, nil
	}
	if k := m.kindOf(name); k != "" {
		return nil, fmt.Errorf("%w: %q is %s, requested string", ErrKindMismatch, name, k)
	}
	s := newSeries[string](name, m.maxRangeX)
	m.strings[name] = s
	return s, nil
}

// AddUserDefined creates an empty user-defined series if absent and returns it.
func (m *SeriesMap) AddUserDefined(name string) (*Series[any], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.userDefined[name]; ok {
		return s, nil
	}
	if k := m.kindOf(name); k != "" {
		return nil, fmt.Errorf("%w: %q is %s, requested user_defined", ErrKindMismatch, name, k)
	}
	s := newSeries[any](name, m.maxRangeX)
	m.userDefined[name] = s
	return s, nil
}

// Numeric returns the numeric series with the given name, if present.
func (m *SeriesMap) Numeric(name string) (*Series[float64], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.numeric[name]
	return s, ok
}

// String returns the string series with the given name, if present.
func (m *SeriesMap) String(name string) (*Series[string], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.strings[name]
	return s, ok
}

// UserDefined returns the user-defined series with the given name, if present.
func (m *SeriesMap) UserDefined(name string) (*Series[any], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.userDefined[name]
	return s, ok
}

// Contains reports whether any mapping holds name.
func (m *SeriesMap) Contains(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.kindOf(name) != ""
}

// Erase removes a series from whichever mapping holds it. No-op if absent.
func (m *SeriesMap) Erase(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.numeric, name)
	delete(m.strings, name)
	delete(m.userDefined, name)
}

// EraseGroup removes every series carrying the given group label and
// returns the removed names. The reverse lookup is built on demand; the
// group itself is only a label, never an owning object.
func (m *SeriesMap) EraseGroup(group string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	for name, s := range m.numeric {
		if s.Group() == group {
			delete(m.numeric, name)
			removed = append(removed, name)
		}
	}
	for name, s := range m.strings {
		if s.Group() == group {
			delete(m.strings, name)
			removed = append(removed, name)
		}
	}
	for name, s := range m.userDefined {
		if s.Group() == group {
			delete(m.userDefined, name)
			removed = append(removed, name)
		}
	}
	sort.Strings(removed)
	return removed
}

// Names returns all series names across the three mappings, sorted.
func (m *SeriesMap) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.numeric)+len(m.strings)+len(m.userDefined))
	for name := range m.numeric {
		names = append(names, name)
	}
	for name := range m.strings {
		names = append(names, name)
	}
	for name := range m.userDefined {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the total number of series.
func (m *SeriesMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.numeric) + len(m.strings) + len(m.userDefined)
}

// MaximumRangeX returns the retention horizon applied to every series.
func (m *SeriesMap) MaximumRangeX() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxRangeX
}

// SetMaximumRangeX sets the streaming retention horizon on the store and on
// every existing series. +Inf disables eviction.
func (m *SeriesMap) SetMaximumRangeX(x float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxRangeX = x
	for _, s := range m.numeric {
		s.SetMaximumRangeX(x)
	}
	for _, s := range m.strings {
		s.SetMaximumRangeX(x)
	}
	for _, s := range m.userDefined {
		s.SetMaximumRangeX(x)
	}
}

// ClearAll empties every series buffer without removing any series.
func (m *SeriesMap) ClearAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.numeric {
		s.Clear()
	}
	for _, s := range m.strings {
		s.Clear()
	}
	for _, s := range m.userDefined {
		s.Clear()
	}
}

// TimeRange returns the minimum start and maximum end time across all
// non-empty numeric series, or ok=false when there is no data.
func (m *SeriesMap) TimeRange() (minTime, maxTime float64, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	minTime = math.Inf(1)
	maxTime = math.Inf(-1)
	for _, s := range m.numeric {
		if first, last, nonEmpty := s.TimeRange(); nonEmpty {
			minTime = math.Min(minTime, first)
			maxTime = math.Max(maxTime, last)
			ok = true
		}
	}
	if !ok {
		return 0, 0, false
	}
	return minTime, maxTime, true
}

// RevisionOf returns the mutation revision of the named series, regardless
// of kind. Used by transform dirty-tracking.
func (m *SeriesMap) RevisionOf(name string) (uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.numeric[name]; ok {
		return s.Revision(), true
	}
	if s, ok := m.strings[name]; ok {
		return s.Revision(), true
	}
	if s, ok := m.userDefined[name]; ok {
		return s.Revision(), true
	}
	return 0, false
}

// EvictedTotal returns the cumulative number of points trimmed by retention
// across all series.
func (m *SeriesMap) EvictedTotal() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var total uint64
	for _, s := range m.numeric {
		total += s.Evicted()
	}
	for _, s := range m.strings {
		total += s.Evicted()
	}
	for _, s := range m.userDefined {
		total += s.Evicted()
	}
	return total
}
