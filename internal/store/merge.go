package store

import (
	"errors"
	"sort"
)

// MergePolicy controls how an incoming batch integrates with existing data.
type MergePolicy int

const (
	// MergeAppend appends incoming values to existing series of the same
	// name, preserving monotonic time order. Used for live streaming.
	MergeAppend MergePolicy = iota

	// MergeReplace clears existing series of the same name first; the
	// incoming values take over. Used when reloading files.
	MergeReplace
)

// MergeResult tells the caller what actually changed, so that nothing is
// rebuilt when nothing changed.
type MergeResult struct {
	// AddedSeries are the names created by this merge, sorted.
	AddedSeries []string

	// SchemaChanged is true when an existing name changed value kind.
	SchemaChanged bool

	// DataPushed is true when at least one point was moved into the store.
	DataPushed bool

	// PointsPushed counts the points moved into the store.
	PointsPushed int

	// PointsDropped counts the points rejected by per-series failures
	// (time regressions, kind conflicts). Details are in the returned error.
	PointsDropped int
}

// Merge integrates a batch of newly produced or loaded series into the
// store. The incoming map is drained: its points are moved out and its
// series buffers left empty, so a streamer can keep reusing the same
// pending map across drains.
//
// Per-series failures (time regressions under MergeAppend) are aggregated
// into the returned error; they never abort the merge of sibling series.
func (m *SeriesMap) Merge(incoming *SeriesMap, policy MergePolicy) (MergeResult, error) {
	var result MergeResult
	var errs []error

	incoming.mu.Lock()
	defer incoming.mu.Unlock()

	mergePartition(m, incoming.numeric, "numeric", m.AddNumeric, policy, &result, &errs)
	mergePartition(m, incoming.strings, "string", m.AddString, policy, &result, &errs)
	mergePartition(m, incoming.userDefined, "user_defined", m.AddUserDefined, policy, &result, &errs)

	sort.Strings(result.AddedSeries)
	return result, errors.Join(errs...)
}

// mergePartition moves one kind-partition of the incoming map into the store.
func mergePartition[V any](
	m *SeriesMap,
	src map[string]*Series[V],
	kind string,
	add func(string) (*Series[V], error),
	policy MergePolicy,
	result *MergeResult,
	errs *[]error,
) {
	names := make([]string, 0, len(src))
	for name := range src {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		srcSeries := src[name]

		m.mu.RLock()
		existing := m.kindOf(name)
		m.mu.RUnlock()

		switch {
		case existing == "":
			result.AddedSeries = append(result.AddedSeries, name)
		case existing != kind:
			// The name is re-bound to the incoming kind; the old data
			// cannot be preserved across a kind change.
			m.Erase(name)
			result.SchemaChanged = true
		case policy == MergeReplace:
			m.clearByName(name)
		}

		dst, err := add(name)
		if err != nil {
			*errs = append(*errs, err)
			result.PointsDropped += srcSeries.Len()
			continue
		}
		if srcSeries.Group() != "" && dst.Group() == "" {
			dst.SetGroup(srcSeries.Group())
		}
		for _, p := range srcSeries.Points() {
			if err := dst.Append(p); err != nil {
				*errs = append(*errs, err)
				result.PointsDropped++
				continue
			}
			result.DataPushed = true
			result.PointsPushed++
		}
		srcSeries.Clear()
	}
}

func (m *SeriesMap) clearByName(name string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.numeric[name]; ok {
		s.Clear()
	}
	if s, ok := m.strings[name]; ok {
		s.Clear()
	}
	if s, ok := m.userDefined[name]; ok {
		s.Clear()
	}
}
