// Package windowing computes, for a series and a time interval, the
// contiguous index range of points inside that interval. Lookups use a
// binary-search seek over the monotonic time axis followed by a bounded
// linear scan, so recomputes stay cheap for series with many points
// outside the window.
package windowing

import (
	"sort"

	"telemetry-lab/internal/domain"
)

// IndexRange returns the half-open index range [start, end) of points whose
// time falls inside the closed interval [tLow, tHigh].
//
// An empty series, an inverted interval, or a window wholly outside the
// series bounds all yield an empty range; none of them is an error.
func IndexRange[V any](pts []domain.Point[V], tLow, tHigh float64) (start, end int) {
	if len(pts) == 0 || tLow > tHigh {
		return 0, 0
	}

	// Seek the first index at or after tLow, then step back one so an
	// off-by-one in the nearest-match search can never skip a boundary
	// point. The forward scan below restores the exact lower bound.
	start = sort.Search(len(pts), func(i int) bool {
		return pts[i].Time >= tLow
	})
	if start > 0 {
		start--
	}
	for start < len(pts) && pts[start].Time < tLow {
		start++
	}

	end = start
	for end < len(pts) && pts[end].Time <= tHigh {
		end++
	}
	return start, end
}

// NearestIndex returns the index of the first point with time >= t, or the
// last index when t is past the end. Returns -1 for an empty series.
func NearestIndex[V any](pts []domain.Point[V], t float64) int {
	if len(pts) == 0 {
		return -1
	}
	i := sort.Search(len(pts), func(i int) bool {
		return pts[i].Time >= t
	})
	if i == len(pts) {
		return len(pts) - 1
	}
	return i
}
