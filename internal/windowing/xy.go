package windowing

import (
	"errors"
	"fmt"
	"math"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/store"
)

// ErrAxisMisaligned is returned when the X and Y series of an XY pairing do
// not share the same time value at an index. The cache rebuild for that
// pair is aborted; other series are unaffected.
var ErrAxisMisaligned = errors.New("x and y series do not share the same time axis")

// XYPoint is one cached (x value, y value) pair of an XY scatter series.
type XYPoint struct {
	X float64
	Y float64
}

// XYSeries pairs two numeric series that share a time axis and caches the
// (x, y) value pairs, optionally restricted to a time window around the
// tracker time.
type XYSeries struct {
	x *store.Series[float64]
	y *store.Series[float64]

	cached []XYPoint
	// cacheStart is the series index of cached[0], for time lookups into
	// the window-restricted cache.
	cacheStart int

	windowed    bool
	window      domain.Window
	trackerTime float64
	haveTracker bool
}

// NewXYSeries creates the pairing and builds the initial cache.
func NewXYSeries(x, y *store.Series[float64]) (*XYSeries, error) {
	if x == nil || y == nil {
		return nil, errors.New("xy series requires both axes")
	}
	s := &XYSeries{x: x, y: y}
	if err := s.UpdateCache(); err != nil {
		return nil, err
	}
	return s, nil
}

// SetTimeWindow enables windowing with the given bounds.
func (s *XYSeries) SetTimeWindow(w domain.Window) {
	s.windowed = true
	s.window = w
}

// ClearTimeWindow disables windowing; the cache covers the whole series.
func (s *XYSeries) ClearTimeWindow() {
	s.windowed = false
}

// IsWindowed reports whether a time window is active.
func (s *XYSeries) IsWindowed() bool { return s.windowed }

// SetTrackerTime sets the window reference time. Callers re-invoke
// UpdateCache afterwards; the tracker controller does this on every move.
func (s *XYSeries) SetTrackerTime(t float64) {
	s.trackerTime = t
	s.haveTracker = true
}

// Len returns the number of cached pairs.
func (s *XYSeries) Len() int { return len(s.cached) }

// Points returns the cached pairs. Callers must not mutate the slice.
func (s *XYSeries) Points() []XYPoint { return s.cached }

// referenceTime is the window center: the tracker time once established,
// otherwise the midpoint of the X series' own span (interactive preview).
func (s *XYSeries) referenceTime() float64 {
	if s.haveTracker {
		return s.trackerTime
	}
	first, last, ok := s.x.TimeRange()
	if !ok {
		return 0
	}
	return (first + last) / 2
}

// UpdateCache clears and rebuilds the cached curve. The two axes must share
// the same time value at every compared index, within machine epsilon; a
// mismatch aborts the rebuild with ErrAxisMisaligned and leaves the cache
// empty.
func (s *XYSeries) UpdateCache() error {
	s.cached = s.cached[:0]
	s.cacheStart = 0

	size := s.x.Len()
	if s.y.Len() < size {
		size = s.y.Len()
	}
	if size == 0 {
		return nil
	}

	tLow := math.Inf(-1)
	tHigh := math.Inf(1)
	if s.windowed {
		tLow, tHigh = s.window.Interval(s.referenceTime())
	}

	xs := s.x.Points()[:size]
	ys := s.y.Points()[:size]
	start, _ := IndexRange(xs, tLow, tHigh)
	if start > 0 {
		// Step back so the alignment check still covers the boundary
		// point just before the window.
		start--
	}

	eps := math.Nextafter(1, 2) - 1 // machine epsilon

	for i := start; i < size; i++ {
		if math.Abs(xs[i].Time-ys[i].Time) > eps {
			s.cached = s.cached[:0]
			return fmt.Errorf("%w: index %d, x=%g y=%g",
				ErrAxisMisaligned, i, xs[i].Time, ys[i].Time)
		}
		t := xs[i].Time
		if t > tHigh {
			break
		}
		if t < tLow {
			continue
		}
		if len(s.cached) == 0 {
			s.cacheStart = i
		}
		s.cached = append(s.cached, XYPoint{X: xs[i].Value, Y: ys[i].Value})
	}
	return nil
}

// SampleAtTime returns the cached pair nearest to time t, if any. With a
// window active the lookup is restricted to the cached range, clamping to
// its edges.
func (s *XYSeries) SampleAtTime(t float64) (XYPoint, bool) {
	if len(s.cached) == 0 {
		return XYPoint{}, false
	}
	i := NearestIndex(s.x.Points(), t) - s.cacheStart
	if i < 0 {
		i = 0
	}
	if i >= len(s.cached) {
		i = len(s.cached) - 1
	}
	return s.cached[i], true
}
