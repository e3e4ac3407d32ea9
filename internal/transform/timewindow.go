package transform

import (
	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/store"
	"telemetry-lab/internal/windowing"
)

// Parameter names understood by the time-window transform.
const (
	ParamPrevSeconds = "prev_seconds"
	ParamNextSeconds = "next_seconds"

	defaultWindowSeconds = 5.0
)

// TimeWindow keeps only the portion of the source series inside
// [tracker - prev_seconds, tracker + next_seconds]. The destination is
// fully cleared and rebuilt on every evaluation, because the window bounds
// can move in either direction between tracker updates.
type TimeWindow struct {
	def         domain.TransformDef
	trackerTime float64
}

// NewTimeWindow builds the reactive window transform for a definition.
func NewTimeWindow(def domain.TransformDef) *TimeWindow {
	def.Reactive = true
	return &TimeWindow{def: def}
}

// Definition returns the declared shape.
func (w *TimeWindow) Definition() domain.TransformDef { return w.def }

// SetTrackerTime moves the window center. Called by the tracker controller
// on every cursor move before Calculate.
func (w *TimeWindow) SetTrackerTime(t float64) { w.trackerTime = t }

// Window returns the configured bounds.
func (w *TimeWindow) Window() domain.Window {
	return domain.Window{
		PrevSeconds: w.def.Param(ParamPrevSeconds, defaultWindowSeconds),
		NextSeconds: w.def.Param(ParamNextSeconds, defaultWindowSeconds),
	}
}

// Calculate rebuilds the destination from the in-window source points.
func (w *TimeWindow) Calculate(sm *store.SeriesMap) error {
	src, err := sourceSeries(sm, w.def.LinkedSource)
	if err != nil {
		return err
	}
	dst, err := sm.AddNumeric(w.def.Destination)
	if err != nil {
		return err
	}
	dst.SetMaximumRangeX(src.MaximumRangeX())

	dst.Clear()
	if src.Len() == 0 {
		return nil
	}

	low, high := w.Window().Interval(w.trackerTime)
	pts := src.Points()
	start, end := windowing.IndexRange(pts, low, high)
	for _, p := range pts[start:end] {
		if err := dst.Append(p); err != nil {
			return err
		}
	}
	return nil
}

var _ ReactiveFunction = (*TimeWindow)(nil)
