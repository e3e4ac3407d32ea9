// Package transform holds the set of named transform functions, resolves
// their evaluation order via dependency analysis and recomputes derived
// series when their sources change.
package transform

import (
	"errors"
	"fmt"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/store"
	"telemetry-lab/internal/windowing"
)

// Errors returned by transform construction and evaluation.
var (
	ErrSourceMissing  = errors.New("transform source series not found")
	ErrUnknownKind    = errors.New("unknown transform kind")
	ErrNoEquationsSet = errors.New("no equation compiler configured")
)

// Function is a named transform: it consumes zero or more source series and
// produces one destination series. Identity is the destination name.
type Function interface {
	// Definition returns the declared shape: destination, sources,
	// parameters, order and the reactive flag.
	Definition() domain.TransformDef

	// Calculate recomputes the destination series from its sources.
	// A failure leaves the destination with its last good data.
	Calculate(sm *store.SeriesMap) error
}

// ReactiveFunction is a Function that depends on the tracker time and is
// recomputed on every cursor move rather than on source-data change.
type ReactiveFunction interface {
	Function
	SetTrackerTime(t float64)
}

// EquationFunc computes one output sample of a custom equation.
// linked is the sample of the primary linked source at time t; additional
// holds the values of the additional sources at (or just before) t.
type EquationFunc func(t, linked float64, additional []float64) (float64, error)

// EquationCompiler turns a user-authored formula into an executable
// EquationFunc. The implementation is an external collaborator.
type EquationCompiler interface {
	Compile(formula string, sources []string) (EquationFunc, error)
}

// FactoryOptions configures NewFromDef.
type FactoryOptions struct {
	// Equations compiles custom-equation formulas. Definitions of kind
	// TransformCustomEquation fail without it.
	Equations EquationCompiler
}

// NewFromDef builds the Function implementing a definition.
func NewFromDef(def domain.TransformDef, opts FactoryOptions) (Function, error) {
	switch def.Kind {
	case domain.TransformTimeWindow:
		return NewTimeWindow(def), nil
	case domain.TransformScaleOffset, domain.TransformMovingAverage,
		domain.TransformDerivative, domain.TransformIntegral:
		return newBuiltin(def)
	case domain.TransformCustomEquation:
		if opts.Equations == nil {
			return nil, fmt.Errorf("%w: transform %q", ErrNoEquationsSet, def.Destination)
		}
		fn, err := opts.Equations.Compile(def.Formula, def.Sources())
		if err != nil {
			return nil, fmt.Errorf("compile equation %q: %w", def.Destination, err)
		}
		return NewCustomEquation(def, fn), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, def.Kind)
	}
}

// sourceSeries fetches a required numeric source.
func sourceSeries(sm *store.SeriesMap, name string) (*store.Series[float64], error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty source name", ErrSourceMissing)
	}
	s, ok := sm.Numeric(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSourceMissing, name)
	}
	return s, nil
}

// valueAt returns the value at or just before time t, falling back to the
// first sample when t precedes the series.
func valueAt(s *store.Series[float64], t float64) (float64, bool) {
	pts := s.Points()
	if len(pts) == 0 {
		return 0, false
	}
	i := windowing.NearestIndex(pts, t)
	if pts[i].Time > t && i > 0 {
		i--
	}
	return pts[i].Value, true
}

// replaceContents swaps freshly computed points into the destination,
// so that a failed computation never clears previous good data.
func replaceContents(dst *store.Series[float64], pts []domain.Point[float64]) error {
	dst.Clear()
	for _, p := range pts {
		if err := dst.Append(p); err != nil {
			return err
		}
	}
	return nil
}
