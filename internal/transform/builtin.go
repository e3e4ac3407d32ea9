package transform

import (
	"fmt"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/store"
)

// builtin covers the single-input numeric transforms: scale/offset, moving
// average, derivative and integral. The destination is recomputed from
// scratch on every evaluation.
type builtin struct {
	def     domain.TransformDef
	compute func(def domain.TransformDef, src []domain.Point[float64]) []domain.Point[float64]
}

func newBuiltin(def domain.TransformDef) (Function, error) {
	var compute func(domain.TransformDef, []domain.Point[float64]) []domain.Point[float64]
	switch def.Kind {
	case domain.TransformScaleOffset:
		compute = computeScaleOffset
	case domain.TransformMovingAverage:
		compute = computeMovingAverage
	case domain.TransformDerivative:
		compute = computeDerivative
	case domain.TransformIntegral:
		compute = computeIntegral
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, def.Kind)
	}
	return &builtin{def: def, compute: compute}, nil
}

func (b *builtin) Definition() domain.TransformDef { return b.def }

func (b *builtin) Calculate(sm *store.SeriesMap) error {
	src, err := sourceSeries(sm, b.def.LinkedSource)
	if err != nil {
		return err
	}
	dst, err := sm.AddNumeric(b.def.Destination)
	if err != nil {
		return err
	}
	dst.SetMaximumRangeX(src.MaximumRangeX())
	return replaceContents(dst, b.compute(b.def, src.Points()))
}

func computeScaleOffset(def domain.TransformDef, src []domain.Point[float64]) []domain.Point[float64] {
	scale := def.Param("scale", 1)
	offset := def.Param("offset", 0)
	out := make([]domain.Point[float64], len(src))
	for i, p := range src {
		out[i] = domain.Point[float64]{Time: p.Time, Value: p.Value*scale + offset}
	}
	return out
}

func computeMovingAverage(def domain.TransformDef, src []domain.Point[float64]) []domain.Point[float64] {
	samples := int(def.Param("samples", 10))
	if samples < 1 {
		samples = 1
	}
	out := make([]domain.Point[float64], 0, len(src))
	var sum float64
	for i, p := range src {
		sum += p.Value
		if i >= samples {
			sum -= src[i-samples].Value
		}
		n := i + 1
		if n > samples {
			n = samples
		}
		out = append(out, domain.Point[float64]{Time: p.Time, Value: sum / float64(n)})
	}
	return out
}

func computeDerivative(_ domain.TransformDef, src []domain.Point[float64]) []domain.Point[float64] {
	out := make([]domain.Point[float64], 0, len(src))
	for i := 1; i < len(src); i++ {
		dt := src[i].Time - src[i-1].Time
		if dt <= 0 {
			// repeated timestamps carry no slope information
			continue
		}
		out = append(out, domain.Point[float64]{
			Time:  src[i].Time,
			Value: (src[i].Value - src[i-1].Value) / dt,
		})
	}
	return out
}

func computeIntegral(_ domain.TransformDef, src []domain.Point[float64]) []domain.Point[float64] {
	out := make([]domain.Point[float64], 0, len(src))
	var acc float64
	for i, p := range src {
		if i > 0 {
			dt := p.Time - src[i-1].Time
			acc += 0.5 * (p.Value + src[i-1].Value) * dt
		}
		out = append(out, domain.Point[float64]{Time: p.Time, Value: acc})
	}
	return out
}

// CustomEquation is a user-authored transform: one linked source, optional
// additional sources and a compiled formula.
type CustomEquation struct {
	def domain.TransformDef
	fn  EquationFunc
}

// NewCustomEquation wraps a compiled equation function.
func NewCustomEquation(def domain.TransformDef, fn EquationFunc) *CustomEquation {
	return &CustomEquation{def: def, fn: fn}
}

// Definition returns the declared shape.
func (c *CustomEquation) Definition() domain.TransformDef { return c.def }

// Calculate evaluates the formula at every sample of the linked source.
// Additional sources are sampled at-or-before the linked timestamp.
func (c *CustomEquation) Calculate(sm *store.SeriesMap) error {
	src, err := sourceSeries(sm, c.def.LinkedSource)
	if err != nil {
		return err
	}

	additional := make([]*store.Series[float64], 0, len(c.def.AdditionalSources))
	for _, name := range c.def.AdditionalSources {
		s, err := sourceSeries(sm, name)
		if err != nil {
			return err
		}
		additional = append(additional, s)
	}

	values := make([]float64, len(additional))
	out := make([]domain.Point[float64], 0, src.Len())
	for _, p := range src.Points() {
		for i, s := range additional {
			v, ok := valueAt(s, p.Time)
			if !ok {
				return fmt.Errorf("%w: %q has no data at t=%g",
					ErrSourceMissing, s.Name(), p.Time)
			}
			values[i] = v
		}
		v, err := c.fn(p.Time, p.Value, values)
		if err != nil {
			return fmt.Errorf("equation %q at t=%g: %w", c.def.Destination, p.Time, err)
		}
		out = append(out, domain.Point[float64]{Time: p.Time, Value: v})
	}

	dst, err := sm.AddNumeric(c.def.Destination)
	if err != nil {
		return err
	}
	dst.SetMaximumRangeX(src.MaximumRangeX())
	return replaceContents(dst, out)
}
