package transform

import (
	"math"
	"testing"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/store"
)

func TestScaleOffset(t *testing.T) {
	sm := store.NewSeriesMap()
	seedNumeric(t, sm, "raw", [2]float64{0, 1}, [2]float64{1, 2})

	def := domain.TransformDef{
		Destination:  "scaled",
		LinkedSource: "raw",
		Kind:         domain.TransformScaleOffset,
		Params:       map[string]float64{"scale": 3, "offset": 1},
	}
	fn, err := NewFromDef(def, FactoryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := fn.Calculate(sm); err != nil {
		t.Fatal(err)
	}

	s, _ := sm.Numeric("scaled")
	if s.At(0).Value != 4 || s.At(1).Value != 7 {
		t.Errorf("expected [4 7], got [%g %g]", s.At(0).Value, s.At(1).Value)
	}
}

func TestMovingAverage(t *testing.T) {
	sm := store.NewSeriesMap()
	seedNumeric(t, sm, "raw",
		[2]float64{0, 2}, [2]float64{1, 4}, [2]float64{2, 6}, [2]float64{3, 8})

	fn, err := NewFromDef(domain.TransformDef{
		Destination:  "avg",
		LinkedSource: "raw",
		Kind:         domain.TransformMovingAverage,
		Params:       map[string]float64{"samples": 2},
	}, FactoryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := fn.Calculate(sm); err != nil {
		t.Fatal(err)
	}

	s, _ := sm.Numeric("avg")
	want := []float64{2, 3, 5, 7}
	for i, w := range want {
		if got := s.At(i).Value; got != w {
			t.Errorf("point %d: expected %g, got %g", i, w, got)
		}
	}
}

func TestDerivative(t *testing.T) {
	sm := store.NewSeriesMap()
	seedNumeric(t, sm, "raw",
		[2]float64{0, 0}, [2]float64{1, 2}, [2]float64{1, 2}, [2]float64{3, 6})

	fn, err := NewFromDef(domain.TransformDef{
		Destination:  "d",
		LinkedSource: "raw",
		Kind:         domain.TransformDerivative,
	}, FactoryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := fn.Calculate(sm); err != nil {
		t.Fatal(err)
	}

	s, _ := sm.Numeric("d")
	if s.Len() != 2 {
		t.Fatalf("expected repeated timestamp skipped, got %d points", s.Len())
	}
	if s.At(0).Value != 2 || s.At(1).Value != 2 {
		t.Errorf("expected slope 2, got [%g %g]", s.At(0).Value, s.At(1).Value)
	}
}

func TestIntegral(t *testing.T) {
	sm := store.NewSeriesMap()
	seedNumeric(t, sm, "raw", [2]float64{0, 1}, [2]float64{2, 1}, [2]float64{4, 3})

	fn, err := NewFromDef(domain.TransformDef{
		Destination:  "i",
		LinkedSource: "raw",
		Kind:         domain.TransformIntegral,
	}, FactoryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if err := fn.Calculate(sm); err != nil {
		t.Fatal(err)
	}

	s, _ := sm.Numeric("i")
	if got := s.At(2).Value; math.Abs(got-6) > 1e-9 {
		t.Errorf("expected trapezoid area 6, got %g", got)
	}
}

func TestCustomEquation_AdditionalSources(t *testing.T) {
	sm := store.NewSeriesMap()
	seedNumeric(t, sm, "a", [2]float64{0, 1}, [2]float64{1, 2})
	seedNumeric(t, sm, "b", [2]float64{0, 10}, [2]float64{1, 20})

	fn := NewCustomEquation(domain.TransformDef{
		Destination:       "sum",
		LinkedSource:      "a",
		AdditionalSources: []string{"b"},
		Kind:              domain.TransformCustomEquation,
	}, func(ts, linked float64, additional []float64) (float64, error) {
		return linked + additional[0], nil
	})
	if err := fn.Calculate(sm); err != nil {
		t.Fatal(err)
	}

	s, _ := sm.Numeric("sum")
	if s.At(0).Value != 11 || s.At(1).Value != 22 {
		t.Errorf("expected [11 22], got [%g %g]", s.At(0).Value, s.At(1).Value)
	}
}

func TestCustomEquation_MissingSource(t *testing.T) {
	sm := store.NewSeriesMap()
	fn := NewCustomEquation(domain.TransformDef{
		Destination:  "out",
		LinkedSource: "absent",
	}, func(ts, linked float64, additional []float64) (float64, error) {
		return linked, nil
	})

	if err := fn.Calculate(sm); err == nil {
		t.Fatal("expected missing source error")
	}
}
