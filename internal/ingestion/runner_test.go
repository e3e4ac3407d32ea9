package ingestion

import (
	"context"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/store"
	"telemetry-lab/internal/transform"
)

// stubStreamer feeds a PendingBuffer directly, standing in for a live feed.
type stubStreamer struct {
	*PendingBuffer
	started  atomic.Bool
	shutdown atomic.Bool
}

func newStubStreamer() *stubStreamer {
	return &stubStreamer{PendingBuffer: NewPendingBuffer()}
}

func (s *stubStreamer) Start(ctx context.Context) error {
	s.started.Store(true)
	return nil
}

func (s *stubStreamer) Shutdown() { s.shutdown.Store(true) }

func TestRunner_MergesStreamedSamples(t *testing.T) {
	streamer := newStubStreamer()
	sm := store.NewSeriesMap()

	updates := make(chan store.MergeResult, 16)
	r := NewRunner(RunnerOptions{
		Streamer:          streamer,
		Store:             sm,
		RecomputeInterval: 5 * time.Millisecond,
		OnUpdate: func(res store.MergeResult, _ *transform.Report) {
			updates <- res
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	if err := streamer.PushNumeric("a", 0, 1); err != nil {
		t.Fatal(err)
	}
	if err := streamer.PushNumeric("a", 1, 2); err != nil {
		t.Fatal(err)
	}

	select {
	case res := <-updates:
		if len(res.AddedSeries) != 1 || res.AddedSeries[0] != "a" {
			t.Errorf("expected series a added, got %+v", res)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no update within coalescing deadline")
	}

	s, ok := sm.Numeric("a")
	if !ok || s.Len() != 2 {
		t.Fatalf("expected 2 points merged into main store")
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !streamer.shutdown.Load() {
		t.Error("expected streamer shut down on exit")
	}
}

func TestRunner_CoalescesBursts(t *testing.T) {
	streamer := newStubStreamer()
	sm := store.NewSeriesMap()

	var updates atomic.Int64
	r := NewRunner(RunnerOptions{
		Streamer:          streamer,
		Store:             sm,
		RecomputeInterval: 50 * time.Millisecond,
		OnUpdate: func(store.MergeResult, *transform.Report) {
			updates.Add(1)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// A burst far faster than the recompute interval.
	for i := 0; i < 200; i++ {
		if err := streamer.PushNumeric("burst", float64(i)*0.001, 1); err != nil {
			t.Fatal(err)
		}
	}
	time.Sleep(120 * time.Millisecond)
	cancel()
	<-done

	// 200 pushes over ~one interval must collapse to a handful of passes.
	if n := updates.Load(); n < 1 || n > 5 {
		t.Errorf("expected coalesced recomputes, got %d", n)
	}
	s, _ := sm.Numeric("burst")
	if s.Len() != 200 {
		t.Errorf("expected all 200 samples merged, got %d", s.Len())
	}
}

func TestRunner_EvaluatesTransforms(t *testing.T) {
	streamer := newStubStreamer()
	sm := store.NewSeriesMap()

	reg := transform.NewRegistry(nil)
	fn, err := transform.NewFromDef(domain.TransformDef{
		Destination:  "doubled",
		LinkedSource: "raw",
		Kind:         domain.TransformScaleOffset,
		Params:       map[string]float64{"scale": 2},
	}, transform.FactoryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	reg.Define(fn)

	updates := make(chan struct{}, 16)
	r := NewRunner(RunnerOptions{
		Streamer:          streamer,
		Store:             sm,
		Registry:          reg,
		RecomputeInterval: 5 * time.Millisecond,
		OnUpdate: func(store.MergeResult, *transform.Report) {
			updates <- struct{}{}
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	if err := streamer.PushNumeric("raw", 0, 21); err != nil {
		t.Fatal(err)
	}
	select {
	case <-updates:
	case <-time.After(2 * time.Second):
		t.Fatal("no recompute")
	}
	cancel()
	<-done

	d, ok := sm.Numeric("doubled")
	if !ok || d.Len() != 1 || d.At(0).Value != 42 {
		t.Errorf("expected transform output 42, got %+v", d)
	}
}

func TestRunner_LiftsHorizonOnStop(t *testing.T) {
	streamer := newStubStreamer()
	sm := store.NewSeriesMap()

	r := NewRunner(RunnerOptions{
		Streamer:          streamer,
		Store:             sm,
		RecomputeInterval: 5 * time.Millisecond,
	})
	r.SetMaximumRangeX(10)
	if sm.MaximumRangeX() != 10 {
		t.Fatalf("expected horizon propagated to store")
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()
	<-done

	if !math.IsInf(sm.MaximumRangeX(), 1) {
		t.Errorf("expected horizon lifted to +Inf on stop, got %g", sm.MaximumRangeX())
	}
}
