package ingestion

import (
	"context"
	"log"
	"math"
	"time"

	"telemetry-lab/internal/store"
	"telemetry-lab/internal/transform"
)

// DefaultRecomputeInterval is the coalescing window for stream-driven
// recomputation: however fast samples arrive, the main store is updated and
// transforms re-evaluated at most once per interval.
const DefaultRecomputeInterval = 40 * time.Millisecond

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Streamer Streamer
	Store    *store.SeriesMap
	Registry *transform.Registry

	// OnUpdate is invoked after each merge-and-recompute pass, e.g. to
	// trigger a redraw. May be nil.
	OnUpdate func(store.MergeResult, *transform.Report)

	RecomputeInterval time.Duration
	Logger            *log.Logger
}

// Runner moves samples from a streamer's pending buffer into the main store
// on a coalesced schedule and re-evaluates transforms after each merge.
type Runner struct {
	streamer Streamer
	store    *store.SeriesMap
	registry *transform.Registry
	onUpdate func(store.MergeResult, *transform.Report)
	interval time.Duration
	logger   *log.Logger
}

// NewRunner creates a runner over the given streamer and store.
func NewRunner(opts RunnerOptions) *Runner {
	interval := opts.RecomputeInterval
	if interval <= 0 {
		interval = DefaultRecomputeInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		streamer: opts.Streamer,
		store:    opts.Store,
		registry: opts.Registry,
		onUpdate: opts.OnUpdate,
		interval: interval,
		logger:   logger,
	}
}

// SetMaximumRangeX propagates the retention horizon to the main store and
// the streamer's pending buffer.
func (r *Runner) SetMaximumRangeX(seconds float64) {
	r.store.SetMaximumRangeX(seconds)
	r.streamer.SetMaximumRangeX(seconds)
}

// Run starts the streamer and processes its data until the context is
// cancelled. On exit the streamer is shut down, one final drain is applied,
// and the retention horizon is lifted so historical data stops evicting.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.streamer.Start(ctx); err != nil {
		return err
	}
	defer func() {
		r.streamer.Shutdown()
		r.drainAndRecompute()
		r.store.SetMaximumRangeX(math.Inf(1))
		r.logger.Println("[ingestion] stream stopped, retention horizon lifted")
	}()

	timer := time.NewTimer(r.interval)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.streamer.DataArrived():
			if !pending {
				timer.Reset(r.interval)
				pending = true
			}
		case <-timer.C:
			pending = false
			r.drainAndRecompute()
		}
	}
}

func (r *Runner) drainAndRecompute() {
	incoming := r.streamer.Drain()
	if incoming.Len() == 0 {
		return
	}

	result, err := r.store.Merge(incoming, store.MergeAppend)
	if err != nil {
		// Out-of-order samples are dropped per series; the rest of the
		// batch has already been applied.
		r.logger.Printf("[ingestion] merge: %v", err)
	}

	var report *transform.Report
	if r.registry != nil {
		report = r.registry.EvaluateAll(r.store)
		if err := report.Err(); err != nil {
			r.logger.Printf("[ingestion] transform evaluation: %v", err)
		}
	}

	if r.onUpdate != nil {
		r.onUpdate(result, report)
	}
}
