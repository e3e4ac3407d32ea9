// Package tracker owns the time cursor: clamping it to the visible range,
// recomputing reactive transforms when it moves, and driving playback.
package tracker

import (
	"log"
	"sync"
	"time"

	"telemetry-lab/internal/store"
	"telemetry-lab/internal/transform"
)

// DefaultSettleDelay is how long the tracker must rest before the settle
// callback fires. Expensive consumers (persistence, publishers doing I/O)
// subscribe to settled positions instead of every movement.
const DefaultSettleDelay = 100 * time.Millisecond

// Publisher receives tracker state changes, e.g. a bridge re-publishing the
// cursor position to an external system.
type Publisher interface {
	// UpdateState is called on every accepted tracker move.
	UpdateState(trackerTime float64)
	// Play is called when playback starts or stops.
	Play(enabled bool)
}

// ControllerOptions configures a Controller.
type ControllerOptions struct {
	// OnRedraw is invoked after reactive transforms are recomputed, with
	// the destination series that changed. May be nil.
	OnRedraw func(updated []string)

	// OnSettle is invoked once the tracker has rested for SettleDelay.
	// May be nil.
	OnSettle func(trackerTime float64)

	SettleDelay time.Duration
	Logger      *log.Logger
}

// Controller clamps the tracker time to the visible range and recomputes
// reactive transforms on every move.
type Controller struct {
	store    *store.SeriesMap
	registry *transform.Registry

	mu          sync.Mutex
	trackerTime float64
	settleTimer *time.Timer
	publishers  []Publisher

	onRedraw    func([]string)
	onSettle    func(float64)
	settleDelay time.Duration
	logger      *log.Logger
}

// NewController creates a controller over the given data and transforms.
func NewController(sm *store.SeriesMap, reg *transform.Registry, opts ControllerOptions) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	settle := opts.SettleDelay
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Controller{
		store:       sm,
		registry:    reg,
		onRedraw:    opts.OnRedraw,
		onSettle:    opts.OnSettle,
		settleDelay: settle,
		logger:      logger,
	}
}

// AddPublisher registers a publisher for tracker and playback state.
func (c *Controller) AddPublisher(p Publisher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishers = append(c.publishers, p)
}

// VisibleRange returns the union of the time ranges of all plotted series.
// With no data it falls back to [0, 1] so cursor math stays finite.
func (c *Controller) VisibleRange() (minTime, maxTime float64) {
	minTime, maxTime, ok := c.store.TimeRange()
	if !ok {
		return 0, 1
	}
	return minTime, maxTime
}

// TrackerTime returns the current cursor position.
func (c *Controller) TrackerTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trackerTime
}

// SetTrackerTime moves the cursor, clamped to the visible range, recomputes
// every reactive transform at the new position, and notifies publishers.
// It returns the clamped position.
func (c *Controller) SetTrackerTime(t float64) float64 {
	low, high := c.VisibleRange()
	if t < low {
		t = low
	}
	if t > high {
		t = high
	}

	c.mu.Lock()
	c.trackerTime = t
	publishers := append([]Publisher(nil), c.publishers...)
	c.resetSettleLocked(t)
	c.mu.Unlock()

	var updated []string
	for _, fn := range c.registry.Reactive() {
		fn.SetTrackerTime(t)
		dst := fn.Definition().Destination
		if err := fn.Calculate(c.store); err != nil {
			c.logger.Printf("[tracker] reactive transform %q failed: %v", dst, err)
			continue
		}
		updated = append(updated, dst)
	}

	if c.onRedraw != nil {
		c.onRedraw(updated)
	}
	for _, p := range publishers {
		p.UpdateState(t)
	}
	return t
}

// resetSettleLocked restarts the settle debounce. Called with mu held.
func (c *Controller) resetSettleLocked(t float64) {
	if c.onSettle == nil {
		return
	}
	if c.settleTimer != nil {
		c.settleTimer.Stop()
	}
	c.settleTimer = time.AfterFunc(c.settleDelay, func() {
		c.onSettle(t)
	})
}

// notifyPlay fans a playback state change out to the publishers.
func (c *Controller) notifyPlay(enabled bool) {
	c.mu.Lock()
	publishers := append([]Publisher(nil), c.publishers...)
	c.mu.Unlock()
	for _, p := range publishers {
		p.Play(enabled)
	}
}

// Close stops the pending settle timer, if any.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settleTimer != nil {
		c.settleTimer.Stop()
		c.settleTimer = nil
	}
}
