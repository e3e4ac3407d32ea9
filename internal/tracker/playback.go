package tracker

import (
	"log"
	"sync"
	"time"
)

// DefaultTickInterval is the playback cursor advance cadence.
const DefaultTickInterval = 20 * time.Millisecond

// PlaybackOptions configures a Playback.
type PlaybackOptions struct {
	// Rate scales wall-clock time into data time. 1.0 is real time.
	Rate float64

	// Loop wraps the cursor to the start of the visible range instead of
	// stopping at the end.
	Loop bool

	TickInterval time.Duration
	Logger       *log.Logger
}

// Playback advances the tracker along the visible range in wall-clock time.
type Playback struct {
	controller *Controller

	rate     float64
	loop     bool
	interval time.Duration
	logger   *log.Logger

	mu      sync.Mutex
	cancel  chan struct{}
	done    chan struct{}
	running bool
}

// NewPlayback creates a stopped playback over the controller.
func NewPlayback(c *Controller, opts PlaybackOptions) *Playback {
	rate := opts.Rate
	if rate <= 0 {
		rate = 1
	}
	interval := opts.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Playback{
		controller: c,
		rate:       rate,
		loop:       opts.Loop,
		interval:   interval,
		logger:     logger,
	}
}

// Running reports whether the playback loop is active.
func (p *Playback) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start begins advancing the tracker from its current position. Starting an
// already running playback is a no-op.
func (p *Playback) Start() {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	p.running = true
	p.cancel = make(chan struct{})
	p.done = make(chan struct{})
	cancel, done := p.cancel, p.done
	p.mu.Unlock()

	p.controller.notifyPlay(true)
	go p.loopUntil(cancel, done)
}

// Stop halts the playback loop and waits for it to exit.
func (p *Playback) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.cancel)
	done := p.done
	p.mu.Unlock()

	<-done
	p.controller.notifyPlay(false)
}

func (p *Playback) loopUntil(cancel <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-cancel:
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last).Seconds()
			last = now
			if finished := p.step(elapsed); finished {
				// Mark stopped without waiting on our own exit.
				p.mu.Lock()
				p.running = false
				p.mu.Unlock()
				p.controller.notifyPlay(false)
				return
			}
		}
	}
}

// step advances the cursor by elapsed wall-clock seconds scaled by the rate.
// It reports true when the cursor reached the end of a non-looping range.
func (p *Playback) step(elapsed float64) (finished bool) {
	low, high := p.controller.VisibleRange()
	next := p.controller.TrackerTime() + elapsed*p.rate
	if next >= high {
		if p.loop {
			p.controller.SetTrackerTime(low)
			return false
		}
		p.controller.SetTrackerTime(high)
		return true
	}
	p.controller.SetTrackerTime(next)
	return false
}
