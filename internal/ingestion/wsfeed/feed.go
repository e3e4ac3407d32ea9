// Package wsfeed implements a live sample streamer over a websocket feed.
// Frames are JSON objects `{"series": ..., "time": ..., "value": ...}`;
// values may be numbers or strings.
package wsfeed

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"telemetry-lab/internal/ingestion"
	"telemetry-lab/internal/store"
)

// Config configures websocket behavior.
type Config struct {
	// ReconnectDelay is the initial delay before a reconnect attempt.
	ReconnectDelay time.Duration
	// MaxReconnectDelay caps the exponential backoff between attempts.
	MaxReconnectDelay time.Duration
	// PingInterval is the keepalive ping cadence.
	PingInterval time.Duration
	// ReadTimeout bounds a single message read.
	ReadTimeout time.Duration
	// WriteTimeout bounds control frame writes.
	WriteTimeout time.Duration
}

// DefaultConfig returns the default websocket configuration.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay:    1 * time.Second,
		MaxReconnectDelay: 30 * time.Second,
		PingInterval:      30 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
}

// Options configures a Feed.
type Options struct {
	Config *Config
	Logger *log.Logger
}

// Feed streams samples from a websocket endpoint into a pending buffer.
// It implements ingestion.Streamer.
type Feed struct {
	endpoint string
	config   Config
	buffer   *ingestion.PendingBuffer
	logger   *log.Logger

	conn   *websocket.Conn
	connMu sync.Mutex

	closed atomic.Bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a disconnected feed for the endpoint.
func New(endpoint string, opts Options) *Feed {
	cfg := DefaultConfig()
	if opts.Config != nil {
		cfg = *opts.Config
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Feed{
		endpoint: endpoint,
		config:   cfg,
		buffer:   ingestion.NewPendingBuffer(),
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start connects and begins receiving frames on background goroutines.
func (f *Feed) Start(ctx context.Context) error {
	if f.closed.Load() {
		return fmt.Errorf("feed closed")
	}
	if err := f.connect(ctx); err != nil {
		return err
	}

	f.wg.Add(2)
	go f.readLoop()
	go f.pingLoop()
	return nil
}

func (f *Feed) connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(ctx, f.endpoint, nil)
	if err != nil {
		return fmt.Errorf("websocket dial %s: %w", f.endpoint, err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
	return nil
}

// readLoop receives frames until shutdown, reconnecting with exponential
// backoff on read errors.
func (f *Feed) readLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.done:
			return
		default:
		}

		f.connMu.Lock()
		conn := f.conn
		f.connMu.Unlock()
		if conn == nil {
			if !f.reconnect() {
				return
			}
			continue
		}

		conn.SetReadDeadline(time.Now().Add(f.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if f.closed.Load() {
				return
			}
			f.logger.Printf("[wsfeed] read: %v", err)
			if !f.reconnect() {
				return
			}
			continue
		}

		frame, err := parseFrame(data)
		if err != nil {
			f.logger.Printf("[wsfeed] dropping frame: %v", err)
			continue
		}
		if err := f.push(frame); err != nil {
			f.logger.Printf("[wsfeed] dropping sample for %q: %v", frame.Series, err)
		}
	}
}

func (f *Feed) push(frame sampleFrame) error {
	if frame.stringValue != nil {
		return f.buffer.PushString(frame.Series, frame.Time, *frame.stringValue)
	}
	return f.buffer.PushNumeric(frame.Series, frame.Time, frame.numericValue)
}

// reconnect dials with exponential backoff. It returns false when the feed
// shuts down before a connection is established.
func (f *Feed) reconnect() bool {
	f.closeConn()

	delay := f.config.ReconnectDelay
	for {
		select {
		case <-f.done:
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := f.connect(ctx)
		cancel()
		if err == nil {
			f.logger.Printf("[wsfeed] reconnected to %s", f.endpoint)
			return true
		}
		f.logger.Printf("[wsfeed] reconnect: %v", err)

		delay *= 2
		if delay > f.config.MaxReconnectDelay {
			delay = f.config.MaxReconnectDelay
		}
	}
}

// pingLoop sends keepalive pings until shutdown.
func (f *Feed) pingLoop() {
	defer f.wg.Done()

	ticker := time.NewTicker(f.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-f.done:
			return
		case <-ticker.C:
			f.connMu.Lock()
			conn := f.conn
			f.connMu.Unlock()
			if conn == nil {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(f.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				f.logger.Printf("[wsfeed] ping: %v", err)
			}
		}
	}
}

func (f *Feed) closeConn() {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		f.conn.Close()
		f.conn = nil
	}
}

// Shutdown stops delivery and closes the connection. Idempotent.
func (f *Feed) Shutdown() {
	if !f.closed.CompareAndSwap(false, true) {
		return
	}
	close(f.done)
	f.closeConn()
	f.wg.Wait()
}

// Drain implements ingestion.Streamer.
func (f *Feed) Drain() *store.SeriesMap { return f.buffer.Drain() }

// DataArrived implements ingestion.Streamer.
func (f *Feed) DataArrived() <-chan struct{} { return f.buffer.DataArrived() }

// SetMaximumRangeX implements ingestion.Streamer.
func (f *Feed) SetMaximumRangeX(seconds float64) { f.buffer.SetMaximumRangeX(seconds) }
