// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	SamplesIngested prometheus.Counter
	SamplesEvicted  prometheus.Gauge
	MergePasses     prometheus.Counter
	SeriesAdded     prometheus.Counter
	MergeErrors     prometheus.Counter

	// Transform metrics
	TransformEvaluations prometheus.Counter
	TransformSkips       prometheus.Counter
	TransformFailures    *prometheus.CounterVec
	TransformLatency     prometheus.Histogram

	// Tracker metrics
	TrackerUpdates  prometheus.Counter
	PlaybackRunning prometheus.Gauge

	// History metrics
	UndoDepth prometheus.Gauge
	RedoDepth prometheus.Gauge

	// Archive metrics
	PointsArchived prometheus.Counter
	ArchiveErrors  prometheus.Counter

	// Health metrics
	LastMergeTimestamp prometheus.Gauge
	StreamConnected    prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "telemetry_lab"
	}

	return &Metrics{
		// Ingestion metrics
		SamplesIngested: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "samples_ingested_total",
			Help:      "Total number of samples merged into the main store",
		}),
		SamplesEvicted: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "samples_evicted",
			Help:      "Cumulative number of samples evicted by the retention horizon",
		}),
		MergePasses: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "merge_passes_total",
			Help:      "Total number of coalesced merge-and-recompute passes",
		}),
		SeriesAdded: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "series_added_total",
			Help:      "Total number of series created by merges",
		}),
		MergeErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "merge_errors_total",
			Help:      "Total number of merge passes with dropped samples",
		}),

		// Transform metrics
		TransformEvaluations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transform",
			Name:      "evaluations_total",
			Help:      "Total number of transform evaluations",
		}),
		TransformSkips: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transform",
			Name:      "skips_total",
			Help:      "Total number of transforms skipped as up to date",
		}),
		TransformFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "transform",
			Name:      "failures_total",
			Help:      "Total number of transform failures by destination",
		}, []string{"destination"}),
		TransformLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "transform",
			Name:      "evaluation_latency_seconds",
			Help:      "Full transform evaluation pass latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		// Tracker metrics
		TrackerUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "updates_total",
			Help:      "Total number of tracker position updates",
		}),
		PlaybackRunning: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tracker",
			Name:      "playback_running",
			Help:      "Whether playback is currently running (1 or 0)",
		}),

		// History metrics
		UndoDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "undo_depth",
			Help:      "Current undo stack depth",
		}),
		RedoDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "redo_depth",
			Help:      "Current redo stack depth",
		}),

		// Archive metrics
		PointsArchived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "points_archived_total",
			Help:      "Total number of points written to the series archive",
		}),
		ArchiveErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "errors_total",
			Help:      "Total number of failed archive flushes",
		}),

		// Health metrics
		LastMergeTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_merge_timestamp",
			Help:      "Unix timestamp of the last successful merge pass",
		}),
		StreamConnected: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "stream_connected",
			Help:      "Whether the live stream is connected (1 or 0)",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
