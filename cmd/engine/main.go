package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"telemetry-lab/internal/archive"
	"telemetry-lab/internal/engine"
	"telemetry-lab/internal/idhash"
	"telemetry-lab/internal/ingestion"
	"telemetry-lab/internal/ingestion/wsfeed"
	"telemetry-lab/internal/layout"
	"telemetry-lab/internal/observability"
	"telemetry-lab/internal/storage"
	chstore "telemetry-lab/internal/storage/clickhouse"
	"telemetry-lab/internal/storage/memory"
	"telemetry-lab/internal/storage/migrations"
	pgstore "telemetry-lab/internal/storage/postgres"
	"telemetry-lab/internal/store"
	"telemetry-lab/internal/tracker"
	"telemetry-lab/internal/transform"
)

func main() {
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("FEED_WS_ENDPOINT"), "WebSocket sample feed endpoint (required)")
	topic := flag.String("topic", "telemetry", "Feed topic, part of the session ID")
	bufferSeconds := flag.Float64("buffer-seconds", 300, "Streaming retention horizon in seconds (0 = unbounded)")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string for the series archive")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string for layout storage")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of ClickHouse/PostgreSQL")
	layoutName := flag.String("layout", "", "Layout to load from the layout store at startup")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	logger := log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lshortfile)

	if *wsEndpoint == "" {
		logger.Fatal("missing required flag: -ws-endpoint")
	}

	metrics := observability.NewMetrics("")

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Storage backends.
	var (
		pointStore  storage.SeriesPointStore
		layoutStore storage.LayoutStore
	)
	if *useMemory {
		pointStore = memory.NewSeriesPointStore()
		layoutStore = memory.NewLayoutStore()
		logger.Println("Using in-memory storage")
	} else {
		if *clickhouseDSN == "" || *postgresDSN == "" {
			logger.Fatal("need -clickhouse-dsn and -postgres-dsn, or -use-memory")
		}

		chConn, err := migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("ClickHouse migrations failed: %v", err)
		}
		defer chConn.Close()
		pointStore = chstore.NewSeriesPointStore(chConn)

		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("PostgreSQL connection failed: %v", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			logger.Fatalf("PostgreSQL migrations failed: %v", err)
		}
		layoutStore = pgstore.NewLayoutStore(pool)
	}

	// Core engine.
	eng := engine.New(engine.Options{
		Factory: transform.FactoryOptions{},
		Logger:  logger,
	})
	eng.Controller().AddPublisher(&metricsPublisher{metrics: metrics})

	if *layoutName != "" {
		if err := loadLayout(ctx, eng, layoutStore, *layoutName, logger); err != nil {
			logger.Fatalf("Load layout %q: %v", *layoutName, err)
		}
	}

	// Session identity and archiver.
	startedAt := time.Now()
	sessionID := idhash.ComputeSessionID(*wsEndpoint, *topic, startedAt)
	logger.Printf("Stream session %s", idhash.ShortSessionID(*wsEndpoint, *topic, startedAt))

	archiver, err := archive.New(archive.Options{
		Store:     pointStore,
		SessionID: sessionID,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatalf("Create archiver: %v", err)
	}

	// Streamer and runner.
	feed := wsfeed.New(*wsEndpoint, wsfeed.Options{Logger: logger})

	runner := ingestion.NewRunner(ingestion.RunnerOptions{
		Streamer: feed,
		Store:    eng.Store(),
		Registry: eng.Registry(),
		Logger:   logger,
		OnUpdate: func(result store.MergeResult, report *transform.Report) {
			metrics.MergePasses.Inc()
			metrics.SamplesIngested.Add(float64(result.PointsPushed))
			metrics.SeriesAdded.Add(float64(len(result.AddedSeries)))
			if result.PointsDropped > 0 {
				metrics.MergeErrors.Inc()
			}
			metrics.LastMergeTimestamp.SetToCurrentTime()
			if report != nil {
				metrics.TransformEvaluations.Add(float64(len(report.Evaluated)))
				metrics.TransformSkips.Add(float64(len(report.Skipped)))
				for _, f := range report.Failures {
					metrics.TransformFailures.WithLabelValues(f.Destination).Inc()
				}
				metrics.TransformLatency.Observe(report.Duration.Seconds())
			}
			metrics.SamplesEvicted.Set(float64(eng.Store().EvictedTotal()))

			undoDepth, redoDepth := eng.History().Depth()
			metrics.UndoDepth.Set(float64(undoDepth))
			metrics.RedoDepth.Set(float64(redoDepth))

			n, err := archiver.Flush(ctx, eng.Store())
			if err != nil {
				metrics.ArchiveErrors.Inc()
				logger.Printf("Archive flush: %v", err)
				return
			}
			metrics.PointsArchived.Add(float64(n))
		},
	})
	if *bufferSeconds > 0 {
		runner.SetMaximumRangeX(*bufferSeconds)
	}

	// Shutdown on signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	metrics.StreamConnected.Set(1)
	err = runner.Run(ctx)
	metrics.StreamConnected.Set(0)
	if err != nil {
		logger.Fatalf("Runner failed: %v", err)
	}
	logger.Println("Shutdown complete")
}

// loadLayout fetches a named layout document and applies it to the engine.
func loadLayout(ctx context.Context, eng *engine.Engine, layouts storage.LayoutStore, name string, logger *log.Logger) error {
	rec, err := layouts.Get(ctx, name)
	if err != nil {
		return fmt.Errorf("fetch layout: %w", err)
	}

	var doc layout.Document
	if err := json.Unmarshal(rec.Document, &doc); err != nil {
		return fmt.Errorf("parse layout document: %w", err)
	}

	diag := eng.ApplyLayout(doc)
	if !diag.Empty() {
		logger.Printf("Layout %q applied with diagnostics: cycle=%v failures=%v", name, diag.Cycle, diag.Failures)
	} else {
		logger.Printf("Layout %q applied: %d transforms", name, len(doc.Transforms))
	}
	return nil
}

// metricsPublisher bridges tracker state changes into Prometheus.
type metricsPublisher struct {
	metrics *observability.Metrics
}

func (p *metricsPublisher) UpdateState(_ float64) {
	p.metrics.TrackerUpdates.Inc()
}

func (p *metricsPublisher) Play(enabled bool) {
	if enabled {
		p.metrics.PlaybackRunning.Set(1)
	} else {
		p.metrics.PlaybackRunning.Set(0)
	}
}

// Compile-time interface check.
var _ tracker.Publisher = (*metricsPublisher)(nil)
