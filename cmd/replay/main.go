// Command replay loads a recorded data file, applies a layout document and
// drives playback over the data, printing the cursor position as it goes.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"telemetry-lab/internal/engine"
	"telemetry-lab/internal/ingestion"
	"telemetry-lab/internal/layout"
	"telemetry-lab/internal/tracker"
	"telemetry-lab/internal/transform"
)

func main() {
	dataPath := flag.String("data", "", "JSON data file to load (required)")
	layoutPath := flag.String("layout", "", "Layout document file to apply")
	rate := flag.Float64("rate", 1.0, "Playback rate (1.0 = real time)")
	loop := flag.Bool("loop", false, "Loop playback instead of stopping at the end")
	progressEvery := flag.Duration("progress-every", time.Second, "Progress print interval")

	flag.Parse()

	logger := log.New(os.Stdout, "[replay] ", log.LstdFlags)

	if *dataPath == "" {
		logger.Fatal("missing required flag: -data")
	}
	if *loop {
		logger.Println("Looping playback; interrupt to stop")
	}

	eng := engine.New(engine.Options{
		Factory: transform.FactoryOptions{},
		Logger:  logger,
	})

	result, err := eng.LoadFile(ingestion.NewJSONLoader(logger), *dataPath)
	if err != nil {
		logger.Fatalf("Load data: %v", err)
	}
	logger.Printf("Loaded %d series from %s", len(result.AddedSeries), *dataPath)

	if *layoutPath != "" {
		if err := applyLayoutFile(eng, *layoutPath, logger); err != nil {
			logger.Fatalf("Apply layout: %v", err)
		}
	}

	low, high := eng.Controller().VisibleRange()
	logger.Printf("Visible range [%.3f, %.3f], playing at %gx", low, high, *rate)
	eng.Controller().SetTrackerTime(low)

	playback := tracker.NewPlayback(eng.Controller(), tracker.PlaybackOptions{
		Rate:   *rate,
		Loop:   *loop,
		Logger: logger,
	})
	playback.Start()

	ticker := time.NewTicker(*progressEvery)
	defer ticker.Stop()
	for playback.Running() {
		<-ticker.C
		logger.Printf("Tracker at %.3f", eng.Controller().TrackerTime())
	}

	logger.Printf("Playback finished at %.3f", eng.Controller().TrackerTime())
}

// applyLayoutFile reads a layout.Document from disk and applies it.
func applyLayoutFile(eng *engine.Engine, path string, logger *log.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc layout.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	diag := eng.ApplyLayout(doc)
	if !diag.Empty() {
		logger.Printf("Layout applied with diagnostics: cycle=%v failures=%v", diag.Cycle, diag.Failures)
	} else {
		logger.Printf("Layout applied: %d transforms", len(doc.Transforms))
	}
	return nil
}
