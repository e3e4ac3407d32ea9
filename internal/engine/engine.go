// Package engine wires the data store, transform registry, tracker, layout
// manager and undo history into one facade. Edit operations (transform
// changes, deletions, layout loads) snapshot state into the history; data
// arrival does not.
package engine

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/history"
	"telemetry-lab/internal/ingestion"
	"telemetry-lab/internal/layout"
	"telemetry-lab/internal/store"
	"telemetry-lab/internal/tracker"
	"telemetry-lab/internal/transform"
)

// Options configures an Engine.
type Options struct {
	// Factory configures transform creation (equation compiler etc.).
	Factory transform.FactoryOptions

	// OnRedraw is forwarded to the tracker controller and also invoked
	// after data merges and layout changes. May be nil.
	OnRedraw func(updated []string)

	History history.Options
	Logger  *log.Logger
}

// Engine is the orchestrating facade over the dataflow core.
type Engine struct {
	mu sync.Mutex

	store      *store.SeriesMap
	registry   *transform.Registry
	controller *tracker.Controller
	layouts    *layout.Manager
	history    *history.Manager
	factory    transform.FactoryOptions

	onRedraw func([]string)
	logger   *log.Logger
}

// New creates an engine with an empty store and transform set.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	sm := store.NewSeriesMap()
	reg := transform.NewRegistry(logger)

	e := &Engine{
		store:    sm,
		registry: reg,
		layouts:  layout.NewManager(sm, reg, layout.Options{Factory: opts.Factory, Logger: logger}),
		history:  history.NewManager(opts.History),
		factory:  opts.Factory,
		onRedraw: opts.OnRedraw,
		logger:   logger,
	}
	e.controller = tracker.NewController(sm, reg, tracker.ControllerOptions{
		OnRedraw: opts.OnRedraw,
		Logger:   logger,
	})

	// The initial state is the undo floor.
	e.recordSnapshot()
	return e
}

// Store exposes the series map, e.g. for an ingestion runner.
func (e *Engine) Store() *store.SeriesMap { return e.store }

// Registry exposes the transform registry.
func (e *Engine) Registry() *transform.Registry { return e.registry }

// Controller exposes the tracker controller.
func (e *Engine) Controller() *tracker.Controller { return e.controller }

// History exposes the undo/redo manager, e.g. for modal suppression.
func (e *Engine) History() *history.Manager { return e.history }

// LoadFile loads a data file and merges it with the Replace policy, so
// reloading a file supersedes its earlier contents.
func (e *Engine) LoadFile(loader ingestion.Loader, path string) (store.MergeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	loaded, err := loader.Load(path)
	if err != nil {
		return store.MergeResult{}, err
	}
	result, err := e.store.Merge(loaded, store.MergeReplace)
	if err != nil {
		return result, fmt.Errorf("merge %s: %w", path, err)
	}
	e.recompute()
	return result, nil
}

// MergeBatch merges an externally built batch into the store.
func (e *Engine) MergeBatch(incoming *store.SeriesMap, policy store.MergePolicy) (store.MergeResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.store.Merge(incoming, policy)
	if err != nil {
		return result, err
	}
	e.recompute()
	return result, nil
}

// AddTransform creates a transform from its definition, registers it and
// evaluates it. The edit is recorded for undo.
func (e *Engine) AddTransform(def domain.TransformDef) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	fn, err := transform.NewFromDef(def, e.factory)
	if err != nil {
		return err
	}
	e.registry.Define(fn)
	e.recompute()
	e.recordSnapshot()
	return nil
}

// RemoveTransform deletes a transform together with its destination series
// and everything derived from it. The edit is recorded for undo.
func (e *Engine) RemoveTransform(destination string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := e.registry.CascadeDelete(e.store, []string{destination})
	if len(removed) > 0 {
		e.notifyRedraw(removed)
		e.recordSnapshot()
	}
	return removed
}

// DeleteSeries removes the named series and cascades the deletion through
// every transform consuming them. The edit is recorded for undo.
func (e *Engine) DeleteSeries(names []string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := e.registry.CascadeDelete(e.store, names)
	if len(removed) > 0 {
		e.notifyRedraw(removed)
		e.recordSnapshot()
	}
	return removed
}

// ApplyLayout replaces the current layout with the document's. The edit is
// recorded for undo.
func (e *Engine) ApplyLayout(doc layout.Document) layout.Diagnostics {
	e.mu.Lock()
	defer e.mu.Unlock()

	diag := e.layouts.Apply(doc)
	e.recompute()
	e.recordSnapshot()
	return diag
}

// CaptureLayout snapshots the current layout.
func (e *Engine) CaptureLayout() layout.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.layouts.Capture()
}

// Undo restores the previous recorded state.
func (e *Engine) Undo() bool {
	snap, ok := e.history.Undo()
	if !ok {
		return false
	}
	e.applySnapshot(snap)
	return true
}

// Redo restores the next recorded state.
func (e *Engine) Redo() bool {
	snap, ok := e.history.Redo()
	if !ok {
		return false
	}
	e.applySnapshot(snap)
	return true
}

func (e *Engine) applySnapshot(snap history.Snapshot) {
	var doc layout.Document
	if err := json.Unmarshal(snap, &doc); err != nil {
		e.logger.Printf("[engine] corrupt history snapshot: %v", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.history.Applying(func() {
		if diag := e.layouts.Apply(doc); !diag.Empty() {
			e.logger.Printf("[engine] snapshot apply diagnostics: %+v", diag)
		}
		e.recompute()
	})
}

// recompute re-evaluates static transforms and triggers a redraw. Called
// with mu held.
func (e *Engine) recompute() {
	report := e.registry.EvaluateAll(e.store)
	if err := report.Err(); err != nil {
		e.logger.Printf("[engine] transform evaluation: %v", err)
	}
	e.notifyRedraw(report.Evaluated)
}

func (e *Engine) notifyRedraw(updated []string) {
	if e.onRedraw != nil {
		e.onRedraw(updated)
	}
}

// recordSnapshot serializes the layout into the undo history. Called with
// mu held (or during construction).
func (e *Engine) recordSnapshot() {
	doc := e.layouts.Capture()
	data, err := json.Marshal(doc)
	if err != nil {
		e.logger.Printf("[engine] snapshot layout: %v", err)
		return
	}
	e.history.Record(data)
}
