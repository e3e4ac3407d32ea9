// Package layout captures and restores the user-visible configuration of an
// engine: transform definitions, retention horizon, per-view time windows.
// Serialization is the caller's concern; the document carries JSON tags.
package layout

import (
	"fmt"
	"log"
	"math"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/store"
	"telemetry-lab/internal/transform"
)

// Document is a complete layout snapshot.
type Document struct {
	Transforms []domain.TransformDef    `json:"transforms,omitempty"`
	MaxRangeX  float64                  `json:"max_range_x,omitempty"`
	Windows    map[string]domain.Window `json:"windows,omitempty"`
	// RelativeTime shifts displayed timestamps so the data starts at zero.
	RelativeTime bool `json:"relative_time,omitempty"`
}

// Diagnostics reports what went wrong while applying a document. A layout
// with broken transforms still applies everything else.
type Diagnostics struct {
	// Cycle lists transform destinations in a dependency cycle; they are
	// still created, in their original relative order.
	Cycle []string
	// Failures maps transform destinations to their creation errors.
	Failures map[string]error
}

// Empty reports whether the apply was clean.
func (d Diagnostics) Empty() bool {
	return len(d.Cycle) == 0 && len(d.Failures) == 0
}

// Options configures a Manager.
type Options struct {
	// Factory configures transform creation (equation compiler etc.).
	Factory transform.FactoryOptions
	Logger  *log.Logger
}

// Manager applies layout documents to a store and registry and captures the
// live state back into a document.
type Manager struct {
	store    *store.SeriesMap
	registry *transform.Registry
	factory  transform.FactoryOptions
	logger   *log.Logger

	windows      map[string]domain.Window
	relativeTime bool
}

// NewManager creates a layout manager over the given state.
func NewManager(sm *store.SeriesMap, reg *transform.Registry, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		store:    sm,
		registry: reg,
		factory:  opts.Factory,
		logger:   logger,
		windows:  make(map[string]domain.Window),
	}
}

// Apply replaces the current transform set and view configuration with the
// document's. Transforms are created in dependency order so each one finds
// its upstream definitions already registered; a transform that fails to
// build is reported and skipped without aborting the rest.
func (m *Manager) Apply(doc Document) Diagnostics {
	diag := Diagnostics{Failures: make(map[string]error)}

	for _, def := range m.registry.Defs() {
		m.registry.Remove(def.Destination)
	}

	sorted, cycle := transform.SortDefs(doc.Transforms)
	diag.Cycle = cycle
	if len(cycle) > 0 {
		m.logger.Printf("[layout] transform cycle in document: %v", cycle)
	}

	for _, def := range sorted {
		fn, err := transform.NewFromDef(def, m.factory)
		if err != nil {
			m.logger.Printf("[layout] transform %q skipped: %v", def.Destination, err)
			diag.Failures[def.Destination] = fmt.Errorf("create transform %q: %w", def.Destination, err)
			continue
		}
		m.registry.Define(fn)
	}

	if doc.MaxRangeX > 0 {
		m.store.SetMaximumRangeX(doc.MaxRangeX)
	} else {
		m.store.SetMaximumRangeX(math.Inf(1))
	}

	m.windows = make(map[string]domain.Window, len(doc.Windows))
	for name, w := range doc.Windows {
		m.windows[name] = w
	}
	m.relativeTime = doc.RelativeTime

	return diag
}

// Capture produces a document describing the live state.
func (m *Manager) Capture() Document {
	doc := Document{
		Transforms:   m.registry.Defs(),
		RelativeTime: m.relativeTime,
	}
	if x := m.store.MaximumRangeX(); !math.IsInf(x, 1) {
		doc.MaxRangeX = x
	}
	if len(m.windows) > 0 {
		doc.Windows = make(map[string]domain.Window, len(m.windows))
		for name, w := range m.windows {
			doc.Windows[name] = w
		}
	}
	return doc
}

// Window returns the configured time window for a view, if any.
func (m *Manager) Window(name string) (domain.Window, bool) {
	w, ok := m.windows[name]
	return w, ok
}

// SetWindow records a per-view time window.
func (m *Manager) SetWindow(name string, w domain.Window) {
	m.windows[name] = w
}

// RelativeTime reports whether displayed timestamps are start-relative.
func (m *Manager) RelativeTime() bool { return m.relativeTime }

// SetRelativeTime toggles start-relative timestamp display.
func (m *Manager) SetRelativeTime(v bool) { m.relativeTime = v }
