package transform

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/store"
)

// Registry holds all transform functions, keyed by destination name, and
// recomputes them in dependency order.
type Registry struct {
	funcs   map[string]Function
	seq     map[string]int // insertion sequence, for original relative order
	nextSeq int

	// lastRevs remembers, per destination, the source revisions at the
	// last successful evaluation. A static transform is skipped when all
	// its sources are unchanged.
	lastRevs map[string]map[string]uint64

	logger *log.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Default()
	}
	return &Registry{
		funcs:    make(map[string]Function),
		seq:      make(map[string]int),
		lastRevs: make(map[string]map[string]uint64),
		logger:   logger,
	}
}

// Define adds a transform. A transform with the same destination name is
// replaced and will be re-evaluated on the next pass.
func (r *Registry) Define(fn Function) {
	dst := fn.Definition().Destination
	if _, exists := r.funcs[dst]; !exists {
		r.seq[dst] = r.nextSeq
		r.nextSeq++
	}
	r.funcs[dst] = fn
	delete(r.lastRevs, dst)
}

// Remove deletes the transform producing dst. Reports whether it existed.
func (r *Registry) Remove(dst string) bool {
	_, ok := r.funcs[dst]
	delete(r.funcs, dst)
	delete(r.seq, dst)
	delete(r.lastRevs, dst)
	return ok
}

// Get returns the transform producing dst.
func (r *Registry) Get(dst string) (Function, bool) {
	fn, ok := r.funcs[dst]
	return fn, ok
}

// Len returns the number of registered transforms.
func (r *Registry) Len() int { return len(r.funcs) }

// Defs returns all definitions in evaluation order (cycle members last).
func (r *Registry) Defs() []domain.TransformDef {
	ordered, _ := r.Ordered()
	defs := make([]domain.TransformDef, 0, len(ordered))
	for _, fn := range ordered {
		defs = append(defs, fn.Definition())
	}
	return defs
}

// Reactive returns the reactive transforms in evaluation order.
func (r *Registry) Reactive() []ReactiveFunction {
	ordered, _ := r.Ordered()
	var out []ReactiveFunction
	for _, fn := range ordered {
		if rf, ok := fn.(ReactiveFunction); ok && fn.Definition().Reactive {
			out = append(out, rf)
		}
	}
	return out
}

// Ordered resolves the evaluation order: an edge runs from each transform
// to its producers, and Kahn's algorithm yields a "produce before consume"
// sequence. Independent transforms are ordered by ascending Order value
// (destination name as final tie-break). Transforms left with nonzero
// in-degree form a cycle: they are appended in their original relative
// order, and their names are returned as the cycle diagnostic.
func (r *Registry) Ordered() (ordered []Function, cycle []string) {
	type node struct {
		fn  Function
		dst string
	}

	nodes := make([]node, 0, len(r.funcs))
	for dst, fn := range r.funcs {
		nodes = append(nodes, node{fn: fn, dst: dst})
	}
	// Deterministic base order: ascending Order, then destination name.
	sort.Slice(nodes, func(i, j int) bool {
		di, dj := nodes[i].fn.Definition(), nodes[j].fn.Definition()
		if di.Order != dj.Order {
			return di.Order < dj.Order
		}
		return nodes[i].dst < nodes[j].dst
	})

	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.dst] = i
	}

	dependents := make([][]int, len(nodes))
	inDegree := make([]int, len(nodes))
	for i, n := range nodes {
		for _, src := range n.fn.Definition().Sources() {
			producer, ok := index[src]
			if !ok || producer == i {
				continue
			}
			dependents[producer] = append(dependents[producer], i)
			inDegree[i]++
		}
	}

	queue := make([]int, 0, len(nodes))
	for i := range nodes {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	ordered = make([]Function, 0, len(nodes))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		ordered = append(ordered, nodes[current].fn)
		for _, dep := range dependents[current] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(ordered) < len(nodes) {
		// Leftovers are exactly the cycle members. Keep their original
		// relative (insertion) order rather than dropping them.
		var leftovers []node
		for i, n := range nodes {
			if inDegree[i] > 0 {
				leftovers = append(leftovers, n)
			}
		}
		sort.Slice(leftovers, func(i, j int) bool {
			return r.seq[leftovers[i].dst] < r.seq[leftovers[j].dst]
		})
		for _, n := range leftovers {
			ordered = append(ordered, n.fn)
			cycle = append(cycle, n.dst)
		}
	}
	return ordered, cycle
}

// EvalFailure is one isolated transform failure.
type EvalFailure struct {
	Destination string
	Err         error
}

// Report summarizes one EvaluateAll pass.
type Report struct {
	Evaluated []string
	Skipped   []string
	Cycle     []string
	Failures  []EvalFailure

	// Duration is the wall time of the whole pass.
	Duration time.Duration
}

// Err aggregates the per-transform failures, or returns nil.
func (rep *Report) Err() error {
	if len(rep.Failures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(rep.Failures))
	for _, f := range rep.Failures {
		errs = append(errs, fmt.Errorf("transform %q: %w", f.Destination, f.Err))
	}
	return errors.Join(errs...)
}

// EvaluateAll recomputes every static transform whose sources changed since
// its last evaluation, in dependency order. Reactive transforms are driven
// by the tracker controller, not by this pass. A failing transform never
// aborts the batch: the failure is captured and its destination keeps the
// last good data.
func (r *Registry) EvaluateAll(sm *store.SeriesMap) *Report {
	started := time.Now()
	ordered, cycle := r.Ordered()
	rep := &Report{Cycle: cycle}
	if len(cycle) > 0 {
		r.logger.Printf("[transform] cyclic dependency among %v; evaluating in original order", cycle)
	}

	for _, fn := range ordered {
		def := fn.Definition()
		if def.Reactive {
			continue
		}
		if !r.dirty(sm, def) {
			rep.Skipped = append(rep.Skipped, def.Destination)
			continue
		}
		if err := r.calculate(fn, sm); err != nil {
			rep.Failures = append(rep.Failures, EvalFailure{Destination: def.Destination, Err: err})
			r.logger.Printf("[transform] %q failed: %v", def.Destination, err)
			continue
		}
		r.rememberRevs(sm, def)
		rep.Evaluated = append(rep.Evaluated, def.Destination)
	}
	rep.Duration = time.Since(started)
	return rep
}

// calculate runs one transform, converting panics from user-authored logic
// into captured errors.
func (r *Registry) calculate(fn Function, sm *store.SeriesMap) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn.Calculate(sm)
}

// dirty reports whether any source changed since the last successful
// evaluation, or the destination does not exist yet.
func (r *Registry) dirty(sm *store.SeriesMap, def domain.TransformDef) bool {
	last, evaluated := r.lastRevs[def.Destination]
	if !evaluated {
		return true
	}
	if !sm.Contains(def.Destination) {
		return true
	}
	for _, src := range def.Sources() {
		rev, ok := sm.RevisionOf(src)
		if !ok {
			return true
		}
		if rev != last[src] {
			return true
		}
	}
	return false
}

func (r *Registry) rememberRevs(sm *store.SeriesMap, def domain.TransformDef) {
	revs := make(map[string]uint64)
	for _, src := range def.Sources() {
		if rev, ok := sm.RevisionOf(src); ok {
			revs[src] = rev
		}
	}
	r.lastRevs[def.Destination] = revs
}

// CascadeDelete removes the given series together with every transform whose
// source set transitively depends on a removed name, plus those transforms'
// destination series. Returns the full sorted set of removed series names.
func (r *Registry) CascadeDelete(sm *store.SeriesMap, names []string) []string {
	doomed := make(map[string]struct{}, len(names))
	for _, n := range names {
		doomed[n] = struct{}{}
	}

	// Fixed-point expansion: keep scanning until no new names are added.
	for {
		before := len(doomed)
		for dst, fn := range r.funcs {
			if _, gone := doomed[dst]; gone {
				continue
			}
			for _, src := range fn.Definition().Sources() {
				if _, gone := doomed[src]; gone {
					doomed[dst] = struct{}{}
					break
				}
			}
		}
		if len(doomed) == before {
			break
		}
	}

	removed := make([]string, 0, len(doomed))
	for name := range doomed {
		sm.Erase(name)
		r.Remove(name)
		removed = append(removed, name)
	}
	sort.Strings(removed)
	return removed
}
