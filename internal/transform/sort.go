package transform

import (
	"sort"

	"telemetry-lab/internal/domain"
)

// SortDefs orders transform definitions so that every producer precedes its
// consumers, using the same dependency rules as Registry.Ordered. It is used
// when re-creating transforms from a persisted layout, where the Functions
// do not exist yet. Cycle members are appended in their original relative
// order and reported in the cycle diagnostic.
func SortDefs(defs []domain.TransformDef) (sorted []domain.TransformDef, cycle []string) {
	base := make([]domain.TransformDef, len(defs))
	copy(base, defs)
	sort.SliceStable(base, func(i, j int) bool {
		return base[i].Order < base[j].Order
	})

	index := make(map[string]int, len(base))
	for i, d := range base {
		index[d.Destination] = i
	}

	dependents := make([][]int, len(base))
	inDegree := make([]int, len(base))
	for i, d := range base {
		for _, src := range d.Sources() {
			producer, ok := index[src]
			if !ok || producer == i {
				continue
			}
			dependents[producer] = append(dependents[producer], i)
			inDegree[i]++
		}
	}

	queue := make([]int, 0, len(base))
	for i := range base {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	sorted = make([]domain.TransformDef, 0, len(base))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		sorted = append(sorted, base[current])
		for _, dep := range dependents[current] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	for i, d := range base {
		if inDegree[i] > 0 {
			sorted = append(sorted, d)
			cycle = append(cycle, d.Destination)
		}
	}
	return sorted, cycle
}
