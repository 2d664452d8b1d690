// Package graph builds and queries the cell dependency graph. An edge u → v
// means v reads a name last written by u; consumers of a name written by
// several cells resolve to the last writer in list order. A cell that both
// reads and writes a name resolves that read to the last writer before it.
package graph

import (
	"sort"

	"github.com/AJeffs1/reactive-notebook/pkg/analyzer"
	"github.com/AJeffs1/reactive-notebook/pkg/models"
)

// Graph maps a cell identifier to the set of cell identifiers it depends on
// (its upstream set). Rebuilt from the ordered cell list on every run.
type Graph map[string]analyzer.StringSet

// Build analyzes every cell and derives the upstream-edge map.
func Build(cells []*models.Cell) Graph {
	analyses := make(map[string]*analyzer.CellAnalysis, len(cells))
	for _, cell := range cells {
		analyses[cell.ID] = analyzer.Analyze(cell)
	}

	// Later writers overwrite earlier ones: last-writer-wins.
	writerOf := make(map[string]string)
	for _, cell := range cells {
		for name := range analyses[cell.ID].Writes {
			writerOf[name] = cell.ID
		}
	}

	g := make(Graph, len(cells))
	for i, cell := range cells {
		deps := analyzer.NewStringSet()
		for _, name := range analyses[cell.ID].Reads.Sorted() {
			writer, ok := writerOf[name]
			if analyses[cell.ID].Writes.Has(name) {
				// A cell that rebinds a name it also reads (augmented
				// assignment) takes the prior value from the last writer
				// before it in list order.
				writer, ok = "", false
				for j := i - 1; j >= 0; j-- {
					if analyses[cells[j].ID].Writes.Has(name) {
						writer, ok = cells[j].ID, true
						break
					}
				}
			}
			if ok && writer != cell.ID {
				deps.Add(writer)
			}
		}
		g[cell.ID] = deps
	}
	return g
}

// Downstream returns the transitive consumers of a cell, excluding the cell
// itself.
func Downstream(g Graph, cellID string) analyzer.StringSet {
	forward := invert(g)

	result := analyzer.NewStringSet()
	queue := forward[cellID].Sorted()
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if result.Has(current) {
			continue
		}
		result.Add(current)
		queue = append(queue, forward[current].Sorted()...)
	}
	return result
}

// invert flips the upstream map into a producer → consumers map.
func invert(g Graph) map[string]analyzer.StringSet {
	forward := make(map[string]analyzer.StringSet, len(g))
	for id := range g {
		forward[id] = analyzer.NewStringSet()
	}
	for id, deps := range g {
		for dep := range deps {
			if _, ok := forward[dep]; ok {
				forward[dep].Add(id)
			}
		}
	}
	return forward
}

// TopoSort orders a subset of cells so dependencies come first, considering
// only edges between subset members. A node already on the recursion stack
// is skipped rather than reported: sorting stays usable on graphs that still
// contain cycles, and cycle detection is the caller's separate concern.
func TopoSort(g Graph, subset analyzer.StringSet) []string {
	sub := make(Graph, len(subset))
	for id := range subset {
		deps := analyzer.NewStringSet()
		for dep := range g[id] {
			if subset.Has(dep) {
				deps.Add(dep)
			}
		}
		sub[id] = deps
	}

	result := make([]string, 0, len(subset))
	visited := analyzer.NewStringSet()
	onStack := analyzer.NewStringSet()

	var visit func(id string)
	visit = func(id string) {
		if onStack.Has(id) || visited.Has(id) {
			return
		}
		onStack.Add(id)
		for _, dep := range sub[id].Sorted() {
			visit(dep)
		}
		delete(onStack, id)
		visited.Add(id)
		result = append(result, id)
	}

	for _, id := range subset.Sorted() {
		visit(id)
	}
	return result
}

// DetectCycle finds one witnessing cycle using a three-color depth-first
// search. It returns the cycle's cell identifiers in traversal order, or nil
// when the graph is acyclic.
func DetectCycle(g Graph) []string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(g))
	parent := make(map[string]string, len(g))

	var dfs func(id string) []string
	dfs = func(id string) []string {
		color[id] = gray

		for _, neighbor := range g[id].Sorted() {
			if _, known := color[neighbor]; !known {
				continue
			}

			switch color[neighbor] {
			case gray:
				// Back-edge: rebuild the cycle from parent pointers.
				cycle := []string{neighbor, id}
				current := id
				for parent[current] != "" && parent[current] != neighbor {
					current = parent[current]
					cycle = append(cycle, current)
				}
				return cycle
			case white:
				parent[neighbor] = id
				if cycle := dfs(neighbor); cycle != nil {
					return cycle
				}
			}
		}

		color[id] = black
		return nil
	}

	ids := make([]string, 0, len(g))
	for id := range g {
		ids = append(ids, id)
		color[id] = white
	}
	sort.Strings(ids)

	for _, id := range ids {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// ExecutionOrder computes the ordered set of cells to run after changedID
// changes: the cell itself plus its downstream closure, topologically
// sorted. When the graph contains a cycle the order is empty and the cycle
// is returned instead.
func ExecutionOrder(cells []*models.Cell, changedID string) (order []string, cycle []string) {
	g := Build(cells)

	if cycle := DetectCycle(g); cycle != nil {
		return nil, cycle
	}

	toExecute := Downstream(g, changedID)
	toExecute.Add(changedID)

	return TopoSort(g, toExecute), nil
}
