package engine

import (
	"fmt"
	"strings"

	"github.com/AJeffs1/reactive-notebook/pkg/graph"
	"github.com/AJeffs1/reactive-notebook/pkg/models"
)

// Reactor sequences reactive execution: it computes which cells a run
// touches, executes them in dependency order, propagates failure to
// downstream cells as blocked status, and reports every state transition to
// an optional subscriber.
//
// The Reactor is single-threaded by contract: callers serialize runs and
// cell-list mutations (the HTTP façade does this behind one mutex).
type Reactor struct {
	executor   Executor
	cells      []*models.Cell
	states     map[string]*models.CellState
	subscriber StatusSubscriber
}

// NewReactor creates a reactor driving the given executor.
func NewReactor(executor Executor) *Reactor {
	return &Reactor{
		executor: executor,
		states:   make(map[string]*models.CellState),
	}
}

// Executor exposes the execution backend, used by collaborators that inject
// or clean up environment bindings.
func (r *Reactor) Executor() Executor {
	return r.executor
}

// SetCells installs a new ordered cell list. States are created idle for new
// identifiers and dropped for departed ones; surviving states are untouched.
func (r *Reactor) SetCells(cells []*models.Cell) {
	r.cells = cells

	for _, cell := range cells {
		if _, ok := r.states[cell.ID]; !ok {
			r.states[cell.ID] = models.NewCellState(cell.ID)
		}
	}

	current := make(map[string]struct{}, len(cells))
	for _, cell := range cells {
		current[cell.ID] = struct{}{}
	}
	for id := range r.states {
		if _, ok := current[id]; !ok {
			delete(r.states, id)
		}
	}
}

// ClearState removes the state record of a single cell.
func (r *Reactor) ClearState(cellID string) {
	delete(r.states, cellID)
}

// SetStatusSubscriber installs the single transition subscriber.
func (r *Reactor) SetStatusSubscriber(subscriber StatusSubscriber) {
	r.subscriber = subscriber
}

// GetState returns a snapshot of one cell's state.
func (r *Reactor) GetState(cellID string) (models.CellState, bool) {
	state, ok := r.states[cellID]
	if !ok {
		return models.CellState{}, false
	}
	return state.Snapshot(), true
}

// AllStates returns snapshots of every cell's state keyed by cell id.
func (r *Reactor) AllStates() map[string]models.CellState {
	out := make(map[string]models.CellState, len(r.states))
	for id, state := range r.states {
		out[id] = state.Snapshot()
	}
	return out
}

// Run executes a cell and every transitive consumer of it, in topological
// order. Query cells are dispatched to queryExec; passing nil fails them
// with a missing-connection error. An unknown cell id yields an empty
// result with no state change.
func (r *Reactor) Run(cellID string, queryExec QueryExecutor) []models.CellState {
	g := graph.Build(r.cells)

	if cycle := graph.DetectCycle(g); cycle != nil {
		return r.failCycle(cycle)
	}

	toExecute := graph.Downstream(g, cellID)
	toExecute.Add(cellID)
	order := graph.TopoSort(g, toExecute)

	results := make([]models.CellState, 0, len(order))
	failed := make(map[string]struct{})

	for _, id := range order {
		cell := r.findCell(id)
		if cell == nil {
			continue
		}

		if blocker, ok := firstFailed(g[id].Sorted(), failed); ok {
			r.transition(id, func(s *models.CellState) {
				s.Status = models.StatusBlocked
				s.BlockedBy = &blocker
				msg := "Blocked by failed cell: " + blocker
				s.Error = &msg
			})
			// Blocked propagates: descendants of a blocked cell are
			// blocked too.
			failed[id] = struct{}{}
			results = r.appendState(results, id)
			continue
		}

		r.transition(id, func(s *models.CellState) {
			s.Status = models.StatusRunning
			s.BlockedBy = nil
		})

		var res *ExecutionResult
		if cell.IsQuery() {
			if queryExec != nil {
				res = queryExec(cell)
			} else {
				res = Failure(id, "No database connection configured")
			}
		} else {
			res = r.executor.Execute(cell)
		}

		if res.Success {
			r.transition(id, func(s *models.CellState) {
				s.Status = models.StatusSuccess
				s.Output = res.Rendered
				s.OutputKind = res.OutputKind
				if s.OutputKind == "" {
					s.OutputKind = models.OutputText
				}
				s.Stdout = res.Stdout
				s.Error = nil
				s.Trace = nil
				s.BlockedBy = nil
			})
		} else {
			r.transition(id, func(s *models.CellState) {
				s.Status = models.StatusError
				s.Output = nil
				s.OutputKind = models.OutputError
				s.Stdout = res.Stdout
				s.Error = res.Error
				s.Trace = res.Trace
				s.BlockedBy = nil
			})
			failed[id] = struct{}{}
		}

		results = r.appendState(results, id)
	}

	return results
}

// RunAll executes every cell reachable from the graph's roots. Roots are
// cells with an empty upstream set, taken in list order; when every cell has
// dependencies the first cell seeds the run. Each root not already executed
// is run with Run, so a cell reachable from several roots executes once per
// such root; the result lists each cell once, in first-seen order, with its
// final state.
func (r *Reactor) RunAll(queryExec QueryExecutor) []models.CellState {
	if len(r.cells) == 0 {
		return nil
	}

	g := graph.Build(r.cells)

	var roots []string
	for _, cell := range r.cells {
		if len(g[cell.ID]) == 0 {
			roots = append(roots, cell.ID)
		}
	}
	if len(roots) == 0 {
		roots = []string{r.cells[0].ID}
	}

	var order []string
	executed := make(map[string]struct{})

	for _, root := range roots {
		if _, done := executed[root]; done {
			continue
		}
		for _, state := range r.Run(root, queryExec) {
			if _, done := executed[state.CellID]; done {
				continue
			}
			executed[state.CellID] = struct{}{}
			order = append(order, state.CellID)
		}
	}

	// A cell reachable from several roots may run more than once; report
	// each cell once, with its final state.
	all := make([]models.CellState, 0, len(order))
	for _, id := range order {
		all = r.appendState(all, id)
	}
	return all
}

// Reset reconstructs the executor's environment to its seeded state and
// returns every cell state to idle with optional fields cleared.
func (r *Reactor) Reset() {
	r.executor.Reset()
	for _, state := range r.states {
		state.ResetToIdle()
	}
}

// failCycle marks every member of the witnessing cycle as errored and
// returns their states. Nothing executes.
func (r *Reactor) failCycle(cycle []string) []models.CellState {
	msg := fmt.Sprintf("Circular dependency detected: %s", strings.Join(cycle, " -> "))

	results := make([]models.CellState, 0, len(cycle))
	for _, id := range cycle {
		if _, ok := r.states[id]; !ok {
			continue
		}
		r.transition(id, func(s *models.CellState) {
			s.Status = models.StatusError
			s.Error = &msg
			s.BlockedBy = nil
		})
		results = r.appendState(results, id)
	}
	return results
}

// transition mutates one cell's state and notifies the subscriber.
func (r *Reactor) transition(cellID string, mutate func(*models.CellState)) {
	state, ok := r.states[cellID]
	if !ok {
		return
	}
	mutate(state)
	if r.subscriber != nil {
		r.subscriber(cellID, state.Snapshot())
	}
}

func (r *Reactor) appendState(results []models.CellState, cellID string) []models.CellState {
	if state, ok := r.states[cellID]; ok {
		results = append(results, state.Snapshot())
	}
	return results
}

func (r *Reactor) findCell(cellID string) *models.Cell {
	for _, cell := range r.cells {
		if cell.ID == cellID {
			return cell
		}
	}
	return nil
}

// firstFailed returns the first upstream dependency present in the failed
// set. Dependencies arrive sorted so the chosen blocker is deterministic.
func firstFailed(deps []string, failed map[string]struct{}) (string, bool) {
	for _, dep := range deps {
		if _, ok := failed[dep]; ok {
			return dep, true
		}
	}
	return "", false
}
