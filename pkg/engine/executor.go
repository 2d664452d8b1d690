// Package engine contains the reactive runner and the contract it drives
// cell execution through. The Reactor decides what runs and in which order;
// an Executor owns the shared environment and evaluates code cells against
// it; a QueryExecutor runs data-query cells and injects their results.
package engine

import (
	"github.com/AJeffs1/reactive-notebook/pkg/models"
)

// ExecutionResult is the outcome of executing one cell.
type ExecutionResult struct {
	CellID     string            `json:"cell_id"`
	Success    bool              `json:"success"`
	Stdout     string            `json:"stdout"`
	Rendered   *string           `json:"result,omitempty"`
	OutputKind models.OutputKind `json:"result_type,omitempty"`
	Error      *string           `json:"error,omitempty"`
	Trace      *string           `json:"error_traceback,omitempty"`
}

// Failure builds a failed result with the given message.
func Failure(cellID, message string) *ExecutionResult {
	return &ExecutionResult{
		CellID:     cellID,
		Success:    false,
		OutputKind: models.OutputError,
		Error:      &message,
	}
}

// Executor is the code-execution backend. It maintains the single shared
// binding environment for the notebook's lifetime; no cell executes
// concurrently with another against it.
//
// Execute never reports user-code failure through a Go error: failures
// materialize in the result so the Reactor can turn them into state.
type Executor interface {
	// Execute evaluates a code cell's source against the environment.
	Execute(cell *models.Cell) *ExecutionResult

	// Get reads a binding from the environment.
	Get(name string) (any, bool)

	// Set writes a binding into the environment.
	Set(name string, v any)

	// Inject writes a binding produced outside user code, such as a query
	// result. Identical to Set mechanically, distinct in intent.
	Inject(name string, v any)

	// Delete removes a binding, used by the delete-cell cleanup path.
	Delete(name string)

	// Snapshot returns a copy of the user-visible bindings.
	Snapshot() map[string]any

	// Reset reconstructs the environment to its seeded state.
	Reset()
}

// QueryExecutor runs a data-query cell. Implementations own their connection
// state and must inject the result under the cell's output binding before
// returning success.
type QueryExecutor func(cell *models.Cell) *ExecutionResult

// StatusSubscriber observes cell state transitions. It is invoked
// synchronously on every transition and every field update within a run; any
// asynchronous fan-out is the subscriber's responsibility, and it must not
// call back into the Reactor.
type StatusSubscriber func(cellID string, state models.CellState)
