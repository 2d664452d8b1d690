// Package queryexec implements the query-executor contract the Reactor
// dispatches data-query cells to: it runs the cell's query against the
// configured database, injects the result table into the shared environment
// under the cell's output binding, and returns the rendered table.
package queryexec

import (
	"context"
	"fmt"

	"github.com/AJeffs1/reactive-notebook/internal/infrastructure/storage"
	"github.com/AJeffs1/reactive-notebook/pkg/engine"
	"github.com/AJeffs1/reactive-notebook/pkg/models"
	"github.com/AJeffs1/reactive-notebook/pkg/value"
)

// New builds an engine.QueryExecutor backed by the given store and injecting
// results into the given executor's environment.
func New(store *storage.Store, executor engine.Executor) engine.QueryExecutor {
	return func(cell *models.Cell) *engine.ExecutionResult {
		ctx := context.Background()

		if !store.IsConnected(ctx) {
			return engine.Failure(cell.ID, "No database connection configured")
		}

		query, err := resolveTemplates(cell.Source, executor.Snapshot())
		if err != nil {
			return failWithTrace(cell.ID, err)
		}

		table, err := store.Query(ctx, query)
		if err != nil {
			return failWithTrace(cell.ID, err)
		}

		executor.Inject(cell.QueryBinding(), table)

		rendered, kind := value.Render(table)
		return &engine.ExecutionResult{
			CellID:     cell.ID,
			Success:    true,
			Rendered:   &rendered,
			OutputKind: kind,
		}
	}
}

func failWithTrace(cellID string, err error) *engine.ExecutionResult {
	res := engine.Failure(cellID, err.Error())
	trace := fmt.Sprintf("query cell %s: %v", cellID, err)
	res.Trace = &trace
	return res
}
