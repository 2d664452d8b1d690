// Package models defines the notebook's domain types: cells, cell runtime
// state, and the status lifecycle shared by the engine and the API layers.
package models

// CellKind identifies how a cell's source is executed.
type CellKind string

const (
	// CellKindCode is a Python code cell evaluated against the shared
	// environment.
	CellKindCode CellKind = "code"

	// CellKindQuery is a data-query cell routed to the external query
	// executor; its result is injected into the environment under the
	// cell's output name.
	CellKindQuery CellKind = "query"
)

// Cell is a single notebook cell. Cells are immutable for the duration of a
// run; edits produce a new cell list installed via Reactor.SetCells.
type Cell struct {
	// ID is an opaque short identifier, unique within a notebook.
	ID string `json:"id"`

	// Kind defaults to CellKindCode when empty.
	Kind CellKind `json:"type,omitempty"`

	// Source is the cell's code or query text.
	Source string `json:"code"`

	// OutputName is the environment binding a query cell's result is
	// injected under. Unused for code cells.
	OutputName string `json:"as,omitempty"`
}

// IsQuery reports whether the cell is a data-query cell.
func (c *Cell) IsQuery() bool {
	return c.Kind == CellKindQuery
}

// QueryBinding returns the environment name a query cell's result is bound
// to: the configured output name, or a synthetic per-cell name when none is
// configured.
func (c *Cell) QueryBinding() string {
	if c.OutputName != "" {
		return c.OutputName
	}
	return "_query_" + c.ID
}
