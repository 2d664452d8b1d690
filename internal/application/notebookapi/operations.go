// Package notebookapi provides transport-agnostic notebook operations. The
// REST handlers delegate here; this layer owns the cell list, the Reactor,
// the database store, and notebook persistence, and serializes every
// mutation and run behind one mutex so the engine's single-threaded contract
// holds regardless of how many requests arrive.
package notebookapi

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/AJeffs1/reactive-notebook/internal/application/queryexec"
	"github.com/AJeffs1/reactive-notebook/internal/infrastructure/logger"
	"github.com/AJeffs1/reactive-notebook/internal/infrastructure/storage"
	"github.com/AJeffs1/reactive-notebook/pkg/analyzer"
	"github.com/AJeffs1/reactive-notebook/pkg/engine"
	"github.com/AJeffs1/reactive-notebook/pkg/graph"
	"github.com/AJeffs1/reactive-notebook/pkg/models"
	"github.com/AJeffs1/reactive-notebook/pkg/notebook"
	"github.com/AJeffs1/reactive-notebook/pkg/value"
)

// ErrCellNotFound is returned for operations on unknown cell identifiers.
var ErrCellNotFound = errors.New("cell not found")

// Operations is the notebook's service layer.
type Operations struct {
	mu sync.Mutex

	cells     []*models.Cell
	reactor   *engine.Reactor
	store     *storage.Store
	queryExec engine.QueryExecutor
	file      string
	logger    *logger.Logger

	// CellsChanged, when set, is invoked after every cell-list mutation
	// with the new list.
	CellsChanged func(cells []*models.Cell)
}

// New builds the service layer around a reactor and a store. file is the
// notebook's on-disk location.
func New(reactor *engine.Reactor, store *storage.Store, file string, log *logger.Logger) *Operations {
	return &Operations{
		reactor:   reactor,
		store:     store,
		queryExec: queryexec.New(store, reactor.Executor()),
		file:      file,
		logger:    log,
	}
}

// SetStatusSubscriber installs the reactor's transition subscriber.
func (o *Operations) SetStatusSubscriber(subscriber engine.StatusSubscriber) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reactor.SetStatusSubscriber(subscriber)
}

// LoadNotebook reads the notebook file and installs its cells. A missing
// file yields an empty notebook.
func (o *Operations) LoadNotebook() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	cells, err := notebook.ParseFile(o.file)
	if err != nil {
		o.cells = nil
		o.reactor.SetCells(nil)
		return err
	}
	o.cells = cells
	o.reactor.SetCells(cells)
	o.logger.Info("notebook loaded", "file", o.file, "cells", len(cells))
	return nil
}

// SaveNotebook writes the current cells to the notebook file.
func (o *Operations) SaveNotebook() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.saveLocked()
}

func (o *Operations) saveLocked() error {
	if err := notebook.WriteFile(o.cells, o.file); err != nil {
		o.logger.Error("failed to save notebook", "error", err, "file", o.file)
		return err
	}
	return nil
}

// Cells returns the current cell list.
func (o *Operations) Cells() []*models.Cell {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*models.Cell, len(o.cells))
	copy(out, o.cells)
	return out
}

// States returns every cell's state snapshot.
func (o *Operations) States() map[string]models.CellState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reactor.AllStates()
}

// GetCell returns one cell and its state.
func (o *Operations) GetCell(cellID string) (*models.Cell, *models.CellState, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cell := notebook.FindCell(o.cells, cellID)
	if cell == nil {
		return nil, nil, ErrCellNotFound
	}
	if state, ok := o.reactor.GetState(cellID); ok {
		return cell, &state, nil
	}
	return cell, nil, nil
}

// CreateCellParams describes a new cell.
type CreateCellParams struct {
	Kind       models.CellKind
	Source     string
	OutputName string

	// AfterID controls placement: nil appends, empty string prepends,
	// anything else inserts after that cell.
	AfterID *string
}

// CreateCell adds a cell and persists the notebook.
func (o *Operations) CreateCell(params CreateCellParams) (*models.Cell, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cell := notebook.NewCell(params.Kind, params.Source, params.OutputName)
	o.cells = notebook.InsertAfter(o.cells, cell, params.AfterID)
	o.reactor.SetCells(o.cells)

	if err := o.saveLocked(); err != nil {
		return nil, err
	}
	o.notifyCellsChanged()
	return cell, nil
}

// UpdateCellParams carries partial cell edits; nil fields stay untouched.
type UpdateCellParams struct {
	Source     *string
	Kind       *models.CellKind
	OutputName *string
}

// UpdateCell edits a cell in place. The notebook is not saved on every
// edit; saving happens on run and shutdown.
func (o *Operations) UpdateCell(cellID string, params UpdateCellParams) (*models.Cell, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cell := notebook.FindCell(o.cells, cellID)
	if cell == nil {
		return nil, ErrCellNotFound
	}

	if params.Source != nil {
		cell.Source = *params.Source
	}
	if params.Kind != nil {
		cell.Kind = *params.Kind
	}
	if params.OutputName != nil {
		cell.OutputName = *params.OutputName
	}

	o.reactor.SetCells(o.cells)
	o.notifyCellsChanged()
	return cell, nil
}

// DeleteCell removes a cell, deletes its written names from the
// environment, drops its state, and persists the notebook. It returns the
// removed environment names.
func (o *Operations) DeleteCell(cellID string) ([]string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cell := notebook.FindCell(o.cells, cellID)
	if cell == nil {
		return nil, ErrCellNotFound
	}

	analysis := analyzer.Analyze(cell)

	cells, removed := notebook.RemoveCell(o.cells, cellID)
	if !removed {
		return nil, ErrCellNotFound
	}
	o.cells = cells

	executor := o.reactor.Executor()
	removedNames := analysis.Writes.Sorted()
	for _, name := range removedNames {
		executor.Delete(name)
	}

	o.reactor.ClearState(cellID)
	o.reactor.SetCells(o.cells)

	if err := o.saveLocked(); err != nil {
		return removedNames, err
	}
	o.notifyCellsChanged()
	return removedNames, nil
}

// RunCell runs one cell reactively and persists the notebook.
func (o *Operations) RunCell(cellID string) ([]models.CellState, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if notebook.FindCell(o.cells, cellID) == nil {
		return nil, ErrCellNotFound
	}

	results := o.reactor.Run(cellID, o.queryExec)
	if err := o.saveLocked(); err != nil {
		return results, err
	}
	return results, nil
}

// RunAll runs every cell reachable from the dependency roots.
func (o *Operations) RunAll() ([]models.CellState, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	results := o.reactor.RunAll(o.queryExec)
	if err := o.saveLocked(); err != nil {
		return results, err
	}
	return results, nil
}

// Reset resets every cell state and rebuilds the environment.
func (o *Operations) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.reactor.Reset()
	o.notifyCellsChanged()
}

// Graph returns the current dependency graph.
func (o *Operations) Graph() graph.Graph {
	o.mu.Lock()
	defer o.mu.Unlock()
	return graph.Build(o.cells)
}

// ConnectDatabase configures the Postgres connection for query cells.
func (o *Operations) ConnectDatabase(ctx context.Context, dsn string) error {
	if err := o.store.Connect(ctx, dsn); err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	return nil
}

// DatabaseConnected reports connection status.
func (o *Operations) DatabaseConnected(ctx context.Context) bool {
	return o.store.IsConnected(ctx)
}

// DisconnectDatabase tears down the database connection.
func (o *Operations) DisconnectDatabase() {
	o.store.Close()
}

// DatabaseTables lists the tables visible to query cells.
func (o *Operations) DatabaseTables(ctx context.Context) ([]string, error) {
	return o.store.Tables(ctx)
}

// DatabaseTableSchema returns column metadata for one table.
func (o *Operations) DatabaseTableSchema(ctx context.Context, tableName string) (*value.Table, error) {
	return o.store.TableSchema(ctx, tableName)
}

func (o *Operations) notifyCellsChanged() {
	if o.CellsChanged == nil {
		return
	}
	cells := make([]*models.Cell, len(o.cells))
	copy(cells, o.cells)
	o.CellsChanged(cells)
}
