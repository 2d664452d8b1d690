// Package testutil provides shared test doubles: a scripted execution
// backend with an inspectable in-memory environment, a transition recorder,
// and cell fixtures.
package testutil

import (
	"fmt"
	"sync"

	"github.com/AJeffs1/reactive-notebook/pkg/engine"
	"github.com/AJeffs1/reactive-notebook/pkg/models"
)

// CellScript mutates the shared environment on behalf of one cell and
// returns its rendered output. Returning an error marks the cell failed.
type CellScript func(env map[string]any) (string, error)

// ScriptedExecutor is an engine.Executor whose per-cell behavior is
// registered up front. Cells without a script succeed with no output.
type ScriptedExecutor struct {
	mu      sync.Mutex
	env     map[string]any
	seed    map[string]any
	scripts map[string]CellScript
	stdout  map[string]string
}

// NewScriptedExecutor creates an executor seeded with the given bindings.
func NewScriptedExecutor(seed map[string]any) *ScriptedExecutor {
	e := &ScriptedExecutor{
		seed:    seed,
		scripts: make(map[string]CellScript),
		stdout:  make(map[string]string),
	}
	e.Reset()
	return e
}

// Script registers a cell's behavior.
func (e *ScriptedExecutor) Script(cellID string, fn CellScript) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scripts[cellID] = fn
}

// Stdout registers captured output reported for a cell.
func (e *ScriptedExecutor) Stdout(cellID, out string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stdout[cellID] = out
}

// Execute runs the cell's registered script against the environment.
func (e *ScriptedExecutor) Execute(cell *models.Cell) *engine.ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := &engine.ExecutionResult{
		CellID:     cell.ID,
		Success:    true,
		Stdout:     e.stdout[cell.ID],
		OutputKind: models.OutputText,
	}

	fn, ok := e.scripts[cell.ID]
	if !ok {
		return result
	}

	rendered, err := fn(e.env)
	if err != nil {
		msg := err.Error()
		trace := fmt.Sprintf("Traceback: %v", err)
		result.Success = false
		result.OutputKind = models.OutputError
		result.Error = &msg
		result.Trace = &trace
		return result
	}

	if rendered != "" {
		result.Rendered = &rendered
	}
	return result
}

// Get reads a binding.
func (e *ScriptedExecutor) Get(name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.env[name]
	return v, ok
}

// Set writes a binding.
func (e *ScriptedExecutor) Set(name string, v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.env[name] = v
}

// Inject writes an externally produced binding.
func (e *ScriptedExecutor) Inject(name string, v any) {
	e.Set(name, v)
}

// Delete removes a binding.
func (e *ScriptedExecutor) Delete(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.env, name)
}

// Snapshot copies the environment.
func (e *ScriptedExecutor) Snapshot() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]any, len(e.env))
	for k, v := range e.env {
		out[k] = v
	}
	return out
}

// Reset reconstructs the environment from the seed bindings.
func (e *ScriptedExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.env = make(map[string]any, len(e.seed))
	for k, v := range e.seed {
		e.env[k] = v
	}
}
