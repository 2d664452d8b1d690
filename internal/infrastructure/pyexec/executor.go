// Package pyexec is the Python code-execution backend: a gpython interpreter
// with one persistent __main__ module whose globals are the notebook's
// shared environment.
package pyexec

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-python/gpython/py"
	_ "github.com/go-python/gpython/stdlib"

	"github.com/AJeffs1/reactive-notebook/pkg/engine"
	"github.com/AJeffs1/reactive-notebook/pkg/models"
	"github.com/AJeffs1/reactive-notebook/pkg/value"
)

// resultBinding is the sentinel name cells assign to expose a display value.
const resultBinding = "_result"

// seedSource is evaluated into a fresh environment so cells have the
// numeric toolkit and the tabular constructors available without importing
// anything themselves. The interpreter carries no dataframe library, so
// table and figure ARE the notebook's data-table seeding: they build the
// marker shapes the conversion layer turns back into renderable values, so
// a cell assigning one to _result gets the HTML table / PNG image path.
const seedSource = `import math

def table(columns, rows):
    return {'__table__': True, 'columns': list(columns), 'rows': [list(r) for r in rows]}

def figure(png_base64):
    return {'__figure__': True, 'data': png_base64}
`

// Executor evaluates code cells against a persistent interpreter module.
type Executor struct {
	mu      sync.Mutex
	ctx     py.Context
	module  *py.Module
	capture *streamCapture
}

// New constructs the executor and seeds its environment.
func New() (*Executor, error) {
	capture, err := newStreamCapture()
	if err != nil {
		return nil, fmt.Errorf("stdout capture: %w", err)
	}

	e := &Executor{capture: capture}
	if err := e.initContext(); err != nil {
		return nil, err
	}
	return e, nil
}

// initContext builds a fresh interpreter context and __main__ module. The
// process streams are routed through the capture pipe while the context
// comes up so the interpreter's stdout binding points at the pipe for the
// context's whole lifetime.
func (e *Executor) initContext() error {
	restore := e.capture.RouteProcessStreams()
	defer restore()

	e.ctx = py.NewContext(py.DefaultContextOpts())

	module, err := e.ctx.ModuleInit(&py.ModuleImpl{
		Info: py.ModuleInfo{Name: "__main__"},
	})
	if err != nil {
		return fmt.Errorf("init __main__ module: %w", err)
	}
	e.module = module

	if err := e.runSource(seedSource, "<seed>"); err != nil {
		return fmt.Errorf("seed environment: %w", err)
	}
	e.capture.Drain()
	return nil
}

// Execute evaluates one code cell. Standard output and standard error are
// captured, and a binding named _result left by the cell is rendered and
// removed so later cells never observe it.
func (e *Executor) Execute(cell *models.Cell) *engine.ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	source := strings.TrimSpace(cell.Source)
	if source == "" {
		return &engine.ExecutionResult{
			CellID:     cell.ID,
			Success:    true,
			OutputKind: models.OutputText,
		}
	}

	e.capture.Begin()
	runErr := e.runSource(source, "<cell "+cell.ID+">")
	stdout := e.capture.End()

	if runErr != nil {
		msg := runErr.Error()
		trace := formatTrace(cell.ID, runErr)
		return &engine.ExecutionResult{
			CellID:     cell.ID,
			Success:    false,
			Stdout:     stdout,
			OutputKind: models.OutputError,
			Error:      &msg,
			Trace:      &trace,
		}
	}

	result := &engine.ExecutionResult{
		CellID:     cell.ID,
		Success:    true,
		Stdout:     stdout,
		OutputKind: models.OutputText,
	}

	if obj, ok := e.module.Globals[resultBinding]; ok {
		delete(e.module.Globals, resultBinding)
		rendered, kind := value.Render(pyToGo(obj))
		result.Rendered = &rendered
		result.OutputKind = kind
	}

	return result
}

func (e *Executor) runSource(source, desc string) error {
	code, err := py.Compile(source, desc, py.ExecMode, 0, true)
	if err != nil {
		return err
	}
	_, err = e.ctx.RunCode(code, e.module.Globals, e.module.Globals, nil)
	return err
}

// Get reads a binding from the environment.
func (e *Executor) Get(name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	obj, ok := e.module.Globals[name]
	if !ok {
		return nil, false
	}
	return pyToGo(obj), true
}

// Set writes a binding into the environment.
func (e *Executor) Set(name string, v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.module.Globals[name] = goToPy(v)
}

// Inject writes an externally produced binding, such as a query result.
func (e *Executor) Inject(name string, v any) {
	e.Set(name, v)
}

// Delete removes a binding from the environment.
func (e *Executor) Delete(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.module.Globals, name)
}

// Snapshot returns the user-visible bindings as Go values. Dunder names,
// imported modules, and function objects are omitted.
func (e *Executor) Snapshot() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]any)
	for name, obj := range e.module.Globals {
		if strings.HasPrefix(name, "__") {
			continue
		}
		switch obj.(type) {
		case *py.Module, *py.Function:
			// Runtime furniture: imported modules and the seeded
			// constructors are not notebook data.
			continue
		}
		out[name] = pyToGo(obj)
	}
	return out
}

// Reset discards the interpreter and rebuilds the seeded environment.
func (e *Executor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx != nil {
		e.ctx.Close()
	}
	if err := e.initContext(); err != nil {
		// A failed rebuild leaves an empty module so later cells fail
		// loudly instead of executing against stale bindings.
		e.module = &py.Module{Globals: py.NewStringDict()}
	}
}

func formatTrace(cellID string, err error) string {
	var sb strings.Builder
	sb.WriteString("Traceback (most recent call last):\n")
	sb.WriteString(`  Cell "`)
	sb.WriteString(cellID)
	sb.WriteString("\"\n")
	sb.WriteString(err.Error())
	return sb.String()
}
