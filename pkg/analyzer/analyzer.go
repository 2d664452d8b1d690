// Package analyzer infers the dataflow of a cell from its source: the names
// it reads from the shared environment and the names it binds. Code cells are
// parsed into a Python AST; query cells write their output binding and read
// nothing.
package analyzer

import (
	"strings"

	"github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/parser"
	"github.com/go-python/gpython/py"

	"github.com/AJeffs1/reactive-notebook/pkg/models"
)

// CellAnalysis is the derived read/write sets of one cell.
type CellAnalysis struct {
	CellID string
	Reads  StringSet
	Writes StringSet
}

// commonBuiltins are excluded from a cell's reads: they resolve against the
// runtime, not against other cells. Over-listing costs false edges,
// under-listing costs missed runs; extend conservatively.
var commonBuiltins = NewStringSet(
	"print", "len", "range", "str", "int", "float", "list", "dict", "set",
	"tuple", "bool", "type", "isinstance", "hasattr", "getattr", "setattr",
	"open", "file", "input", "output", "sum", "min", "max", "abs", "round",
	"sorted", "reversed", "enumerate", "zip", "map", "filter", "any", "all",
	"None", "True", "False", "Exception", "ValueError", "TypeError", "KeyError",
	"__name__", "__file__", "__doc__",
)

// Analyze derives the read and write sets of a cell.
//
// Source that fails to parse yields empty sets: the cell still runs and the
// executor reports the syntax error, keeping error reporting out of the
// analysis path.
func Analyze(cell *models.Cell) *CellAnalysis {
	if cell.IsQuery() {
		return &CellAnalysis{
			CellID: cell.ID,
			Reads:  NewStringSet(),
			Writes: NewStringSet(cell.QueryBinding()),
		}
	}

	reads, writes := analyzeSource(cell.Source)
	return &CellAnalysis{
		CellID: cell.ID,
		Reads:  reads,
		Writes: writes,
	}
}

// analyzeSource parses Python source and collects reads and writes.
func analyzeSource(source string) (StringSet, StringSet) {
	tree, err := parser.ParseString(source, py.ExecMode)
	if err != nil {
		return NewStringSet(), NewStringSet()
	}

	v := &visitor{
		reads:    NewStringSet(),
		writes:   NewStringSet(),
		required: NewStringSet(),
		locals:   NewStringSet(),
	}
	v.walk(tree)

	// Names written locally or resolved by the runtime are not
	// dependencies; augmented-assignment targets stay required because the
	// prior value must exist upstream.
	final := NewStringSet()
	for name := range v.reads {
		if v.writes.Has(name) || commonBuiltins.Has(name) {
			continue
		}
		final.Add(name)
	}
	for name := range v.required {
		final.Add(name)
	}
	return final, v.writes
}

// visitor walks a cell's AST collecting name reads and writes. Function and
// class bodies are not descended: their locals are not dependencies of the
// surrounding cell. Only default-argument expressions and base-class
// expressions contribute.
type visitor struct {
	reads    StringSet
	writes   StringSet
	required StringSet
	locals   StringSet
}

func (v *visitor) walk(node ast.Ast) {
	if node == nil {
		return
	}
	ast.Walk(node, v.visit)
}

func (v *visitor) walkStmts(stmts []ast.Stmt) {
	for _, s := range stmts {
		v.walk(s)
	}
}

func (v *visitor) walkExprs(exprs []ast.Expr) {
	for _, e := range exprs {
		v.walk(e)
	}
}

// visit handles one node; returning false stops the generic walk from
// descending so the cases below control traversal order and scope.
func (v *visitor) visit(node ast.Ast) bool {
	switch n := node.(type) {
	case *ast.Name:
		switch n.Ctx {
		case ast.Load:
			if !v.locals.Has(string(n.Id)) {
				v.reads.Add(string(n.Id))
			}
		case ast.Store:
			v.bind(string(n.Id))
		}
		return true

	case *ast.Assign:
		// Targets bind before the value is inspected, matching runtime
		// shadowing within the cell.
		v.walkExprs(n.Targets)
		v.walk(n.Value)
		return false

	case *ast.AugAssign:
		if target, ok := n.Target.(*ast.Name); ok {
			name := string(target.Id)
			if !v.locals.Has(name) {
				v.reads.Add(name)
				v.required.Add(name)
			}
			v.bind(name)
		}
		v.walk(n.Value)
		return false

	case *ast.For:
		v.bindTarget(n.Target)
		v.walk(n.Iter)
		v.walkStmts(n.Body)
		v.walkStmts(n.Orelse)
		return false

	case *ast.FunctionDef:
		v.bind(string(n.Name))
		if n.Args != nil {
			v.walkExprs(n.Args.Defaults)
			for _, d := range n.Args.KwDefaults {
				if d != nil {
					v.walk(d)
				}
			}
		}
		return false

	case *ast.ClassDef:
		v.bind(string(n.Name))
		v.walkExprs(n.Bases)
		return false

	case *ast.Import:
		for _, alias := range n.Names {
			name := string(alias.AsName)
			if name == "" {
				name = strings.SplitN(string(alias.Name), ".", 2)[0]
			}
			v.bind(name)
		}
		return false

	case *ast.ImportFrom:
		for _, alias := range n.Names {
			name := string(alias.AsName)
			if name == "" {
				name = string(alias.Name)
			}
			if name != "*" {
				v.bind(name)
			}
		}
		return false

	case *ast.ListComp:
		v.walkComprehensions(n.Generators)
		v.walk(n.Elt)
		return false

	case *ast.SetComp:
		v.walkComprehensions(n.Generators)
		v.walk(n.Elt)
		return false

	case *ast.GeneratorExp:
		v.walkComprehensions(n.Generators)
		v.walk(n.Elt)
		return false

	case *ast.DictComp:
		v.walkComprehensions(n.Generators)
		v.walk(n.Key)
		v.walk(n.Value)
		return false
	}

	return true
}

func (v *visitor) walkComprehensions(generators []ast.Comprehension) {
	for i := range generators {
		gen := &generators[i]
		v.bindTarget(gen.Target)
		v.walk(gen.Iter)
		v.walkExprs(gen.Ifs)
	}
}

// bindTarget records writes for assignment-like targets, unpacking tuple and
// list destructuring.
func (v *visitor) bindTarget(target ast.Expr) {
	switch t := target.(type) {
	case *ast.Name:
		v.bind(string(t.Id))
	case *ast.Tuple:
		for _, elt := range t.Elts {
			v.bindTarget(elt)
		}
	case *ast.List:
		for _, elt := range t.Elts {
			v.bindTarget(elt)
		}
	case *ast.Starred:
		v.bindTarget(t.Value)
	}
}

func (v *visitor) bind(name string) {
	v.writes.Add(name)
	v.locals.Add(name)
}
