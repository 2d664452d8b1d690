package pyexec

import (
	"encoding/base64"
	"fmt"

	"github.com/go-python/gpython/py"

	"github.com/AJeffs1/reactive-notebook/pkg/value"
)

// Tables and figures cross the interpreter boundary as plain dicts carrying
// a marker key, the shape the seeded table()/figure() constructors build.
// Conversion is symmetric: injected tables become marker dicts, and marker
// dicts coming back (a cell's _result, a re-exposed query binding) become
// renderable values again.
const (
	tableMarker  = "__table__"
	figureMarker = "__figure__"
)

// goToPy converts a Go value into its interpreter representation.
func goToPy(v any) py.Object {
	switch val := v.(type) {
	case nil:
		return py.None
	case py.Object:
		return val
	case bool:
		if val {
			return py.True
		}
		return py.False
	case int:
		return py.Int(val)
	case int32:
		return py.Int(val)
	case int64:
		return py.Int(val)
	case float32:
		return py.Float(val)
	case float64:
		return py.Float(val)
	case string:
		return py.String(val)
	case []byte:
		return py.String(val)
	case []any:
		items := make([]py.Object, 0, len(val))
		for _, item := range val {
			items = append(items, goToPy(item))
		}
		return py.NewListFromItems(items)
	case map[string]any:
		dict := py.NewStringDict()
		for k, item := range val {
			dict[k] = goToPy(item)
		}
		return dict
	case *value.Table:
		return tableToDict(val)
	case value.Table:
		return tableToDict(&val)
	case *value.Figure:
		return figureToDict(val)
	case value.Figure:
		return figureToDict(&val)
	default:
		return py.String(fmt.Sprintf("%v", val))
	}
}

// pyToGo converts an interpreter value back into a plain Go value. Shapes
// without a natural Go counterpart fall back to their repr.
func pyToGo(obj py.Object) any {
	switch val := obj.(type) {
	case py.NoneType:
		return nil
	case py.Bool:
		return val == py.True
	case py.Int:
		return int64(val)
	case py.Float:
		return float64(val)
	case py.String:
		return string(val)
	case py.Tuple:
		items := make([]any, 0, len(val))
		for _, item := range val {
			items = append(items, pyToGo(item))
		}
		return items
	case *py.List:
		items := make([]any, 0, len(val.Items))
		for _, item := range val.Items {
			items = append(items, pyToGo(item))
		}
		return items
	case py.StringDict:
		if table, ok := tableFromDict(val); ok {
			return table
		}
		if fig, ok := figureFromDict(val); ok {
			return fig
		}
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = pyToGo(item)
		}
		return out
	default:
		if repr, err := py.Repr(obj); err == nil {
			if s, ok := repr.(py.String); ok {
				return string(s)
			}
		}
		return fmt.Sprintf("%v", obj)
	}
}

func tableToDict(t *value.Table) py.StringDict {
	columns := make([]py.Object, 0, len(t.Columns))
	for _, col := range t.Columns {
		columns = append(columns, py.String(col))
	}

	rows := make([]py.Object, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := make([]py.Object, 0, len(row))
		for _, cell := range row {
			cells = append(cells, goToPy(cell))
		}
		rows = append(rows, py.NewListFromItems(cells))
	}

	dict := py.NewStringDict()
	dict[tableMarker] = py.True
	dict["columns"] = py.NewListFromItems(columns)
	dict["rows"] = py.NewListFromItems(rows)
	return dict
}

func figureToDict(f *value.Figure) py.StringDict {
	dict := py.NewStringDict()
	dict[figureMarker] = py.True
	dict["data"] = py.String(base64.StdEncoding.EncodeToString(f.PNG))
	return dict
}

func tableFromDict(dict py.StringDict) (*value.Table, bool) {
	if _, ok := dict[tableMarker]; !ok {
		return nil, false
	}

	table := &value.Table{}
	if colsObj, ok := dict["columns"]; ok {
		if cols, ok := pyToGo(colsObj).([]any); ok {
			for _, col := range cols {
				table.Columns = append(table.Columns, fmt.Sprintf("%v", col))
			}
		}
	}
	if rowsObj, ok := dict["rows"]; ok {
		if rows, ok := pyToGo(rowsObj).([]any); ok {
			for _, row := range rows {
				if cells, ok := row.([]any); ok {
					table.Rows = append(table.Rows, cells)
				}
			}
		}
	}
	return table, true
}

func figureFromDict(dict py.StringDict) (*value.Figure, bool) {
	if _, ok := dict[figureMarker]; !ok {
		return nil, false
	}
	encoded, ok := dict["data"].(py.String)
	if !ok {
		return nil, false
	}
	png, err := base64.StdEncoding.DecodeString(string(encoded))
	if err != nil {
		return nil, false
	}
	return &value.Figure{PNG: png}, true
}
