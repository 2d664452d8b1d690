// Package value holds the tagged value shapes that cross the notebook's
// system boundary (query results, figures) and the rendering rules that turn
// produced values into displayable text or HTML. Inside the environment
// values stay opaque; only rendering and injection care about the shape.
package value

import "fmt"

// Table is a tabular result, produced by the query executor or by code
// cells through the environment's seeded table constructor.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// Records converts the table into a list of column→value maps.
func (t *Table) Records() []map[string]any {
	records := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(row) {
				rec[col] = row[i]
			}
		}
		records = append(records, rec)
	}
	return records
}

// StatusTable builds a single-column table carrying a status message, used
// for DDL/DML statements that produce no result set.
func StatusTable(message string) *Table {
	return &Table{
		Columns: []string{"status"},
		Rows:    [][]any{{message}},
	}
}

// Figure is a rendered plot as PNG bytes.
type Figure struct {
	PNG []byte `json:"png"`
}

func (f *Figure) String() string {
	return fmt.Sprintf("Figure(%d bytes)", len(f.PNG))
}
