package value

import (
	"encoding/base64"
	"fmt"
	"html"
	"strings"

	"github.com/AJeffs1/reactive-notebook/pkg/models"
)

// maxRenderedRows caps how many table rows are rendered before truncation.
const maxRenderedRows = 50

// Render converts a produced value into its displayable form. Tables render
// to HTML, figures render to an inline PNG image, everything else falls back
// to its textual representation.
func Render(v any) (string, models.OutputKind) {
	switch val := v.(type) {
	case *Table:
		return renderTable(val), models.OutputHTML
	case Table:
		return renderTable(&val), models.OutputHTML
	case *Figure:
		return renderFigure(val), models.OutputHTML
	case Figure:
		return renderFigure(&val), models.OutputHTML
	case nil:
		return "None", models.OutputText
	case string:
		return val, models.OutputText
	default:
		return fmt.Sprintf("%v", val), models.OutputText
	}
}

func renderFigure(f *Figure) string {
	encoded := base64.StdEncoding.EncodeToString(f.PNG)
	return fmt.Sprintf(`<img src="data:image/png;base64,%s" />`, encoded)
}

func renderTable(t *Table) string {
	total := t.NumRows()
	rows := t.Rows
	truncated := false
	if total > maxRenderedRows {
		rows = rows[:maxRenderedRows]
		truncated = true
	}

	var sb strings.Builder
	sb.WriteString(`<table border="1" class="dataframe">`)
	sb.WriteString("\n<thead>\n<tr><th></th>")
	for _, col := range t.Columns {
		sb.WriteString("<th>")
		sb.WriteString(html.EscapeString(col))
		sb.WriteString("</th>")
	}
	sb.WriteString("</tr>\n</thead>\n<tbody>\n")
	for i, row := range rows {
		sb.WriteString(fmt.Sprintf("<tr><th>%d</th>", i))
		for j := range t.Columns {
			var cell any
			if j < len(row) {
				cell = row[j]
			}
			sb.WriteString("<td>")
			sb.WriteString(html.EscapeString(formatCell(cell)))
			sb.WriteString("</td>")
		}
		sb.WriteString("</tr>\n")
	}
	sb.WriteString("</tbody>\n</table>")

	if truncated {
		sb.WriteString(fmt.Sprintf("<p><em>Showing %d of %d rows</em></p>", maxRenderedRows, total))
	}
	return sb.String()
}

func formatCell(v any) string {
	if v == nil {
		return "None"
	}
	return fmt.Sprintf("%v", v)
}
