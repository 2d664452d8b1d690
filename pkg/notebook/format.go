// Package notebook reads and writes the on-disk notebook format. Each cell
// is preceded by a marker line
//
//	# %% [id: <id>[, type: <kind>][, as: <name>]]
//
// and its source is everything up to the next marker, stripped of leading
// and trailing blank lines. Serialization reverses parsing, omitting the
// type key for code cells and the as key when unset.
package notebook

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/AJeffs1/reactive-notebook/pkg/models"
)

var markerPattern = regexp.MustCompile(`^# %%\s*\[([^\]]+)\]\s*$`)

// Parse splits raw notebook content into cells. Lines before the first
// marker are ignored.
func Parse(content string) []*models.Cell {
	var cells []*models.Cell
	var current *models.Cell
	var sourceLines []string

	flush := func() {
		if current == nil {
			return
		}
		current.Source = strings.TrimSpace(strings.Join(sourceLines, "\n"))
		cells = append(cells, current)
	}

	for _, line := range strings.Split(content, "\n") {
		match := markerPattern.FindStringSubmatch(line)
		if match == nil {
			if current != nil {
				sourceLines = append(sourceLines, line)
			}
			continue
		}

		flush()

		fields := parseMarker(match[1])
		current = &models.Cell{
			ID:         fields["id"],
			Kind:       models.CellKind(fields["type"]),
			OutputName: fields["as"],
		}
		if current.ID == "" {
			current.ID = NewCellID()
		}
		if current.Kind == "" {
			current.Kind = models.CellKindCode
		}
		sourceLines = nil
	}
	flush()

	return cells
}

// parseMarker splits the bracketed marker content, a comma-separated list of
// key: value pairs with surrounding whitespace trimmed.
func parseMarker(content string) map[string]string {
	fields := make(map[string]string)
	for _, part := range strings.Split(content, ",") {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		fields[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return fields
}

// SerializeCell renders one cell as its marker line plus source.
func SerializeCell(cell *models.Cell) string {
	parts := []string{"id: " + cell.ID}
	if cell.Kind != "" && cell.Kind != models.CellKindCode {
		parts = append(parts, "type: "+string(cell.Kind))
	}
	if cell.OutputName != "" {
		parts = append(parts, "as: "+cell.OutputName)
	}
	return fmt.Sprintf("# %%%% [%s]\n%s", strings.Join(parts, ", "), cell.Source)
}

// Serialize renders the full notebook.
func Serialize(cells []*models.Cell) string {
	if len(cells) == 0 {
		return ""
	}
	rendered := make([]string, 0, len(cells))
	for _, cell := range cells {
		rendered = append(rendered, SerializeCell(cell))
	}
	return strings.Join(rendered, "\n\n") + "\n"
}

// ParseFile loads and parses a notebook file.
func ParseFile(path string) ([]*models.Cell, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read notebook: %w", err)
	}
	return Parse(string(content)), nil
}

// WriteFile serializes cells to a notebook file.
func WriteFile(cells []*models.Cell, path string) error {
	if err := os.WriteFile(path, []byte(Serialize(cells)), 0o644); err != nil {
		return fmt.Errorf("write notebook: %w", err)
	}
	return nil
}
