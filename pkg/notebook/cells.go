package notebook

import (
	"strings"

	"github.com/google/uuid"

	"github.com/AJeffs1/reactive-notebook/pkg/models"
)

// NewCellID generates a cell identifier: 8 hexadecimal characters from a
// uniformly random source.
func NewCellID() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:8]
}

// NewCell creates a cell of the given kind with a fresh identifier.
func NewCell(kind models.CellKind, source, outputName string) *models.Cell {
	if kind == "" {
		kind = models.CellKindCode
	}
	return &models.Cell{
		ID:         NewCellID(),
		Kind:       kind,
		Source:     source,
		OutputName: outputName,
	}
}

// FindCell returns the cell with the given id, or nil.
func FindCell(cells []*models.Cell, cellID string) *models.Cell {
	for _, cell := range cells {
		if cell.ID == cellID {
			return cell
		}
	}
	return nil
}

// RemoveCell deletes the cell with the given id, reporting whether it was
// present.
func RemoveCell(cells []*models.Cell, cellID string) ([]*models.Cell, bool) {
	for i, cell := range cells {
		if cell.ID == cellID {
			return append(cells[:i], cells[i+1:]...), true
		}
	}
	return cells, false
}

// InsertAfter places a cell after the cell with id afterID. An empty afterID
// inserts at the beginning; an unknown or absent afterID appends at the end.
func InsertAfter(cells []*models.Cell, cell *models.Cell, afterID *string) []*models.Cell {
	if afterID == nil {
		return append(cells, cell)
	}
	if *afterID == "" {
		return append([]*models.Cell{cell}, cells...)
	}
	for i, existing := range cells {
		if existing.ID == *afterID {
			out := make([]*models.Cell, 0, len(cells)+1)
			out = append(out, cells[:i+1]...)
			out = append(out, cell)
			out = append(out, cells[i+1:]...)
			return out
		}
	}
	return append(cells, cell)
}
