package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AJeffs1/reactive-notebook/internal/application/notebookapi"
	"github.com/AJeffs1/reactive-notebook/internal/infrastructure/logger"
	"github.com/AJeffs1/reactive-notebook/pkg/models"
	"github.com/AJeffs1/reactive-notebook/pkg/visualization"
)

// CellHandlers serves the cell management and execution endpoints.
type CellHandlers struct {
	ops    *notebookapi.Operations
	logger *logger.Logger
}

// NewCellHandlers creates the cell handler set.
func NewCellHandlers(ops *notebookapi.Operations, log *logger.Logger) *CellHandlers {
	return &CellHandlers{ops: ops, logger: log}
}

// HandleHealth reports service liveness.
func (h *CellHandlers) HandleHealth(c *gin.Context) {
	respondJSON(c, http.StatusOK, gin.H{"status": "ok"})
}

// HandleListCells returns every cell and every cell state.
func (h *CellHandlers) HandleListCells(c *gin.Context) {
	respondJSON(c, http.StatusOK, gin.H{
		"cells":  h.ops.Cells(),
		"states": h.ops.States(),
	})
}

// HandleCreateCell creates a new cell, optionally placed after an existing
// one.
func (h *CellHandlers) HandleCreateCell(c *gin.Context) {
	var req struct {
		Type    string  `json:"type"`
		Code    string  `json:"code"`
		AsVar   string  `json:"as_var"`
		AfterID *string `json:"after_id"`
	}
	if err := bindJSON(c, &req); err != nil {
		return
	}

	cell, err := h.ops.CreateCell(notebookapi.CreateCellParams{
		Kind:       models.CellKind(req.Type),
		Source:     req.Code,
		OutputName: req.AsVar,
		AfterID:    req.AfterID,
	})
	if err != nil {
		h.logger.Error("Failed to create cell", "error", err)
		translateError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, cell)
}

// HandleGetCell returns a single cell with its state.
func (h *CellHandlers) HandleGetCell(c *gin.Context) {
	cell, state, err := h.ops.GetCell(c.Param("cell_id"))
	if err != nil {
		translateError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"cell": cell, "state": state})
}

// HandleUpdateCell edits a cell's source, kind, or output binding.
func (h *CellHandlers) HandleUpdateCell(c *gin.Context) {
	var req struct {
		Code  *string `json:"code"`
		Type  *string `json:"type"`
		AsVar *string `json:"as_var"`
	}
	if err := bindJSON(c, &req); err != nil {
		return
	}

	params := notebookapi.UpdateCellParams{
		Source:     req.Code,
		OutputName: req.AsVar,
	}
	if req.Type != nil {
		kind := models.CellKind(*req.Type)
		params.Kind = &kind
	}

	cell, err := h.ops.UpdateCell(c.Param("cell_id"), params)
	if err != nil {
		translateError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, cell)
}

// HandleDeleteCell removes a cell along with the environment names it
// wrote.
func (h *CellHandlers) HandleDeleteCell(c *gin.Context) {
	cellID := c.Param("cell_id")

	removed, err := h.ops.DeleteCell(cellID)
	if err != nil {
		translateError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"status":            "deleted",
		"id":                cellID,
		"removed_variables": removed,
	})
}

// HandleRunCell runs a cell and its downstream dependents.
func (h *CellHandlers) HandleRunCell(c *gin.Context) {
	results, err := h.ops.RunCell(c.Param("cell_id"))
	if err != nil {
		translateError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"results": results})
}

// HandleRunAll runs every cell reachable from the dependency roots.
func (h *CellHandlers) HandleRunAll(c *gin.Context) {
	results, err := h.ops.RunAll()
	if err != nil {
		translateError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"results": results})
}

// HandleReset resets every cell state and the environment.
func (h *CellHandlers) HandleReset(c *gin.Context) {
	h.ops.Reset()
	respondJSON(c, http.StatusOK, gin.H{"status": "reset"})
}

// HandleSave persists the notebook to disk.
func (h *CellHandlers) HandleSave(c *gin.Context) {
	if err := h.ops.SaveNotebook(); err != nil {
		translateError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, gin.H{"status": "saved"})
}

// HandleGraph renders the dependency graph as an ASCII tree.
func (h *CellHandlers) HandleGraph(c *gin.Context) {
	renderer := visualization.NewASCIIRenderer()
	tree := renderer.Render(h.ops.Cells(), h.ops.Graph(), h.ops.States(), &visualization.RenderOptions{
		UseColor:   false,
		ShowSource: c.Query("source") != "false",
	})
	c.String(http.StatusOK, tree)
}
