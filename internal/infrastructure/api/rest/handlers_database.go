package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AJeffs1/reactive-notebook/internal/application/notebookapi"
	"github.com/AJeffs1/reactive-notebook/internal/infrastructure/logger"
)

// DatabaseHandlers serves the database configuration endpoints used by
// data-query cells.
type DatabaseHandlers struct {
	ops    *notebookapi.Operations
	logger *logger.Logger
}

// NewDatabaseHandlers creates the database handler set.
func NewDatabaseHandlers(ops *notebookapi.Operations, log *logger.Logger) *DatabaseHandlers {
	return &DatabaseHandlers{ops: ops, logger: log}
}

// HandleConnect configures the Postgres connection.
func (h *DatabaseHandlers) HandleConnect(c *gin.Context) {
	var req struct {
		ConnectionString string `json:"connection_string" binding:"required"`
	}
	if err := bindJSON(c, &req); err != nil {
		return
	}

	if err := h.ops.ConnectDatabase(c.Request.Context(), req.ConnectionString); err != nil {
		h.logger.Error("Failed to connect database", "error", err)
		respondError(c, http.StatusBadRequest, "connection_failed", err.Error())
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"status": "connected"})
}

// HandleStatus reports connection status.
func (h *DatabaseHandlers) HandleStatus(c *gin.Context) {
	respondJSON(c, http.StatusOK, gin.H{
		"connected": h.ops.DatabaseConnected(c.Request.Context()),
	})
}

// HandleDisconnect tears down the database connection.
func (h *DatabaseHandlers) HandleDisconnect(c *gin.Context) {
	h.ops.DisconnectDatabase()
	respondJSON(c, http.StatusOK, gin.H{"status": "disconnected"})
}

// HandleListTables lists the tables visible to query cells.
func (h *DatabaseHandlers) HandleListTables(c *gin.Context) {
	if !h.ops.DatabaseConnected(c.Request.Context()) {
		respondError(c, http.StatusBadRequest, "not_connected", "No database connection configured")
		return
	}

	tables, err := h.ops.DatabaseTables(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list tables", "error", err)
		respondError(c, http.StatusBadRequest, "query_failed", err.Error())
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"tables": tables})
}

// HandleTableSchema returns column metadata for one table.
func (h *DatabaseHandlers) HandleTableSchema(c *gin.Context) {
	if !h.ops.DatabaseConnected(c.Request.Context()) {
		respondError(c, http.StatusBadRequest, "not_connected", "No database connection configured")
		return
	}

	tableName := c.Param("table_name")
	schema, err := h.ops.DatabaseTableSchema(c.Request.Context(), tableName)
	if err != nil {
		h.logger.Error("Failed to read table schema", "error", err, "table", tableName)
		respondError(c, http.StatusBadRequest, "query_failed", err.Error())
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"table": tableName, "schema": schema})
}
