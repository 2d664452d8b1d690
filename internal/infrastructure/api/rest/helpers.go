// Package rest exposes the notebook over HTTP. Handlers stay thin: they
// bind and validate requests, delegate to the notebookapi operations, and
// translate errors into API error bodies.
package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AJeffs1/reactive-notebook/internal/application/notebookapi"
)

// APIError is the error body returned by every failing endpoint.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, APIError{Code: code, Message: message})
}

// bindJSON binds the request body, answering 400 itself on failure.
func bindJSON(c *gin.Context, v any) error {
	if err := c.ShouldBindJSON(v); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_request", err.Error())
		return err
	}
	return nil
}

// translateError maps service errors onto HTTP responses.
func translateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, notebookapi.ErrCellNotFound):
		respondError(c, http.StatusNotFound, "cell_not_found", "Cell not found")
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
