package handlers

import (
	"errors"
	"log"
	"net/http"

	"budget-insight-api/pkg/dataset"
	"budget-insight-api/pkg/resilience"
	"budget-insight-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// statusForError maps the service error kinds to HTTP codes.
func statusForError(err error) int {
	switch {
	case resilience.IsCircuitOpen(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrClassifierUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrDatasetUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, services.ErrSchemaMismatch), errors.Is(err, dataset.ErrUnsupportedFormat):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrMalformedInput):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// uploadStatusForError same as statusForError, except that every dataset
// problem of an uploaded file is a 422.
func uploadStatusForError(err error) int {
	if errors.Is(err, services.ErrMalformedInput) {
		return http.StatusUnprocessableEntity
	}
	return statusForError(err)
}

// respondError writes {"success": false, "error": ...}. 5xx causes are logged.
func respondError(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Printf("❌ [%s %s] %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{
		"success":   false,
		"error":     err.Error(),
		"requestId": c.GetString(services.ContextKeyRequestID),
	})
}
