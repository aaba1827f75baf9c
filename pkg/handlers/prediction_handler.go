package handlers

import (
	"errors"
	"net/http"

	"budget-insight-api/pkg/models"
	"budget-insight-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// PredictionHandler serves the category prediction endpoint.
type PredictionHandler struct {
	Service *services.PredictionService
}

func NewPredictionHandler(service *services.PredictionService) *PredictionHandler {
	return &PredictionHandler{Service: service}
}

// Hello kept for the clients that ping the root path.
func Hello(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"Hello": "World"})
}

// PredictCategory classifies projectTitle and returns the report of the predicted category.
func (h *PredictionHandler) PredictCategory(c *gin.Context) {
	var req models.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, errors.New(describeBindingError(err)))
		return
	}

	resp, err := h.Service.Predict(c.Request.Context(), req.ProjectTitle, *req.EstimatedBudget)
	if err != nil {
		respondError(c, statusForError(err), err)
		return
	}

	c.Set(services.ContextKeyCategory, resp.PredictedCategory.Name)
	c.JSON(http.StatusOK, resp)
}
