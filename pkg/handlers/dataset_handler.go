package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"budget-insight-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// DefaultMaxUploadBytes upper bound of an uploaded dataset.
const DefaultMaxUploadBytes = 10 << 20

// DatasetHandler exposes the reference dataset and reports over uploaded files.
type DatasetHandler struct {
	Service        *services.DatasetService
	MaxUploadBytes int64
}

func NewDatasetHandler(service *services.DatasetService) *DatasetHandler {
	return &DatasetHandler{Service: service, MaxUploadBytes: DefaultMaxUploadBytes}
}

// Summary GET /api/v1/dataset/summary
func (h *DatasetHandler) Summary(c *gin.Context) {
	summary, err := h.Service.Summary()
	if err != nil {
		respondError(c, statusForError(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
}

// Categories GET /api/v1/dataset/categories
func (h *DatasetHandler) Categories(c *gin.Context) {
	categories, err := h.Service.Categories()
	if err != nil {
		respondError(c, statusForError(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": categories})
}

// Analyze POST /api/v1/dataset/analyze, multipart form with
// file (.csv or .xlsx), category and estimatedBudget.
func (h *DatasetHandler) Analyze(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxUploadBytes)

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, fmt.Errorf("fichier trop volumineux (max %d octets)", h.MaxUploadBytes))
			return
		}
		respondError(c, http.StatusBadRequest, errors.New("le champ file est requis"))
		return
	}
	defer file.Close()

	category := strings.TrimSpace(c.PostForm("category"))
	if category == "" {
		respondError(c, http.StatusBadRequest, errors.New("le champ category est requis"))
		return
	}
	budget, err := strconv.ParseInt(strings.TrimSpace(c.PostForm("estimatedBudget")), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, errors.New("estimatedBudget doit être un entier"))
		return
	}

	log.Printf("📊 [dataset] analyzing upload %s (%d bytes) for %q", header.Filename, header.Size, category)
	resp, err := h.Service.AnalyzeUpload(c.Request.Context(), file, header.Filename, category, budget, nil)
	if err != nil {
		respondError(c, uploadStatusForError(err), err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Reload POST /api/v1/admin/dataset/reload
func (h *DatasetHandler) Reload(c *gin.Context) {
	summary, err := h.Service.Reload(c.Request.Context())
	if err != nil {
		// the previous snapshot keeps being served
		respondError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": summary})
}
