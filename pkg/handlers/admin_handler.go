package handlers

import (
	"crypto/subtle"
	"log"
	"net/http"
	"sync/atomic"

	config "budget-insight-api/configs"
	"budget-insight-api/pkg/dataset"

	"github.com/gin-gonic/gin"
)

// AdminHandler handles maintenance mode and the health endpoints.
type AdminHandler struct {
	AdminUsername string
	AdminPassword string
	// Store is reported by the health check; nil skips the dataset check.
	Store *dataset.Store
	// ClassifierName is reported by the health check.
	ClassifierName string

	maintenance atomic.Bool
}

func NewAdminHandler(cfg *config.Config, store *dataset.Store, classifierName string) *AdminHandler {
	return &AdminHandler{
		AdminUsername:  cfg.AdminUsername,
		AdminPassword:  cfg.AdminPassword,
		Store:          store,
		ClassifierName: classifierName,
	}
}

// AdminCredentials body of the maintenance endpoints.
type AdminCredentials struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *AdminHandler) authorize(c *gin.Context) bool {
	var input AdminCredentials
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Username and password are required"})
		return false
	}
	// no admin account configured: maintenance endpoints stay closed
	if h.AdminUsername == "" || h.AdminPassword == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(input.Username), []byte(h.AdminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(input.Password), []byte(h.AdminPassword)) == 1
	if !userOK || !passOK {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid credentials"})
		return false
	}
	return true
}

// StartMaintenance makes /health answer 503 until StopMaintenance.
func (h *AdminHandler) StartMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	h.maintenance.Store(true)
	log.Printf("⚠️ [admin] maintenance mode started")
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode started"})
}

func (h *AdminHandler) StopMaintenance(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	h.maintenance.Store(false)
	log.Printf("✅ [admin] maintenance mode stopped")
	c.JSON(http.StatusOK, gin.H{"message": "Maintenance mode stopped"})
}

// GetHealthStatus admin view of the server state.
func (h *AdminHandler) GetHealthStatus(c *gin.Context) {
	status := gin.H{
		"isMaintenanceMode": h.maintenance.Load(),
		"classifier":        h.ClassifierName,
	}
	if snap := h.snapshot(); snap != nil {
		status["dataset"] = gin.H{
			"source":          snap.Source(),
			"numberOfRecords": snap.Len(),
			"loadedAt":        snap.LoadedAt(),
		}
	}
	c.JSON(http.StatusOK, status)
}

// HealthCheck answers load balancers: 503 in maintenance or without dataset.
func (h *AdminHandler) HealthCheck(c *gin.Context) {
	if h.maintenance.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": "Server is in maintenance mode"})
		return
	}
	if h.Store != nil && h.snapshot() == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": "Reference dataset not loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *AdminHandler) snapshot() *dataset.Snapshot {
	if h.Store == nil {
		return nil
	}
	return h.Store.Snapshot()
}
