package handlers

import (
	"net/http"

	"budget-insight-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// MonitoringHandler serves the request log dashboard.
type MonitoringHandler struct {
	Service *services.MonitoringService
}

func NewMonitoringHandler(service *services.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{Service: service}
}

var periodHours = map[string]int{
	"1h":  1,
	"24h": 24,
	"7d":  24 * 7,
}

// GetLogs aggregates the request logs of ?period=1h|24h|7d, 24h by default.
func (h *MonitoringHandler) GetLogs(c *gin.Context) {
	hours, ok := periodHours[c.DefaultQuery("period", "24h")]
	if !ok {
		hours = 24
	}
	c.JSON(http.StatusOK, h.Service.GetDashboardData(hours))
}
