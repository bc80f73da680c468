package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bdavis/diamond-dfs/internal/services"
)

type HealthHandler struct {
	collector *services.CollectorService
}

func NewHealthHandler(collector *services.CollectorService) *HealthHandler {
	return &HealthHandler{
		collector: collector,
	}
}

// GetHealth returns basic health status - always returns 200 if server is running
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   "diamond-dfs",
	})
}

// GetStatus returns collector and scheduled-job status for operators
func (h *HealthHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.collector.GetStatus())
}
