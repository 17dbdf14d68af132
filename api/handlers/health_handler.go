package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/vidharvest/internal/domain"
)

// Version is reported by the health endpoint
var Version = "dev"

// RunStatus is the view of the pipeline used by the status handlers
type RunStatus interface {
	IsRunning() bool
	Snapshot() domain.RunStats
}

// HealthHandler handles health check requests
type HealthHandler struct {
	pipeline RunStatus
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(pipeline RunStatus) *HealthHandler {
	return &HealthHandler{
		pipeline: pipeline,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Pipeline struct {
		Running bool `json:"running"`
	} `json:"pipeline"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: Version,
	}
	response.Pipeline.Running = h.pipeline.IsRunning()

	c.JSON(http.StatusOK, response)
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if !h.pipeline.IsRunning() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "pipeline not running",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
