package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/vidharvest/internal/domain"
)

// RunHandler serves live run counters, run history and ledger size
type RunHandler struct {
	pipeline RunStatus
	ledger   domain.Ledger
	runs     domain.RunRepository
}

// NewRunHandler creates a new run handler; runs may be nil when history is disabled
func NewRunHandler(pipeline RunStatus, ledger domain.Ledger, runs domain.RunRepository) *RunHandler {
	return &RunHandler{
		pipeline: pipeline,
		ledger:   ledger,
		runs:     runs,
	}
}

// RunResponse is the live view of the current or last run
type RunResponse struct {
	Running         bool    `json:"running"`
	InFlight        int64   `json:"in_flight"`
	DurationSeconds float64 `json:"duration_seconds"`
	domain.RunStats
}

// GetRun handles GET /api/v1/run
func (h *RunHandler) GetRun(c *gin.Context) {
	stats := h.pipeline.Snapshot()
	if stats.RunID == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run started"})
		return
	}

	c.JSON(http.StatusOK, RunResponse{
		Running:         h.pipeline.IsRunning(),
		InFlight:        stats.InFlight(),
		DurationSeconds: stats.Duration().Seconds(),
		RunStats:        stats,
	})
}

// ListRuns handles GET /api/v1/runs
func (h *RunHandler) ListRuns(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run history disabled"})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	runs, err := h.runs.RecentRuns(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load run history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(runs),
		"runs":  runs,
	})
}

// GetLedger handles GET /api/v1/ledger
func (h *RunHandler) GetLedger(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"entries": h.ledger.Len(),
	})
}
