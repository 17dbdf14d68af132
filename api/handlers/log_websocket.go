package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/vidharvest/pkg/logger"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // status server binds to localhost by default
	},
}

// LogWebSocketHandler streams new event log entries over a websocket
type LogWebSocketHandler struct {
	logReader    *logger.LogReader
	logger       *zap.Logger
	pingInterval time.Duration
}

// NewLogWebSocketHandler creates a new WebSocket handler
func NewLogWebSocketHandler(logsDir string, log *zap.Logger) *LogWebSocketHandler {
	return &LogWebSocketHandler{
		logReader:    logger.NewLogReader(logsDir),
		logger:       log,
		pingInterval: 30 * time.Second,
	}
}

// HandleWebSocket handles GET /api/v1/ws/logs?category=pipeline
func (h *LogWebSocketHandler) HandleWebSocket(c *gin.Context) {
	category := logger.LogCategory(c.DefaultQuery("category", string(logger.CategoryPipeline)))
	if !logger.ValidCategory(category) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid category"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("WebSocket client connected",
		zap.String("category", string(category)),
		zap.String("remote_addr", c.Request.RemoteAddr))

	// Send the most recent entries first
	entries, err := h.logReader.ReadLogs(category, time.Now(), 50)
	if err == nil {
		for _, entry := range entries {
			if !h.send(conn, entry) {
				return
			}
		}
	}

	entryChan := make(chan logger.LogEntry, 100)
	stopChan := make(chan struct{})
	defer close(stopChan)

	go func() {
		if err := h.logReader.TailLogs(category, entryChan, stopChan); err != nil {
			h.logger.Error("Log tailing error", zap.Error(err))
		}
	}()

	// Reads are only needed to notice the client going away
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case entry := <-entryChan:
			if !h.send(conn, entry) {
				return
			}
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *LogWebSocketHandler) send(conn *websocket.Conn, entry logger.LogEntry) bool {
	data, err := json.Marshal(entry)
	if err != nil {
		h.logger.Error("Failed to marshal log entry", zap.Error(err))
		return true
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.logger.Debug("WebSocket client gone", zap.Error(err))
		return false
	}
	return true
}
