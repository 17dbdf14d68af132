package api

import (
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/vidharvest/api/handlers"
	"github.com/yourusername/vidharvest/api/middleware"
	"github.com/yourusername/vidharvest/internal/domain"
	"github.com/yourusername/vidharvest/pkg/logger"
	"github.com/yourusername/vidharvest/web"
)

// RouterDeps holds what the status server reads from
type RouterDeps struct {
	Pipeline    handlers.RunStatus
	Ledger      domain.Ledger
	Runs        domain.RunRepository // optional
	LogsDir     string
	Logger      *zap.Logger
	MultiLogger *logger.MultiLogger // optional
}

// SetupRouter sets up the read-only status API
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Recovery(deps.Logger, deps.MultiLogger))

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(deps.Pipeline)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		runHandler := handlers.NewRunHandler(deps.Pipeline, deps.Ledger, deps.Runs)
		v1.GET("/run", runHandler.GetRun)
		v1.GET("/runs", runHandler.ListRuns)
		v1.GET("/ledger", runHandler.GetLedger)

		logHandler := handlers.NewLogHandler(deps.LogsDir)
		logs := v1.Group("/logs")
		{
			logs.GET("/categories", logHandler.GetCategories)
			logs.GET("/:category", logHandler.GetLogs)
			logs.GET("/:category/search", logHandler.SearchLogs)
			logs.GET("/:category/export", logHandler.ExportLogs)
		}

		wsHandler := handlers.NewLogWebSocketHandler(deps.LogsDir, deps.Logger)
		v1.GET("/ws/logs", wsHandler.HandleWebSocket)
	}

	// Embedded status page
	staticFS := web.GetStaticFS()
	router.StaticFS("/static", http.FS(staticFS))
	router.GET("/", func(c *gin.Context) {
		serveIndexHTML(c, staticFS)
	})

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "not found"})
	})

	return router
}

func serveIndexHTML(c *gin.Context, fsys fs.FS) {
	data, err := fs.ReadFile(fsys, "index.html")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "status page not available"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", data)
}
