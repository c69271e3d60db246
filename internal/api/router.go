package api

import (
	"github.com/gin-gonic/gin"

	"github.com/lromero/facturabot/internal/api/handler"
	"github.com/lromero/facturabot/internal/api/middleware"
	"github.com/lromero/facturabot/internal/config"
	"github.com/lromero/facturabot/internal/engine"
	"github.com/lromero/facturabot/internal/logger"
	"github.com/lromero/facturabot/internal/portal"
	"github.com/lromero/facturabot/internal/repository"
	"github.com/lromero/facturabot/internal/session"
	"github.com/lromero/facturabot/internal/source"
)

// RouterDeps bundles everything the HTTP surface needs.
type RouterDeps struct {
	Config     *config.Config
	Log        *logger.Logger
	Reader     source.Reader
	Dispatcher *engine.Dispatcher
	Aggregator *engine.Aggregator
	Sessions   *session.Cache
	Registry   *portal.Registry
	Jobs       *repository.BatchJobRepository
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps RouterDeps) *gin.Engine {
	// Set Gin mode
	switch deps.Config.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  deps.Config.Server.CORS.AllowedOrigins,
		AllowAllOrigins: deps.Config.Server.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	processHandler := handler.NewProcessHandler(deps.Reader, deps.Dispatcher, deps.Config.Engine)
	workerHandler := handler.NewWorkerHandler(deps.Dispatcher)
	reportsHandler := handler.NewReportsHandler(deps.Aggregator)
	sessionHandler := handler.NewSessionHandler(deps.Sessions, deps.Registry)

	// Health check
	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")
	{
		// Worksheet intake
		api.POST("/process", processHandler.Process)
		api.POST("/validate", processHandler.Validate)

		// Queue worker callback
		api.POST("/worker", workerHandler.Execute)

		// Consolidated reports
		api.GET("/reports", reportsHandler.List)
		api.GET("/reports/:date", reportsHandler.Get)

		// Captured portal sessions
		api.POST("/sessions/:provider", sessionHandler.Put)
		api.DELETE("/sessions/:provider", sessionHandler.Delete)

		// Batch job tracking
		if deps.Jobs != nil {
			executionsHandler := handler.NewExecutionsHandler(deps.Jobs)
			api.GET("/executions/:id", executionsHandler.Get)
		}
	}

	return r
}
