package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storewise/recsync/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "recsync",
		})
	})

	jobHandler := handler.NewJobHandler(deps)
	syncHandler := handler.NewSyncHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// GET /api/v1/jobs - List sync queue jobs
		v1.GET("/jobs", jobHandler.ListJobs)

		sync := v1.Group("/sync")
		{
			// GET /api/v1/sync/status - Bootstrap progress
			sync.GET("/status", syncHandler.SyncStatus)

			// POST /api/v1/sync/run - Execute one worker tick
			sync.POST("/run", syncHandler.RunTick)
		}

		resync := v1.Group("/resync")
		{
			// POST /api/v1/resync/run - Run a push-diff pass now
			resync.POST("/run", syncHandler.RunResync)

			// POST /api/v1/resync/bootstrap - Seed or force-reseed the bootstrap
			resync.POST("/bootstrap", syncHandler.RunBootstrap)
		}
	}

	return r
}
