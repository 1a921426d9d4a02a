package router

import (
	"net/http"

	"github.com/fitstack/wodqueue/internal/api/handler"
	"github.com/gin-gonic/gin"
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
		if err := deps.DBClient.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "wod-api-service",
		})
	})

	wodHandler := handler.NewWODHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		wod := v1.Group("/wod")
		{
			// POST /api/v1/wod/generate - Generate a WOD synchronously
			wod.POST("/generate", wodHandler.GenerateWOD)

			// GET /api/v1/wod/history/:email - Recent exercise history
			wod.GET("/history/:email", wodHandler.GetHistory)

			// POST /api/v1/wod/jobs - Enqueue one job per registered user
			wod.POST("/jobs", wodHandler.EnqueueJobs)
		}
	}

	return r
}
