package routes

import (
	"net/http"

	"cache-countdown-api/internal/handlers"
	"cache-countdown-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(h *handlers.CacheHandler) *gin.Engine {
	// Create a new GIN Router
	ginRouter := gin.Default()

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Cache countdown API is running",
		})
	})

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/login", handlers.Login)

		api.GET("/values/:tag", h.GetValue)
		api.GET("/values/:tag/exists", h.Exists)
		api.GET("/values/:tag/ttl", h.TimeLeft)
		api.GET("/stats", h.GetStats)
	}

	// Evictions require an admin token
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware())
	{
		protectedRoutes.DELETE("/values/:tag", h.Delete)
		protectedRoutes.DELETE("/values", h.Clear)
	}

	// Live countdown stream
	ginRouter.GET("/ws/values/:tag", h.Watch)

	return ginRouter
}
