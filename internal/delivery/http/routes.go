package http

import (
	"github.com/gin-gonic/gin"

	"github.com/macrolens/foodrecon/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))
	if cfg.RateLimit.PerIP > 0 {
		router.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	}

	router.GET("/health", handler.HealthCheck)

	v1 := router.Group("/api/v1")
	{
		foods := v1.Group("/foods")
		{
			foods.GET("/search", handler.SearchFoods)
			foods.GET("/:fdcId", handler.GetFood)
		}

		v1.POST("/portions/resolve", handler.ResolvePortion)
		v1.POST("/snapshots", handler.CalculateSnapshot)
		v1.POST("/references/:fdcId", handler.AddReference)

		logs := v1.Group("/logs")
		{
			logs.POST("", handler.LogFood)
			logs.GET("", handler.ListLogs)
		}
	}

	return router
}
