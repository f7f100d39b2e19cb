package http

import (
	"github.com/gin-gonic/gin"

	"github.com/trustscan/backend/config"
	"github.com/trustscan/backend/internal/logger"
	"github.com/trustscan/backend/internal/metrics"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, log logger.Logger, m *metrics.Metrics) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.NewNop()
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware(log))
	router.Use(LoggerMiddleware(log))
	router.Use(MetricsMiddleware(m))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check and metrics endpoints
	router.GET("/health", handler.HealthCheck)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	{
		products := v1.Group("/products")
		{
			products.GET("/:gtin", handler.GetProduct)
			products.GET("/:gtin/reviews", handler.GetProductReviews)
		}

		v1.POST("/reviews/credibility", handler.ScoreReview)
		v1.GET("/images", handler.GetImage)
	}

	return router
}
