package api

import (
	"net/http"

	authDelivery "briefing-backend/internal/auth/delivery"
	insightDelivery "briefing-backend/internal/insights/delivery"
	"briefing-backend/internal/notification"
	"briefing-backend/internal/telemetry"
	"briefing-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config, insightHandler *insightDelivery.InsightHandler, notificationHandler *notification.Handler) {
	r.GET("/metrics", gin.WrapH(telemetry.Handler()))

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Insight routes (protected)
		insights := api.Group("/insights")
		insights.Use(authDelivery.AuthMiddleware(cfg.JWTSecret))
		{
			insights.GET("/analytics", insightHandler.GetAnalytics)
			insights.POST("/jobs", insightHandler.CreateJob)
			insights.GET("/jobs", insightHandler.ListJobs)
			insights.GET("/jobs/:id", insightHandler.GetJob)
			insights.GET("/records/:type", insightHandler.GetInsightRecords)
		}

		// Notification routes (protected)
		notifications := api.Group("/notifications")
		notifications.Use(authDelivery.AuthMiddleware(cfg.JWTSecret))
		{
			notifications.POST("/register", notificationHandler.RegisterDevice)
			notifications.DELETE("/:token", notificationHandler.UnregisterDevice)
		}
	}
}
