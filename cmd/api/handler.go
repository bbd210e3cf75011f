package api

import (
	insightDelivery "briefing-backend/internal/insights/delivery"
	"briefing-backend/internal/insights/repository"
	"briefing-backend/internal/insights/usecase"
	"briefing-backend/internal/notification"
	"briefing-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

// Handler owns the HTTP server and its route wiring
type Handler struct {
	engine *gin.Engine
}

// NewHandler builds the gin engine with all routes registered
func NewHandler(
	cfg *config.Config,
	orchestrator *usecase.Orchestrator,
	insightRepo repository.InsightRepository,
	tokenRepo notification.DeviceTokenRepository,
) *Handler {
	r := gin.Default()

	insightHandler := insightDelivery.NewInsightHandler(orchestrator, insightRepo)
	notificationHandler := notification.NewHandler(tokenRepo)

	SetupRoutes(r, cfg, insightHandler, notificationHandler)

	return &Handler{engine: r}
}

// Start runs the HTTP server on the given address
func (h *Handler) Start(addr string) error {
	return h.engine.Run(addr)
}
