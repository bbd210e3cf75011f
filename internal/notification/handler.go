package notification

import (
	"net/http"

	"briefing-backend/internal/insights/dto"

	"github.com/gin-gonic/gin"
)

// Handler exposes device token registration over HTTP
type Handler struct {
	tokenRepo DeviceTokenRepository
}

// NewHandler creates a new notification Handler
func NewHandler(tokenRepo DeviceTokenRepository) *Handler {
	return &Handler{tokenRepo: tokenRepo}
}

func (h *Handler) RegisterDevice(c *gin.Context) {
	userID := c.GetString("userID")

	var req dto.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tokenRepo.SaveToken(userID, req.Token, req.DeviceInfo); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "registered"})
}

func (h *Handler) UnregisterDevice(c *gin.Context) {
	token := c.Param("token")

	if err := h.tokenRepo.DeleteToken(token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "unregistered"})
}
