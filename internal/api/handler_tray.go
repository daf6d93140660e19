package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetTray returns the indicator label in the waybar custom module shape.
func (h *Handler) GetTray(c *gin.Context) {
	c.JSON(http.StatusOK, h.tray.State())
}
