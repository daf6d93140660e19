package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetPermission reports the calendar authorization state.
func (h *Handler) GetPermission(c *gin.Context) {
	status, err := h.calendar.CheckPermission(c.Request.Context())
	if err != nil {
		abortError(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// RequestPermission asks the provider for calendar access. It blocks until the
// user answers or the permission timeout passes.
func (h *Handler) RequestPermission(c *gin.Context) {
	granted, err := h.calendar.RequestPermission(c.Request.Context())
	if err != nil {
		abortError(c, http.StatusBadGateway, err)
		return
	}
	if granted {
		h.flush()
	}
	c.JSON(http.StatusOK, gin.H{"granted": granted})
}
