package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

var errPushDisabled = errors.New("web push is disabled: vapid keys are not configured")

// GetVAPIDPublicKey returns the application server key browsers subscribe with.
func (h *Handler) GetVAPIDPublicKey(c *gin.Context) {
	if h.webpush == nil || h.webpush.VAPIDPublicKey == "" {
		abortError(c, http.StatusServiceUnavailable, errPushDisabled)
		return
	}
	c.JSON(http.StatusOK, gin.H{"public_key": h.webpush.VAPIDPublicKey})
}
