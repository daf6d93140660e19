package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

type putSettingsRequest struct {
	MinutesBefore        *int  `json:"minutes_before"`
	TrayCountdownMinutes *int  `json:"tray_countdown_minutes"`
	StartAtLogin         *bool `json:"start_at_login"`
}

// GetSettings returns the saved settings or the configured defaults.
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.store.GetSettings(c.Request.Context(), h.defaults)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

// PutSettings applies a partial update. Omitted fields keep their value.
func (h *Handler) PutSettings(c *gin.Context) {
	var req putSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request")
		return
	}
	if req.MinutesBefore != nil && *req.MinutesBefore < 0 {
		badRequest(c, "minutes_before must not be negative")
		return
	}
	if req.TrayCountdownMinutes != nil && *req.TrayCountdownMinutes < 0 {
		badRequest(c, "tray_countdown_minutes must not be negative")
		return
	}

	ctx := c.Request.Context()
	settings, err := h.store.GetSettings(ctx, h.defaults)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}

	if req.MinutesBefore != nil {
		settings.MinutesBefore = *req.MinutesBefore
	}
	if req.TrayCountdownMinutes != nil {
		settings.TrayCountdownMinutes = *req.TrayCountdownMinutes
	}
	if req.StartAtLogin != nil && *req.StartAtLogin != settings.StartAtLogin {
		if h.autostart != nil {
			if err := h.autostart.Apply(*req.StartAtLogin); err != nil {
				abortError(c, http.StatusInternalServerError, fmt.Errorf("failed to update start at login: %w", err))
				return
			}
		}
		settings.StartAtLogin = *req.StartAtLogin
	}

	saved, err := h.store.SaveSettings(ctx, settings)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}
