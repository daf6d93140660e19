package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetCalendars lists the calendars sorted by source then title.
func (h *Handler) GetCalendars(c *gin.Context) {
	calendars, err := h.calendar.ListCalendars(c.Request.Context())
	if err != nil {
		abortError(c, http.StatusBadGateway, err)
		return
	}
	c.JSON(http.StatusOK, calendars)
}
