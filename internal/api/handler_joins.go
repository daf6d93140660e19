package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultJoinLimit = 20
	maxJoinLimit     = 100
)

// GetJoins lists the most recent auto-open actions, newest first.
func (h *Handler) GetJoins(c *gin.Context) {
	limit := defaultJoinLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxJoinLimit {
			badRequest(c, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	joins, err := h.store.ListJoins(c.Request.Context(), limit)
	if err != nil {
		abortError(c, http.StatusInternalServerError, err)
		return
	}
	c.JSON(http.StatusOK, joins)
}
