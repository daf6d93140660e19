package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"galopen/internal/model"
	"galopen/internal/store"
)

type eventsResponse struct {
	Events   []model.CalendarEvent `json:"events"`
	SyncedAt *time.Time            `json:"synced_at"`
	Version  uint64                `json:"version"`
}

func newEventsResponse(snap store.Snapshot, calendarIDs []string) eventsResponse {
	events := snap.Events
	if len(calendarIDs) > 0 {
		keep := make(map[string]struct{}, len(calendarIDs))
		for _, id := range calendarIDs {
			keep[id] = struct{}{}
		}
		events = make([]model.CalendarEvent, 0, len(snap.Events))
		for _, ev := range snap.Events {
			if _, ok := keep[ev.CalendarID]; ok {
				events = append(events, ev)
			}
		}
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}

	resp := eventsResponse{Events: events, Version: snap.Version}
	if !snap.SyncedAt.IsZero() {
		syncedAt := snap.SyncedAt
		resp.SyncedAt = &syncedAt
	}
	return resp
}

// GetEvents returns the current snapshot, optionally filtered by calendar_id.
// It never triggers a sync.
func (h *Handler) GetEvents(c *gin.Context) {
	c.JSON(http.StatusOK, newEventsResponse(h.syncer.Snapshot(), c.QueryArray("calendar_id")))
}

// PostSync resynchronizes now and returns the new snapshot.
func (h *Handler) PostSync(c *gin.Context) {
	snap, err := h.syncer.Sync(c.Request.Context())
	if err != nil {
		abortError(c, http.StatusBadGateway, err)
		return
	}
	h.flush()
	c.JSON(http.StatusOK, newEventsResponse(snap, c.QueryArray("calendar_id")))
}
