package api

import (
	"context"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"

	"galopen/internal/model"
	"galopen/internal/store"
	"galopen/internal/tray"
)

// Calendar is the part of the calendar gateway the API exposes.
type Calendar interface {
	CheckPermission(ctx context.Context) (model.Permission, error)
	RequestPermission(ctx context.Context) (bool, error)
	ListCalendars(ctx context.Context) ([]model.CalendarInfo, error)
}

// Syncer triggers and reads event snapshots.
type Syncer interface {
	Sync(ctx context.Context) (store.Snapshot, error)
	Snapshot() store.Snapshot
}

// TrayState reads the current indicator label.
type TrayState interface {
	State() tray.State
}

// Autostart toggles start at login.
type Autostart interface {
	Apply(enabled bool) error
}

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Calendar  Calendar
	Syncer    Syncer
	Store     store.Store
	Tray      TrayState
	Autostart Autostart
	WebPush   *webpush.Options
	Defaults  model.Settings
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	calendar  Calendar
	syncer    Syncer
	store     store.Store
	tray      TrayState
	autostart Autostart
	webpush   *webpush.Options
	defaults  model.Settings
	cache     *cache.Cache
}

// NewHandler creates a new API handler. c may be nil when responses are not cached.
func NewHandler(d Deps, c *cache.Cache) *Handler {
	return &Handler{
		calendar:  d.Calendar,
		syncer:    d.Syncer,
		store:     d.Store,
		tray:      d.Tray,
		autostart: d.Autostart,
		webpush:   d.WebPush,
		defaults:  d.Defaults,
		cache:     c,
	}
}

// flush drops cached responses after calendar data or access changed.
func (h *Handler) flush() {
	if h.cache != nil {
		h.cache.Flush()
	}
}

func abortError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
