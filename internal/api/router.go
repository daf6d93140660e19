package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"galopen/config"
	"galopen/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(d Deps, cfg config.ServerConfig) *gin.Engine {
	r := gin.New()
	r.Use(mw.Logger(logrus.WithField("component", "api")), gin.Recovery())

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(ttl, 2*ttl)
	handler := NewHandler(d, cacheStore)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateBurst)
	caching := mw.Cache(cacheStore, ttl)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/permission", handler.GetPermission)
		api.POST("/permission", handler.RequestPermission)

		api.GET("/calendars", caching, handler.GetCalendars)
		api.GET("/events", handler.GetEvents)
		api.POST("/sync", handler.PostSync)
		api.GET("/tray", handler.GetTray)

		api.GET("/settings", handler.GetSettings)
		api.PUT("/settings", handler.PutSettings)
		api.GET("/joins", handler.GetJoins)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
