package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"slotwatch-backend/config"
	"slotwatch-backend/internal/history"
	"slotwatch-backend/internal/metrics"
	"slotwatch-backend/internal/mw"
	"slotwatch-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.ServerConfig, hist *history.Store, s store.Store, webpushOptions *webpush.Options, m *metrics.Metrics) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(hist, s, webpushOptions)

	limit := rate.Limit(cfg.RateLimitPerSec)
	if limit <= 0 {
		limit = rate.Limit(10)
	}
	burst := cfg.RateLimitBurst
	if burst <= 0 {
		burst = 5
	}
	rateLimiter := mw.RateLimiter(limit, burst)

	ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = time.Minute
	}
	cacheStore := cache.New(ttl, 2*ttl)
	caching := mw.Cache(cacheStore, ttl)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/status", handler.GetStatus)
		api.GET("/slots", caching, handler.GetSlots)
		api.GET("/checks", caching, handler.GetChecks)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	return r
}
