package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"habitat-backend/config"
	"habitat-backend/internal/engine"
	"habitat-backend/internal/habitat"
	"habitat-backend/internal/mw"
	"habitat-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, manager *habitat.Manager, eng *engine.Engine, s store.Store, webpushOptions *webpush.Options) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(manager, eng, s, webpushOptions)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/habitats/:tenant_id", handler.GetHabitat)
		api.GET("/habitats/:tenant_id/statistics", caching, handler.GetStatistics)
		api.POST("/habitats/:tenant_id/zones/:zone/entities", handler.AdmitEntity)
		api.POST("/habitats/:tenant_id/entities/:entity_id/feed", handler.FeedEntity)
		api.POST("/habitats/:tenant_id/hunger", handler.SetHunger)

		api.GET("/subscriptions", handler.GetSubscription)
		api.PUT("/subscriptions", handler.PutSubscription)
		api.DELETE("/subscriptions", handler.DeleteSubscription)
		api.GET("/vapid_public_key", handler.GetVAPIDPublicKey)
	}

	return r
}
