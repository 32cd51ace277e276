package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"downtime-tracker-backend/config"
	"downtime-tracker-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	actor := mw.Actor([]byte(cfg.Auth.JWTSecret))

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.GET("/departments", caching, handler.GetDepartments)
		api.GET("/departments/:code/equipment", caching, handler.GetDepartmentEquipment)

		api.GET("/equipment/:id/logs", handler.GetEquipmentLogs)
		api.POST("/equipment/:id/status", actor, handler.PostStatusChange)

		api.GET("/reports", caching, handler.GetReport)
		api.GET("/reports/export", handler.ExportReport)
	}

	return r
}
