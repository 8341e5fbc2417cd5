package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fleveque/icon-service/internal/config"
	"github.com/fleveque/icon-service/internal/handler"
	"github.com/fleveque/icon-service/internal/middleware"
	"github.com/fleveque/icon-service/internal/service"
	"github.com/fleveque/icon-service/internal/storage"
)

// Deps are the application services the routes are built on.
type Deps struct {
	IconService *service.IconService
	LookupRepo  storage.LookupRepository
	LLMCallRepo storage.LLMCallRepository
}

// RegisterRoutes sets up all HTTP routes on the Gin engine.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	healthHandler := handler.NewHealthHandler()
	iconHandler := handler.NewIconHandler(deps.IconService, logger)
	adminHandler := handler.NewAdminHandler(deps.LookupRepo, deps.LLMCallRepo, logger)

	r.GET("/healthz", healthHandler.Healthz)

	api := r.Group("/api/v1")
	api.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	// Preflights end in the CORS middleware; this only gives them a route.
	api.OPTIONS("/*path", func(c *gin.Context) {})

	authed := api.Group("")
	authed.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	authed.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	{
		authed.GET("/icons", iconHandler.ListIcons)
		authed.GET("/icons/image", iconHandler.GetImage)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKeyAuth(cfg.Auth.AdminKeys))
	{
		admin.GET("/stats", adminHandler.Stats)
		admin.GET("/lookups", adminHandler.Lookups)
		admin.GET("/lookups/latest", adminHandler.LatestLookup)
	}
}
