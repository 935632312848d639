package routes

import (
	"context"
	"net/http"
	"time"

	"offer-moderation/internal/handlers/admin"
	"offer-moderation/internal/handlers/driver"
	"offer-moderation/internal/middleware"
	"offer-moderation/pkg/logger"
	"offer-moderation/pkg/websocket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Logger             *logger.Logger
	AppVersion         string
	JWTSecret          string
	JWTIssuer          string
	CORSAllowedOrigins []string
	ModerationHandler  *admin.OfferModerationHandler
	OfferHandler       *driver.OfferHandler
	FeedHandler        *websocket.Handler
	HealthChecks       map[string]HealthCheck
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDiscard()
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSAllowedOrigins))

	auth := middleware.AuthRequired(cfg.JWTSecret, cfg.JWTIssuer)

	// API routes
	v1 := router.Group("/api/v1")
	{
		SetupAdminOfferRoutes(v1, auth, cfg.ModerationHandler, cfg.FeedHandler)
		SetupDriverOfferRoutes(v1, auth, cfg.OfferHandler)
	}

	router.GET("/health", healthHandler(cfg.AppVersion, cfg.HealthChecks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

func healthHandler(version string, checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{
			"status":       overall,
			"version":      version,
			"dependencies": results,
		})
	}
}
