package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"offer-moderation/internal/config"
	"offer-moderation/internal/handlers/admin"
	"offer-moderation/internal/handlers/driver"
	"offer-moderation/internal/repositories/interfaces"
	"offer-moderation/internal/repositories/memory"
	"offer-moderation/internal/repositories/mongodb"
	"offer-moderation/internal/services"
	"offer-moderation/pkg/cache"
	"offer-moderation/pkg/database"
	"offer-moderation/pkg/logger"
	"offer-moderation/pkg/metrics"
	"offer-moderation/pkg/websocket"
	"offer-moderation/routes"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type store struct {
	offers interfaces.OfferRepository
	audit  interfaces.AuditLogRepository
	health routes.HealthCheck
	close  func() error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load config")
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:   logger.LogLevel(cfg.Logging.Level),
		Format:  cfg.Logging.Format,
		Output:  cfg.Logging.Output,
		Colors:  cfg.App.Debug,
		AppName: cfg.App.Name,
		Version: cfg.App.Version,
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialise logger")
	}

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to open offer store")
	}

	healthChecks := map[string]routes.HealthCheck{}
	if st.health != nil {
		healthChecks["database"] = st.health
	}

	var workers sync.WaitGroup
	startWorker := func(run func()) {
		workers.Add(1)
		go func() {
			defer workers.Done()
			run()
		}()
	}

	// Moderation feed
	hub := websocket.NewHub(appLogger.Entry())
	startWorker(func() { hub.Run(ctx) })

	var publisher services.EventPublisher = services.NewHubEventPublisher(hub)
	var redisCache *cache.RedisCache
	if cfg.Redis.Enabled {
		redisCache, err = cache.NewRedisCache(&cache.RedisConfig{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			appLogger.WithError(err).Warn("Redis unavailable, moderation events stay local to this instance")
		} else {
			publisher = services.NewRedisEventPublisher(redisCache, cfg.Moderation.EventChannel)
			healthChecks["redis"] = redisCache.Ping
			startWorker(func() {
				if err := services.RelayModerationEvents(ctx, redisCache, cfg.Moderation.EventChannel, hub, appLogger); err != nil {
					appLogger.WithError(err).Error("Moderation event relay failed")
				}
			})
		}
	}

	// Services
	locks := services.NewOfferLocks()
	auditTrail := services.NewAuditTrail(st.audit, appLogger, services.AuditRetryConfigFrom(cfg.Moderation))
	// Stopped only after in-flight requests drain so their failed appends
	// still reach the final flush.
	auditCtx, stopAudit := context.WithCancel(context.Background())
	defer stopAudit()
	startWorker(func() { auditTrail.Run(auditCtx) })

	moderationService := services.NewModerationService(st.offers, auditTrail, publisher, locks, appLogger)
	statisticsService := services.NewStatisticsService(st.offers)
	offerService := services.NewOfferService(st.offers, auditTrail, publisher, locks, appLogger, cfg.App.Currency)

	// Initialize handlers
	var feedHandler *websocket.Handler
	if cfg.WebSocket.Enabled {
		feedHandler = websocket.NewHandler(hub, cfg.WebSocket.AllowedOrigins)
	}

	router := routes.NewRouter(routes.RouterConfig{
		Logger:             appLogger,
		AppVersion:         cfg.App.Version,
		JWTSecret:          cfg.Security.JWTSecret,
		JWTIssuer:          cfg.Security.JWTIssuer,
		CORSAllowedOrigins: cfg.Security.CORSAllowedOrigins,
		ModerationHandler:  admin.NewOfferModerationHandler(moderationService, statisticsService, cfg.Moderation.AutoPublishDefault),
		OfferHandler:       driver.NewOfferHandler(offerService),
		FeedHandler:        feedHandler,
		HealthChecks:       healthChecks,
	})
	if len(cfg.Security.TrustedProxies) > 0 {
		if err := router.SetTrustedProxies(cfg.Security.TrustedProxies); err != nil {
			appLogger.WithError(err).Warn("Ignoring invalid trusted proxies")
		}
	}

	server := &http.Server{
		Addr:              cfg.App.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Infof("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Error("HTTP server stopped")
			stop()
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Warn("HTTP server shutdown incomplete")
	}

	// The audit worker flushes its queue before returning
	stopAudit()
	workers.Wait()

	if redisCache != nil {
		_ = redisCache.Close()
	}
	if err := st.close(); err != nil {
		appLogger.WithError(err).Warn("Failed to close offer store")
	}
	appLogger.Info("Server stopped")
}

func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		log.Warn("Using in-memory offer store, data is lost on restart")
		return &store{
			offers: memory.NewOfferRepository(),
			audit:  memory.NewAuditLogRepository(),
			close:  func() error { return nil },
		}, nil
	}

	db, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		return nil, err
	}

	if cfg.Database.RunMigrations {
		if err := database.NewMigrator(db.Database, log.Entry()).Up(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return &store{
		offers: mongodb.NewOfferRepository(db.Database),
		audit:  mongodb.NewAuditLogRepository(db.Database),
		health: db.Ping,
		close:  db.Close,
	}, nil
}
