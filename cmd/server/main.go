package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cache-countdown-api/internal/auth"
	"cache-countdown-api/internal/cache"
	"cache-countdown-api/internal/config"
	"cache-countdown-api/internal/database"
	"cache-countdown-api/internal/handlers"
	"cache-countdown-api/internal/models"
	"cache-countdown-api/internal/realtime"
	"cache-countdown-api/internal/routes"
	"cache-countdown-api/internal/telemetry"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

const serviceName = "cache-countdown-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger, err := newLogger(cfg.LogMode)
	if err != nil {
		log.Fatal("Failed to create logger: ", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := auth.Configure(auth.Settings{
		Secret:            cfg.Auth.JWTSecret,
		Issuer:            cfg.Auth.JWTIssuer,
		Audience:          cfg.Auth.JWTAudience,
		TokenTTL:          cfg.Auth.TokenTTL,
		AdminUsername:     cfg.Auth.AdminUsername,
		AdminPasswordHash: cfg.Auth.AdminPasswordHash,
	}); err != nil {
		logger.Fatal("invalid auth settings", zap.Error(err))
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTELEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flush traces", zap.Error(err))
		}
	}()

	storage, closeStorage, err := newStorage(cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	hub := realtime.NewHub()
	stats := &handlers.Stats{}
	opts := []cache.Option{
		cache.WithLogger(logger.Named("cache")),
		cache.WithMetrics(stats),
		cache.WithTickInterval(cfg.TickInterval),
		cache.WithEvictionListener(handlers.BroadcastEvictions(hub, logger.Named("realtime"))),
	}
	if cfg.InFlightDedup {
		opts = append(opts, cache.WithInFlightDedup())
	}
	coordinator := cache.NewCoordinator[models.Snapshot](storage, opts...)
	// Lifetimes live in memory only, so rows left by a previous process
	// would never expire.
	if err := coordinator.ClearAll(ctx); err != nil {
		return fmt.Errorf("reset cache: %w", err)
	}

	h := handlers.NewCacheHandler(coordinator, hub, stats, cfg.DefaultTTL, cfg.TickInterval, logger.Named("http"))

	if cfg.LogMode != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           routes.SetupRoutes(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage),
			zap.Duration("default_ttl", cfg.DefaultTTL),
			zap.Duration("tick_interval", cfg.TickInterval))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := coordinator.ClearAll(shutdownCtx); err != nil {
		logger.Warn("clear cache", zap.Error(err))
	}
	return nil
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newStorage builds the configured backend and a function releasing it.
func newStorage(cfg config.Config) (cache.Storage[models.Snapshot], func(), error) {
	switch cfg.Storage {
	case config.StorageTTLCache:
		return cache.NewTTLCacheStorage[models.Snapshot](cfg.Capacity), func() {}, nil
	case config.StorageSQLite:
		level := gormlogger.Warn
		if cfg.LogMode == "development" {
			level = gormlogger.Info
		}
		db, err := database.Open(cfg.DBPath, level)
		if err != nil {
			return nil, nil, err
		}
		closeDB := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		return database.NewStorage[models.Snapshot](db, "snapshots"), closeDB, nil
	default:
		return cache.NewMemoryStorage[models.Snapshot](cache.Options{ConcurrencySafe: true}), func() {}, nil
	}
}
