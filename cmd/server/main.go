package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	config "github.com/meridian-social/meridian/configs"
	"github.com/meridian-social/meridian/internal/application/cache"
	"github.com/meridian-social/meridian/internal/core/ports"
	infraDB "github.com/meridian-social/meridian/internal/infrastructure/db"
	"github.com/meridian-social/meridian/internal/infrastructure/health"
	"github.com/meridian-social/meridian/internal/infrastructure/opsserver"
	infraRedis "github.com/meridian-social/meridian/internal/infrastructure/redis"
	"github.com/meridian-social/meridian/internal/infrastructure/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	// Setup logger
	logger := logrus.New()
	if cfg.Log.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}

	logger.WithFields(logrus.Fields{
		"run_id":  uuid.NewString(),
		"backend": cfg.Storage.Backend,
	}).Info("Starting meridian cache...")

	// Initialize the durable storage backend
	adapter, checkers, cleanup, err := buildStorage(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage backend:", err)
	}
	defer cleanup()

	if adapter != nil && cfg.Storage.BreakerEnabled {
		breakerCfg := storage.DefaultBreakerConfig("durable-storage")
		breakerCfg.MinRequests = uint32(cfg.Storage.BreakerMinRequests)
		breakerCfg.FailureThreshold = cfg.Storage.BreakerFailureThreshold
		breakerCfg.Timeout = cfg.Storage.BreakerTimeout
		adapter = storage.NewBreaker(adapter, breakerCfg, logger)
	}

	// Construct the caches; each hydrates its namespace eagerly.
	cacheCfg := cache.Config{
		OnlineTTL:  cfg.Cache.OnlineTTL,
		OfflineTTL: cfg.Cache.OfflineTTL,
	}
	ctx := context.Background()

	contentCache, err := cache.NewContentCache(ctx, cacheCfg, adapter, logger)
	if err != nil {
		logger.Fatal("Failed to build content cache:", err)
	}
	eventCache, err := cache.NewEventCache(ctx, cacheCfg, adapter, logger)
	if err != nil {
		logger.Fatal("Failed to build event cache:", err)
	}
	feedCache, err := cache.NewFeedCache(ctx, cacheCfg, adapter, eventCache, logger)
	if err != nil {
		logger.Fatal("Failed to build feed cache:", err)
	}
	threadCache, err := cache.NewThreadCache(ctx, cacheCfg, adapter, eventCache, logger)
	if err != nil {
		logger.Fatal("Failed to build thread cache:", err)
	}
	listCache, err := cache.NewListCache(ctx, cacheCfg, adapter, logger)
	if err != nil {
		logger.Fatal("Failed to build list cache:", err)
	}

	caches := []ports.CacheMaintenance{contentCache, eventCache, feedCache, threadCache, listCache}
	if cfg.Cache.SweepInterval > 0 {
		contentCache.StartSweeper(cfg.Cache.SweepInterval)
		eventCache.StartSweeper(cfg.Cache.SweepInterval)
		feedCache.StartSweeper(cfg.Cache.SweepInterval)
		threadCache.StartSweeper(cfg.Cache.SweepInterval)
		listCache.StartSweeper(cfg.Cache.SweepInterval)
	}

	closeCaches := func() {
		contentCache.Close()
		eventCache.Close()
		feedCache.Close()
		threadCache.Close()
		listCache.Close()
	}

	// Start the ops server (health + metrics)
	var ops *opsserver.Server
	if cfg.Ops.Enabled {
		ops = opsserver.NewServer(&opsserver.ServerConfig{
			Host:         cfg.Ops.Host,
			Port:         cfg.Ops.Port,
			ReadTimeout:  cfg.Ops.ReadTimeout,
			WriteTimeout: cfg.Ops.WriteTimeout,
			IdleTimeout:  cfg.Ops.IdleTimeout,
		}, logger, checkers, caches)

		go func() {
			if err := ops.Start(); err != nil {
				logger.Info("Ops server stopped:", err)
			}
		}()
	}

	logger.Info("meridian cache is running")

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down meridian cache...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if ops != nil {
		if err := ops.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Ops server shutdown error:", err)
		}
	}
	closeCaches()

	logger.Info("meridian cache stopped")
}

// buildStorage opens the configured durable backend and returns the adapter,
// its health checkers and a cleanup function. A "memory" backend keeps the
// cache ephemeral.
func buildStorage(cfg *config.Config, logger *logrus.Logger) (ports.StorageAdapter, []ports.HealthChecker, func(), error) {
	switch cfg.Storage.Backend {
	case "redis":
		client, err := infraRedis.NewRedisClient(&cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		adapter := infraRedis.NewStorage(client, cfg.Redis.KeyPrefix)
		checkers := []ports.HealthChecker{
			health.NewRedisHealthChecker(client),
			health.NewStorageHealthChecker(adapter),
		}
		return adapter, checkers, func() { _ = client.Close() }, nil

	case "postgres", "sqlite":
		cfg.Database.Driver = cfg.Storage.Backend
		database, err := infraDB.NewDatabase(&cfg.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := database.Migrate("./migrations"); err != nil {
			_ = database.Close()
			return nil, nil, nil, err
		}
		adapter := infraDB.NewStorage(database)
		checkers := []ports.HealthChecker{health.NewStorageHealthChecker(adapter)}
		return adapter, checkers, func() { _ = database.Close() }, nil

	case "memory":
		adapter := storage.NewMemory()
		checkers := []ports.HealthChecker{health.NewStorageHealthChecker(adapter)}
		return adapter, checkers, func() {}, nil

	default:
		logger.Warnf("Unknown storage backend %q, falling back to memory", cfg.Storage.Backend)
		adapter := storage.NewMemory()
		return adapter, []ports.HealthChecker{health.NewStorageHealthChecker(adapter)}, func() {}, nil
	}
}
