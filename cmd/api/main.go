package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grocerygenius-api/internal/cache"
	"grocerygenius-api/internal/catalog"
	"grocerygenius-api/internal/config"
	"grocerygenius-api/internal/flipp"
	"grocerygenius-api/internal/handler"
	"grocerygenius-api/internal/intent"
	"grocerygenius-api/internal/logging"
	"grocerygenius-api/internal/middleware"
	"grocerygenius-api/internal/repository"
	"grocerygenius-api/internal/router"
	"grocerygenius-api/internal/service"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.MustLoad()
	logging.Setup(cfg.App.Environment, cfg.App.LogLevel)

	log := logrus.WithField("component", "main")
	log.WithFields(logrus.Fields{
		"environment": cfg.App.Environment,
		"version":     cfg.App.Version,
	}).Info("Starting GroceryGenius API")

	repo, err := repository.Open(cfg.Database.Type, cfg.Database.DSN())
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer repo.Close()
	log.WithField("db_type", repo.Dialect()).Info("Deal repository initialized")

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		log.WithError(err).Fatal("Failed to load catalog")
	}

	storeService := service.NewStoreService(repo, cat)
	if cfg.Catalog.SeedStores {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if _, err := storeService.Seed(ctx); err != nil {
			log.WithError(err).Fatal("Failed to seed stores")
		}
		cancel()
	}

	queryCache, locker, closeCache := openCache(cfg.Cache)
	defer closeCache()
	cacheType := "memory"
	if _, ok := queryCache.(*cache.RedisCache); ok {
		cacheType = "redis"
	}

	flippClient := flipp.NewClient(flipp.Config{
		BaseURL:           cfg.Upstream.BaseURL,
		Locale:            cfg.Upstream.Locale,
		UserAgent:         cfg.Upstream.UserAgent,
		Timeout:           cfg.Upstream.Timeout,
		RequestsPerSecond: cfg.Upstream.RequestsPerSecond,
		Burst:             cfg.Upstream.Burst,
	}, nil)

	syncService := service.NewSyncService(repo, flippClient, cat, queryCache, locker, service.SyncConfig{
		ZipCode:     cfg.Sync.ZipCode,
		Concurrency: cfg.Sync.Concurrency,
		BatchSize:   cfg.Sync.BatchSize,
		LockTTL:     cfg.Sync.LockTTL,
	})
	dealService := service.NewDealService(repo, queryCache, cfg.Cache.TTL)

	var provider intent.Provider
	if cfg.Intent.APIKey != "" {
		provider = intent.NewOpenAIProvider(intent.OpenAIConfig{
			APIKey:  cfg.Intent.APIKey,
			BaseURL: cfg.Intent.BaseURL,
			Model:   cfg.Intent.Model,
			Timeout: cfg.Intent.Timeout,
		}, nil)
		log.WithField("model", cfg.Intent.Model).Info("Intent provider configured")
	} else {
		log.Info("OPENAI_API_KEY not set, intent parsing uses keyword fallback")
	}
	interpreter := intent.NewInterpreter(provider)

	// Background jobs
	var schedulers []*service.Scheduler
	if cfg.Sync.Interval > 0 {
		syncScheduler := service.NewScheduler(service.SchedulerConfig{
			Name:     "sync",
			Interval: cfg.Sync.Interval,
			Timeout:  cfg.Sync.Timeout,
		}, func(ctx context.Context) error {
			_, err := syncService.Sync(ctx, "")
			return err
		})
		syncScheduler.Start()
		schedulers = append(schedulers, syncScheduler)
	}
	if cfg.Sync.CleanupInterval > 0 {
		cleanupScheduler := service.NewScheduler(service.SchedulerConfig{
			Name:         "cleanup",
			Interval:     cfg.Sync.CleanupInterval,
			InitialDelay: time.Minute,
			Timeout:      time.Minute,
		}, func(ctx context.Context) error {
			_, err := syncService.PurgeExpired(ctx)
			return err
		})
		cleanupScheduler.Start()
		schedulers = append(schedulers, cleanupScheduler)
	}

	secret := middleware.SecretConfig{CronSecret: cfg.Sync.CronSecret, ServiceKey: cfg.Sync.ServiceKey}
	if !secret.Enabled() {
		log.Warn("CRON_SECRET not set, sync and admin routes are unauthenticated")
	}

	intentLimiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.Intent.RatePerMin), cfg.Intent.RateBurst)
	defer intentLimiter.Close()

	// Initialize handlers
	healthHandler := handler.New(cfg.App.Name, cfg.App.Version).
		AddCheck("database", repo).
		AddCheck("cache", queryCache)

	var docsHandler *handler.DocsHandler
	if cfg.Docs.Enabled {
		docsHandler = handler.NewDocsHandler(cfg.Docs.SpecDir, "GroceryGenius API")
	}

	r := router.New(router.Config{
		Handler:          healthHandler,
		SyncHandler:      handler.NewSyncHandler(syncService, flippClient, cfg.Sync.Timeout),
		DealHandler:      handler.NewDealHandler(dealService),
		StoreHandler:     handler.NewStoreHandler(storeService),
		IntentHandler:    handler.NewIntentHandler(interpreter),
		AdminHandler:     handler.NewAdminHandler(storeService, syncService, repo.Dialect(), cacheType),
		DocsHandler:      docsHandler,
		SecretMiddleware: middleware.RequireSecret(secret),
		IntentLimiter:    intentLimiter.Middleware,
		AllowedOrigins:   cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.WithField("addr", cfg.Server.Address()).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("Server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	for _, s := range schedulers {
		s.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("Server shutdown error")
	}

	log.Info("Server stopped")
}

// openCache falls back to the in-process cache and locker when Redis is
// configured but unreachable.
func openCache(cfg config.CacheConfig) (cache.Cache, cache.Locker, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return cache.Open(ctx, cache.Options{
		Type:       cfg.Type,
		Redis:      cache.RedisConfig{Addr: cfg.RedisAddress(), Password: cfg.RedisPassword, DB: cfg.RedisDB},
		Prefix:     cfg.RedisPrefix,
		MaxEntries: cfg.MaxEntries,
	})
}
