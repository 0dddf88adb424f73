package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/aidosgk/kaspi-orders-backend/api/routes"
	"github.com/aidosgk/kaspi-orders-backend/internal/analytics"
	"github.com/aidosgk/kaspi-orders-backend/internal/inventory"
	"github.com/aidosgk/kaspi-orders-backend/internal/kaspi"
	"github.com/aidosgk/kaspi-orders-backend/internal/profit"
	"github.com/aidosgk/kaspi-orders-backend/internal/settings"
	"github.com/aidosgk/kaspi-orders-backend/pkg/config"
	"github.com/aidosgk/kaspi-orders-backend/pkg/db"
	"github.com/aidosgk/kaspi-orders-backend/pkg/logger"
	"github.com/aidosgk/kaspi-orders-backend/pkg/metrics"
	"github.com/aidosgk/kaspi-orders-backend/pkg/migrate"
	"github.com/aidosgk/kaspi-orders-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	upstreamMetrics := metrics.NewUpstreamMetrics(registry)

	kaspiClient, err := kaspi.NewClient(cfg.Kaspi, logg, upstreamMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create kaspi client", err)
		os.Exit(1)
	}

	settingsService, err := settings.NewService(settings.NewRepository(dbClient), redisClient, cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create settings service", err)
		os.Exit(1)
	}

	aggregateCache := analytics.NewRedisCache(redisClient, cfg.Cache.TTL, logg)
	analyticsService, err := analytics.NewService(kaspiClient, settingsService, aggregateCache, analytics.Options{
		Currency:      cfg.App.Currency,
		AmountDivisor: float64(cfg.Kaspi.AmountDivisor),
	}, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create analytics service", err)
		os.Exit(1)
	}

	inventoryService, err := inventory.NewService(dbClient, inventory.NewRepository(dbClient.DB()), logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory service", err)
		os.Exit(1)
	}

	profitService, err := profit.NewService(
		profit.NewRepository(dbClient.DB()),
		kaspiClient,
		analyticsService,
		inventoryService,
		settingsService,
		redisClient,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create profit service", err)
		os.Exit(1)
	}

	salesCounter, err := inventory.NewSalesCounter(analyticsService, kaspiClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales counter", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:         addr,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			registry,
			settingsService,
			analyticsService,
			profitService,
			inventoryService,
			salesCounter,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		timeoutCtx, cancel := context.WithTimeout(context.Background(), cfg.API.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(timeoutCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
