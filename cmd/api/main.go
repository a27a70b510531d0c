package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/facilityfinder/backend/internal/api/handlers"
	"github.com/zatekoja/facilityfinder/backend/internal/api/middleware"
	"github.com/zatekoja/facilityfinder/backend/internal/api/routes"
	"github.com/zatekoja/facilityfinder/backend/internal/application/seeddata"
	"github.com/zatekoja/facilityfinder/backend/internal/application/services"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/backends"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/observability"
	"github.com/zatekoja/facilityfinder/backend/internal/query/adapters"
	queryservices "github.com/zatekoja/facilityfinder/backend/internal/query/services"
	"github.com/zatekoja/facilityfinder/backend/pkg/auth"
	"github.com/zatekoja/facilityfinder/backend/pkg/config"
)

func main() {
	// A missing .env file is fine; the environment wins either way
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("facility API exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment, cfg.LogLevel)
	logger := observability.GetLogger()

	// Set up context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize OpenTelemetry tracing if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdownTracing, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to set up OpenTelemetry tracing")
		} else {
			defer shutdownWithTimeout("tracing", shutdownTracing)
			logger.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry tracing initialized")
		}
	}

	shutdownMetrics, err := observability.SetupMetrics(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to set up metrics exporter")
	} else {
		defer shutdownWithTimeout("metrics", shutdownMetrics)
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Catalog store
	store, closeStore, err := backends.OpenCatalog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s facility store: %w", cfg.Store.Driver, err)
	}
	defer shutdownWithTimeout("store", closeStore)

	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to ensure facility indexes")
	}

	// The memory store starts empty, so load the bundled dataset into it
	if cfg.Store.Driver == "memory" {
		dataset, err := seeddata.Load(cfg.Seed.File)
		if err != nil {
			return fmt.Errorf("failed to load seed dataset: %w", err)
		}
		if _, err := services.NewCatalogSeedService(store, nil, cfg.Seed.BatchSize).Seed(ctx, dataset); err != nil {
			return fmt.Errorf("failed to seed in-memory store: %w", err)
		}
	}

	// Cache is optional; a broken cache degrades to store reads
	cacheProvider, closeCache, err := backends.OpenCache(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Str("driver", cfg.Cache.Driver).Msg("cache unavailable; serving from the store only")
		cacheProvider, closeCache = nil, nil
	}
	if closeCache != nil {
		defer shutdownWithTimeout("cache", closeCache)
	}

	var queryCache queryservices.QueryCache
	var cachePinger handlers.Pinger
	if cacheProvider != nil {
		queryCache = adapters.NewQueryCacheAdapter(cacheProvider)
		cachePinger = cacheProvider
	}

	queries := queryservices.NewFacilityQueryService(store, queryCache, cfg.Query, queryservices.WithMetrics(metrics))

	if cacheProvider != nil && cfg.Cache.WarmInterval > 0 {
		warming := services.NewCacheWarmingService(queries, cfg.Cache.WarmPages)
		warming.StartPeriodicWarming(ctx, cfg.Cache.WarmInterval)
	}

	tokens, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	if len(cfg.Auth.Clients) == 0 {
		logger.Warn().Msg("AUTH_CLIENTS is empty; no client can obtain a token")
	}

	var routerOpts []routes.Option
	if cfg.RateLimit.Enabled {
		limiter, err := middleware.NewRateLimiter(cfg.RateLimit, metrics)
		if err != nil {
			return fmt.Errorf("failed to initialize rate limiter: %w", err)
		}
		routerOpts = append(routerOpts, routes.WithRateLimiter(limiter))
	}

	router := routes.NewRouter(
		handlers.NewFacilityHandler(queries),
		handlers.NewAuthHandler(tokens),
		handlers.NewHealthHandler(store, cachePinger),
		tokens,
		cfg.Server.AllowedOrigins,
		metrics,
		routerOpts...,
	)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.SetupRoutes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", server.Addr).
			Str("store", cfg.Store.Driver).
			Str("cache", cfg.Cache.Driver).
			Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("server shutting down")
	case runErr = <-serverErr:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("error during server shutdown")
	}

	logger.Info().Msg("server stopped")
	return runErr
}

func shutdownWithTimeout(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error().Err(err).Str("component", name).Msg("shutdown failed")
	}
}
