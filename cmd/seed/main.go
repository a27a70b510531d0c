package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/zatekoja/facilityfinder/backend/internal/application/seeddata"
	"github.com/zatekoja/facilityfinder/backend/internal/application/services"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/backends"
	"github.com/zatekoja/facilityfinder/backend/internal/infrastructure/observability"
	"github.com/zatekoja/facilityfinder/backend/pkg/config"
)

func main() {
	file := flag.String("file", "", "JSON dataset to load (defaults to SEED_FILE, then the bundled dataset)")
	flushCache := flag.Bool("flush-cache", true, "delete cached facility pages after seeding")
	batchSize := flag.Int("batch-size", 0, "facilities per insert (defaults to SEED_BATCH_SIZE)")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall seeding timeout")
	flag.Parse()

	_ = godotenv.Load()

	if err := run(*file, *flushCache, *batchSize, *timeout); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
}

func run(file string, flushCache bool, batchSize int, timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-seed", cfg.Environment, cfg.LogLevel)
	logger := observability.GetLogger()

	if cfg.Store.Driver == "memory" {
		return fmt.Errorf("STORE_DRIVER=memory has nothing to seed; the API loads the dataset at startup")
	}
	if file == "" {
		file = cfg.Seed.File
	}
	if batchSize < 1 {
		batchSize = cfg.Seed.BatchSize
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	dataset, err := seeddata.Load(file)
	if err != nil {
		return err
	}
	logger.Info().Int("facilities", len(dataset)).Str("file", file).Msg("loaded seed dataset")

	store, closeStore, err := backends.OpenCatalog(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open %s facility store: %w", cfg.Store.Driver, err)
	}
	defer closeStore(context.Background())

	var invalidator *services.CacheInvalidationService
	if flushCache && cfg.Cache.Driver == "redis" {
		cacheProvider, closeCache, err := backends.OpenCache(ctx, cfg)
		if err != nil {
			logger.Warn().Err(err).Msg("cache unavailable; cached pages will expire on their own")
		} else {
			defer closeCache(context.Background())
			invalidator = services.NewCacheInvalidationService(cacheProvider)
		}
	}

	report, err := services.NewCatalogSeedService(store, invalidator, batchSize).Seed(ctx, dataset)
	if err != nil {
		return err
	}

	fmt.Printf("seeded %d facilities in %d batches (replaced %d, flushed %d cached entries) in %s\n",
		report.Inserted, report.Batches, report.Deleted, report.CacheFlushed, report.Duration.Round(time.Millisecond))
	return nil
}
