package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/sanspareilsmyn/mongolens/internal/config"
	"github.com/sanspareilsmyn/mongolens/internal/logging"
	"github.com/sanspareilsmyn/mongolens/internal/store"
)

var (
	configFile = flag.String("config", "configs/config.dev.yaml", "Path to the configuration file")
	collection = flag.String("collection", "people", "Collection to seed")
	count      = flag.Int("count", 100, "Number of documents to insert")
	batchSize  = flag.Int("batch", 50, "Documents per insert")
	seed       = flag.Int64("seed", 0, "Random seed (0 means time-based)")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration from %s: %v\n", *configFile, err)
		os.Exit(1)
	}
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	cancel()

	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		logger.Info("Seeding cancelled")
	default:
		logger.Error("Seeding failed", zap.Error(err))
		_ = logging.Sync(logger)
		os.Exit(1)
	}
	_ = logging.Sync(logger)
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) (err error) {
	mongoStore := store.NewMongo(cfg.Mongo, logger.Named("mongo"))
	if err := mongoStore.Connect(ctx); err != nil {
		return err
	}
	defer func() {
		if derr := mongoStore.Disconnect(context.WithoutCancel(ctx)); derr != nil {
			err = errors.Join(err, derr)
		}
	}()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	s := seeder{
		store:      mongoStore,
		collection: *collection,
		batchSize:  *batchSize,
		rng:        rand.New(rand.NewSource(*seed)),
		logger:     logger,
	}

	logger.Sugar().Infow("Seeding collection",
		"database", cfg.Mongo.Database,
		"collection", *collection,
		"count", *count,
		"seed", *seed,
	)
	inserted, err := s.seed(ctx, *count, time.Now())
	logger.Info("Seeding finished", zap.Int("inserted", inserted))
	return err
}
