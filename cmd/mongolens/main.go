package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sanspareilsmyn/mongolens/internal/config"
	"github.com/sanspareilsmyn/mongolens/internal/logging"
	"github.com/sanspareilsmyn/mongolens/internal/session"
	"github.com/sanspareilsmyn/mongolens/internal/store"
)

var (
	configFile = flag.String("config", "configs/config.dev.yaml", "Path to the configuration file")
	envFile    = flag.String("env", ".env", "Path to an optional dotenv file")
	mode       = flag.String("mode", modeStats, "One of: stats, field, cross, collections, storage, types, distribution, database, server, complete, watch, serve")
	collection = flag.String("collection", "", "Collection to analyse (stats: comma-separated list, empty means all)")
	field      = flag.String("field", "", "Field for field mode, first field for cross mode")
	fieldB     = flag.String("field-b", "", "Second field for cross mode")
	documentID = flag.String("document", "", "Restrict stats to one document id")
	fixture    = flag.String("fixture", "", "Read collections from a JSON fixture instead of MongoDB")
	outFile    = flag.String("out", "", "Write the result to a .json or .xlsx file instead of stdout")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "WARN: Failed to load %s: %v\n", *envFile, err)
	}

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
	defer func() {
		_ = logging.Sync(logger)
	}()

	sugar := logger.Sugar()
	sugar.Infow("Configuration loaded", "path", *configFile, "mode", *mode)

	connector, err := newConnector(cfg, logger)
	if err != nil {
		sugar.Fatalw("Failed to prepare document store", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cmd := command{
		cfg:        cfg,
		logger:     logger,
		mode:       *mode,
		collection: *collection,
		field:      *field,
		fieldB:     *fieldB,
		documentID: *documentID,
		outFile:    *outFile,
		stdout:     os.Stdout,
	}
	runErr := session.Run(ctx, connector, logger, cmd.run)

	finalLevel := zapcore.InfoLevel
	reason := "gracefully"
	errField := zap.Skip()
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		reason = "on signal"
	default:
		finalLevel = zapcore.ErrorLevel
		reason = "due to error"
		errField = zap.Error(runErr)
	}
	logger.Log(finalLevel, fmt.Sprintf("MongoLens finished %s.", reason), zap.String("mode", *mode), errField)

	if finalLevel >= zapcore.ErrorLevel {
		_ = logging.Sync(logger)
		os.Exit(1)
	}
}

func newConnector(cfg *config.Config, logger *zap.Logger) (store.Connector, error) {
	if *fixture == "" {
		return store.NewMongo(cfg.Mongo, logger.Named("mongo")), nil
	}

	data, err := os.ReadFile(*fixture)
	if err != nil {
		return nil, err
	}
	mem := store.NewMemory(cfg.Mongo.Database)
	if err := mem.LoadJSON(data); err != nil {
		return nil, err
	}
	logger.Info("Using fixture instead of MongoDB", zap.String("path", *fixture))
	return mem, nil
}
