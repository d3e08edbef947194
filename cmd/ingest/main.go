// Command ingest loads every *.txt observation file in a directory into the
// SQLite store, skipping records whose natural key is already present.
//
// Usage:
//
//	go run ./cmd/ingest -data wx_data -db weather.db
package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	kafkaadapter "github.com/couchcryptid/weather-stats-etl/internal/adapter/kafka"
	"github.com/couchcryptid/weather-stats-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/weather-stats-etl/internal/config"
	"github.com/couchcryptid/weather-stats-etl/internal/observability"
	"github.com/couchcryptid/weather-stats-etl/internal/pipeline"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	dataDir := flag.String("data", cfg.DataDir, "directory containing *.txt observation files")
	dbPath := flag.String("db", cfg.SQLitePath, "path of the SQLite database")
	flag.Parse()

	logger := observability.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if code := run(ctx, cfg, *dataDir, *dbPath, logger); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, cfg *config.Config, dataDir, dbPath string, logger *slog.Logger) int {
	paths, err := pipeline.DiscoverFiles(dataDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Error("source directory does not exist, nothing to ingest", "data_dir", dataDir)
			return 0
		}
		logger.Error("failed to list source files", "error", err)
		return 1
	}

	store, err := sqlite.Open(ctx, dbPath, sqlite.Options{MaxOpenConns: cfg.DBMaxOpenConns}, logger)
	if err != nil {
		logger.Error("failed to open store", "db", dbPath, "error", err)
		return 1
	}
	defer store.Close()

	opts := []pipeline.Option{pipeline.WithCommitMode(cfg.CommitMode)}
	if cfg.KafkaEnabled {
		pub := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		opts = append(opts, pipeline.WithObservationPublisher(pub))
	}

	ing := pipeline.NewIngester(store, logger, observability.NewMetrics(), opts...)
	res, err := ing.Run(ctx, paths)
	if err != nil {
		logger.Error("ingestion failed", "error", err, "committed", res.Committed)
		return 1
	}
	logger.Info("ingested records", "count", res.Accepted, "committed", res.Committed)
	return 0
}
