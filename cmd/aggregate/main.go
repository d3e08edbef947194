// Command aggregate computes yearly statistics over every stored observation
// and appends one row per year. Re-running appends again.
//
// Usage:
//
//	go run ./cmd/aggregate -db weather.db
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
	dbPath := flag.String("db", cfg.SQLitePath, "path of the SQLite database")
	flag.Parse()

	logger := observability.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if code := run(ctx, cfg, *dbPath, observability.NewMetrics(), logger); code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, cfg *config.Config, dbPath string, metrics *observability.Metrics, logger *slog.Logger) int {
	store, err := sqlite.Open(ctx, dbPath, sqlite.Options{MaxOpenConns: cfg.DBMaxOpenConns}, logger)
	if err != nil {
		logger.Error("failed to open store", "db", dbPath, "error", err)
		return 1
	}
	defer store.Close()

	var opts []pipeline.Option
	if cfg.KafkaEnabled {
		pub := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Error("kafka publisher close error", "error", err)
			}
		}()
		opts = append(opts, pipeline.WithStatPublisher(pub))
	}

	stats, err := pipeline.NewAggregator(store, logger, metrics, opts...).Run(ctx)
	if err != nil {
		logger.Error("aggregation failed", "error", err, "appended", len(stats))
		return 1
	}
	for _, s := range stats {
		logger.Info("yearly stat appended",
			"year", s.Year,
			"avg_max_temp", s.AvgMaxTemp,
			"avg_min_temp", s.AvgMinTemp,
			"total_precipitation", s.TotalPrecipitation,
		)
	}
	return 0
}
