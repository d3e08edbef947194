// Command api serves the read-only weather query API backed by the SQLite
// store, plus /healthz, /readyz and /metrics. When SCHEDULE_INTERVAL is set it
// also runs ingest followed by aggregate on that interval.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/weather-stats-etl/internal/adapter/http"
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
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(ctx, *dbPath, sqlite.Options{MaxOpenConns: cfg.DBMaxOpenConns}, logger)
	if err != nil {
		logger.Error("failed to open store", "db", *dbPath, "error", err)
		os.Exit(1)
	}

	var (
		sched *pipeline.Scheduler
		pub   *kafkaadapter.Publisher
	)
	if cfg.ScheduleInterval > 0 {
		ingestOpts := []pipeline.Option{pipeline.WithCommitMode(cfg.CommitMode)}
		var aggOpts []pipeline.Option
		if cfg.KafkaEnabled {
			pub = kafkaadapter.NewPublisher(cfg, logger)
			ingestOpts = append(ingestOpts, pipeline.WithObservationPublisher(pub))
			aggOpts = append(aggOpts, pipeline.WithStatPublisher(pub))
		}
		ing := pipeline.NewIngester(store, logger, metrics, ingestOpts...)
		agg := pipeline.NewAggregator(store, logger, metrics, aggOpts...)

		sched = pipeline.NewScheduler(cfg.ScheduleInterval, func(ctx context.Context) error {
			paths, err := pipeline.DiscoverFiles(cfg.DataDir)
			if err != nil {
				return fmt.Errorf("discover files: %w", err)
			}
			if _, err := ing.Run(ctx, paths); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			if _, err := agg.Run(ctx); err != nil {
				return fmt.Errorf("aggregate: %w", err)
			}
			return nil
		}, logger)
		if err := sched.Start(ctx); err != nil {
			logger.Error("failed to start scheduler", "error", err)
			os.Exit(1)
		}
	}

	ready := httpadapter.ReadinessCheckers{store}
	if sched != nil {
		ready = append(ready, sched)
	}
	srv := httpadapter.NewServer(cfg.HTTPAddr, store, ready, httpadapter.PageSizes{
		Observations: cfg.ObservationsPageSize,
		Stats:        cfg.StatsPageSize,
	}, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if sched != nil {
		sched.Stop()
	}
	if pub != nil {
		if err := pub.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
