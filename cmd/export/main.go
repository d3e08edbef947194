// Command export writes observations.parquet and yearly_stats.parquet from
// the SQLite store into an output directory.
//
// Usage:
//
//	go run ./cmd/export -db weather.db -out export
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

	"github.com/couchcryptid/weather-stats-etl/internal/adapter/parquet"
	"github.com/couchcryptid/weather-stats-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/weather-stats-etl/internal/config"
	"github.com/couchcryptid/weather-stats-etl/internal/observability"
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
	outDir := flag.String("out", cfg.ExportDir, "directory to write Parquet files into")
	compression := flag.String("compression", cfg.ExportCompression, "snappy, zstd, lz4, gzip or none")
	flag.Parse()

	logger := observability.NewLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.Open(ctx, *dbPath, sqlite.Options{MaxOpenConns: cfg.DBMaxOpenConns}, logger)
	if err != nil {
		logger.Error("failed to open store", "db", *dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if _, err := parquet.NewExporter(store, *compression, logger).Export(ctx, *outDir); err != nil {
		logger.Error("export failed", "error", err)
		store.Close()
		os.Exit(1)
	}
}
