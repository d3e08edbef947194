// Package parquet exports stored observations and yearly statistics to
// Parquet files for offline analysis.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/weather-stats-etl/internal/domain"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
)

// File names written into the export directory.
const (
	ObservationsFile = "observations.parquet"
	YearlyStatsFile  = "yearly_stats.parquet"
)

// Source supplies the rows to export.
type Source interface {
	ScanObservations(ctx context.Context) ([]domain.Observation, error)
	ScanYearlyStats(ctx context.Context) ([]domain.YearlyStat, error)
}

// ObservationRow is the Parquet schema for an observation.
type ObservationRow struct {
	ID            int64   `parquet:"id"`
	Date          string  `parquet:"date,zstd"`
	MaxTemp       float64 `parquet:"max_temp"`
	MinTemp       float64 `parquet:"min_temp"`
	Precipitation float64 `parquet:"precipitation"`
}

// YearlyStatRow is the Parquet schema for a yearly stat.
type YearlyStatRow struct {
	ID                 int64   `parquet:"id"`
	Year               int32   `parquet:"year"`
	AvgMaxTemp         float64 `parquet:"avg_max_temp"`
	AvgMinTemp         float64 `parquet:"avg_min_temp"`
	TotalPrecipitation float64 `parquet:"total_precipitation"`
}

// Result reports what an export wrote.
type Result struct {
	Observations int
	YearlyStats  int
}

// Exporter writes Parquet snapshots of the store.
type Exporter struct {
	source Source
	codec  compress.Codec
	logger *slog.Logger
}

// NewExporter creates an Exporter using the named compression
// (snappy, zstd, lz4, gzip, none). Unknown names fall back to zstd.
func NewExporter(source Source, compression string, logger *slog.Logger) *Exporter {
	return &Exporter{source: source, codec: codecFor(compression), logger: logger}
}

func codecFor(name string) compress.Codec {
	switch name {
	case "snappy":
		return &parquet.Snappy
	case "lz4":
		return &parquet.Lz4Raw
	case "gzip":
		return &parquet.Gzip
	case "none":
		return &parquet.Uncompressed
	default:
		return &parquet.Zstd
	}
}

// Export writes both files into dir, creating it if needed. Existing files are replaced.
func (e *Exporter) Export(ctx context.Context, dir string) (Result, error) {
	var res Result
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return res, fmt.Errorf("create export dir: %w", err)
	}

	observations, err := e.source.ScanObservations(ctx)
	if err != nil {
		return res, err
	}
	obsRows := make([]ObservationRow, len(observations))
	for i, o := range observations {
		obsRows[i] = ObservationRow{
			ID:            o.ID,
			Date:          o.Date.Format(domain.DateLayout),
			MaxTemp:       o.MaxTemp,
			MinTemp:       o.MinTemp,
			Precipitation: o.Precipitation,
		}
	}
	if err := writeRows(filepath.Join(dir, ObservationsFile), obsRows, e.codec); err != nil {
		return res, err
	}
	res.Observations = len(obsRows)

	stats, err := e.source.ScanYearlyStats(ctx)
	if err != nil {
		return res, err
	}
	statRows := make([]YearlyStatRow, len(stats))
	for i, s := range stats {
		statRows[i] = YearlyStatRow{
			ID:                 s.ID,
			Year:               int32(s.Year), //nolint:gosec // calendar years fit
			AvgMaxTemp:         s.AvgMaxTemp,
			AvgMinTemp:         s.AvgMinTemp,
			TotalPrecipitation: s.TotalPrecipitation,
		}
	}
	if err := writeRows(filepath.Join(dir, YearlyStatsFile), statRows, e.codec); err != nil {
		return res, err
	}
	res.YearlyStats = len(statRows)

	e.logger.Info("export complete", "dir", dir, "observations", res.Observations, "yearly_stats", res.YearlyStats)
	return res, nil
}

// writeRows writes to a temporary file and renames it into place so readers
// never see a partial file.
func writeRows[T any](path string, rows []T, codec compress.Codec) (err error) {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer func() {
		if err != nil {
			f.Close()
			os.Remove(tmp)
		}
	}()

	w := parquet.NewGenericWriter[T](f, parquet.Compression(codec))
	if _, err = w.Write(rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	if err = os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// ReadRows reads every row of a file written by Export.
func ReadRows[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	r := parquet.NewGenericReader[T](f)
	defer r.Close()

	rows := make([]T, r.NumRows())
	n, err := r.Read(rows)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rows[:n], nil
}
