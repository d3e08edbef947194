package parquet

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/weather-stats-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	observations []domain.Observation
	stats        []domain.YearlyStat
}

func (f *fakeSource) ScanObservations(context.Context) ([]domain.Observation, error) {
	return f.observations, nil
}

func (f *fakeSource) ScanYearlyStats(context.Context) ([]domain.YearlyStat, error) {
	return f.stats, nil
}

func TestExporter_Export(t *testing.T) {
	for _, compression := range []string{"zstd", "snappy", "none"} {
		t.Run(compression, func(t *testing.T) {
			src := &fakeSource{
				observations: []domain.Observation{
					{ID: 1, Date: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), MaxTemp: 25, MinTemp: 10, Precipitation: 0.5},
					{ID: 2, Date: time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), MaxTemp: 15, MinTemp: 5, Precipitation: 1},
				},
				stats: []domain.YearlyStat{{ID: 1, Year: 2023, AvgMaxTemp: 20, AvgMinTemp: 7.5, TotalPrecipitation: 1.5}},
			}
			dir := filepath.Join(t.TempDir(), "out")
			exp := NewExporter(src, compression, slog.New(slog.NewTextHandler(io.Discard, nil)))

			res, err := exp.Export(context.Background(), dir)
			require.NoError(t, err)
			assert.Equal(t, Result{Observations: 2, YearlyStats: 1}, res)

			obs, err := ReadRows[ObservationRow](filepath.Join(dir, ObservationsFile))
			require.NoError(t, err)
			require.Len(t, obs, 2)
			assert.Equal(t, ObservationRow{ID: 1, Date: "2023-01-01", MaxTemp: 25, MinTemp: 10, Precipitation: 0.5}, obs[0])

			stats, err := ReadRows[YearlyStatRow](filepath.Join(dir, YearlyStatsFile))
			require.NoError(t, err)
			require.Len(t, stats, 1)
			assert.Equal(t, int32(2023), stats[0].Year)
			assert.InDelta(t, 7.5, stats[0].AvgMinTemp, 0)
		})
	}
}

func TestExporter_EmptyStore(t *testing.T) {
	dir := t.TempDir()
	exp := NewExporter(&fakeSource{}, "zstd", slog.New(slog.NewTextHandler(io.Discard, nil)))

	res, err := exp.Export(context.Background(), dir)
	require.NoError(t, err)
	assert.Zero(t, res.Observations)

	obs, err := ReadRows[ObservationRow](filepath.Join(dir, ObservationsFile))
	require.NoError(t, err)
	assert.Empty(t, obs)
}
