package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/couchcryptid/weather-stats-etl/internal/domain"
	"github.com/couchcryptid/weather-stats-etl/internal/observability"
)

// Aggregator derives yearly statistics from every stored observation.
// Each Run appends a fresh row per year; earlier rows are never replaced.
type Aggregator struct {
	store   StatStore
	logger  *slog.Logger
	metrics *observability.Metrics
	opts    options
}

// NewAggregator creates an Aggregator.
func NewAggregator(store StatStore, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Aggregator {
	return &Aggregator{
		store:   store,
		logger:  logger,
		metrics: metrics,
		opts:    buildOptions(opts),
	}
}

// Run scans all observations, computes per-year statistics in ascending year
// order, and appends each one. An empty store produces no rows.
func (a *Aggregator) Run(ctx context.Context) ([]domain.YearlyStat, error) {
	start := a.opts.clock.Now()
	a.metrics.RunInProgress.Set(1)
	defer a.metrics.RunInProgress.Set(0)

	observations, err := a.store.ScanObservations(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan observations: %w", err)
	}

	stats := Aggregate(observations)
	for i, s := range stats {
		if err := a.store.AppendYearlyStat(ctx, s); err != nil {
			return stats[:i], fmt.Errorf("append stat for %d: %w", s.Year, err)
		}
		a.metrics.StatsAppended.Inc()
	}

	if a.opts.statPub != nil && len(stats) > 0 {
		if err := a.opts.statPub.PublishYearlyStats(ctx, stats); err != nil {
			a.metrics.PublishFailures.WithLabelValues("yearly_stats").Inc()
			a.logger.Warn("publish yearly stats failed", "count", len(stats), "error", err)
		}
	}

	elapsed := a.opts.clock.Since(start)
	a.metrics.AggregateDuration.Observe(elapsed.Seconds())
	a.logger.Info("aggregation finished", "observations", len(observations), "years", len(stats), "elapsed", elapsed.String())
	return stats, nil
}

type accumulator struct {
	sumMax    float64
	sumMin    float64
	sumPrecip float64
	count     int
}

// Aggregate groups observations by calendar year and returns the mean high,
// mean low, and total precipitation for each year, ascending by year.
// Sentinel values are included as-is.
func Aggregate(observations []domain.Observation) []domain.YearlyStat {
	byYear := make(map[int]*accumulator)
	for _, o := range observations {
		y := o.Year()
		acc, ok := byYear[y]
		if !ok {
			acc = &accumulator{}
			byYear[y] = acc
		}
		acc.sumMax += o.MaxTemp
		acc.sumMin += o.MinTemp
		acc.sumPrecip += o.Precipitation
		acc.count++
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	slices.Sort(years)

	stats := make([]domain.YearlyStat, 0, len(years))
	for _, y := range years {
		acc := byYear[y]
		n := float64(acc.count)
		stats = append(stats, domain.YearlyStat{
			Year:               y,
			AvgMaxTemp:         acc.sumMax / n,
			AvgMinTemp:         acc.sumMin / n,
			TotalPrecipitation: acc.sumPrecip,
		})
	}
	return stats
}
