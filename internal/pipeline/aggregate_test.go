package pipeline_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/weather-stats-etl/internal/domain"
	"github.com/couchcryptid/weather-stats-etl/internal/pipeline"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func obs(date string, maxT, minT, precip float64) domain.Observation {
	d, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		panic(err)
	}
	return domain.Observation{Date: d, MaxTemp: maxT, MinTemp: minT, Precipitation: precip}
}

func TestAggregate_PerYear(t *testing.T) {
	got := pipeline.Aggregate([]domain.Observation{
		obs("2024-03-01", 30, 20, 2),
		obs("2023-01-01", 25.0, 10.0, 0.5),
		obs("2023-06-01", 15.0, 5.0, 1.0),
	})

	want := []domain.YearlyStat{
		{Year: 2023, AvgMaxTemp: 20.0, AvgMinTemp: 7.5, TotalPrecipitation: 1.5},
		{Year: 2024, AvgMaxTemp: 30, AvgMinTemp: 20, TotalPrecipitation: 2},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Aggregate mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, pipeline.Aggregate(nil))
}

func TestAggregate_SentinelsIncluded(t *testing.T) {
	got := pipeline.Aggregate([]domain.Observation{
		obs("2023-01-01", 20, 10, 0),
		obs("2023-01-02", -999.9, -999.9, -999.9),
	})
	require.Len(t, got, 1)
	assert.InDelta(t, (20-999.9)/2, got[0].AvgMaxTemp, 1e-9)
	assert.InDelta(t, -999.9, got[0].TotalPrecipitation, 1e-9)
}

func TestAggregator_Run_AppendsEachInvocation(t *testing.T) {
	store := newMemStore()
	store.put(obs("2023-01-01", 25.0, 10.0, 0.5))
	store.put(obs("2023-06-01", 15.0, 5.0, 1.0))
	agg := pipeline.NewAggregator(store, discardLogger(), newTestMetrics())

	for range 2 {
		stats, err := agg.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, stats, 1)
	}

	require.Len(t, store.stats, 2, "re-aggregation appends rather than replacing")
	assert.Equal(t, store.stats[0].Year, store.stats[1].Year)
	assert.Equal(t, store.stats[0].AvgMaxTemp, store.stats[1].AvgMaxTemp)
	assert.NotEqual(t, store.stats[0].ID, store.stats[1].ID)
}

func TestAggregator_Run_EmptyStore(t *testing.T) {
	store := newMemStore()
	pub := &mockPublisher{}
	stats, err := pipeline.NewAggregator(store, discardLogger(), newTestMetrics(), pipeline.WithStatPublisher(pub)).
		Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stats)
	assert.Empty(t, store.stats)
	assert.Empty(t, pub.stats)
}

func TestAggregator_Run_PublishesStats(t *testing.T) {
	store := newMemStore()
	store.put(obs("2022-01-01", 1, 0, 0))
	store.put(obs("2023-01-01", 2, 0, 0))
	pub := &mockPublisher{}

	_, err := pipeline.NewAggregator(store, discardLogger(), newTestMetrics(), pipeline.WithStatPublisher(pub)).
		Run(context.Background())
	require.NoError(t, err)
	require.Len(t, pub.stats, 1)
	assert.Equal(t, 2022, pub.stats[0][0].Year)
	assert.Equal(t, 2023, pub.stats[0][1].Year)
}

func TestScheduler_RunsJob(t *testing.T) {
	var calls atomic.Int32
	s := pipeline.NewScheduler(time.Hour, func(context.Context) error {
		calls.Add(1)
		return errBoom
	}, discardLogger())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool { return s.Runs() >= 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.ErrorIs(t, s.CheckReadiness(context.Background()), errBoom)
}

func TestScheduler_RejectsNonPositiveInterval(t *testing.T) {
	s := pipeline.NewScheduler(0, func(context.Context) error { return nil }, discardLogger())
	require.Error(t, s.Start(context.Background()))
}
