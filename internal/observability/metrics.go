package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for ingestion and aggregation.
type Metrics struct {
	FilesProcessed *prometheus.CounterVec // labels: outcome={ok,unreadable}
	LinesRead      prometheus.Counter
	LinesRejected  *prometheus.CounterVec // labels: reason={malformed,invalid_date,invalid_number,unknown}
	Duplicates     prometheus.Counter
	Committed      prometheus.Counter
	CommitFailures prometheus.Counter

	IngestDuration    prometheus.Histogram
	AggregateDuration prometheus.Histogram
	StatsAppended     prometheus.Counter

	PublishFailures *prometheus.CounterVec // labels: topic
	RunInProgress   prometheus.Gauge
}

func newMetrics(help bool) *Metrics {
	h := func(s string) string {
		if help {
			return s
		}
		return ""
	}
	return &Metrics{
		FilesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      h("Source files processed by outcome."),
		}, []string{"outcome"}),
		LinesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_read_total",
			Help:      h("Raw lines read from source files."),
		}),
		LinesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lines_rejected_total",
			Help:      h("Lines rejected by the record parser, by reason."),
		}, []string{"reason"}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_skipped_total",
			Help:      h("Observations skipped because their natural key was already present."),
		}),
		Committed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_committed_total",
			Help:      h("Observations durably written to storage."),
		}),
		CommitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_failures_total",
			Help:      h("Batch commits rolled back."),
		}),
		IngestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      h("Duration of a complete ingestion run."),
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		AggregateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "aggregate_duration_seconds",
			Help:      h("Duration of a complete aggregation run."),
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		StatsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "yearly_stats_appended_total",
			Help:      h("Yearly statistic rows appended."),
		}),
		PublishFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_failures_total",
			Help:      h("Failed downstream publishes by topic."),
		}, []string{"topic"}),
		RunInProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_in_progress",
			Help:      h("1 while an ingest or aggregate run is active, 0 otherwise."),
		}),
	}
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics(true)
	prometheus.MustRegister(
		m.FilesProcessed,
		m.LinesRead,
		m.LinesRejected,
		m.Duplicates,
		m.Committed,
		m.CommitFailures,
		m.IngestDuration,
		m.AggregateDuration,
		m.StatsAppended,
		m.PublishFailures,
		m.RunInProgress,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so multiple tests can
// construct them without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics(false)
}
