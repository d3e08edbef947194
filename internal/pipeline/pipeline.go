package pipeline

import (
	"context"

	"github.com/couchcryptid/weather-stats-etl/internal/domain"
	"github.com/jonboulle/clockwork"
)

// ObservationStore is the storage boundary used by ingestion.
type ObservationStore interface {
	Exists(ctx context.Context, key domain.NaturalKey) (bool, error)
	InsertObservation(ctx context.Context, obs domain.Observation) error
	InsertObservations(ctx context.Context, batch []domain.Observation) error
}

// StatStore is the storage boundary used by aggregation.
type StatStore interface {
	ScanObservations(ctx context.Context) ([]domain.Observation, error)
	AppendYearlyStat(ctx context.Context, stat domain.YearlyStat) error
}

// ObservationPublisher forwards committed observations downstream.
type ObservationPublisher interface {
	PublishObservations(ctx context.Context, batch []domain.Observation) error
}

// StatPublisher forwards appended yearly statistics downstream.
type StatPublisher interface {
	PublishYearlyStats(ctx context.Context, stats []domain.YearlyStat) error
}

type options struct {
	clock      clockwork.Clock
	commitMode domain.CommitMode
	obsPub     ObservationPublisher
	statPub    StatPublisher
}

// Option configures an Ingester or Aggregator.
type Option func(*options)

// WithClock overrides the clock used for run timing.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithCommitMode sets the ingestion commit granularity. Ignored by Aggregator.
func WithCommitMode(m domain.CommitMode) Option {
	return func(o *options) { o.commitMode = m }
}

// WithObservationPublisher publishes every committed batch of observations.
func WithObservationPublisher(p ObservationPublisher) Option {
	return func(o *options) { o.obsPub = p }
}

// WithStatPublisher publishes the stats emitted by each aggregation run.
func WithStatPublisher(p StatPublisher) Option {
	return func(o *options) { o.statPub = p }
}

func buildOptions(opts []Option) options {
	o := options{clock: clockwork.NewRealClock(), commitMode: domain.CommitPerRun}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
