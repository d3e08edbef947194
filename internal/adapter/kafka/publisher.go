package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-stats-etl/internal/config"
	"github.com/couchcryptid/weather-stats-etl/internal/domain"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"
)

// messageWriter is the subset of *kafkago.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces committed observations and yearly stats to Kafka.
// It implements pipeline.ObservationPublisher and pipeline.StatPublisher.
// Writes go through a circuit breaker so an unreachable broker fails fast
// instead of stalling every run on write timeouts.
type Publisher struct {
	observations messageWriter
	stats        messageWriter
	breaker      *gobreaker.CircuitBreaker
	clock        clockwork.Clock
	logger       *slog.Logger
}

// NewPublisher creates writers for the configured observation and stats topics.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	newWriter := func(topic string) *kafkago.Writer {
		return &kafkago.Writer{
			Addr:         kafkago.TCP(cfg.KafkaBrokers...),
			Topic:        topic,
			Balancer:     &kafkago.LeastBytes{},
			RequiredAcks: kafkago.RequireAll,
			WriteTimeout: 10 * time.Second,
		}
	}
	return newPublisher(
		newWriter(cfg.KafkaObservationsTopic),
		newWriter(cfg.KafkaStatsTopic),
		clockwork.NewRealClock(),
		logger,
	)
}

func newPublisher(obs, stats messageWriter, clock clockwork.Clock, logger *slog.Logger) *Publisher {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "kafka-publisher",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Publisher{
		observations: obs,
		stats:        stats,
		breaker:      breaker,
		clock:        clock,
		logger:       logger,
	}
}

// PublishObservations writes one message per observation in a single call.
func (p *Publisher) PublishObservations(ctx context.Context, batch []domain.Observation) error {
	if len(batch) == 0 {
		return nil
	}
	now := p.clock.Now()
	msgs := make([]kafkago.Message, len(batch))
	for i := range batch {
		msg, err := observationMessage(batch[i], now)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.write(ctx, p.observations, msgs)
}

// PublishYearlyStats writes one message per yearly stat in a single call.
func (p *Publisher) PublishYearlyStats(ctx context.Context, stats []domain.YearlyStat) error {
	if len(stats) == 0 {
		return nil
	}
	now := p.clock.Now()
	msgs := make([]kafkago.Message, len(stats))
	for i := range stats {
		msg, err := statMessage(stats[i], now)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.write(ctx, p.stats, msgs)
}

func (p *Publisher) write(ctx context.Context, w messageWriter, msgs []kafkago.Message) error {
	_, err := p.breaker.Execute(func() (interface{}, error) {
		return nil, w.WriteMessages(ctx, msgs...)
	})
	if err != nil {
		return fmt.Errorf("publish %d messages: %w", len(msgs), err)
	}
	return nil
}

// Close flushes and closes both writers.
func (p *Publisher) Close() error {
	errObs := p.observations.Close()
	errStats := p.stats.Close()
	if errObs != nil {
		return errObs
	}
	return errStats
}

// ObservationPayload is the JSON body of an observation message.
type ObservationPayload struct {
	Date          string  `json:"date"`
	MaxTemp       float64 `json:"max_temp"`
	MinTemp       float64 `json:"min_temp"`
	Precipitation float64 `json:"precipitation"`
}

// StatPayload is the JSON body of a yearly stat message.
type StatPayload struct {
	ID                 int64   `json:"id,omitempty"`
	Year               int     `json:"year"`
	AvgMaxTemp         float64 `json:"avg_max_temp"`
	AvgMinTemp         float64 `json:"avg_min_temp"`
	TotalPrecipitation float64 `json:"total_precipitation"`
}

func observationMessage(o domain.Observation, publishedAt time.Time) (kafkago.Message, error) {
	key := o.Key()
	data, err := json.Marshal(ObservationPayload{
		Date:          key.Date,
		MaxTemp:       o.MaxTemp,
		MinTemp:       o.MinTemp,
		Precipitation: o.Precipitation,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize observation: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(key.Date),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte("observation")},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}

func statMessage(s domain.YearlyStat, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(StatPayload(s))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize yearly stat: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(strconv.Itoa(s.Year)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "record_type", Value: []byte("yearly_stat")},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}, nil
}
