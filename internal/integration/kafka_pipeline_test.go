//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/weather-stats-etl/internal/adapter/kafka"
	"github.com/couchcryptid/weather-stats-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/weather-stats-etl/internal/config"
	"github.com/couchcryptid/weather-stats-etl/internal/observability"
	"github.com/couchcryptid/weather-stats-etl/internal/pipeline"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const (
	testObservationsTopic = "test-observations"
	testStatsTopic        = "test-yearly-stats"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("weather-etl-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

func readAll(ctx context.Context, t *testing.T, broker, topic string, n int) []kafkago.Message {
	t.Helper()
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:   []string{broker},
		Topic:     topic,
		Partition: 0,
		MinBytes:  1,
		MaxBytes:  10e6,
	})
	defer r.Close()

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	var out []kafkago.Message
	for len(out) < n {
		msg, err := r.ReadMessage(readCtx)
		require.NoError(t, err, "read from %s", topic)
		out = append(out, msg)
	}
	return out
}

// TestIngestAndAggregatePublish runs a full ingest and aggregate against
// SQLite and checks what lands on both topics.
func TestIngestAndAggregatePublish(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testObservationsTopic)
	createTopic(t, broker, testStatsTopic)

	cfg := &config.Config{
		KafkaBrokers:           []string{broker},
		KafkaObservationsTopic: testObservationsTopic,
		KafkaStatsTopic:        testStatsTopic,
	}
	pub := kafka.NewPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = pub.Close() })

	store, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "weather.db"), sqlite.Options{}, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	dir := t.TempDir()
	path := filepath.Join(dir, "USC00110072.txt")
	require.NoError(t, os.WriteFile(path, []byte("20230101\t250\t100\t5\n20230601\t150\t50\t10\nbad line\n"), 0o600))

	metrics := observability.NewMetricsForTesting()
	ing := pipeline.NewIngester(store, discardLogger(), metrics, pipeline.WithObservationPublisher(pub))
	res, err := ing.Run(ctx, []string{path})
	require.NoError(t, err)
	require.Equal(t, 2, res.Committed)

	agg := pipeline.NewAggregator(store, discardLogger(), metrics, pipeline.WithStatPublisher(pub))
	stats, err := agg.Run(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)

	obsMsgs := readAll(ctx, t, broker, testObservationsTopic, 2)
	assert.Equal(t, "2023-01-01", string(obsMsgs[0].Key))
	var first kafka.ObservationPayload
	require.NoError(t, json.Unmarshal(obsMsgs[0].Value, &first))
	assert.InDelta(t, 25.0, first.MaxTemp, 0)

	statMsgs := readAll(ctx, t, broker, testStatsTopic, 1)
	var stat kafka.StatPayload
	require.NoError(t, json.Unmarshal(statMsgs[0].Value, &stat))
	assert.Equal(t, 2023, stat.Year)
	assert.InDelta(t, 20.0, stat.AvgMaxTemp, 1e-9)
	assert.InDelta(t, 7.5, stat.AvgMinTemp, 1e-9)
	assert.InDelta(t, 1.5, stat.TotalPrecipitation, 1e-9)
	assert.Equal(t, fmt.Sprint(stat.Year), string(statMsgs[0].Key))
}
