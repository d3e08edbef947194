package config

import (
	"testing"
	"time"

	"github.com/couchcryptid/weather-stats-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "weather.db", cfg.SQLitePath)
	assert.Equal(t, 1, cfg.DBMaxOpenConns)
	assert.Equal(t, "wx_data", cfg.DataDir)
	assert.Equal(t, domain.CommitPerRun, cfg.CommitMode)
	assert.Equal(t, 100, cfg.ObservationsPageSize)
	assert.Equal(t, 10, cfg.StatsPageSize)
	assert.Zero(t, cfg.ScheduleInterval)
	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "weather-observations", cfg.KafkaObservationsTopic)
	assert.Equal(t, "weather-yearly-stats", cfg.KafkaStatsTopic)
	assert.Equal(t, "export", cfg.ExportDir)
	assert.Equal(t, "zstd", cfg.ExportCompression)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("SQLITE_PATH", "/tmp/wx.db")
	t.Setenv("DB_MAX_OPEN_CONNS", "4")
	t.Setenv("DATA_DIR", "/data/wx")
	t.Setenv("COMMIT_MODE", "file")
	t.Setenv("OBSERVATIONS_PAGE_SIZE", "50")
	t.Setenv("STATS_PAGE_SIZE", "5")
	t.Setenv("SCHEDULE_INTERVAL", "1h")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_OBSERVATIONS_TOPIC", "obs")
	t.Setenv("KAFKA_STATS_TOPIC", "stats")
	t.Setenv("EXPORT_DIR", "/out")
	t.Setenv("EXPORT_COMPRESSION", "snappy")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "/tmp/wx.db", cfg.SQLitePath)
	assert.Equal(t, 4, cfg.DBMaxOpenConns)
	assert.Equal(t, "/data/wx", cfg.DataDir)
	assert.Equal(t, domain.CommitPerFile, cfg.CommitMode)
	assert.Equal(t, 50, cfg.ObservationsPageSize)
	assert.Equal(t, 5, cfg.StatsPageSize)
	assert.Equal(t, time.Hour, cfg.ScheduleInterval)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "obs", cfg.KafkaObservationsTopic)
	assert.Equal(t, "stats", cfg.KafkaStatsTopic)
	assert.Equal(t, "/out", cfg.ExportDir)
	assert.Equal(t, "snappy", cfg.ExportCompression)
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidCommitMode(t *testing.T) {
	t.Setenv("COMMIT_MODE", "sometimes")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COMMIT_MODE")
}

func TestLoad_InvalidScheduleInterval(t *testing.T) {
	t.Setenv("SCHEDULE_INTERVAL", "soon")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULE_INTERVAL")
}

func TestLoad_NegativeScheduleInterval(t *testing.T) {
	t.Setenv("SCHEDULE_INTERVAL", "-1m")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SCHEDULE_INTERVAL")
}

func TestLoad_InvalidPageSize(t *testing.T) {
	t.Setenv("OBSERVATIONS_PAGE_SIZE", "0")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OBSERVATIONS_PAGE_SIZE")
}

func TestLoad_InvalidMaxOpenConns(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_MAX_OPEN_CONNS")
}

func TestLoad_KafkaEnabledWithoutTopic(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_STATS_TOPIC", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_STATS_TOPIC")
}

func TestLoad_KafkaEnabledWithoutObservationsTopic(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_OBSERVATIONS_TOPIC", "")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_OBSERVATIONS_TOPIC")
}

func TestLoad_EmptyTopicAllowedWhenKafkaDisabled(t *testing.T) {
	t.Setenv("KAFKA_STATS_TOPIC", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.KafkaStatsTopic)
}
