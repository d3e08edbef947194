package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/couchcryptid/weather-stats-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Storage.
	SQLitePath     string
	DBMaxOpenConns int

	// Ingestion.
	DataDir    string
	CommitMode domain.CommitMode

	// Read API pagination.
	ObservationsPageSize int
	StatsPageSize        int

	// Scheduled ingest+aggregate inside the API process; zero disables it.
	ScheduleInterval time.Duration

	// Kafka publishing of committed observations and yearly stats.
	KafkaEnabled           bool
	KafkaBrokers           []string
	KafkaObservationsTopic string
	KafkaStatsTopic        string

	// Parquet export.
	ExportDir         string
	ExportCompression string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	scheduleInterval, err := parseDuration("SCHEDULE_INTERVAL", "0s")
	if err != nil {
		return nil, err
	}

	maxOpenConns, err := parsePositiveInt("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return nil, err
	}
	obsPageSize, err := parsePositiveInt("OBSERVATIONS_PAGE_SIZE", 100)
	if err != nil {
		return nil, err
	}
	statsPageSize, err := parsePositiveInt("STATS_PAGE_SIZE", 10)
	if err != nil {
		return nil, err
	}
	commitMode, err := domain.ParseCommitMode(sharedcfg.EnvOrDefault("COMMIT_MODE", string(domain.CommitPerRun)))
	if err != nil {
		return nil, fmt.Errorf("invalid COMMIT_MODE: %w", err)
	}

	cfg := &Config{
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout: shutdownTimeout,

		SQLitePath:     sharedcfg.EnvOrDefault("SQLITE_PATH", "weather.db"),
		DBMaxOpenConns: maxOpenConns,

		DataDir:    sharedcfg.EnvOrDefault("DATA_DIR", "wx_data"),
		CommitMode: commitMode,

		ObservationsPageSize: obsPageSize,
		StatsPageSize:        statsPageSize,
		ScheduleInterval:     scheduleInterval,

		KafkaEnabled:           os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:           sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaObservationsTopic: envOrDefaultAllowEmpty("KAFKA_OBSERVATIONS_TOPIC", "weather-observations"),
		KafkaStatsTopic:        envOrDefaultAllowEmpty("KAFKA_STATS_TOPIC", "weather-yearly-stats"),

		ExportDir:         sharedcfg.EnvOrDefault("EXPORT_DIR", "export"),
		ExportCompression: sharedcfg.EnvOrDefault("EXPORT_COMPRESSION", "zstd"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SQLitePath == "" {
		return errors.New("SQLITE_PATH is required")
	}
	if c.ScheduleInterval < 0 {
		return errors.New("invalid SCHEDULE_INTERVAL: must not be negative")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if c.KafkaObservationsTopic == "" || c.KafkaStatsTopic == "" {
			return errors.New("KAFKA_OBSERVATIONS_TOPIC and KAFKA_STATS_TOPIC are required when KAFKA_ENABLED is true")
		}
	}
	return nil
}

// envOrDefaultAllowEmpty returns def only when key is unset, so an explicitly
// empty value reaches validate.
func envOrDefaultAllowEmpty(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, s)
	}
	return n, nil
}
