package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/security-risk-etl/internal/domain"
)

// Incident sources.
const (
	SourceFile  = "file"
	SourceKafka = "kafka"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	IncidentSource  string
	CrimeCSVPath    string
	ConflictCSVPath string
	BoundariesPath  string
	ReportPath      string

	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	KafkaSinkEnabled bool

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	AggregateWorkers int
	MatchCacheSize   int
	Filters          domain.Filters
	// ReferenceTime pins the assessment clock. Zero means wall-clock time.
	ReferenceTime time.Time

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from an optional .env file and environment
// variables, applying defaults where unset. Variables already set in the
// environment take precedence over the .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s"))
	if err != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	workers, err := parsePositiveInt("AGGREGATE_WORKERS", 4)
	if err != nil {
		return nil, err
	}

	matchCacheSize, err := parseNonNegativeInt("MATCH_CACHE_SIZE", 10000)
	if err != nil {
		return nil, err
	}

	timeRange, err := parseNonNegativeInt("FILTER_TIME_RANGE_DAYS", 0)
	if err != nil {
		return nil, err
	}

	incidentType, err := domain.ParseIncidentType(os.Getenv("FILTER_INCIDENT_TYPE"))
	if err != nil {
		return nil, fmt.Errorf("invalid FILTER_INCIDENT_TYPE: %w", err)
	}

	var referenceTime time.Time
	if s := os.Getenv("REFERENCE_TIME"); s != "" {
		referenceTime, err = ParseReferenceTime(s)
		if err != nil {
			return nil, fmt.Errorf("invalid REFERENCE_TIME: %w", err)
		}
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		IncidentSource:  sharedcfg.EnvOrDefault("INCIDENT_SOURCE", SourceFile),
		CrimeCSVPath:    sharedcfg.EnvOrDefault("CRIME_CSV_PATH", "data/Crime-Report-RSO.csv"),
		ConflictCSVPath: sharedcfg.EnvOrDefault("CONFLICT_CSV_PATH", "data/Conflict-Incident-RSO.csv"),
		BoundariesPath:  envOrDefaultAllowEmpty("BOUNDARIES_PATH", "layers/geoBoundaries-ETH-ADM3.geojson"),
		ReportPath:      os.Getenv("REPORT_PATH"),

		KafkaBrokers:     sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic: sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "raw-incident-rows"),
		KafkaSinkTopic:   sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "area-risk-assessments"),
		KafkaGroupID:     sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "security-risk-etl"),
		KafkaSinkEnabled: os.Getenv("KAFKA_SINK_ENABLED") == "true",

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		AggregateWorkers: workers,
		MatchCacheSize:   matchCacheSize,
		Filters:          domain.Filters{TimeRangeDays: timeRange, IncidentType: incidentType},
		ReferenceTime:    referenceTime,

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
	}

	switch cfg.IncidentSource {
	case SourceFile:
		if cfg.CrimeCSVPath == "" && cfg.ConflictCSVPath == "" {
			return nil, errors.New("CRIME_CSV_PATH or CONFLICT_CSV_PATH is required")
		}
	case SourceKafka:
		if cfg.KafkaSourceTopic == "" {
			return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
		}
	default:
		return nil, fmt.Errorf("invalid INCIDENT_SOURCE %q: must be %q or %q", cfg.IncidentSource, SourceFile, SourceKafka)
	}

	if (cfg.IncidentSource == SourceKafka || cfg.KafkaSinkEnabled) && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSinkEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// ParseReferenceTime accepts an RFC 3339 timestamp or a YYYY-MM-DD date (UTC).
func ParseReferenceTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC 3339 nor YYYY-MM-DD", s)
	}
	return t, nil
}

// envOrDefaultAllowEmpty returns def only when key is unset, so an explicit
// empty value can disable a feature.
func envOrDefaultAllowEmpty(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
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

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a non-negative integer", key, s)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
