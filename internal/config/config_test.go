package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/security-risk-etl/internal/domain"
)

const (
	defaultBroker   = "localhost:9092"
	testMapboxToken = "pk.test-token"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourceFile, cfg.IncidentSource)
	assert.Equal(t, "data/Crime-Report-RSO.csv", cfg.CrimeCSVPath)
	assert.Equal(t, "data/Conflict-Incident-RSO.csv", cfg.ConflictCSVPath)
	assert.Equal(t, "layers/geoBoundaries-ETH-ADM3.geojson", cfg.BoundariesPath)
	assert.Empty(t, cfg.ReportPath)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "raw-incident-rows", cfg.KafkaSourceTopic)
	assert.Equal(t, "area-risk-assessments", cfg.KafkaSinkTopic)
	assert.Equal(t, "security-risk-etl", cfg.KafkaGroupID)
	assert.False(t, cfg.KafkaSinkEnabled)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.Equal(t, 4, cfg.AggregateWorkers)
	assert.Equal(t, 10000, cfg.MatchCacheSize)
	assert.Equal(t, domain.Filters{IncidentType: domain.IncidentTypeAll}, cfg.Filters)
	assert.True(t, cfg.ReferenceTime.IsZero())
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("INCIDENT_SOURCE", "kafka")
	t.Setenv("BOUNDARIES_PATH", "/data/adm3.geojson")
	t.Setenv("REPORT_PATH", "/tmp/report.json")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("KAFKA_SINK_ENABLED", "true")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("AGGREGATE_WORKERS", "8")
	t.Setenv("MATCH_CACHE_SIZE", "0")
	t.Setenv("FILTER_TIME_RANGE_DAYS", "30")
	t.Setenv("FILTER_INCIDENT_TYPE", "high-severity")
	t.Setenv("REFERENCE_TIME", "2024-06-30")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, SourceKafka, cfg.IncidentSource)
	assert.Equal(t, "/data/adm3.geojson", cfg.BoundariesPath)
	assert.Equal(t, "/tmp/report.json", cfg.ReportPath)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.True(t, cfg.KafkaSinkEnabled)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, 8, cfg.AggregateWorkers)
	assert.Equal(t, 0, cfg.MatchCacheSize)
	assert.Equal(t, domain.Filters{TimeRangeDays: 30, IncidentType: domain.IncidentTypeHighSeverity}, cfg.Filters)
	assert.Equal(t, time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC), cfg.ReferenceTime)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
}

func TestLoad_EmptyBoundariesPathDisables(t *testing.T) {
	t.Setenv("BOUNDARIES_PATH", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.BoundariesPath)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"invalid shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "not-a-duration"}, "SHUTDOWN_TIMEOUT"},
		{"negative shutdown timeout", map[string]string{"SHUTDOWN_TIMEOUT": "-1s"}, "SHUTDOWN_TIMEOUT"},
		{"zero batch size", map[string]string{"BATCH_SIZE": "0"}, "BATCH_SIZE"},
		{"batch size too large", map[string]string{"BATCH_SIZE": "9999"}, "BATCH_SIZE"},
		{"invalid flush interval", map[string]string{"BATCH_FLUSH_INTERVAL": "not-a-duration"}, "BATCH_FLUSH_INTERVAL"},
		{"invalid mapbox timeout", map[string]string{"MAPBOX_TIMEOUT": "bad"}, "MAPBOX_TIMEOUT"},
		{"mapbox enabled without token", map[string]string{"MAPBOX_ENABLED": "true"}, "MAPBOX_TOKEN"},
		{"zero workers", map[string]string{"AGGREGATE_WORKERS": "0"}, "AGGREGATE_WORKERS"},
		{"non-numeric workers", map[string]string{"AGGREGATE_WORKERS": "many"}, "AGGREGATE_WORKERS"},
		{"negative cache size", map[string]string{"MATCH_CACHE_SIZE": "-1"}, "MATCH_CACHE_SIZE"},
		{"negative time range", map[string]string{"FILTER_TIME_RANGE_DAYS": "-7"}, "FILTER_TIME_RANGE_DAYS"},
		{"unknown incident type", map[string]string{"FILTER_INCIDENT_TYPE": "weather"}, "FILTER_INCIDENT_TYPE"},
		{"bad reference time", map[string]string{"REFERENCE_TIME": "yesterday"}, "REFERENCE_TIME"},
		{"unknown source", map[string]string{"INCIDENT_SOURCE": "s3"}, "INCIDENT_SOURCE"},
		{"no csv paths", map[string]string{"CRIME_CSV_PATH": "", "CONFLICT_CSV_PATH": ""}, "CSV_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}

func TestParseReferenceTime(t *testing.T) {
	got, err := ParseReferenceTime("2024-06-30T12:30:00+03:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 30, 9, 30, 0, 0, time.UTC), got)

	got, err = ParseReferenceTime("2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseReferenceTime("15/01/2024")
	require.Error(t, err)
}
