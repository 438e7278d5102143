package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/security-risk-etl/internal/domain"
)

const (
	crimeCSV = "Event Type,Date,Latitude,Longitude,Region,Zone,Woreda,Injuries,Fatalities\n" +
		"Theft,6/25/2024,8.6,39.5,Oromia,East Shewa,Adama,0,0\n" +
		"Robbery,1/15/2024,11.59,37.39,Amhara,,Bahir Dar,1,0\n"
	conflictCSV = "Event Type,Date,Latitude,Longitude,Region,Fatalities,What Happened?\n" +
		"Armed Clash,2024-06-27,8.54,39.27,Oromia,2,Clash near the market\n" +
		"Protest,,9.0,38.7,Addis Ababa,0,No date recorded\n"
	boundariesJSON = `{"type":"FeatureCollection","features":[{"type":"Feature",
		"properties":{"shapeID":"ETH-1","shapeName":"Adama"},
		"geometry":{"type":"Polygon","coordinates":[[[39,8],[40,8],[40,9],[39,9],[39,8]]]}}]}`
)

func writeFixtures(t *testing.T) (dir string, opts options) {
	t.Helper()
	dir = t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}
	return dir, options{
		crime:        write("crime.csv", crimeCSV),
		conflict:     write("conflict.csv", conflictCSV),
		boundaries:   write("adm3.geojson", boundariesJSON),
		out:          filepath.Join(dir, "report.json"),
		now:          "2024-06-30",
		incidentType: "all",
		workers:      2,
		logLevel:     "error",
	}
}

func readReport(t *testing.T, path string) domain.Report {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var report domain.Report
	require.NoError(t, json.Unmarshal(data, &report))
	return report
}

func TestRun_WritesReport(t *testing.T) {
	_, opts := writeFixtures(t)
	var stderr bytes.Buffer

	code := run(context.Background(), opts, &stderr)
	require.Equal(t, 0, code, stderr.String())

	report := readReport(t, opts.out)
	assert.Equal(t, time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC), report.Metadata.GeneratedAt)
	assert.Equal(t, 3, report.Summary.TotalIncidents)
	require.Len(t, report.Areas, 2)
	assert.Equal(t, "boundary_ETH-1", report.Areas[0].Key)
	assert.Equal(t, 2, report.Areas[0].TotalIncidents)
	assert.Equal(t, "amhara__bahir dar", report.Areas[1].Key)

	assert.Contains(t, stderr.String(), "=== Security Risk Assessment ===")
	assert.Contains(t, stderr.String(), "Incidents: 3")
}

func TestRun_Filters(t *testing.T) {
	_, opts := writeFixtures(t)
	opts.timeRange = 30
	opts.incidentType = "conflict"

	require.Equal(t, 0, run(context.Background(), opts, &bytes.Buffer{}))

	report := readReport(t, opts.out)
	assert.Equal(t, 1, report.Summary.TotalIncidents)
	assert.Equal(t, domain.Filters{TimeRangeDays: 30, IncidentType: domain.IncidentTypeConflict}, report.Metadata.Filters)
}

func TestRun_MissingBoundariesFallsBack(t *testing.T) {
	dir, opts := writeFixtures(t)
	opts.boundaries = filepath.Join(dir, "missing.geojson")

	require.Equal(t, 0, run(context.Background(), opts, &bytes.Buffer{}))

	report := readReport(t, opts.out)
	assert.Len(t, report.Areas, 3)
}

func TestRun_InvalidFlags(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*options)
	}{
		{"bad incident type", func(o *options) { o.incidentType = "weather" }},
		{"bad reference time", func(o *options) { o.now = "yesterday" }},
		{"negative time range", func(o *options) { o.timeRange = -1 }},
		{"zero workers", func(o *options) { o.workers = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, opts := writeFixtures(t)
			tt.mutate(&opts)
			var stderr bytes.Buffer

			assert.Equal(t, 1, run(context.Background(), opts, &stderr))
			assert.Contains(t, stderr.String(), "FATAL")
		})
	}
}

func TestRun_MissingCSV(t *testing.T) {
	dir, opts := writeFixtures(t)
	opts.crime = filepath.Join(dir, "missing.csv")
	var stderr bytes.Buffer

	assert.Equal(t, 1, run(context.Background(), opts, &stderr))
	assert.Contains(t, stderr.String(), "assessment")
}
