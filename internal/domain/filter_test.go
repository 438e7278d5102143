package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(incidents []Incident) []string {
	out := make([]string, 0, len(incidents))
	for _, inc := range incidents {
		out = append(out, inc.ID)
	}
	return out
}

func TestFilters_Apply(t *testing.T) {
	theft := newIncident("theft", "Theft", 9, 38, 2)
	theft.Category = CategoryCrime
	oldRobbery := newIncident("old-robbery", "Robbery", 9, 38, 45)
	oldRobbery.Category = CategoryCrime
	oldRobbery.Injuries = 3
	clash := newIncident("clash", "Armed Clash", 9, 38, 10)
	arrests := newIncident("arrests", "Arrests", 9, 38, 30)
	fatal := newIncident("fatal", "Vehicle Accident", 9, 38, 400)
	fatal.Fatalities = 1

	all := []Incident{theft, oldRobbery, clash, arrests, fatal}

	tests := []struct {
		name     string
		filters  Filters
		expected []string
	}{
		{"zero value keeps everything", Filters{}, []string{"theft", "old-robbery", "clash", "arrests", "fatal"}},
		{"all", Filters{IncidentType: IncidentTypeAll}, []string{"theft", "old-robbery", "clash", "arrests", "fatal"}},
		{"crime only", Filters{IncidentType: IncidentTypeCrime}, []string{"theft", "old-robbery"}},
		{"conflict only", Filters{IncidentType: IncidentTypeConflict}, []string{"clash", "arrests", "fatal"}},
		{"high severity", Filters{IncidentType: IncidentTypeHighSeverity}, []string{"old-robbery", "clash", "fatal"}},
		{"last 30 days", Filters{TimeRangeDays: 30}, []string{"theft", "clash", "arrests"}},
		{"last 7 days crime", Filters{TimeRangeDays: 7, IncidentType: IncidentTypeCrime}, []string{"theft"}},
		{"nothing matches", Filters{TimeRangeDays: 1}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ids(tt.filters.Apply(all, testNow)))
		})
	}
}

func TestIsHighSeverity(t *testing.T) {
	tests := []struct {
		name       string
		eventType  string
		fatalities int
		injuries   int
		expected   bool
	}{
		{"drone strike", "Drone Strike", 0, 0, true},
		{"kidnapping", " kidnapping ", 0, 0, true},
		{"theft", "Theft", 0, 0, false},
		{"theft with fatality", "Theft", 1, 0, true},
		{"two injuries", "Robbery", 0, 2, false},
		{"three injuries", "Robbery", 0, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inc := newIncident("x", tt.eventType, 9, 38, 0)
			inc.Fatalities = tt.fatalities
			inc.Injuries = tt.injuries
			assert.Equal(t, tt.expected, IsHighSeverity(inc))
		})
	}
}

func TestParseIncidentType(t *testing.T) {
	tests := []struct {
		input    string
		expected IncidentType
	}{
		{"", IncidentTypeAll},
		{"all", IncidentTypeAll},
		{"Crime", IncidentTypeCrime},
		{" conflict ", IncidentTypeConflict},
		{"HIGH-SEVERITY", IncidentTypeHighSeverity},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseIncidentType(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	_, err := ParseIncidentType("weather")
	require.Error(t, err)
}
