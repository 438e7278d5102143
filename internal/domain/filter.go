package domain

import (
	"fmt"
	"strings"
	"time"
)

// IncidentType selects which incidents enter an assessment.
type IncidentType string

const (
	IncidentTypeAll          IncidentType = "all"
	IncidentTypeCrime        IncidentType = "crime"
	IncidentTypeConflict     IncidentType = "conflict"
	IncidentTypeHighSeverity IncidentType = "high-severity"
)

// highSeverityTypes are the event types always kept by the high-severity filter.
var highSeverityTypes = map[string]struct{}{
	"drone strike":        {},
	"armed clash":         {},
	"crime/killing":       {},
	"kidnapping":          {},
	"gunfire":             {},
	"cross-border attack": {},
}

// ParseIncidentType accepts the filter names case-insensitively; blank means all.
func ParseIncidentType(s string) (IncidentType, error) {
	t := IncidentType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case "":
		return IncidentTypeAll, nil
	case IncidentTypeAll, IncidentTypeCrime, IncidentTypeConflict, IncidentTypeHighSeverity:
		return t, nil
	default:
		return "", fmt.Errorf("unknown incident type filter %q", s)
	}
}

// Filters narrows the incidents of an assessment.
type Filters struct {
	// TimeRangeDays keeps incidents dated within that many days before the
	// reference time. Zero keeps everything.
	TimeRangeDays int          `json:"timeRange"`
	IncidentType  IncidentType `json:"incidentType"`
}

// Apply returns the incidents matching f, in input order.
func (f Filters) Apply(incidents []Incident, now time.Time) []Incident {
	var cutoff time.Time
	if f.TimeRangeDays > 0 {
		cutoff = now.AddDate(0, 0, -f.TimeRangeDays)
	}

	out := make([]Incident, 0, len(incidents))
	for _, inc := range incidents {
		if !cutoff.IsZero() && inc.Timestamp.Before(cutoff) {
			continue
		}
		if !f.matchesType(inc) {
			continue
		}
		out = append(out, inc)
	}
	return out
}

func (f Filters) matchesType(inc Incident) bool {
	switch f.IncidentType {
	case IncidentTypeCrime:
		return inc.Category == CategoryCrime
	case IncidentTypeConflict:
		return inc.Category == CategoryConflict
	case IncidentTypeHighSeverity:
		return IsHighSeverity(inc)
	default:
		return true
	}
}

// IsHighSeverity reports whether an incident is a high-severity event type or
// caused any fatality or more than two injuries.
func IsHighSeverity(inc Incident) bool {
	if _, ok := highSeverityTypes[strings.ToLower(strings.TrimSpace(inc.EventType))]; ok {
		return true
	}
	return inc.Fatalities > 0 || inc.Injuries > 2
}
