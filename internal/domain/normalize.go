package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Source column names.
const (
	ColEventType    = "Event Type"
	ColDate         = "Date"
	ColLatitude     = "Latitude"
	ColLongitude    = "Longitude"
	ColRegion       = "Region"
	ColZone         = "Zone"
	ColWoreda       = "Woreda"
	ColKebele       = "Kebele"
	ColTown         = "Town"
	ColInjuries     = "Injuries"
	ColFatalities   = "Fatalities"
	ColNotes        = "Notes"
	ColWhatHappened = "What Happened?"
	ColComPersonnel = "COM Personnel?"
)

const defaultEventType = "unknown"

type datePattern struct {
	re        *regexp.Regexp
	yearFirst bool
}

// datePatterns are tried in order; the first one that matches wins.
var datePatterns = []datePattern{
	{re: regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)},
	{re: regexp.MustCompile(`(\d{4})-(\d{1,2})-(\d{1,2})`), yearFirst: true},
	{re: regexp.MustCompile(`(\d{1,2})-(\d{1,2})-(\d{4})`)},
}

// leadingIntRe matches the integer prefix of a casualty value, e.g. "3 civilians".
var leadingIntRe = regexp.MustCompile(`^[+-]?\d+`)

// leadingFloatRe matches the decimal prefix of a coordinate, e.g. "9.03 N".
var leadingFloatRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

const (
	maxLatitude  = 90
	maxLongitude = 180
)

// Normalize turns raw rows from one source table into incidents. Rows without
// usable coordinates or a parseable date are dropped.
func Normalize(rows []map[string]string, category Category) []Incident {
	incidents := make([]Incident, 0, len(rows))
	for i, row := range rows {
		if inc, ok := NormalizeRow(row, category, i); ok {
			incidents = append(incidents, inc)
		}
	}
	return incidents
}

// NormalizeRow converts a single row. ordinal is the row's position within its
// source table and only feeds the generated ID. The boolean is false when the row
// lacks a latitude, longitude or date, or when a coordinate is out of range.
func NormalizeRow(row map[string]string, category Category, ordinal int) (Incident, bool) {
	lat, okLat := parseCoordinate(field(row, ColLatitude), maxLatitude)
	lon, okLon := parseCoordinate(field(row, ColLongitude), maxLongitude)
	date, okDate := ParseDate(field(row, ColDate))
	if !okLat || !okLon || !okDate {
		return Incident{}, false
	}

	eventType := field(row, ColEventType)
	if eventType == "" {
		eventType = defaultEventType
	}

	notes := field(row, ColNotes)
	if notes == "" {
		notes = field(row, ColWhatHappened)
	}

	return Incident{
		ID:           generateID(category, ordinal, eventType, date, lat, lon),
		Category:     category,
		EventType:    eventType,
		Timestamp:    date,
		Latitude:     lat,
		Longitude:    lon,
		Region:       optional(field(row, ColRegion)),
		Zone:         optional(field(row, ColZone)),
		Woreda:       optional(field(row, ColWoreda)),
		Kebele:       optional(field(row, ColKebele)),
		Town:         optional(field(row, ColTown)),
		Fatalities:   ParseCount(field(row, ColFatalities)),
		Injuries:     ParseCount(field(row, ColInjuries)),
		Notes:        optional(notes),
		ComPersonnel: ParseYes(field(row, ColComPersonnel)),
	}, true
}

func field(row map[string]string, col string) string {
	return strings.TrimSpace(row[col])
}

// ParseDate parses a field date. See the package documentation for the accepted
// formats. The boolean is false when nothing could be parsed or the result is
// the zero time.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, p := range datePatterns {
		m := p.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		c, _ := strconv.Atoi(m[3])
		var t time.Time
		if p.yearFirst {
			t = time.Date(a, time.Month(b), c, 0, 0, 0, 0, time.UTC)
		} else {
			t = time.Date(c, time.Month(a), b, 0, 0, 0, 0, time.UTC)
		}
		return t, !t.IsZero()
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil || t.IsZero() {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// ParseCount parses a casualty column. Blank and "none" are 0, "yes" is 1,
// otherwise the leading integer is used. Unparseable and negative values are 0.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return 0
	}
	if strings.EqualFold(s, "yes") {
		return 1
	}
	m := leadingIntRe.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParseYes reports whether a boolean-like column holds "YES"/"Yes".
func ParseYes(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), "yes")
}

// parseCoordinate parses the leading decimal degree of s, ignoring trailing
// text such as a hemisphere letter. Zero counts as not recorded, and values
// outside [-limit, limit] are rejected.
func parseCoordinate(s string, limit float64) (float64, bool) {
	m := leadingFloatRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || v == 0 || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > limit {
		return 0, false
	}
	return v, true
}

// generateID produces a deterministic ID from the incident's key fields.
// The ordinal keeps otherwise identical rows of the same table distinct.
func generateID(category Category, ordinal int, eventType string, date time.Time, lat, lon float64) string {
	input := fmt.Sprintf("%s|%d|%s|%s|%.6f|%.6f", category, ordinal, strings.ToLower(eventType), date.Format(time.DateOnly), lat, lon)
	hash := sha256.Sum256([]byte(input))
	return string(category) + "-" + hex.EncodeToString(hash[:8])
}
