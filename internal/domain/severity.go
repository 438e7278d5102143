package domain

import "strings"

// SeverityRule maps an event type pattern to its base weight.
type SeverityRule struct {
	Pattern string
	Weight  float64
}

// Event type patterns referenced by the keyword overrides.
const (
	patternDroneStrike  = "drone strike"
	patternArmedClash   = "armed clash"
	patternCrimeKilling = "crime/killing"
	patternUnknown      = "unknown"
)

// SeverityTable is ordered: when an event type overlaps several patterns as a
// substring, the earliest rule wins.
var SeverityTable = []SeverityRule{
	{Pattern: patternDroneStrike, Weight: 9},
	{Pattern: patternArmedClash, Weight: 8},
	{Pattern: patternCrimeKilling, Weight: 8},
	{Pattern: "cross-border attack", Weight: 7},
	{Pattern: "kidnapping", Weight: 7},
	{Pattern: "gunfire", Weight: 6},
	{Pattern: "robbery", Weight: 4},
	{Pattern: "arrests", Weight: 3},
	{Pattern: "vehicle accident", Weight: 3},
	{Pattern: "theft", Weight: 2},
	{Pattern: "other crime", Weight: 2},
	{Pattern: "miscellaneous", Weight: 2},
	{Pattern: patternUnknown, Weight: 1},
}

// keywordOverrides apply after the table scan finds no overlap.
var keywordOverrides = []struct {
	keywords []string
	pattern  string
}{
	{keywords: []string{"kill", "death"}, pattern: patternCrimeKilling},
	{keywords: []string{"attack", "clash"}, pattern: patternArmedClash},
	{keywords: []string{"bomb", "explosion"}, pattern: patternDroneStrike},
}

var severityByPattern = func() map[string]float64 {
	m := make(map[string]float64, len(SeverityTable))
	for _, r := range SeverityTable {
		m[r.Pattern] = r.Weight
	}
	return m
}()

// SeverityWeight returns the base weight for an event type. Lookup order:
// exact pattern, first table rule where either string contains the other,
// keyword overrides, then the "unknown" weight.
func SeverityWeight(eventType string) float64 {
	t := strings.ToLower(strings.TrimSpace(eventType))
	if t == "" {
		t = patternUnknown
	}

	if w, ok := severityByPattern[t]; ok {
		return w
	}

	for _, r := range SeverityTable {
		if strings.Contains(t, r.Pattern) || strings.Contains(r.Pattern, t) {
			return r.Weight
		}
	}

	for _, o := range keywordOverrides {
		for _, kw := range o.keywords {
			if strings.Contains(t, kw) {
				return severityByPattern[o.pattern]
			}
		}
	}

	return severityByPattern[patternUnknown]
}
