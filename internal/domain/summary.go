package domain

import (
	"slices"
	"strings"
	"time"
)

const (
	topEventTypeLimit   = 3
	recentIncidentLimit = 10
	recentWindow        = 7 * 24 * time.Hour
)

// EventTypeCount is the number of incidents of one event type.
type EventTypeCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// TopEventTypes returns the three most frequent event types, most frequent
// first. Equal counts keep first-seen order.
func TopEventTypes(incidents []Incident) []EventTypeCount {
	counts := countEventTypes(incidents)
	slices.SortStableFunc(counts, func(a, b EventTypeCount) int {
		return b.Count - a.Count
	})
	if len(counts) > topEventTypeLimit {
		counts = counts[:topEventTypeLimit]
	}
	return counts
}

// countEventTypes counts incidents per event type in first-seen order.
func countEventTypes(incidents []Incident) []EventTypeCount {
	index := make(map[string]int)
	var counts []EventTypeCount
	for _, inc := range incidents {
		t := inc.EventType
		if t == "" {
			t = unknownName
		}
		if i, ok := index[t]; ok {
			counts[i].Count++
			continue
		}
		index[t] = len(counts)
		counts = append(counts, EventTypeCount{Type: t, Count: 1})
	}
	return counts
}

// Recommendations lists the security advice for an area at the given level.
func Recommendations(level RiskLevel, a *AreaAggregate) []string {
	var recs []string
	switch level {
	case LevelHigh:
		recs = append(recs,
			"Implement immediate security protocols",
			"Consider travel restrictions to this area",
			"Increase security detail for operations",
			"Monitor situation continuously",
		)
	case LevelModerate:
		recs = append(recs,
			"Maintain standard security protocols",
			"Regular monitoring recommended",
			"Brief personnel on local conditions",
		)
	default:
		recs = append(recs, "Maintain basic security awareness")
	}

	if a == nil {
		return recs
	}
	if hasEventType(a.EventTypes, "robbery") || hasEventType(a.EventTypes, "theft") {
		recs = append(recs, "Advise on personal security measures")
	}
	if hasEventType(a.EventTypes, "kidnapping") {
		recs = append(recs, "Review kidnapping response protocols")
	}
	if a.TotalFatalities > 0 {
		recs = append(recs, "Consider this area high priority for monitoring")
	}
	return recs
}

func hasEventType(types []string, want string) bool {
	return slices.ContainsFunc(types, func(t string) bool {
		return strings.EqualFold(strings.TrimSpace(t), want)
	})
}

// Statistics summarizes a set of incidents independently of grouping.
type Statistics struct {
	TotalIncidents  int              `json:"totalIncidents"`
	TotalFatalities int              `json:"totalFatalities"`
	TotalInjuries   int              `json:"totalInjuries"`
	EventTypeCounts []EventTypeCount `json:"eventTypeCounts"`
	RegionCounts    map[string]int   `json:"regionCounts"`
	// RecentIncidents holds up to ten incidents from the seven days before now,
	// newest first.
	RecentIncidents []Incident `json:"-"`
}

// ComputeStatistics tallies incidents relative to now.
func ComputeStatistics(incidents []Incident, now time.Time) Statistics {
	stats := Statistics{
		TotalIncidents:  len(incidents),
		EventTypeCounts: countEventTypes(incidents),
		RegionCounts:    make(map[string]int),
	}
	cutoff := now.Add(-recentWindow)
	for _, inc := range incidents {
		stats.TotalFatalities += inc.Fatalities
		stats.TotalInjuries += inc.Injuries

		region := deref(inc.Region)
		if region == "" {
			region = unknownName
		}
		stats.RegionCounts[region]++

		if !inc.Timestamp.Before(cutoff) {
			stats.RecentIncidents = append(stats.RecentIncidents, inc)
		}
	}

	slices.SortStableFunc(stats.RecentIncidents, func(a, b Incident) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	if len(stats.RecentIncidents) > recentIncidentLimit {
		stats.RecentIncidents = stats.RecentIncidents[:recentIncidentLimit]
	}
	return stats
}
