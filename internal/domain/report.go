package domain

import (
	"cmp"
	"slices"
	"time"
)

// Report is the exported assessment of one run.
type Report struct {
	Metadata ReportMetadata `json:"metadata"`
	Summary  ReportSummary  `json:"summary"`
	Areas    []AreaReport   `json:"areas"`
}

// ReportMetadata describes how a report was produced.
type ReportMetadata struct {
	RunID       string    `json:"runId,omitempty"`
	GeneratedAt time.Time `json:"generatedAt"`
	Filters     Filters   `json:"filters"`
	TotalAreas  int       `json:"totalAreas"`
}

// ReportSummary holds run-wide totals.
type ReportSummary struct {
	TotalIncidents  int               `json:"totalIncidents"`
	TotalFatalities int               `json:"totalFatalities"`
	TotalInjuries   int               `json:"totalInjuries"`
	CountsByLevel   map[RiskLevel]int `json:"countsByLevel"`
	EventTypeCounts []EventTypeCount  `json:"eventTypeCounts"`
	RegionCounts    map[string]int    `json:"regionCounts"`
	RecentIncidents []IncidentSummary `json:"recentIncidents"`
}

// AreaReport is one scored area with its evidence.
type AreaReport struct {
	Key             string           `json:"key"`
	Name            string           `json:"name"`
	Region          string           `json:"region"`
	Zone            string           `json:"zone"`
	ShapeID         string           `json:"shapeId,omitempty"`
	Level           RiskLevel        `json:"level"`
	Score           float64          `json:"score"`
	Color           string           `json:"color"`
	Breakdown       ScoreBreakdown   `json:"breakdown"`
	TotalIncidents  int              `json:"totalIncidents"`
	TotalFatalities int              `json:"totalFatalities"`
	TotalInjuries   int              `json:"totalInjuries"`
	EventTypes      []string         `json:"eventTypes"`
	TopEventTypes   []EventTypeCount `json:"topEventTypes"`
	Recommendations []string         `json:"recommendations"`
	Centroid        *Centroid        `json:"centroid,omitempty"`
	LatestIncident  *IncidentSummary `json:"latestIncident"`
	Incidents       []IncidentRecord `json:"incidents"`
}

// IncidentSummary is the short form of an incident.
type IncidentSummary struct {
	ID       string  `json:"id"`
	Type     string  `json:"type"`
	Date     string  `json:"date"`
	Location *string `json:"location"`
}

// IncidentRecord is the full serialized form of an incident in a report.
type IncidentRecord struct {
	ID         string           `json:"id"`
	Type       Category         `json:"type"`
	EventType  string           `json:"eventType"`
	Date       string           `json:"date"`
	Location   IncidentLocation `json:"location"`
	Casualties Casualties       `json:"casualties"`
	Notes      *string          `json:"notes"`
}

// IncidentLocation is where an incident happened.
type IncidentLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Town      *string `json:"town"`
	Woreda    *string `json:"woreda"`
	Region    *string `json:"region"`
}

// Casualties are the human cost of an incident.
type Casualties struct {
	Fatalities int `json:"fatalities"`
	Injuries   int `json:"injuries"`
}

// ReportOptions carries the run context of BuildReport.
type ReportOptions struct {
	RunID   string
	Now     time.Time
	Filters Filters
	// Labels maps area keys to place names for areas without a woreda name.
	Labels map[string]string
}

// BuildReport scores every area against opts.Now and assembles the report.
// incidents should be the set that was aggregated; it feeds the run statistics.
// Areas are ordered by descending score, then by key.
func BuildReport(incidents []Incident, areas map[string]*AreaAggregate, opts ReportOptions) Report {
	stats := ComputeStatistics(incidents, opts.Now)

	report := Report{
		Metadata: ReportMetadata{
			RunID:       opts.RunID,
			GeneratedAt: opts.Now,
			Filters:     opts.Filters,
			TotalAreas:  len(areas),
		},
		Summary: ReportSummary{
			CountsByLevel:   make(map[RiskLevel]int, len(Levels)),
			EventTypeCounts: stats.EventTypeCounts,
			RegionCounts:    stats.RegionCounts,
			RecentIncidents: make([]IncidentSummary, 0, len(stats.RecentIncidents)),
		},
		Areas: make([]AreaReport, 0, len(areas)),
	}
	for _, l := range Levels {
		report.Summary.CountsByLevel[l] = 0
	}
	for _, inc := range stats.RecentIncidents {
		report.Summary.RecentIncidents = append(report.Summary.RecentIncidents, summarize(inc))
	}

	for _, area := range areas {
		risk := ScoreArea(area, opts.Now)

		report.Summary.TotalIncidents += area.TotalIncidents
		report.Summary.TotalFatalities += area.TotalFatalities
		report.Summary.TotalInjuries += area.TotalInjuries
		report.Summary.CountsByLevel[risk.Level]++

		report.Areas = append(report.Areas, buildAreaReport(area, risk, opts.Labels[area.Key]))
	}

	slices.SortFunc(report.Areas, func(a, b AreaReport) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})

	return report
}

func buildAreaReport(area *AreaAggregate, risk RiskScore, label string) AreaReport {
	name := area.Woreda
	if name == "" {
		name = label
	}
	if name == "" {
		name = unknownName
	}

	ar := AreaReport{
		Key:             area.Key,
		Name:            name,
		Region:          area.Region,
		Zone:            area.Zone,
		Level:           risk.Level,
		Score:           risk.Score,
		Color:           risk.Color,
		Breakdown:       risk.Breakdown,
		TotalIncidents:  area.TotalIncidents,
		TotalFatalities: area.TotalFatalities,
		TotalInjuries:   area.TotalInjuries,
		EventTypes:      append([]string{}, area.EventTypes...),
		TopEventTypes:   TopEventTypes(area.Incidents),
		Recommendations: Recommendations(risk.Level, area),
		Incidents:       make([]IncidentRecord, 0, len(area.Incidents)),
	}
	if area.Boundary != nil {
		ar.ShapeID = area.Boundary.ShapeID
	}
	if area.Centroid != nil {
		c := *area.Centroid
		ar.Centroid = &c
	}
	if area.LatestIncident != nil {
		s := summarize(*area.LatestIncident)
		ar.LatestIncident = &s
	}
	for _, inc := range area.Incidents {
		ar.Incidents = append(ar.Incidents, IncidentRecord{
			ID:        inc.ID,
			Type:      inc.Category,
			EventType: inc.EventType,
			Date:      formatDate(inc.Timestamp),
			Location: IncidentLocation{
				Latitude:  inc.Latitude,
				Longitude: inc.Longitude,
				Town:      inc.Town,
				Woreda:    inc.Woreda,
				Region:    inc.Region,
			},
			Casualties: Casualties{Fatalities: inc.Fatalities, Injuries: inc.Injuries},
			Notes:      inc.Notes,
		})
	}
	return ar
}

// summarize keeps the event type, date and most specific place of an incident.
func summarize(inc Incident) IncidentSummary {
	location := inc.Town
	if location == nil {
		location = inc.Woreda
	}
	return IncidentSummary{
		ID:       inc.ID,
		Type:     inc.EventType,
		Date:     formatDate(inc.Timestamp),
		Location: location,
	}
}

func formatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
