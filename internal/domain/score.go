package domain

import (
	"math"
	"time"
)

// RiskLevel is the tier an area score falls into.
type RiskLevel string

const (
	LevelHigh     RiskLevel = "high"
	LevelModerate RiskLevel = "moderate"
	LevelMinimal  RiskLevel = "minimal"
)

// Levels lists every tier from most to least severe.
var Levels = []RiskLevel{LevelHigh, LevelModerate, LevelMinimal}

const (
	highThreshold     = 6.0
	moderateThreshold = 3.0

	recencyFloor      = 0.1
	recencyWindowDays = 90.0
	recentDays        = 7.0
	recentBoost       = 1.2

	fatalityWeight = 2.0
	injuryWeight   = 0.5
	casualtyFactor = 0.1
	casualtyCap    = 1.0

	quantityFactor = 0.2
)

// Color returns the choropleth fill for the level.
func (l RiskLevel) Color() string {
	switch l {
	case LevelHigh:
		return "#CC0000"
	case LevelModerate:
		return "#FFCC00"
	default:
		return "transparent"
	}
}

// ScoreBreakdown reports the factors behind a score. For areas the severity,
// recency and casualty fields are per-incident means.
type ScoreBreakdown struct {
	SeverityScore      float64 `json:"severityScore"`
	RecencyMultiplier  float64 `json:"recencyMultiplier"`
	CasualtyMultiplier float64 `json:"casualtyMultiplier"`
	QuantityMultiplier float64 `json:"quantityMultiplier"`
}

// IncidentScore is the unrounded score of a single incident.
type IncidentScore struct {
	Score     float64
	Breakdown ScoreBreakdown
}

// RiskScore is the assessment of one area.
type RiskScore struct {
	Score     float64        `json:"score"`
	Level     RiskLevel      `json:"level"`
	Color     string         `json:"color"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// ScoreIncident computes severity × recency × casualty relative to now.
func ScoreIncident(inc Incident, now time.Time) IncidentScore {
	severity := SeverityWeight(inc.EventType)
	recency := RecencyMultiplier(inc.Timestamp, now)
	casualty := CasualtyMultiplier(inc.Fatalities, inc.Injuries)
	return IncidentScore{
		Score: severity * recency * casualty,
		Breakdown: ScoreBreakdown{
			SeverityScore:      severity,
			RecencyMultiplier:  recency,
			CasualtyMultiplier: casualty,
		},
	}
}

// ScoreArea sums the incident scores of an area, applies the quantity
// multiplier and classifies the result rounded to two decimals. An area without
// incidents is minimal with a zero breakdown.
func ScoreArea(a *AreaAggregate, now time.Time) RiskScore {
	if a == nil || len(a.Incidents) == 0 {
		return RiskScore{Score: 0, Level: LevelMinimal, Color: LevelMinimal.Color()}
	}

	var total float64
	var sum ScoreBreakdown
	for _, inc := range a.Incidents {
		s := ScoreIncident(inc, now)
		total += s.Score
		sum.SeverityScore += s.Breakdown.SeverityScore
		sum.RecencyMultiplier += s.Breakdown.RecencyMultiplier
		sum.CasualtyMultiplier += s.Breakdown.CasualtyMultiplier
	}

	n := len(a.Incidents)
	quantity := QuantityMultiplier(n)
	score := math.Round(total*quantity*100) / 100
	level := Classify(score)

	return RiskScore{
		Score: score,
		Level: level,
		Color: level.Color(),
		Breakdown: ScoreBreakdown{
			SeverityScore:      sum.SeverityScore / float64(n),
			RecencyMultiplier:  sum.RecencyMultiplier / float64(n),
			CasualtyMultiplier: sum.CasualtyMultiplier / float64(n),
			QuantityMultiplier: quantity,
		},
	}
}

// RecencyMultiplier decays linearly from 1.0 to 0.1 over 90 days, with a boost
// (capped at 1.2) inside the last 7 days. Future dates are not penalized and a
// missing date gets the floor.
func RecencyMultiplier(ts, now time.Time) float64 {
	if ts.IsZero() {
		return recencyFloor
	}
	daysAgo := now.Sub(ts).Hours() / 24
	if daysAgo < 0 {
		return 1.0
	}
	decay := math.Max(recencyFloor, 1-daysAgo/recencyWindowDays)
	if daysAgo <= recentDays {
		return math.Min(recentBoost, decay*recentBoost)
	}
	return decay
}

// CasualtyMultiplier weighs fatalities four times injuries and caps at 2.0.
func CasualtyMultiplier(fatalities, injuries int) float64 {
	score := float64(fatalities)*fatalityWeight + float64(injuries)*injuryWeight
	if score <= 0 {
		return 1.0
	}
	return 1 + math.Min(score*casualtyFactor, casualtyCap)
}

// QuantityMultiplier grows with log10 of the incident count.
func QuantityMultiplier(count int) float64 {
	if count <= 1 {
		return 1.0
	}
	return 1 + math.Log10(float64(count))*quantityFactor
}

// Classify maps a score to its tier.
func Classify(score float64) RiskLevel {
	switch {
	case score >= highThreshold:
		return LevelHigh
	case score >= moderateThreshold:
		return LevelModerate
	default:
		return LevelMinimal
	}
}
