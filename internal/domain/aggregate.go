package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	boundaryKeyPrefix = "boundary_"
	unknownName       = "Unknown"
)

// Centroid is a running mean position for groups without a boundary.
type Centroid struct {
	AvgLat float64 `json:"avgLat"`
	AvgLng float64 `json:"avgLng"`
	Count  int     `json:"count"`
}

// AreaAggregate accumulates the incidents of one spatial or administrative group.
// Totals always equal the corresponding sums over Incidents.
type AreaAggregate struct {
	Key      string
	Region   string
	Zone     string
	Woreda   string
	Boundary *BoundaryFeature

	Incidents       []Incident
	TotalIncidents  int
	TotalFatalities int
	TotalInjuries   int
	EventTypes      []string
	LatestIncident  *Incident

	// Centroid is nil for boundary-matched groups.
	Centroid *Centroid

	seen map[string]struct{}
}

// Aggregate groups incidents by containing boundary, falling back to the
// administrative or coordinate key when no boundary matches. A nil matcher
// means no boundary data is available. Incidents that break the Incident
// contract abort the pass with an error wrapping ErrInvalidIncident.
func Aggregate(incidents []Incident, m Matcher) (map[string]*AreaAggregate, error) {
	areas := make(map[string]*AreaAggregate)
	for i := range incidents {
		inc := incidents[i]
		if err := ValidateIncident(inc); err != nil {
			return nil, err
		}

		var boundary *BoundaryFeature
		if m != nil {
			if b, ok := m.FindContainingBoundary(inc.Point()); ok {
				boundary = b
			}
		}

		key := FallbackKey(inc)
		if boundary != nil {
			key = BoundaryKey(boundary)
		}

		area, ok := areas[key]
		if !ok {
			area = newArea(key, inc, boundary)
			areas[key] = area
		}
		area.add(inc)
	}
	return areas, nil
}

// BoundaryKey is the group key of incidents matched to b.
func BoundaryKey(b *BoundaryFeature) string {
	return boundaryKeyPrefix + b.ShapeID
}

// FallbackKey builds the administrative group key for an incident outside every
// boundary: region_zone_woreda, else region_zone_town, else
// region_coord_<lat>_<lng> with coordinates rounded to two decimals.
func FallbackKey(inc Incident) string {
	region := normalizeKeyPart(inc.Region)
	zone := normalizeKeyPart(inc.Zone)
	if woreda := normalizeKeyPart(inc.Woreda); woreda != "" {
		return region + "_" + zone + "_" + woreda
	}
	if town := normalizeKeyPart(inc.Town); town != "" {
		return region + "_" + zone + "_" + town
	}
	return fmt.Sprintf("%s_coord_%s_%s", region, formatRounded(inc.Latitude), formatRounded(inc.Longitude))
}

func normalizeKeyPart(s *string) string {
	return strings.ToLower(strings.TrimSpace(deref(s)))
}

// formatRounded rounds to two decimals and prints the shortest representation,
// so 9.10 renders as "9.1" and 38 as "38".
func formatRounded(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return strconv.FormatFloat(r, 'f', -1, 64)
}

func newArea(key string, first Incident, boundary *BoundaryFeature) *AreaAggregate {
	area := &AreaAggregate{
		Key:    key,
		Region: deref(first.Region),
		Zone:   deref(first.Zone),
		Woreda: deref(first.Woreda),
		seen:   make(map[string]struct{}),
	}
	if boundary != nil {
		area.Boundary = boundary
		area.Woreda = boundary.ShapeName
		if area.Region == "" {
			area.Region = unknownName
		}
		if area.Zone == "" {
			area.Zone = unknownName
		}
		return area
	}
	area.Centroid = &Centroid{}
	return area
}

// add folds one incident into the aggregate.
func (a *AreaAggregate) add(inc Incident) {
	a.Incidents = append(a.Incidents, inc)
	a.TotalIncidents++
	a.TotalFatalities += inc.Fatalities
	a.TotalInjuries += inc.Injuries
	a.addEventType(inc.EventType)

	if a.Centroid != nil {
		c := a.Centroid
		n := float64(c.Count)
		c.AvgLat = (c.AvgLat*n + inc.Latitude) / (n + 1)
		c.AvgLng = (c.AvgLng*n + inc.Longitude) / (n + 1)
		c.Count++
	}

	if a.LatestIncident == nil || inc.Timestamp.After(a.LatestIncident.Timestamp) {
		latest := inc
		a.LatestIncident = &latest
	}
}

func (a *AreaAggregate) addEventType(t string) {
	if a.seen == nil {
		a.seen = make(map[string]struct{}, len(a.EventTypes))
		for _, et := range a.EventTypes {
			a.seen[et] = struct{}{}
		}
	}
	if _, ok := a.seen[t]; ok {
		return
	}
	a.seen[t] = struct{}{}
	a.EventTypes = append(a.EventTypes, t)
}

// MergeAreas combines partial aggregations. Parts must come from contiguous,
// in-order partitions of the input for the result to equal a single pass:
// incident order follows part order and ties on the latest incident keep the
// earlier part's pick. Inputs are not modified.
func MergeAreas(parts ...map[string]*AreaAggregate) map[string]*AreaAggregate {
	merged := make(map[string]*AreaAggregate)
	for _, part := range parts {
		for key, area := range part {
			existing, ok := merged[key]
			if !ok {
				merged[key] = area.clone()
				continue
			}
			existing.merge(area)
		}
	}
	return merged
}

func (a *AreaAggregate) clone() *AreaAggregate {
	c := *a
	c.Incidents = append([]Incident(nil), a.Incidents...)
	c.EventTypes = append([]string(nil), a.EventTypes...)
	c.seen = nil
	if a.Centroid != nil {
		centroid := *a.Centroid
		c.Centroid = &centroid
	}
	if a.LatestIncident != nil {
		latest := *a.LatestIncident
		c.LatestIncident = &latest
	}
	return &c
}

func (a *AreaAggregate) merge(b *AreaAggregate) {
	a.Incidents = append(a.Incidents, b.Incidents...)
	a.TotalIncidents += b.TotalIncidents
	a.TotalFatalities += b.TotalFatalities
	a.TotalInjuries += b.TotalInjuries
	for _, t := range b.EventTypes {
		a.addEventType(t)
	}

	if a.Centroid != nil && b.Centroid != nil && b.Centroid.Count > 0 {
		n1, n2 := float64(a.Centroid.Count), float64(b.Centroid.Count)
		a.Centroid.AvgLat = (a.Centroid.AvgLat*n1 + b.Centroid.AvgLat*n2) / (n1 + n2)
		a.Centroid.AvgLng = (a.Centroid.AvgLng*n1 + b.Centroid.AvgLng*n2) / (n1 + n2)
		a.Centroid.Count += b.Centroid.Count
	}

	if b.LatestIncident != nil &&
		(a.LatestIncident == nil || b.LatestIncident.Timestamp.After(a.LatestIncident.Timestamp)) {
		latest := *b.LatestIncident
		a.LatestIncident = &latest
	}
}
