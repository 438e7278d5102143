package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/paulmach/orb"
)

// Category is the provenance of an incident: the table it was reported in.
type Category string

const (
	CategoryCrime    Category = "crime"
	CategoryConflict Category = "conflict"
)

// ParseCategory accepts "crime" or "conflict" in any case.
func ParseCategory(s string) (Category, error) {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryCrime, CategoryConflict:
		return c, nil
	default:
		return "", fmt.Errorf("unknown incident category %q", s)
	}
}

// RawRow is one unparsed source row together with the table it came from.
type RawRow struct {
	Category Category
	Fields   map[string]string
	Commit   func(ctx context.Context) error
}

// Incident is the canonical representation of a single reported event.
// Optional administrative and text fields are nil when absent.
type Incident struct {
	ID           string    `json:"id" validate:"required"`
	Category     Category  `json:"type" validate:"oneof=crime conflict"`
	EventType    string    `json:"eventType" validate:"required"`
	Timestamp    time.Time `json:"date"`
	Latitude     float64   `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude    float64   `json:"longitude" validate:"gte=-180,lte=180"`
	Region       *string   `json:"region"`
	Zone         *string   `json:"zone"`
	Woreda       *string   `json:"woreda"`
	Kebele       *string   `json:"kebele"`
	Town         *string   `json:"town"`
	Fatalities   int       `json:"fatalities" validate:"gte=0"`
	Injuries     int       `json:"injuries" validate:"gte=0"`
	Notes        *string   `json:"notes"`
	ComPersonnel bool      `json:"comPersonnel"`
}

// Point returns the incident position in orb's (lng, lat) order.
func (i Incident) Point() orb.Point {
	return orb.Point{i.Longitude, i.Latitude}
}

// deref returns the pointed-to string, or "" for nil.
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// optional returns nil for an empty string and a pointer to s otherwise.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
