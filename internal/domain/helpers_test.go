package domain

import (
	"io"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
)

var testNow = time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func daysAgo(n int) time.Time {
	return testNow.AddDate(0, 0, -n)
}

// newIncident returns a valid incident at (lat, lng) dated daysBefore testNow.
func newIncident(id, eventType string, lat, lng float64, daysBefore int) Incident {
	return Incident{
		ID:        id,
		Category:  CategoryConflict,
		EventType: eventType,
		Timestamp: daysAgo(daysBefore),
		Latitude:  lat,
		Longitude: lng,
	}
}

// square returns a polygon boundary covering [minLng,maxLng]×[minLat,maxLat].
func square(id, name string, minLng, minLat, maxLng, maxLat float64) BoundaryFeature {
	return BoundaryFeature{
		ShapeID:   id,
		ShapeName: name,
		Geometry: orb.Polygon{orb.Ring{
			{minLng, minLat},
			{maxLng, minLat},
			{maxLng, maxLat},
			{minLng, maxLat},
			{minLng, minLat},
		}},
	}
}
