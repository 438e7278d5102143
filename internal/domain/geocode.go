package domain

import (
	"context"
	"log/slog"
	"sort"
)

// LabelAreas looks up a place name for every fallback area that has no woreda
// name, using the area centroid. Areas matched to a boundary already carry the
// boundary name and are skipped. Lookup failures are logged and leave the area
// unlabelled. A nil geocoder yields no labels.
func LabelAreas(ctx context.Context, areas map[string]*AreaAggregate, geocoder ReverseGeocoder, logger *slog.Logger) map[string]string {
	labels := make(map[string]string)
	if geocoder == nil {
		return labels
	}

	keys := make([]string, 0, len(areas))
	for key, area := range areas {
		if area.Boundary == nil && area.Woreda == "" && area.Centroid != nil && area.Centroid.Count > 0 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		if ctx.Err() != nil {
			break
		}
		c := areas[key].Centroid
		result, err := geocoder.ReverseGeocode(ctx, c.AvgLat, c.AvgLng)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"area", key,
				"lat", c.AvgLat,
				"lon", c.AvgLng,
				"error", err,
			)
			continue
		}
		switch {
		case result.PlaceName != "":
			labels[key] = result.PlaceName
		case result.FormattedAddress != "":
			labels[key] = result.FormattedAddress
		}
	}
	return labels
}
