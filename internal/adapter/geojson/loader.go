// Package geojson loads administrative boundaries from a GeoJSON
// FeatureCollection such as the geoBoundaries ADM3 layer.
package geojson

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/security-risk-etl/internal/domain"
)

// Feature property names.
const (
	PropShapeID   = "shapeID"
	PropShapeName = "shapeName"
)

// Loader reads boundary features from a file.
// It implements pipeline.BoundaryLoader.
type Loader struct {
	path   string
	logger *slog.Logger
}

// NewLoader creates a loader for the FeatureCollection at path.
func NewLoader(path string, logger *slog.Logger) *Loader {
	return &Loader{path: path, logger: logger}
}

// LoadBoundaries reads and decodes the file. Features without a geometry are
// skipped. Feature order is preserved.
func (l *Loader) LoadBoundaries(ctx context.Context) ([]domain.BoundaryFeature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read boundaries: %w", err)
	}
	boundaries, skipped, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", l.path, err)
	}
	if skipped > 0 {
		l.logger.Warn("skipped boundary features without geometry", "path", l.path, "skipped", skipped)
	}
	b := Bound(boundaries)
	l.logger.Debug("boundaries decoded", "path", l.path, "count", len(boundaries), "min", b.Min, "max", b.Max)
	return boundaries, nil
}

// Decode converts a FeatureCollection into boundary features and reports how
// many features were skipped for lacking a geometry.
func Decode(data []byte) ([]domain.BoundaryFeature, int, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, 0, err
	}

	boundaries := make([]domain.BoundaryFeature, 0, len(fc.Features))
	skipped := 0
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			skipped++
			continue
		}
		boundaries = append(boundaries, domain.BoundaryFeature{
			ShapeID:   f.Properties.MustString(PropShapeID, ""),
			ShapeName: f.Properties.MustString(PropShapeName, ""),
			Geometry:  f.Geometry,
		})
	}
	return boundaries, skipped, nil
}

// Bound returns the bounding box of all boundaries.
func Bound(boundaries []domain.BoundaryFeature) orb.Bound {
	var (
		b   orb.Bound
		set bool
	)
	for _, f := range boundaries {
		fb := f.Geometry.Bound()
		if !set {
			b, set = fb, true
			continue
		}
		b = b.Union(fb)
	}
	return b
}
