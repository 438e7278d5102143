package domain

import "github.com/paulmach/orb"

// BoundaryFeature is an administrative boundary polygon. Boundaries are owned by
// the caller and never modified.
type BoundaryFeature struct {
	ShapeID   string
	ShapeName string
	Geometry  orb.Geometry
}

// Matcher finds the boundary containing a point.
type Matcher interface {
	FindContainingBoundary(p orb.Point) (*BoundaryFeature, bool)
}

// BoundarySet is an ordered collection of boundaries matched by linear scan.
type BoundarySet []BoundaryFeature

// FindContainingBoundary implements Matcher.
func (s BoundarySet) FindContainingBoundary(p orb.Point) (*BoundaryFeature, bool) {
	return FindContainingBoundary(p, s)
}

// FindContainingBoundary returns the first boundary, in input order, whose outer
// ring contains p under the even-odd rule. Only Polygon geometries are tested.
//
// Polygons are assumed to be simple, hole-free and non-overlapping. Holes are
// ignored and overlapping polygons resolve to whichever comes first.
func FindContainingBoundary(p orb.Point, boundaries []BoundaryFeature) (*BoundaryFeature, bool) {
	for i := range boundaries {
		poly, ok := boundaries[i].Geometry.(orb.Polygon)
		if !ok || len(poly) == 0 {
			continue
		}
		ring := poly[0]
		if !ring.Bound().Contains(p) {
			continue
		}
		if RingContains(ring, p) {
			return &boundaries[i], true
		}
	}
	return nil, false
}

// RingContains runs a ray-casting test of p against ring. Points exactly on an
// edge may land on either side.
func RingContains(ring orb.Ring, p orb.Point) bool {
	x, y := p[0], p[1]
	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
