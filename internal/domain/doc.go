// Package domain models field security incident data and the area risk
// assessment derived from it.
//
// # Data Source
//
// Incident rows come from two field-reporting tables, one for crime and one for
// conflict events. Each row is a flat mapping of column name to string, either
// read from CSV exports or consumed as flat JSON from the source topic. Boundary
// polygons come from an ADM3 (woreda level) GeoJSON FeatureCollection whose
// features carry "shapeID" and "shapeName" properties.
//
// # Field Data Conventions
//
// Date format (first pattern that matches anywhere in the string wins):
//
//	"M/D/YYYY"  →  e.g. "3/14/2024"
//	"YYYY-M-D"  →  e.g. "2024-03-14"
//	"M-D-YYYY"  →  e.g. "03-14-2024"
//
//	Anything else goes through generic date parsing. Out-of-range components roll
//	over (month 13 is January of the next year), matching the field tooling.
//	All dates are calendar days at 00:00 UTC.
//
// Casualty columns ("Fatalities", "Injuries"):
//
//	Blank or "None" → 0, "Yes" → 1 (at least one, count unknown),
//	otherwise the leading integer ("3 civilians" → 3). Anything else is 0.
//
// Coordinates:
//
//	Decimal degrees. A blank, unparseable or zero value means the position was
//	not recorded and the row is dropped.
//
// Empty text fields are stored as nil so "collected but empty" and "not collected"
// stay distinguishable from real values.
//
// # Grouping
//
// Incidents are grouped by the boundary polygon that contains them
// ("boundary_<shapeID>"). Incidents outside every polygon fall back to an
// administrative key: "region_zone_woreda", then "region_zone_town", then
// "region_coord_<lat>_<lng>" with coordinates rounded to two decimals
// (roughly 1.1 km cells).
//
// # Risk Score
//
// Each incident scores severity × recency × casualty. An area sums its incident
// scores and applies a sub-linear quantity multiplier:
//
//	severity:  ordered event type table, 1 (unknown) to 9 (drone strike)
//	recency:   1 − days/90, floored at 0.1; ×1.2 (capped at 1.2) within 7 days
//	casualty:  1 + min((2·fatalities + 0.5·injuries) × 0.1, 1)
//	quantity:  1 + log10(n) × 0.2 for n > 1
//
//	  score ≥ 6 high | ≥ 3 moderate | otherwise minimal
//
// Scoring never reads a clock: the reference time is always passed in.
//
// # ID Generation
//
// Incident IDs are deterministic SHA-256 hashes of
// category|ordinal|eventType|date|lat|lon, so re-running the same input yields the
// same IDs and the same report. See [generateID].
package domain
