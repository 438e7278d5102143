package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/security-risk-etl/internal/domain"
	"github.com/couchcryptid/security-risk-etl/internal/observability"
)

// minChunkSize keeps small inputs on a single goroutine.
const minChunkSize = 256

// AssessorOptions configures an Assessor.
type AssessorOptions struct {
	// Clock supplies the reference time, read once per assessment.
	Clock   clockwork.Clock
	Filters domain.Filters
	// Workers bounds the goroutines used for aggregation.
	Workers int
	// MatchCacheSize is the number of points memoized by the spatial matcher.
	// Zero disables the cache.
	MatchCacheSize int
	// Geocoder labels unnamed fallback areas. Nil disables labelling.
	Geocoder domain.ReverseGeocoder
}

// Assessor turns raw rows and boundaries into a scored report.
type Assessor struct {
	opts    AssessorOptions
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewAssessor creates an Assessor. A nil clock means wall-clock time.
func NewAssessor(opts AssessorOptions, metrics *observability.Metrics, logger *slog.Logger) *Assessor {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Assessor{opts: opts, metrics: metrics, logger: logger}
}

// Assess normalizes rows, applies the filters, groups incidents by boundary or
// administrative fallback and scores every group against a single reference
// time. Malformed rows are dropped and counted.
func (a *Assessor) Assess(ctx context.Context, rows []domain.RawRow, boundaries []domain.BoundaryFeature) (domain.Report, error) {
	now := a.opts.Clock.Now().UTC()

	incidents := a.normalize(rows)
	filtered := a.opts.Filters.Apply(incidents, now)
	a.metrics.IncidentsFiltered.Add(float64(len(incidents) - len(filtered)))

	var matcher domain.Matcher
	if len(boundaries) > 0 {
		matcher = domain.BoundarySet(boundaries)
		if a.opts.MatchCacheSize > 0 {
			matcher = NewCachedMatcher(matcher, a.opts.MatchCacheSize, a.metrics)
		}
	}

	areas, err := aggregateParallel(ctx, filtered, matcher, a.opts.Workers)
	if err != nil {
		return domain.Report{}, fmt.Errorf("aggregate incidents: %w", err)
	}
	a.recordMatches(areas)

	labels := domain.LabelAreas(ctx, areas, a.opts.Geocoder, a.logger)

	report := domain.BuildReport(filtered, areas, domain.ReportOptions{
		RunID:   uuid.NewString(),
		Now:     now,
		Filters: a.opts.Filters,
		Labels:  labels,
	})
	for level, n := range report.Summary.CountsByLevel {
		a.metrics.AreasByLevel.WithLabelValues(string(level)).Set(float64(n))
	}

	a.logger.Info("assessment complete",
		"run_id", report.Metadata.RunID,
		"rows", len(rows),
		"incidents", len(incidents),
		"filtered_incidents", len(filtered),
		"areas", len(areas),
		"boundaries", len(boundaries),
	)
	return report, nil
}

// normalize converts rows in arrival order. Ordinals count rows per category so
// identical rows in one table keep distinct IDs.
func (a *Assessor) normalize(rows []domain.RawRow) []domain.Incident {
	ordinals := make(map[domain.Category]int)
	incidents := make([]domain.Incident, 0, len(rows))
	for _, row := range rows {
		category := string(row.Category)
		a.metrics.RowsExtracted.WithLabelValues(category).Inc()

		ordinal := ordinals[row.Category]
		ordinals[row.Category]++

		inc, ok := domain.NormalizeRow(row.Fields, row.Category, ordinal)
		if !ok {
			a.metrics.RowsDropped.WithLabelValues(category).Inc()
			a.logger.Debug("dropping malformed row", "category", category, "ordinal", ordinal)
			continue
		}
		a.metrics.IncidentsNormalized.WithLabelValues(category).Inc()
		incidents = append(incidents, inc)
	}
	return incidents
}

func (a *Assessor) recordMatches(areas map[string]*domain.AreaAggregate) {
	for _, area := range areas {
		method := "fallback"
		if area.Boundary != nil {
			method = "boundary"
		}
		a.metrics.SpatialMatches.WithLabelValues(method).Add(float64(area.TotalIncidents))
	}
}

// aggregateParallel splits incidents into contiguous chunks, aggregates each on
// its own goroutine and merges the partial results in chunk order, which yields
// the same aggregates as a single sequential pass.
func aggregateParallel(ctx context.Context, incidents []domain.Incident, m domain.Matcher, workers int) (map[string]*domain.AreaAggregate, error) {
	chunkSize := (len(incidents) + workers - 1) / workers
	if workers <= 1 || chunkSize < minChunkSize {
		return domain.Aggregate(incidents, m)
	}

	var chunks [][]domain.Incident
	for start := 0; start < len(incidents); start += chunkSize {
		chunks = append(chunks, incidents[start:min(start+chunkSize, len(incidents))])
	}

	parts := make([]map[string]*domain.AreaAggregate, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			part, err := domain.Aggregate(chunk, m)
			if err != nil {
				return err
			}
			parts[i] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return domain.MergeAreas(parts...), nil
}
