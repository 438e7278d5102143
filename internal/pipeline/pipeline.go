package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/security-risk-etl/internal/domain"
	"github.com/couchcryptid/security-risk-etl/internal/observability"
)

// BatchExtractor reads up to batchSize raw rows from the source. An empty batch
// means the source is drained.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRow, error)
}

// BoundaryLoader provides the administrative boundaries used for spatial matching.
type BoundaryLoader interface {
	LoadBoundaries(ctx context.Context) ([]domain.BoundaryFeature, error)
}

// ReportLoader publishes a finished assessment.
type ReportLoader interface {
	LoadReport(ctx context.Context, report domain.Report) error
}

const (
	initialBackoff     = 200 * time.Millisecond
	maxBackoff         = 5 * time.Second
	maxExtractAttempts = 5
)

// Pipeline orchestrates one extract-assess-publish run.
type Pipeline struct {
	extractor  BatchExtractor
	boundaries BoundaryLoader
	assessor   *Assessor
	loaders    []ReportLoader
	logger     *slog.Logger
	metrics    *observability.Metrics
	batchSize  int

	ready  atomic.Bool
	mu     sync.RWMutex
	latest *domain.Report
}

// New creates a Pipeline. boundaries may be nil, in which case every incident
// is grouped by its administrative fallback key.
func New(e BatchExtractor, b BoundaryLoader, a *Assessor, loaders []ReportLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:  e,
		boundaries: b,
		assessor:   a,
		loaders:    loaders,
		logger:     logger,
		metrics:    metrics,
		batchSize:  batchSize,
	}
}

// CheckReadiness returns nil once a run has completed, or an error describing
// why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no assessment has completed yet")
	}
	return nil
}

// Latest returns the report of the last successful run.
func (p *Pipeline) Latest() (domain.Report, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return domain.Report{}, false
	}
	return *p.latest, true
}

// Run extracts every available row, assesses it and publishes the report to
// each loader. Source rows are committed only after all loaders succeed.
func (p *Pipeline) Run(ctx context.Context) (domain.Report, error) {
	start := time.Now()
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	report, err := p.run(ctx)
	p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.metrics.Runs.WithLabelValues("error").Inc()
		return domain.Report{}, err
	}
	p.metrics.Runs.WithLabelValues("success").Inc()

	p.mu.Lock()
	p.latest = &report
	p.mu.Unlock()
	p.ready.Store(true)

	p.logger.Info("pipeline finished",
		"run_id", report.Metadata.RunID,
		"areas", report.Metadata.TotalAreas,
		"incidents", report.Summary.TotalIncidents,
		"duration", time.Since(start),
	)
	return report, nil
}

func (p *Pipeline) run(ctx context.Context) (domain.Report, error) {
	rows, err := p.extractAll(ctx)
	if err != nil {
		return domain.Report{}, err
	}

	boundaries := p.loadBoundaries(ctx)

	report, err := p.assessor.Assess(ctx, rows, boundaries)
	if err != nil {
		return domain.Report{}, err
	}

	var loadErrs []error
	for _, l := range p.loaders {
		if err := l.LoadReport(ctx, report); err != nil {
			p.logger.Error("load report failed", "error", err)
			loadErrs = append(loadErrs, err)
		}
	}
	if err := errors.Join(loadErrs...); err != nil {
		return domain.Report{}, fmt.Errorf("publish report: %w", err)
	}

	p.commitRows(ctx, rows)
	return report, nil
}

// extractAll drains the extractor, retrying failed batches with exponential
// backoff.
func (p *Pipeline) extractAll(ctx context.Context) ([]domain.RawRow, error) {
	var rows []domain.RawRow
	backoff := initialBackoff
	attempts := 0

	for {
		batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			attempts++
			p.logger.Error("extract batch failed", "error", err, "attempt", attempts)
			if attempts >= maxExtractAttempts {
				return nil, fmt.Errorf("extract rows: %w", err)
			}
			if !sleepWithContext(ctx, backoff) {
				return nil, ctx.Err()
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}

		if len(batch) == 0 {
			p.logger.Info("source drained", "rows", len(rows))
			return rows, nil
		}
		rows = append(rows, batch...)
		attempts = 0
		backoff = initialBackoff
	}
}

// loadBoundaries returns nil when no loader is configured or loading fails,
// which makes every incident fall back to its administrative key.
func (p *Pipeline) loadBoundaries(ctx context.Context) []domain.BoundaryFeature {
	if p.boundaries == nil {
		p.metrics.BoundariesLoaded.Set(0)
		return nil
	}
	boundaries, err := p.boundaries.LoadBoundaries(ctx)
	if err != nil {
		p.logger.Warn("boundaries unavailable, using administrative grouping only", "error", err)
		p.metrics.BoundariesLoaded.Set(0)
		return nil
	}
	p.metrics.BoundariesLoaded.Set(float64(len(boundaries)))
	p.logger.Info("boundaries loaded", "count", len(boundaries))
	return boundaries
}

// commitRows acknowledges source rows that carry a commit function.
func (p *Pipeline) commitRows(ctx context.Context, rows []domain.RawRow) {
	for _, row := range rows {
		if row.Commit == nil {
			continue
		}
		if err := row.Commit(ctx); err != nil {
			p.logger.Warn("commit row failed", "error", err, "category", row.Category)
		}
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
