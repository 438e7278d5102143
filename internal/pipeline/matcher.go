package pipeline

import (
	"github.com/paulmach/orb"

	"github.com/couchcryptid/security-risk-etl/internal/domain"
	"github.com/couchcryptid/security-risk-etl/internal/lru"
	"github.com/couchcryptid/security-risk-etl/internal/observability"
)

type matchResult struct {
	boundary *domain.BoundaryFeature
	ok       bool
}

// CachedMatcher memoizes point-in-polygon lookups. Incidents reported at the
// same coordinates skip the boundary scan. Misses are cached too. Safe for
// concurrent use.
type CachedMatcher struct {
	inner   domain.Matcher
	cache   *lru.Cache[orb.Point, matchResult]
	metrics *observability.Metrics
}

// NewCachedMatcher wraps inner with an LRU cache of maxEntries points.
func NewCachedMatcher(inner domain.Matcher, maxEntries int, metrics *observability.Metrics) *CachedMatcher {
	return &CachedMatcher{
		inner:   inner,
		cache:   lru.New[orb.Point, matchResult](maxEntries),
		metrics: metrics,
	}
}

// FindContainingBoundary implements domain.Matcher.
func (m *CachedMatcher) FindContainingBoundary(p orb.Point) (*domain.BoundaryFeature, bool) {
	if r, ok := m.cache.Get(p); ok {
		m.metrics.MatchCache.WithLabelValues("hit").Inc()
		return r.boundary, r.ok
	}
	m.metrics.MatchCache.WithLabelValues("miss").Inc()

	b, ok := m.inner.FindContainingBoundary(p)
	m.cache.Put(p, matchResult{boundary: b, ok: ok})
	return b, ok
}
