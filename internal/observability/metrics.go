package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "security_risk"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// assessment pipeline.
type Metrics struct {
	PipelineRunning prometheus.Gauge
	Runs            *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration     prometheus.Histogram

	// Ingestion metrics.
	RowsExtracted       *prometheus.CounterVec // labels: category
	RowsDropped         *prometheus.CounterVec // labels: category
	IncidentsNormalized *prometheus.CounterVec // labels: category
	IncidentsFiltered   prometheus.Counter
	BoundariesLoaded    prometheus.Gauge

	// Spatial matching metrics.
	SpatialMatches *prometheus.CounterVec // labels: method={boundary,fallback}
	MatchCache     *prometheus.CounterVec // labels: result={hit,miss}

	// Assessment output metrics.
	AreasByLevel     *prometheus.GaugeVec   // labels: level={high,moderate,minimal}
	ReportsPublished *prometheus.CounterVec // labels: sink={file,kafka}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
	GeocodeEnabled     prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return NewMetricsWith(prometheus.NewRegistry())
}

// NewMetricsWith creates and registers all pipeline metrics with reg.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while an assessment run is in progress, 0 otherwise.",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Assessment runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete extract-assess-publish run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		RowsExtracted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_extracted_total",
			Help:      "Raw incident rows read from the source, by category.",
		}, []string{"category"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Raw rows dropped for missing or unparseable coordinates or dates, by category.",
		}, []string{"category"}),
		IncidentsNormalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_normalized_total",
			Help:      "Incidents produced by normalization, by category.",
		}, []string{"category"}),
		IncidentsFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_filtered_total",
			Help:      "Incidents excluded by the time range or incident type filters.",
		}),
		BoundariesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "boundaries_loaded",
			Help:      "Boundary features available to the spatial matcher.",
		}),
		SpatialMatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spatial_matches_total",
			Help:      "Incidents grouped by boundary containment or by administrative fallback.",
		}, []string{"method"}),
		MatchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_cache_total",
			Help:      "Spatial match cache lookups by result.",
		}, []string{"result"}),
		AreasByLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "areas",
			Help:      "Areas in the latest report, by risk level.",
		}, []string{"level"}),
		ReportsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_published_total",
			Help:      "Reports handed to a sink, by sink.",
		}, []string{"sink"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Reverse geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "geocode_enabled",
			Help:      "1 when area labelling by reverse geocoding is enabled, 0 otherwise.",
		}),
	}

	reg.MustRegister(
		m.PipelineRunning,
		m.Runs,
		m.RunDuration,
		m.RowsExtracted,
		m.RowsDropped,
		m.IncidentsNormalized,
		m.IncidentsFiltered,
		m.BoundariesLoaded,
		m.SpatialMatches,
		m.MatchCache,
		m.AreasByLevel,
		m.ReportsPublished,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
		m.GeocodeEnabled,
	)

	return m
}
