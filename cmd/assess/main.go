// Command assess runs a single security risk assessment over local incident
// tables and writes the JSON report to a file or standard output. A summary
// of the result is printed to standard error.
//
// Usage:
//
//	go run ./cmd/assess \
//	  -crime data/Crime-Report-RSO.csv \
//	  -conflict data/Conflict-Incident-RSO.csv \
//	  -boundaries layers/geoBoundaries-ETH-ADM3.geojson \
//	  -now 2024-06-30 -time-range 90 -out report.json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/security-risk-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/security-risk-etl/internal/adapter/geojson"
	"github.com/couchcryptid/security-risk-etl/internal/adapter/reportfile"
	"github.com/couchcryptid/security-risk-etl/internal/config"
	"github.com/couchcryptid/security-risk-etl/internal/domain"
	"github.com/couchcryptid/security-risk-etl/internal/observability"
	"github.com/couchcryptid/security-risk-etl/internal/pipeline"
)

const topAreas = 10

type options struct {
	crime        string
	conflict     string
	boundaries   string
	out          string
	now          string
	timeRange    int
	incidentType string
	workers      int
	logLevel     string
}

func main() {
	var opts options
	flag.StringVar(&opts.crime, "crime", "", "path to the crime report CSV")
	flag.StringVar(&opts.conflict, "conflict", "", "path to the conflict incident CSV")
	flag.StringVar(&opts.boundaries, "boundaries", "", "path to a GeoJSON FeatureCollection of boundaries (optional)")
	flag.StringVar(&opts.out, "out", reportfile.Stdout, `report destination, "-" for stdout`)
	flag.StringVar(&opts.now, "now", "", "reference time, RFC 3339 or YYYY-MM-DD (default: current time)")
	flag.IntVar(&opts.timeRange, "time-range", 0, "keep incidents from the last N days, 0 keeps all")
	flag.StringVar(&opts.incidentType, "incident-type", string(domain.IncidentTypeAll), "all, crime, conflict or high-severity")
	flag.IntVar(&opts.workers, "workers", runtime.NumCPU(), "aggregation workers")
	flag.StringVar(&opts.logLevel, "log-level", "warn", "debug, info, warn or error")
	flag.Parse()

	if opts.crime == "" && opts.conflict == "" {
		flag.Usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, opts, os.Stderr))
}

func run(ctx context.Context, opts options, stderr io.Writer) int {
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: observability.ParseLevel(opts.logLevel)}))

	filters, clock, err := parseAssessmentFlags(opts)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: %v\n", err)
		return 1
	}
	if opts.timeRange < 0 || opts.workers < 1 {
		fmt.Fprintln(stderr, "FATAL: -time-range must be >= 0 and -workers >= 1")
		return 1
	}

	source := csvfile.NewExtractor([]csvfile.Source{
		{Category: domain.CategoryCrime, Path: opts.crime},
		{Category: domain.CategoryConflict, Path: opts.conflict},
	}, logger)
	defer source.Close()

	var boundaries pipeline.BoundaryLoader
	if opts.boundaries != "" {
		boundaries = geojson.NewLoader(opts.boundaries, logger)
	}

	// Nothing scrapes a one-shot run, so keep its metrics off the default registry.
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	assessor := pipeline.NewAssessor(pipeline.AssessorOptions{
		Clock:          clock,
		Filters:        filters,
		Workers:        opts.workers,
		MatchCacheSize: 10000,
	}, metrics, logger)

	writer := reportfile.NewWriter(opts.out, metrics, logger)
	p := pipeline.New(source, boundaries, assessor, []pipeline.ReportLoader{writer}, logger, metrics, 500)

	report, err := p.Run(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: assessment: %v\n", err)
		return 1
	}

	printSummary(stderr, report)
	return 0
}

func parseAssessmentFlags(opts options) (domain.Filters, clockwork.Clock, error) {
	incidentType, err := domain.ParseIncidentType(opts.incidentType)
	if err != nil {
		return domain.Filters{}, nil, err
	}
	filters := domain.Filters{TimeRangeDays: opts.timeRange, IncidentType: incidentType}

	if opts.now == "" {
		return filters, clockwork.NewRealClock(), nil
	}
	now, err := config.ParseReferenceTime(opts.now)
	if err != nil {
		return domain.Filters{}, nil, fmt.Errorf("invalid -now: %w", err)
	}
	return filters, clockwork.NewFakeClockAt(now), nil
}

func printSummary(w io.Writer, report domain.Report) {
	s := report.Summary
	fmt.Fprintln(w, "=== Security Risk Assessment ===")
	fmt.Fprintf(w, "Generated: %s  Run: %s\n", report.Metadata.GeneratedAt.Format("2006-01-02 15:04 MST"), report.Metadata.RunID)
	fmt.Fprintf(w, "Incidents: %d  Fatalities: %d  Injuries: %d  Areas: %d\n",
		s.TotalIncidents, s.TotalFatalities, s.TotalInjuries, report.Metadata.TotalAreas)
	for _, level := range domain.Levels {
		fmt.Fprintf(w, "  %-9s %d\n", level, s.CountsByLevel[level])
	}

	if len(report.Areas) == 0 {
		return
	}
	fmt.Fprintln(w)
	for i, a := range report.Areas {
		if i == topAreas {
			fmt.Fprintf(w, "  ... %d more\n", len(report.Areas)-topAreas)
			break
		}
		fmt.Fprintf(w, "  %-30.30s %-9s %7.2f  %d incidents\n", a.Name, a.Level, a.Score, a.TotalIncidents)
	}
}
