package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/security-risk-etl/internal/adapter/csvfile"
	"github.com/couchcryptid/security-risk-etl/internal/adapter/geojson"
	"github.com/couchcryptid/security-risk-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/security-risk-etl/internal/adapter/kafka"
	"github.com/couchcryptid/security-risk-etl/internal/adapter/mapbox"
	"github.com/couchcryptid/security-risk-etl/internal/adapter/reportfile"
	"github.com/couchcryptid/security-risk-etl/internal/config"
	"github.com/couchcryptid/security-risk-etl/internal/domain"
	"github.com/couchcryptid/security-risk-etl/internal/observability"
	"github.com/couchcryptid/security-risk-etl/internal/pipeline"
)

type extractor interface {
	pipeline.BatchExtractor
	io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// Area labelling is feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN.
	var geocoder domain.ReverseGeocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var clock clockwork.Clock
	if !cfg.ReferenceTime.IsZero() {
		clock = clockwork.NewFakeClockAt(cfg.ReferenceTime)
		logger.Info("reference time pinned", "now", cfg.ReferenceTime)
	}

	var source extractor
	switch cfg.IncidentSource {
	case config.SourceKafka:
		source = kafkaadapter.NewReader(cfg, logger)
	default:
		source = csvfile.NewExtractor([]csvfile.Source{
			{Category: domain.CategoryCrime, Path: cfg.CrimeCSVPath},
			{Category: domain.CategoryConflict, Path: cfg.ConflictCSVPath},
		}, logger)
	}

	var boundaries pipeline.BoundaryLoader
	if cfg.BoundariesPath != "" {
		boundaries = geojson.NewLoader(cfg.BoundariesPath, logger)
	}

	var (
		loaders []pipeline.ReportLoader
		writer  *kafkaadapter.Writer
	)
	if cfg.ReportPath != "" {
		loaders = append(loaders, reportfile.NewWriter(cfg.ReportPath, metrics, logger))
	}
	if cfg.KafkaSinkEnabled {
		writer = kafkaadapter.NewWriter(cfg, metrics, logger)
		loaders = append(loaders, writer)
	}

	assessor := pipeline.NewAssessor(pipeline.AssessorOptions{
		Clock:          clock,
		Filters:        cfg.Filters,
		Workers:        cfg.AggregateWorkers,
		MatchCacheSize: cfg.MatchCacheSize,
		Geocoder:       geocoder,
	}, metrics, logger)

	p := pipeline.New(source, boundaries, assessor, loaders, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run the assessment once; the report stays available until shutdown.
	go func() {
		if _, err := p.Run(ctx); err != nil {
			logger.Error("assessment failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := source.Close(); err != nil {
		logger.Error("incident source close error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
