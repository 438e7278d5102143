// Package reportfile writes assessment reports as indented JSON documents.
package reportfile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/security-risk-etl/internal/domain"
	"github.com/couchcryptid/security-risk-etl/internal/observability"
)

// Stdout is the path that selects standard output instead of a file.
const Stdout = "-"

// Writer publishes reports to a file. The file is replaced atomically so
// readers never observe a partial report.
// It implements pipeline.ReportLoader.
type Writer struct {
	path    string
	stdout  io.Writer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewWriter creates a writer for path, or for standard output when path is "-".
func NewWriter(path string, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	return &Writer{path: path, stdout: os.Stdout, metrics: metrics, logger: logger}
}

// LoadReport writes report to the configured destination.
func (w *Writer) LoadReport(ctx context.Context, report domain.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize report: %w", err)
	}
	data = append(data, '\n')

	if w.path == Stdout {
		if _, err := w.stdout.Write(data); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	} else if err := writeAtomic(w.path, data); err != nil {
		return err
	}

	w.metrics.ReportsPublished.WithLabelValues("file").Inc()
	w.logger.Info("report written", "path", w.path, "run_id", report.Metadata.RunID, "bytes", len(data))
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}
