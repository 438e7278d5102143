// Package csvfile reads incident tables from CSV files with a header row.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/security-risk-etl/internal/domain"
)

// Source is one CSV table and the category of the incidents it holds.
type Source struct {
	Category domain.Category
	Path     string
}

// Extractor streams rows from a list of CSV files in order.
// It implements pipeline.BatchExtractor.
type Extractor struct {
	sources []Source
	next    int
	cur     *table
	logger  *slog.Logger
}

type table struct {
	source Source
	file   *os.File
	reader *csv.Reader
	header []string
	line   int
}

// NewExtractor creates an extractor over sources. Sources with an empty path
// are skipped.
func NewExtractor(sources []Source, logger *slog.Logger) *Extractor {
	var kept []Source
	for _, s := range sources {
		if s.Path != "" {
			kept = append(kept, s)
		}
	}
	return &Extractor{sources: kept, logger: logger}
}

// ExtractBatch returns up to batchSize rows. An empty batch means every file
// has been read. Records the CSV parser rejects are logged and skipped.
func (e *Extractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRow, error) {
	batch := make([]domain.RawRow, 0, batchSize)
	for len(batch) < batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if e.cur == nil {
			if e.next >= len(e.sources) {
				break
			}
			t, err := openTable(e.sources[e.next])
			if err != nil {
				return nil, err
			}
			e.next++
			e.cur = t
			e.logger.Info("reading incident table", "path", t.source.Path, "category", t.source.Category)
		}

		record, err := e.cur.reader.Read()
		if errors.Is(err, io.EOF) {
			e.closeCurrent()
			continue
		}
		e.cur.line++
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			e.logger.Warn("skipping malformed CSV record", "path", e.cur.source.Path, "line", parseErr.Line, "error", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.cur.source.Path, err)
		}

		batch = append(batch, domain.RawRow{
			Category: e.cur.source.Category,
			Fields:   e.cur.fields(record),
		})
	}
	return batch, nil
}

// Close releases the file being read, if any.
func (e *Extractor) Close() error {
	if e.cur == nil {
		return nil
	}
	err := e.cur.file.Close()
	e.cur = nil
	return err
}

func (e *Extractor) closeCurrent() {
	if err := e.cur.file.Close(); err != nil {
		e.logger.Warn("close incident table failed", "path", e.cur.source.Path, "error", err)
	}
	e.logger.Info("finished incident table", "path", e.cur.source.Path, "rows", e.cur.line)
	e.cur = nil
}

func openTable(s Source) (*table, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s table: %w", s.Category, err)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		f.Close()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s table %s has no header row", s.Category, s.Path)
		}
		return nil, fmt.Errorf("read %s header: %w", s.Path, err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	return &table{source: s, file: f, reader: r, header: header}, nil
}

// fields maps a record onto the header. Short records leave trailing columns
// unset and extra values are ignored.
func (t *table) fields(record []string) map[string]string {
	fields := make(map[string]string, len(t.header))
	for j, h := range t.header {
		if j < len(record) {
			fields[h] = record[j]
		}
	}
	return fields
}
