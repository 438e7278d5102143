package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/security-risk-etl/internal/config"
	"github.com/couchcryptid/security-risk-etl/internal/domain"
)

// CategoryKey names the message header, or failing that the JSON field, that
// carries the incident category of a row.
const CategoryKey = "category"

// Reader consumes raw incident rows from a Kafka topic.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader        *kafkago.Reader
	flushInterval time.Duration
	logger        *slog.Logger
}

// NewReader creates a consumer-group reader for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaSourceTopic,
		GroupID:     cfg.KafkaGroupID,
		StartOffset: kafkago.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	return &Reader{reader: r, flushInterval: cfg.BatchFlushInterval, logger: logger}
}

// ExtractBatch fetches up to batchSize rows, waiting at most the flush interval
// for the batch to fill. An empty batch means no message arrived within the
// interval. Offsets are not committed here; each row carries a Commit callback.
//
// Messages that cannot be decoded are logged, committed and skipped so they are
// not redelivered.
func (r *Reader) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRow, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()

	batch := make([]domain.RawRow, 0, batchSize)
	for len(batch) < batchSize {
		msg, err := r.reader.FetchMessage(fetchCtx)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				break
			}
			return nil, fmt.Errorf("fetch message: %w", err)
		}

		row, err := mapMessageToRawRow(msg)
		if err != nil {
			r.logger.Warn("skipping undecodable message",
				"error", err, "partition", msg.Partition, "offset", msg.Offset)
			if err := r.reader.CommitMessages(ctx, msg); err != nil {
				r.logger.Warn("commit skipped message failed", "error", err, "offset", msg.Offset)
			}
			continue
		}

		row.Commit = func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		}
		batch = append(batch, row)
	}
	return batch, nil
}

// Close closes the underlying consumer.
func (r *Reader) Close() error {
	return r.reader.Close()
}

// mapMessageToRawRow decodes a message whose value is a flat JSON object of
// column name to value. The category comes from the "category" header, or the
// "category" field when the header is absent.
func mapMessageToRawRow(msg kafkago.Message) (domain.RawRow, error) {
	dec := json.NewDecoder(bytes.NewReader(msg.Value))
	dec.UseNumber()

	var values map[string]any
	if err := dec.Decode(&values); err != nil {
		return domain.RawRow{}, fmt.Errorf("decode row: %w", err)
	}
	if values == nil {
		return domain.RawRow{}, errors.New("decode row: value is null")
	}

	fields := make(map[string]string, len(values))
	for k, v := range values {
		fields[k] = stringify(v)
	}

	raw := fields[CategoryKey]
	for _, h := range msg.Headers {
		if h.Key == CategoryKey {
			raw = string(h.Value)
			break
		}
	}
	category, err := domain.ParseCategory(raw)
	if err != nil {
		return domain.RawRow{}, err
	}
	delete(fields, CategoryKey)

	return domain.RawRow{Category: category, Fields: fields}, nil
}

func stringify(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
}
