package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/security-risk-etl/internal/domain"
)

// RowWriter produces raw incident rows to a topic in the format Reader consumes.
type RowWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewRowWriter creates a producer for topic.
func NewRowWriter(brokers []string, topic string, logger *slog.Logger) *RowWriter {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &RowWriter{writer: w, logger: logger}
}

// PublishRows writes rows in a single WriteMessages call. Message order within
// a partition follows the order of rows.
func (w *RowWriter) PublishRows(ctx context.Context, rows []domain.RawRow) error {
	if len(rows) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := encodeRow(rows[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	w.logger.Debug("rows published", "topic", w.writer.Topic, "rows", len(rows))
	return nil
}

// Close flushes pending messages and closes the producer.
func (w *RowWriter) Close() error {
	return w.writer.Close()
}

// encodeRow renders a row as a flat JSON object with the category header.
func encodeRow(row domain.RawRow) (kafkago.Message, error) {
	data, err := json.Marshal(row.Fields)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize row: %w", err)
	}
	return kafkago.Message{
		Value:   data,
		Headers: []kafkago.Header{{Key: CategoryKey, Value: []byte(row.Category)}},
	}, nil
}
