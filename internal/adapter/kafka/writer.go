package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/security-risk-etl/internal/config"
	"github.com/couchcryptid/security-risk-etl/internal/domain"
	"github.com/couchcryptid/security-risk-etl/internal/observability"
)

// Message header names on the sink topic.
const (
	HeaderLevel       = "level"
	HeaderRunID       = "run_id"
	HeaderGeneratedAt = "generated_at"
)

// Writer publishes area assessments to a Kafka topic, one message per area.
// It implements pipeline.ReportLoader.
type Writer struct {
	writer  *kafkago.Writer
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, metrics: metrics, logger: logger}
}

// LoadReport serializes every area of report and publishes them in a single
// WriteMessages call. Areas are keyed by area key so that successive
// assessments of an area land on the same partition.
func (w *Writer) LoadReport(ctx context.Context, report domain.Report) error {
	msgs, err := serializeReport(report)
	if err != nil {
		return err
	}
	if len(msgs) > 0 {
		if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("write area messages: %w", err)
		}
	}
	w.metrics.ReportsPublished.WithLabelValues("kafka").Inc()
	w.logger.Info("report published", "topic", w.writer.Topic, "run_id", report.Metadata.RunID, "areas", len(msgs))
	return nil
}

// Close flushes pending messages and closes the producer.
func (w *Writer) Close() error {
	return w.writer.Close()
}

func serializeReport(report domain.Report) ([]kafkago.Message, error) {
	msgs := make([]kafkago.Message, len(report.Areas))
	for i := range report.Areas {
		msg, err := serializeToMessage(report.Areas[i], report.Metadata)
		if err != nil {
			return nil, err
		}
		msgs[i] = msg
	}
	return msgs, nil
}

// serializeToMessage marshals an AreaReport into a Kafka message.
func serializeToMessage(area domain.AreaReport, meta domain.ReportMetadata) (kafkago.Message, error) {
	data, err := json.Marshal(area)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize area %s: %w", area.Key, err)
	}
	return kafkago.Message{
		Key:   []byte(area.Key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderLevel, Value: []byte(area.Level)},
			{Key: HeaderRunID, Value: []byte(meta.RunID)},
			{Key: HeaderGeneratedAt, Value: []byte(meta.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
