package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"git.platform.alem.school/amibragim/brew-events/internal/ports"

	"github.com/segmentio/kafka-go"
)

// ErrDisabled is returned when no brokers are configured.
var ErrDisabled = errors.New("kafka disabled")

// messageWriter is the part of *kafka.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// AnalyticsSink writes analytics records to a Kafka topic, one message per record keyed by distinct id.
type AnalyticsSink struct {
	writer messageWriter
	now    func() time.Time
}

// NewAnalyticsSink creates a sink over brokers. It returns ErrDisabled for an empty broker list.
func NewAnalyticsSink(brokers []string, topic string) (*AnalyticsSink, error) {
	if len(brokers) == 0 {
		return nil, ErrDisabled
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{}, // same user always lands on the same partition
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newAnalyticsSink(w), nil
}

func newAnalyticsSink(w messageWriter) *AnalyticsSink {
	return &AnalyticsSink{writer: w, now: time.Now}
}

// TrackBatch writes all records in one produce call.
func (s *AnalyticsSink) TrackBatch(ctx context.Context, records []ports.AnalyticsRecord) error {
	if len(records) == 0 {
		return nil
	}

	msgs, err := buildMessages(records, s.now().UTC())
	if err != nil {
		return err
	}

	if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka write analytics: %w", err)
	}
	return nil
}

// Close flushes pending writes.
func (s *AnalyticsSink) Close() error {
	return s.writer.Close()
}

func buildMessages(records []ports.AnalyticsRecord, at time.Time) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(records))
	for _, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("marshal analytics record %q: %w", rec.Event, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(rec.DistinctID),
			Value: data,
			Time:  at,
		})
	}
	return msgs, nil
}
