package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"git.platform.alem.school/amibragim/brew-events/internal/ports"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

func TestTrackBatchWritesOneMessagePerRecord(t *testing.T) {
	w := &fakeWriter{}
	sink := newAnalyticsSink(w)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return at }

	records := []ports.AnalyticsRecord{
		{DistinctID: "9", Event: "order:closed", Properties: map[string]any{"amount": 12.5}, UserProperties: map[string]any{"order_count": 12}},
		{DistinctID: "14", Event: "order:ready", Properties: map[string]any{"transaction_id": 77}},
	}
	if err := sink.TrackBatch(context.Background(), records); err != nil {
		t.Fatalf("TrackBatch() error = %v", err)
	}

	if len(w.msgs) != 2 {
		t.Fatalf("wrote %d messages, want 2", len(w.msgs))
	}
	if string(w.msgs[0].Key) != "9" || !w.msgs[0].Time.Equal(at) {
		t.Errorf("first message key/time = %s/%v", w.msgs[0].Key, w.msgs[0].Time)
	}

	var decoded ports.AnalyticsRecord
	if err := json.Unmarshal(w.msgs[0].Value, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.UserProperties["order_count"] != float64(12) {
		t.Errorf("order_count = %v", decoded.UserProperties["order_count"])
	}
}

func TestTrackBatchEmptyIsNoop(t *testing.T) {
	w := &fakeWriter{err: errors.New("must not be called")}
	if err := newAnalyticsSink(w).TrackBatch(context.Background(), nil); err != nil {
		t.Fatalf("TrackBatch(nil) error = %v", err)
	}
}

func TestTrackBatchWrapsWriterError(t *testing.T) {
	boom := errors.New("leader not available")
	err := newAnalyticsSink(&fakeWriter{err: boom}).TrackBatch(context.Background(), []ports.AnalyticsRecord{{DistinctID: "1", Event: "order:ready"}})
	if !errors.Is(err, boom) {
		t.Fatalf("TrackBatch() error = %v, want wrapped %v", err, boom)
	}
}

func TestNewAnalyticsSinkDisabled(t *testing.T) {
	if _, err := NewAnalyticsSink(nil, "order_analytics"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("NewAnalyticsSink(nil) error = %v, want ErrDisabled", err)
	}
}
