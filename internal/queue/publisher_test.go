package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hetulpatel/arbscan/internal/markets"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishOpportunities(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisher(w)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	err := p.PublishOpportunities(context.Background(), []markets.Opportunity{
		{ID: "p-k", RunID: "run-1", ProfitPercentage: 11.1, DetectedAt: at},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("messages = %d", len(w.msgs))
	}
	msg := w.msgs[0]
	if string(msg.Key) != "p-k" || !msg.Time.Equal(at) {
		t.Errorf("key/time = %s/%v", msg.Key, msg.Time)
	}
	if len(msg.Headers) != 2 || string(msg.Headers[0].Value) != "run-1" {
		t.Errorf("headers = %+v", msg.Headers)
	}
	var decoded markets.Opportunity
	if err := json.Unmarshal(msg.Value, &decoded); err != nil || decoded.ProfitPercentage != 11.1 {
		t.Errorf("payload = %s (%v)", msg.Value, err)
	}
}

func TestPublishWrapsError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewPublisher(&fakeWriter{err: boom})
	err := p.PublishOpportunities(context.Background(), []markets.Opportunity{{ID: "x"}})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestPublishEmptyIsNoop(t *testing.T) {
	w := &fakeWriter{}
	if err := NewPublisher(w).PublishOpportunities(context.Background(), nil); err != nil || len(w.msgs) != 0 {
		t.Fatalf("err=%v msgs=%d", err, len(w.msgs))
	}
}
