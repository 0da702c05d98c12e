package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/hetulpatel/arbscan/internal/markets"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer MessageWriter
}

func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{writer: w}
}

// PublishOpportunities writes one message per opportunity keyed by the pair id.
func (p *Publisher) PublishOpportunities(ctx context.Context, opps []markets.Opportunity) error {
	if p == nil || p.writer == nil || len(opps) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(opps))
	for _, op := range opps {
		payload, err := json.Marshal(op)
		if err != nil {
			return fmt.Errorf("marshal opportunity %s: %w", op.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(op.ID),
			Value: payload,
			Time:  op.DetectedAt,
			Headers: []kafka.Header{
				{Key: "run_id", Value: []byte(op.RunID)},
				{Key: "entry_key", Value: []byte(op.EntryKey())},
			},
		})
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: publish %d opportunities: %w", len(msgs), err)
	}
	return nil
}

func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
