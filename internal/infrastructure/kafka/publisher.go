package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/hoangvu/gearcart/internal/domain/event"
)

// Envelope wraps a domain event for the wire.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Publisher writes domain events to a kafka topic, keyed so that all events
// of one order land on the same partition.
type Publisher struct {
	w   *kafka.Writer
	log *zap.Logger
}

func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	return &Publisher{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 20 * time.Millisecond,
		},
		log: logger.With(zap.String("component", "kafka_publisher")),
	}
}

func (p *Publisher) Publish(ctx context.Context, e event.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("kafka: marshal %s: %w", e.EventName(), err)
	}
	env, err := json.Marshal(Envelope{
		EventID:    uuid.NewString(),
		EventType:  e.EventName(),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("kafka: marshal envelope: %w", err)
	}

	msg := kafka.Message{Value: env, Time: time.Now()}
	if k, ok := e.(event.Keyer); ok {
		msg.Key = []byte(k.EventKey())
	}

	if err := p.w.WriteMessages(ctx, msg); err != nil {
		p.log.Error("publish_failed",
			zap.String("event", e.EventName()),
			zap.Error(err),
		)
		return fmt.Errorf("kafka: write %s: %w", e.EventName(), err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.w.Close() }
