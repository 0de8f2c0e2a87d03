package kafka

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/example/ec-order-core/internal/events"
)

// Publisher is the post-commit notification sink used by the command layer.
// A nil *Producer satisfies it and drops everything, so wiring stays simple
// in tests and in deployments without Kafka.
type Publisher interface {
	Publish(ctx context.Context, eventType, orderID string, payload any)
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Producer{writer: writer}
}

// Publish wraps the payload in an envelope keyed by order id. Delivery is
// best effort: the order state has already committed, so failures are
// logged, not surfaced.
func (p *Producer) Publish(ctx context.Context, eventType, orderID string, payload any) {
	if p == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[Kafka] Failed to marshal %s payload: %v", eventType, err)
		return
	}
	envelope := events.Envelope{
		ID:         uuid.New().String(),
		Type:       eventType,
		OrderID:    orderID,
		OccurredAt: time.Now(),
		Data:       data,
	}
	value, err := json.Marshal(envelope)
	if err != nil {
		log.Printf("[Kafka] Failed to marshal %s envelope: %v", eventType, err)
		return
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(orderID),
		Value: value,
		Time:  time.Now(),
	}); err != nil {
		log.Printf("[Kafka] Failed to publish %s for order %s: %v", eventType, orderID, err)
	}
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
