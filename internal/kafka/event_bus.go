package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TopicOrderCreated   = "order.created"
	TopicOrderPaid      = "order.paid"
	TopicOrderCancelled = "order.cancelled"
	TopicOrderFailed    = "order.failed"
)

// EventBus publishes order lifecycle events to Kafka. One writer serves all
// topics; messages are keyed by order id so a consumer sees each order's
// events in sequence.
type EventBus struct {
	writer *kafka.Writer
}

func NewEventBus(brokers ...string) *EventBus {
	return &EventBus{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			RequiredAcks:           kafka.RequireAll,
		},
	}
}

func (b *EventBus) Close() error {
	return b.writer.Close()
}

type orderEvent struct {
	OrderID    string `json:"order_id"`
	PaymentID  string `json:"payment_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
	OccurredAt string `json:"occurred_at"`
}

func (b *EventBus) PublishOrderCreated(ctx context.Context, orderID string) error {
	return b.publish(ctx, TopicOrderCreated, orderEvent{OrderID: orderID})
}

func (b *EventBus) PublishOrderPaid(ctx context.Context, orderID, paymentID string) error {
	return b.publish(ctx, TopicOrderPaid, orderEvent{OrderID: orderID, PaymentID: paymentID})
}

func (b *EventBus) PublishOrderCancelled(ctx context.Context, orderID string) error {
	return b.publish(ctx, TopicOrderCancelled, orderEvent{OrderID: orderID})
}

func (b *EventBus) PublishOrderFailed(ctx context.Context, orderID string, reason string) error {
	return b.publish(ctx, TopicOrderFailed, orderEvent{OrderID: orderID, Reason: reason})
}

func (b *EventBus) publish(ctx context.Context, topic string, event orderEvent) error {
	event.OccurredAt = time.Now().UTC().Format(time.RFC3339Nano)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.OrderID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(topic)},
		},
	}

	if err := b.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	return nil
}
