package adapters

import (
	"context"
	"time"

	"github.com/mpetrovic/storefront/internal/kafka"
	"github.com/mpetrovic/storefront/internal/orders/ports"
	"github.com/mpetrovic/storefront/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *kafka.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *kafka.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishOrderCreated(ctx context.Context, orderID string) error {
	return e.observe(ctx, "EventBus.PublishOrderCreated", kafka.TopicOrderCreated,
		[]attribute.KeyValue{attribute.String("order.id", orderID)},
		func(ctx context.Context) error {
			return e.bus.PublishOrderCreated(ctx, orderID)
		})
}

func (e *ObservableEventBus) PublishOrderPaid(ctx context.Context, orderID, paymentID string) error {
	return e.observe(ctx, "EventBus.PublishOrderPaid", kafka.TopicOrderPaid,
		[]attribute.KeyValue{
			attribute.String("order.id", orderID),
			attribute.String("payment.id", paymentID),
		},
		func(ctx context.Context) error {
			return e.bus.PublishOrderPaid(ctx, orderID, paymentID)
		})
}

func (e *ObservableEventBus) PublishOrderCancelled(ctx context.Context, orderID string) error {
	return e.observe(ctx, "EventBus.PublishOrderCancelled", kafka.TopicOrderCancelled,
		[]attribute.KeyValue{attribute.String("order.id", orderID)},
		func(ctx context.Context) error {
			return e.bus.PublishOrderCancelled(ctx, orderID)
		})
}

func (e *ObservableEventBus) PublishOrderFailed(ctx context.Context, orderID string, reason string) error {
	return e.observe(ctx, "EventBus.PublishOrderFailed", kafka.TopicOrderFailed,
		[]attribute.KeyValue{
			attribute.String("order.id", orderID),
			attribute.String("failure.reason", reason),
		},
		func(ctx context.Context) error {
			return e.bus.PublishOrderFailed(ctx, orderID, reason)
		})
}

func (e *ObservableEventBus) observe(ctx context.Context, spanName, topic string, attrs []attribute.KeyValue, publish func(context.Context) error) error {
	ctx, span := telemetry.StartSpan(ctx, spanName)
	defer span.End()

	telemetry.AddSpanAttributes(span, attrs...)
	telemetry.AddSpanAttributes(span,
		attribute.String("event.type", topic),
		attribute.String("topic", topic),
	)

	start := time.Now()
	err := publish(ctx)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, topic, duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
