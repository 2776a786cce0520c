package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	sessionsOpened     metric.Int64Counter
	sessionsExpired    metric.Int64Counter
	verificationsTotal metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.sessionsOpened, err = meter.Int64Counter(
		"payment_sessions_opened_total",
		metric.WithDescription("Total number of payment sessions opened"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_sessions_opened counter: %w", err)
	}

	m.sessionsExpired, err = meter.Int64Counter(
		"payment_sessions_expired_total",
		metric.WithDescription("Total number of payment sessions expired"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_sessions_expired counter: %w", err)
	}

	m.verificationsTotal, err = meter.Int64Counter(
		"payment_verifications_total",
		metric.WithDescription("Total number of payment verification attempts"),
		metric.WithUnit("{verification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_verifications counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordSessionOpened(ctx context.Context) {
	m.sessionsOpened.Add(ctx, 1)
}

func (m *Metrics) RecordSessionExpired(ctx context.Context) {
	m.sessionsExpired.Add(ctx, 1)
}

func (m *Metrics) RecordVerification(ctx context.Context, outcome string) {
	m.verificationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}
