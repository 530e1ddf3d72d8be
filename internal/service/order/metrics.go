package order

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("github.com/Additional-Code/stitchbook/service/order")

type lifecycleMetrics struct {
	created      metric.Int64Counter
	completed    metric.Int64Counter
	createFailed metric.Int64Counter
	compensated  metric.Int64Counter
}

func newLifecycleMetrics() lifecycleMetrics {
	var m lifecycleMetrics
	// Instrument creation only fails on invalid names; the no-op fallbacks keep calls safe.
	m.created, _ = meter.Int64Counter("orders.created", metric.WithDescription("Orders persisted"))
	m.completed, _ = meter.Int64Counter("orders.completed", metric.WithDescription("Orders moved to Complete"))
	m.createFailed, _ = meter.Int64Counter("orders.create_failed", metric.WithDescription("Rejected or failed order creations"))
	m.compensated, _ = meter.Int64Counter("artifacts.compensated", metric.WithDescription("Stored images deleted after a failed creation"))
	return m
}

func (m lifecycleMetrics) failed(ctx context.Context, reason string) {
	if m.createFailed == nil {
		return
	}
	m.createFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m lifecycleMetrics) inc(ctx context.Context, c metric.Int64Counter) {
	if c == nil {
		return
	}
	c.Add(ctx, 1)
}
