package order

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/stitchbook/internal/config"
	"github.com/Additional-Code/stitchbook/internal/messaging"
	ordersvc "github.com/Additional-Code/stitchbook/internal/service/order"
	"github.com/Additional-Code/stitchbook/internal/worker"
)

var workerTracer = otel.Tracer("github.com/Additional-Code/stitchbook/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewLifecycleHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewLifecycleHandler consumes order lifecycle events and records them in the
// log. Unknown event types are skipped so producers can add new ones first.
func NewLifecycleHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		eventType := msg.Headers[messaging.HeaderEventType]
		_, span := workerTracer.Start(ctx, "worker.orders.lifecycle", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
			attribute.String("event.type", eventType),
		))
		defer span.End()

		var event ordersvc.LifecycleEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order lifecycle event", zap.Error(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return fmt.Errorf("decode lifecycle event: %w", err)
		}
		if eventType == "" {
			eventType = event.Type
		}

		switch eventType {
		case ordersvc.EventOrderCreated:
			logger.Info("order created event processed",
				zap.String("billNumber", event.BillNumber),
				zap.String("deliveryDate", event.DeliveryDate),
				zap.Bool("image", event.ImagePath != nil),
			)
		case ordersvc.EventOrderCompleted:
			logger.Info("order completed event processed",
				zap.String("billNumber", event.BillNumber),
				zap.Time("completedAt", event.OccurredAt),
			)
		default:
			logger.Debug("skipping order event", zap.String("type", eventType))
		}
		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
