package order

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/Additional-Code/stitchbook/internal/entity"
	"github.com/Additional-Code/stitchbook/internal/messaging"
)

// Lifecycle event types.
const (
	EventOrderCreated   = "order.created"
	EventOrderCompleted = "order.completed"
)

// LifecycleEvent is published after an order row is created or completed.
type LifecycleEvent struct {
	Type         string             `json:"type"`
	BillNumber   string             `json:"billNumber"`
	Status       entity.OrderStatus `json:"status"`
	DeliveryDate string             `json:"deliveryDate,omitempty"`
	ImagePath    *string            `json:"imagePath,omitempty"`
	OccurredAt   time.Time          `json:"occurredAt"`
}

// publish is best effort: the row is already the source of truth.
func (s *Service) publish(ctx context.Context, event LifecycleEvent) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal lifecycle event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	headers := map[string]string{messaging.HeaderEventType: event.Type}
	if err := s.publisher.Publish(ctx, []byte(event.BillNumber), payload, headers); err != nil {
		s.logger.Error("publish lifecycle event",
			zap.String("type", event.Type),
			zap.String("billNumber", event.BillNumber),
			zap.Error(err),
		)
	}
}
