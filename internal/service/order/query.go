package order

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/stitchbook/internal/entity"
	"github.com/Additional-Code/stitchbook/pkg/errorbank"
)

// PendingFilter holds the raw date bounds of a pending-orders query.
// Either bound may be empty.
type PendingFilter struct {
	StartDate string
	EndDate   string
}

// ListPending returns outstanding orders due within the filter range,
// earliest delivery first. A missing start falls back to 2000-01-01 and a
// missing end to 2100-12-31, so dates outside that span are never listed.
func (s *Service) ListPending(ctx context.Context, filter PendingFilter) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListPending", trace.WithAttributes(
		attribute.String("filter.start", filter.StartDate),
		attribute.String("filter.end", filter.EndDate),
	))
	defer span.End()

	start := DefaultRangeStart
	if raw := strings.TrimSpace(filter.StartDate); raw != "" {
		parsed, err := ParseDate(raw)
		if err != nil {
			return nil, errorbank.BadRequest("startDate must be a date (YYYY-MM-DD)", errorbank.WithCause(err))
		}
		start = parsed
	}
	end := DefaultRangeEnd
	if raw := strings.TrimSpace(filter.EndDate); raw != "" {
		parsed, err := ParseDate(raw)
		if err != nil {
			return nil, errorbank.BadRequest("endDate must be a date (YYYY-MM-DD)", errorbank.WithCause(err))
		}
		end = parsed
	}

	orders, err := s.repo.ListPending(ctx, start, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list pending orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// ListAll returns the full order history, highest bill number first.
func (s *Service) ListAll(ctx context.Context) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListAll")
	defer span.End()

	orders, err := s.repo.ListAll(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}
