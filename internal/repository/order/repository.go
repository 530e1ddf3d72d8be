package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/stitchbook/internal/database"
	"github.com/Additional-Code/stitchbook/internal/entity"
)

var repoTracer = otel.Tracer("github.com/Additional-Code/stitchbook/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

var (
	pendingColumns = []string{"bill_number", "delivery_date", "notes", "status", "image_path"}
	historyColumns = []string{"bill_number", "delivery_date", "notes", "status", "completion_date", "image_path"}
)

// InsertResult reports whether an insert created a row.
type InsertResult struct {
	Inserted bool
}

// UpdateResult reports whether a conditional update changed a row.
type UpdateResult struct {
	Updated bool
}

// Repository encapsulates read/write access for orders. Every method is a
// single statement and relies on the store for atomicity and key uniqueness.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// Insert persists order unless its bill number already exists. A duplicate
// is reported as Inserted=false, not as an error.
func (r *Repository) Insert(ctx context.Context, order *entity.Order) (InsertResult, error) {
	if order == nil {
		return InsertResult{}, errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Insert", trace.WithAttributes(attribute.String("order.bill_number", order.BillNumber)))
	defer span.End()

	res, err := r.writer.NewInsert().Model(order).Ignore().Exec(ctx)
	if err != nil {
		fail(span, err, "insert failed")
		return InsertResult{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		fail(span, err, "rows affected")
		return InsertResult{}, err
	}
	span.SetAttributes(attribute.Bool("order.inserted", n > 0))
	return InsertResult{Inserted: n > 0}, nil
}

// CompleteIfEligible marks the order Complete and stamps completedAt, but only
// when it exists and its current status may transition to Complete.
func (r *Repository) CompleteIfEligible(ctx context.Context, billNumber string, completedAt time.Time) (UpdateResult, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.CompleteIfEligible", trace.WithAttributes(attribute.String("order.bill_number", billNumber)))
	defer span.End()

	res, err := r.writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("status = ?", entity.StatusComplete).
		Set("completion_date = ?", completedAt.UTC()).
		Where("bill_number = ?", billNumber).
		Where("status IN (?)", bun.In(entity.PredecessorsOf(entity.StatusComplete))).
		Exec(ctx)
	if err != nil {
		fail(span, err, "update failed")
		return UpdateResult{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		fail(span, err, "rows affected")
		return UpdateResult{}, err
	}
	return UpdateResult{Updated: n > 0}, nil
}

// ListPending returns Pending and InProgress orders due within [start, end],
// earliest delivery first.
func (r *Repository) ListPending(ctx context.Context, start, end time.Time) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListPending", trace.WithAttributes(
		attribute.String("range.start", start.Format(time.DateOnly)),
		attribute.String("range.end", end.Format(time.DateOnly)),
	))
	defer span.End()

	orders := make([]entity.Order, 0)
	err := r.reader.NewSelect().
		Model(&orders).
		Column(pendingColumns...).
		Where("status IN (?)", bun.In(entity.ActiveStatuses)).
		Where("delivery_date >= ?", entity.DateOf(start)).
		Where("delivery_date <= ?", entity.DateOf(end)).
		OrderExpr("delivery_date ASC").
		OrderExpr("bill_number ASC").
		Scan(ctx)
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	return orders, nil
}

// ListAll returns every order, highest bill number first.
func (r *Repository) ListAll(ctx context.Context) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListAll")
	defer span.End()

	orders := make([]entity.Order, 0)
	err := r.reader.NewSelect().
		Model(&orders).
		Column(historyColumns...).
		OrderExpr("bill_number DESC").
		Scan(ctx)
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("orders.count", len(orders)))
	return orders, nil
}

// GetByBillNumber fetches one order by its business key.
func (r *Repository) GetByBillNumber(ctx context.Context, billNumber string) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByBillNumber", trace.WithAttributes(attribute.String("order.bill_number", billNumber)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("bill_number = ?", billNumber).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		fail(span, err, "select failed")
		return nil, err
	}
	return order, nil
}

func fail(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}
