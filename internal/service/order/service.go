package order

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Additional-Code/stitchbook/internal/cache"
	"github.com/Additional-Code/stitchbook/internal/config"
	"github.com/Additional-Code/stitchbook/internal/entity"
	"github.com/Additional-Code/stitchbook/internal/messaging"
	repo "github.com/Additional-Code/stitchbook/internal/repository/order"
	"github.com/Additional-Code/stitchbook/internal/storage"
	"github.com/Additional-Code/stitchbook/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/Additional-Code/stitchbook/service/order")

// Repository is the persistence boundary the service depends on.
type Repository interface {
	Insert(ctx context.Context, order *entity.Order) (repo.InsertResult, error)
	CompleteIfEligible(ctx context.Context, billNumber string, completedAt time.Time) (repo.UpdateResult, error)
	ListPending(ctx context.Context, start, end time.Time) ([]entity.Order, error)
	ListAll(ctx context.Context) ([]entity.Order, error)
	GetByBillNumber(ctx context.Context, billNumber string) (*entity.Order, error)
}

// Image is an uploaded style image waiting to be stored.
type Image struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// CreateOrderInput carries the raw creation request. Omitted and empty notes
// are treated the same.
type CreateOrderInput struct {
	BillNumber   string
	DeliveryDate string
	Notes        string
	Image        *Image
}

// Service owns the order lifecycle: creation with its image, completion,
// and the list queries.
type Service struct {
	repo      Repository
	artifacts storage.Store
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	metrics   lifecycleMetrics
	now       func() time.Time
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository Repository
	Artifacts  storage.Store
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	logger := p.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	store := p.Cache
	if store == nil {
		store = cache.Noop()
	}
	return &Service{
		repo:      p.Repository,
		artifacts: p.Artifacts,
		cache:     store,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    logger,
		publisher: p.Publisher,
		metrics:   newLifecycleMetrics(),
		now:       time.Now,
	}
}

// CreateOrder validates the input, stores the image, then inserts the row.
// When the insert does not happen the stored image is deleted before the
// error is returned. It returns the bill number of the new order.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (string, error) {
	billNumber := strings.TrimSpace(in.BillNumber)
	ctx, span := serviceTracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(
		attribute.String("order.bill_number", billNumber),
		attribute.Bool("order.has_image", in.Image != nil),
	))
	defer span.End()

	if billNumber == "" || strings.TrimSpace(in.DeliveryDate) == "" {
		s.metrics.failed(ctx, "validation")
		return "", errorbank.BadRequest("billNumber and deliveryDate are required")
	}
	if utf8.RuneCountInString(billNumber) > entity.MaxBillNumberLength {
		s.metrics.failed(ctx, "validation")
		return "", errorbank.BadRequest("billNumber is too long",
			errorbank.WithDetail("maxLength", entity.MaxBillNumberLength),
		)
	}
	deliveryDate, err := ParseDate(in.DeliveryDate)
	if err != nil {
		s.metrics.failed(ctx, "validation")
		return "", errorbank.BadRequest("deliveryDate must be a date (YYYY-MM-DD)",
			errorbank.WithCause(err),
			errorbank.WithDetail("deliveryDate", in.DeliveryDate),
		)
	}

	var imagePath *string
	if in.Image != nil {
		ref, err := s.artifacts.Save(ctx, billNumber, in.Image.Content, in.Image.Size, filepath.Ext(in.Image.Filename))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "artifact store error")
			s.metrics.failed(ctx, "storage")
			s.logger.Error("store order image", zap.String("billNumber", billNumber), zap.Error(err))
			return "", errorbank.Internal("failed to store image", errorbank.WithCause(err))
		}
		imagePath = &ref
	}

	order := &entity.Order{
		BillNumber:   billNumber,
		CustomerName: entity.DefaultCustomerName,
		BillDate:     entity.DateOf(s.now()),
		DeliveryDate: deliveryDate,
		TotalAmount:  entity.DefaultTotalAmount,
		Notes:        in.Notes,
		Status:       entity.StatusPending,
		ImagePath:    imagePath,
	}

	res, err := s.repo.Insert(ctx, order)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		s.metrics.failed(ctx, "persistence")
		s.logger.Error("insert order", zap.String("billNumber", billNumber), zap.Error(err))
		s.discardImage(ctx, imagePath)
		return "", errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}
	if !res.Inserted {
		s.metrics.failed(ctx, "conflict")
		s.discardImage(ctx, imagePath)
		return "", errorbank.Conflict("order with this bill number already exists",
			errorbank.WithDetail("billNumber", billNumber),
		)
	}

	s.metrics.inc(ctx, s.metrics.created)
	s.storeInCache(ctx, order)
	s.publish(ctx, LifecycleEvent{
		Type:         EventOrderCreated,
		BillNumber:   order.BillNumber,
		Status:       order.Status,
		DeliveryDate: order.DeliveryDate.Format(time.DateOnly),
		ImagePath:    order.ImagePath,
		OccurredAt:   s.now().UTC(),
	})
	s.logger.Info("order created", zap.String("billNumber", billNumber), zap.Bool("image", imagePath != nil))

	return billNumber, nil
}

// CompleteOrder moves a Pending or InProgress order to Complete. A missing
// order and an already complete one both yield a not-found error.
func (s *Service) CompleteOrder(ctx context.Context, billNumber string) error {
	billNumber = strings.TrimSpace(billNumber)
	ctx, span := serviceTracer.Start(ctx, "OrderService.CompleteOrder", trace.WithAttributes(attribute.String("order.bill_number", billNumber)))
	defer span.End()

	if billNumber == "" {
		return errorbank.BadRequest("billNumber is required")
	}

	completedAt := s.now().UTC()
	res, err := s.repo.CompleteIfEligible(ctx, billNumber, completedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		s.logger.Error("complete order", zap.String("billNumber", billNumber), zap.Error(err))
		return errorbank.Internal("failed to update order status", errorbank.WithCause(err))
	}
	if !res.Updated {
		return errorbank.NotFound("order not found or status not updated",
			errorbank.WithDetail("billNumber", billNumber),
		)
	}

	s.metrics.inc(ctx, s.metrics.completed)
	s.evict(ctx, billNumber)
	s.publish(ctx, LifecycleEvent{
		Type:       EventOrderCompleted,
		BillNumber: billNumber,
		Status:     entity.StatusComplete,
		OccurredAt: completedAt,
	})
	s.logger.Info("order completed", zap.String("billNumber", billNumber))

	return nil
}

// GetOrder fetches a single order, consulting the cache first.
func (s *Service) GetOrder(ctx context.Context, billNumber string) (*entity.Order, error) {
	billNumber = strings.TrimSpace(billNumber)
	ctx, span := serviceTracer.Start(ctx, "OrderService.GetOrder", trace.WithAttributes(attribute.String("order.bill_number", billNumber)))
	defer span.End()

	if order, err := s.getFromCache(ctx, billNumber); err == nil {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.String("billNumber", billNumber), zap.Error(err))
	}

	order, err := s.repo.GetByBillNumber(ctx, billNumber)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found", errorbank.WithDetail("billNumber", billNumber))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	s.storeInCache(ctx, order)
	return order, nil
}

// discardImage is the compensating delete for a stored image whose order row
// was never written. Failures are logged and swallowed so the caller still
// sees the original error.
func (s *Service) discardImage(ctx context.Context, imagePath *string) {
	if imagePath == nil {
		return
	}
	// The request may already be cancelled; the cleanup must still run.
	ctx = context.WithoutCancel(ctx)
	if err := s.artifacts.Delete(ctx, *imagePath); err != nil {
		s.logger.Warn("delete orphaned image", zap.String("imagePath", *imagePath), zap.Error(err))
		return
	}
	s.metrics.inc(ctx, s.metrics.compensated)
	s.logger.Info("deleted orphaned image", zap.String("imagePath", *imagePath))
}

func cacheKey(billNumber string) string {
	return "orders:" + billNumber
}

func (s *Service) getFromCache(ctx context.Context, billNumber string) (*entity.Order, error) {
	raw, err := s.cache.Get(ctx, cacheKey(billNumber))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) {
	raw, err := json.Marshal(order)
	if err == nil {
		err = s.cache.Set(ctx, cacheKey(order.BillNumber), raw, s.cacheTTL)
	}
	if err != nil {
		s.logger.Warn("orders cache write failed", zap.String("billNumber", order.BillNumber), zap.Error(err))
	}
}

func (s *Service) evict(ctx context.Context, billNumber string) {
	if err := s.cache.Delete(ctx, cacheKey(billNumber)); err != nil {
		s.logger.Warn("orders cache evict failed", zap.String("billNumber", billNumber), zap.Error(err))
	}
}
