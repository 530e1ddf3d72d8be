package order

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Additional-Code/stitchbook/internal/config"
	"github.com/Additional-Code/stitchbook/internal/dto"
	"github.com/Additional-Code/stitchbook/internal/presentation/http/response"
	service "github.com/Additional-Code/stitchbook/internal/service/order"
	"github.com/Additional-Code/stitchbook/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/Additional-Code/stitchbook/transport/http/order")

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc            *service.Service
	maxUploadBytes int64
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service, cfg config.Config) *Handler {
	return &Handler{svc: svc, maxUploadBytes: cfg.Storage.MaxUploadBytes}
}

// Register routes with provided Echo group.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.POST("", h.create)
	g.GET("", h.listAll)
	g.GET("/pending", h.listPending)
	g.GET("/:billNumber", h.get)
	g.PUT("/:billNumber/complete", h.complete)
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create")
	defer span.End()

	in := service.CreateOrderInput{
		BillNumber:   c.FormValue("billNumber"),
		DeliveryDate: c.FormValue("deliveryDate"),
		Notes:        c.FormValue("notes"),
	}
	span.SetAttributes(attribute.String("order.bill_number", in.BillNumber))

	fh, err := c.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		return b.WithError(errorbank.BadRequest("invalid image upload", errorbank.WithCause(err))).Build()
	default:
		if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
			return b.WithError(errorbank.BadRequest("image exceeds upload limit",
				errorbank.WithDetail("maxBytes", h.maxUploadBytes),
			)).Build()
		}
		f, err := fh.Open()
		if err != nil {
			return b.WithError(errorbank.BadRequest("invalid image upload", errorbank.WithCause(err))).Build()
		}
		defer f.Close()
		in.Image = &service.Image{Filename: fh.Filename, Size: fh.Size, Content: f}
	}

	billNumber, err := h.svc.CreateOrder(ctx, in)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.CreateOrderResponse{
		Message:    "Order created successfully",
		BillNumber: billNumber,
	}).Build()
}

func (h *Handler) complete(c echo.Context) error {
	b := response.New(c)
	billNumber := c.Param("billNumber")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.complete", trace.WithAttributes(attribute.String("order.bill_number", billNumber)))
	defer span.End()

	if err := h.svc.CompleteOrder(ctx, billNumber); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.MessageResponse{Message: "Order marked as complete"}).Build()
}

func (h *Handler) listPending(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.listPending")
	defer span.End()

	orders, err := h.svc.ListPending(ctx, service.PendingFilter{
		StartDate: c.QueryParam("startDate"),
		EndDate:   c.QueryParam("endDate"),
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewPendingOrders(orders)).WithMeta("count", len(orders)).Build()
}

func (h *Handler) listAll(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.listAll")
	defer span.End()

	orders, err := h.svc.ListAll(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrderSummaries(orders)).WithMeta("count", len(orders)).Build()
}

func (h *Handler) get(c echo.Context) error {
	b := response.New(c)
	billNumber := c.Param("billNumber")

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.get", trace.WithAttributes(attribute.String("order.bill_number", billNumber)))
	defer span.End()

	order, err := h.svc.GetOrder(ctx, billNumber)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.NewOrder(order)).Build()
}
