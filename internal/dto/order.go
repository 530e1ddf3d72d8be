package dto

import (
	"time"

	"github.com/Additional-Code/stitchbook/internal/entity"
)

// PendingOrderResponse is the projection returned by the pending query.
type PendingOrderResponse struct {
	BillNumber   string  `json:"billNumber"`
	DeliveryDate string  `json:"deliveryDate"`
	Notes        string  `json:"notes"`
	Status       string  `json:"status"`
	ImagePath    *string `json:"imagePath"`
}

// OrderSummaryResponse is the projection returned by the order history.
type OrderSummaryResponse struct {
	BillNumber     string     `json:"billNumber"`
	DeliveryDate   string     `json:"deliveryDate"`
	Notes          string     `json:"notes"`
	Status         string     `json:"status"`
	CompletionDate *time.Time `json:"completionDate"`
	ImagePath      *string    `json:"imagePath"`
}

// OrderResponse exposes every stored field of an order.
type OrderResponse struct {
	BillNumber     string     `json:"billNumber"`
	CustomerName   string     `json:"customerName"`
	BillDate       string     `json:"billDate"`
	DeliveryDate   string     `json:"deliveryDate"`
	TotalAmount    float64    `json:"totalAmount"`
	Notes          string     `json:"notes"`
	Status         string     `json:"status"`
	CompletionDate *time.Time `json:"completionDate"`
	ImagePath      *string    `json:"imagePath"`
}

// CreateOrderResponse acknowledges a created order.
type CreateOrderResponse struct {
	Message    string `json:"message"`
	BillNumber string `json:"billNumber"`
}

// MessageResponse carries a plain confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// NewPendingOrders maps orders to the pending projection, keeping their order.
func NewPendingOrders(orders []entity.Order) []PendingOrderResponse {
	out := make([]PendingOrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, PendingOrderResponse{
			BillNumber:   o.BillNumber,
			DeliveryDate: o.DeliveryDate.Format(time.DateOnly),
			Notes:        o.Notes,
			Status:       string(o.Status),
			ImagePath:    o.ImagePath,
		})
	}
	return out
}

// NewOrderSummaries maps orders to the history projection, keeping their order.
func NewOrderSummaries(orders []entity.Order) []OrderSummaryResponse {
	out := make([]OrderSummaryResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderSummaryResponse{
			BillNumber:     o.BillNumber,
			DeliveryDate:   o.DeliveryDate.Format(time.DateOnly),
			Notes:          o.Notes,
			Status:         string(o.Status),
			CompletionDate: o.CompletionDate,
			ImagePath:      o.ImagePath,
		})
	}
	return out
}

// NewOrder renders a single stored order in full.
func NewOrder(o *entity.Order) OrderResponse {
	return OrderResponse{
		BillNumber:     o.BillNumber,
		CustomerName:   o.CustomerName,
		BillDate:       o.BillDate.Format(time.DateOnly),
		DeliveryDate:   o.DeliveryDate.Format(time.DateOnly),
		TotalAmount:    o.TotalAmount,
		Notes:          o.Notes,
		Status:         string(o.Status),
		CompletionDate: o.CompletionDate,
		ImagePath:      o.ImagePath,
	}
}
