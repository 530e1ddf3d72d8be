package entity

import (
	"time"

	"github.com/uptrace/bun"
)

// OrderStatus is the lifecycle state of a tailoring order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "Pending"
	StatusInProgress OrderStatus = "InProgress"
	StatusComplete   OrderStatus = "Complete"
)

// Placeholder values for columns the order workflow does not manage.
const (
	DefaultCustomerName = "N/A"
	DefaultTotalAmount  = 0.00
)

// MaxBillNumberLength bounds bill_number, matching its VARCHAR(64) column.
const MaxBillNumberLength = 64

var statuses = []OrderStatus{StatusPending, StatusInProgress, StatusComplete}

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusInProgress, StatusComplete},
	StatusInProgress: {StatusComplete},
}

// ActiveStatuses lists the statuses that still represent outstanding work,
// that is every status an order can still be completed from.
var ActiveStatuses = PredecessorsOf(StatusComplete)

// PredecessorsOf returns the statuses allowed to move to next, in lifecycle order.
func PredecessorsOf(next OrderStatus) []OrderStatus {
	var out []OrderStatus
	for _, s := range statuses {
		if s.CanTransitionTo(next) {
			out = append(out, s)
		}
	}
	return out
}

// CanTransitionTo reports whether next is a legal successor of s. Complete is terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Order is a tailoring order keyed by its externally assigned bill number.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	BillNumber     string      `bun:"bill_number,pk" json:"billNumber"`
	CustomerName   string      `bun:"customer_name" json:"customerName"`
	BillDate       time.Time   `bun:"bill_date" json:"billDate"`
	DeliveryDate   time.Time   `bun:"delivery_date" json:"deliveryDate"`
	TotalAmount    float64     `bun:"total_amount" json:"totalAmount"`
	Notes          string      `bun:"notes" json:"notes"`
	Status         OrderStatus `bun:"status" json:"status"`
	CompletionDate *time.Time  `bun:"completion_date" json:"completionDate"`
	ImagePath      *string     `bun:"image_path" json:"imagePath"`
}

// DateOf truncates t to its calendar date, expressed at midnight UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
