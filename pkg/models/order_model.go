package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/views"
	"github.com/shopspring/decimal"
)

// Order maps to table `orders`
type Order struct {
	ID          uuid.UUID
	OrderTotal  decimal.Decimal
	EbtTotal    decimal.Decimal // portion of OrderTotal that may be tendered through EBT
	Status      pkg.OrderStatus
	SuccessDate *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrder builds a draft order.
func NewOrder(orderTotal, ebtTotal decimal.Decimal, now time.Time) Order {
	return Order{
		ID:         uuid.New(),
		OrderTotal: orderTotal.Round(2),
		EbtTotal:   ebtTotal.Round(2),
		Status:     pkg.OrderStatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkSucceeded moves the order to succeeded and stamps the success date.
func (o *Order) MarkSucceeded(at time.Time) {
	o.Status = pkg.OrderStatusSucceeded
	o.SuccessDate = &at
	o.UpdatedAt = at
}

// MarkFailed moves the order to failed.
func (o *Order) MarkFailed(at time.Time) {
	o.Status = pkg.OrderStatusFailed
	o.UpdatedAt = at
}

func (o Order) ToView() views.Order {
	return views.Order{
		ID:          o.ID.String(),
		OrderTotal:  o.OrderTotal.StringFixed(2),
		EbtTotal:    o.EbtTotal.StringFixed(2),
		Status:      o.Status,
		SuccessDate: o.SuccessDate,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
