package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/views"
	"github.com/shopspring/decimal"
)

// Payment maps to table `payments`. Exactly one of CreditCardID/EbtID is set, matching PaymentMethod.
type Payment struct {
	ID                  uuid.UUID
	OrderID             uuid.UUID
	Amount              decimal.Decimal
	Description         string
	PaymentMethod       pkg.PaymentMethod
	CreditCardID        *uuid.UUID
	EbtID               *uuid.UUID
	Status              pkg.PaymentStatus
	SuccessDate         *time.Time
	LastProcessingError *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// MarkSucceeded records a settled payment. Any earlier processing error is cleared.
func (p *Payment) MarkSucceeded(at time.Time) {
	p.Status = pkg.PaymentStatusSucceeded
	p.SuccessDate = &at
	p.LastProcessingError = nil
	p.UpdatedAt = at
}

// MarkFailed records a failed payment; reason overwrites any previous error.
func (p *Payment) MarkFailed(reason string, at time.Time) {
	p.Status = pkg.PaymentStatusFailed
	p.LastProcessingError = &reason
	p.UpdatedAt = at
}

// InstrumentID returns the populated instrument reference, or nil when none is set.
func (p Payment) InstrumentID() *uuid.UUID {
	if p.CreditCardID != nil {
		return p.CreditCardID
	}
	return p.EbtID
}

func (p Payment) ToView() views.Payment {
	return views.Payment{
		ID:                  p.ID.String(),
		OrderID:             p.OrderID.String(),
		Amount:              p.Amount.StringFixed(2),
		Description:         p.Description,
		PaymentMethod:       p.PaymentMethod,
		CreditCardID:        uuidString(p.CreditCardID),
		EbtID:               uuidString(p.EbtID),
		Status:              p.Status,
		SuccessDate:         p.SuccessDate,
		LastProcessingError: p.LastProcessingError,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

// PaymentViews converts a slice of payments for API/event output.
func PaymentViews(payments []Payment) []views.Payment {
	out := make([]views.Payment, 0, len(payments))
	for _, p := range payments {
		out = append(out, p.ToView())
	}
	return out
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
