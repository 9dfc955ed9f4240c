package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/views"
)

// Instrument is a stored payment instrument whose number must end in its recorded last four digits.
type Instrument interface {
	Method() pkg.PaymentMethod
	CardNumber() string
	RecordedLast4() string
}

// CreditCard maps to table `credit_cards`. ExpYear is always a 4-digit year.
type CreditCard struct {
	ID        uuid.UUID
	Number    string
	Last4     string
	Brand     string
	ExpMonth  int
	ExpYear   int
	CreatedAt time.Time
}

func (c CreditCard) Method() pkg.PaymentMethod { return pkg.PaymentMethodCreditCard }
func (c CreditCard) CardNumber() string        { return c.Number }
func (c CreditCard) RecordedLast4() string     { return c.Last4 }

func (c CreditCard) ToView() views.CreditCard {
	return views.CreditCard{
		ID:        c.ID.String(),
		Last4:     c.Last4,
		Brand:     c.Brand,
		ExpMonth:  c.ExpMonth,
		ExpYear:   c.ExpYear % 100,
		CreatedAt: c.CreatedAt,
	}
}

// EBT maps to table `ebt_cards`. IssueYear is always a 4-digit year.
type EBT struct {
	ID         uuid.UUID
	Number     string
	Last4      string
	State      string
	IssueMonth int
	IssueYear  int
	CreatedAt  time.Time
}

func (e EBT) Method() pkg.PaymentMethod { return pkg.PaymentMethodEBT }
func (e EBT) CardNumber() string        { return e.Number }
func (e EBT) RecordedLast4() string     { return e.Last4 }

func (e EBT) ToView() views.EBT {
	return views.EBT{
		ID:         e.ID.String(),
		Last4:      e.Last4,
		State:      e.State,
		IssueMonth: e.IssueMonth,
		IssueYear:  e.IssueYear % 100,
		CreatedAt:  e.CreatedAt,
	}
}
