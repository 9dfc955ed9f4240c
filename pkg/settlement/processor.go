package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/shopspring/decimal"
)

// Failure reasons recorded on payments when the processor itself did not decide.
const (
	ReasonThrottled   = "settlement throttled"
	ReasonUnavailable = "settlement processor unavailable"
)

// Charge is one settlement attempt sent to a processor.
type Charge struct {
	PaymentID    uuid.UUID         `json:"paymentId"`
	OrderID      uuid.UUID         `json:"orderId"`
	Method       pkg.PaymentMethod `json:"method"`
	InstrumentID uuid.UUID         `json:"instrumentId"`
	Amount       decimal.Decimal   `json:"amount"`
}

// Outcome is the processor's decision for one charge. Reason is set when Approved is false.
type Outcome struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason,omitempty"`
}

// Processor charges one payment against an external settlement network.
// A returned error means no decision was reached (transport failure, cancelled context).
type Processor interface {
	Charge(ctx context.Context, charge Charge) (Outcome, error)
}
