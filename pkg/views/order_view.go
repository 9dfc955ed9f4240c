package views

import (
	"time"

	"github.com/nimeshabuddhika/split-tender-processor/pkg"
)

// Order is the external representation of an order. Amounts carry two fractional digits.
type Order struct {
	ID          string          `json:"id"`
	OrderTotal  string          `json:"orderTotal"`
	EbtTotal    string          `json:"ebtTotal"`
	Status      pkg.OrderStatus `json:"status"`
	SuccessDate *time.Time      `json:"successDate"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

type Payment struct {
	ID                  string            `json:"id"`
	OrderID             string            `json:"orderId"`
	Amount              string            `json:"amount"`
	Description         string            `json:"description"`
	PaymentMethod       pkg.PaymentMethod `json:"paymentMethod"`
	CreditCardID        *string           `json:"creditCardId"`
	EbtID               *string           `json:"ebtId"`
	Status              pkg.PaymentStatus `json:"status"`
	SuccessDate         *time.Time        `json:"successDate"`
	LastProcessingError *string           `json:"lastProcessingError"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
}

// Capture is the outcome of a completed capture attempt.
type Capture struct {
	Order    Order     `json:"order"`
	Payments []Payment `json:"payments"`
	Errors   []string  `json:"errors"`
}
