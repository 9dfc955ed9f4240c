package views

import "github.com/shopspring/decimal"

// CreditCardRequest creates a credit card. Years may be 2-digit (27) or 4-digit (2027).
type CreditCardRequest struct {
	Number   string `json:"number"   binding:"required,numeric,min=12,max=19"`
	Last4    string `json:"last4"    binding:"required,numeric,len=4"`
	Brand    string `json:"brand"    binding:"required,oneof=amex discover mastercard visa"`
	ExpMonth int    `json:"expMonth" binding:"required,min=1,max=12"`
	ExpYear  *int   `json:"expYear"  binding:"required,min=0,max=9999"`
}

// EBTRequest creates an EBT card.
type EBTRequest struct {
	Number     string `json:"number"     binding:"required,numeric,min=12,max=19"`
	Last4      string `json:"last4"      binding:"required,numeric,len=4"`
	State      string `json:"state"      binding:"required,oneof=AndraPradesh Telangana MadhyaPradesh Delhi"`
	IssueMonth int    `json:"issueMonth" binding:"required,min=1,max=12"`
	IssueYear  *int   `json:"issueYear"  binding:"required,min=0,max=9999"`
}

// OrderRequest creates a draft order. Amounts accept JSON numbers or strings.
type OrderRequest struct {
	OrderTotal *decimal.Decimal `json:"orderTotal" binding:"required"`
	EbtTotal   *decimal.Decimal `json:"ebtTotal"   binding:"required"`
}

// PaymentRequest attaches a payment to a draft order.
type PaymentRequest struct {
	OrderID       string           `json:"orderId"       binding:"required,uuid"`
	Amount        *decimal.Decimal `json:"amount"        binding:"required"`
	Description   string           `json:"description"   binding:"required,max=255"`
	PaymentMethod string           `json:"paymentMethod" binding:"required,oneof=credit_card ebt"`
	CreditCardID  *string          `json:"creditCardId"  binding:"omitempty,uuid"`
	EbtID         *string          `json:"ebtId"         binding:"omitempty,uuid"`
}

// CaptureAccepted is returned when a capture was queued for the worker.
type CaptureAccepted struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}
