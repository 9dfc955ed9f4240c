package pkg

const (
	HeaderTraceId   string = "X-Trace-Id"
	HeaderRequestId string = "X-Request-Id"
)

const (
	TraceId   string = "trace_id"
	RequestId string = "request_id"
	OrderId   string = "order_id"
	PaymentId string = "payment_id"
)

type OrderStatus string

const (
	OrderStatusDraft     OrderStatus = "draft"
	OrderStatusFailed    OrderStatus = "failed"
	OrderStatusSucceeded OrderStatus = "succeeded"
)

// IsTerminal reports whether no further capture transition is defined for the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusFailed || s == OrderStatusSucceeded
}

type PaymentStatus string

const (
	PaymentStatusRequiresConfirmation PaymentStatus = "requires_confirmation"
	PaymentStatusSucceeded            PaymentStatus = "succeeded"
	PaymentStatusFailed               PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodEBT        PaymentMethod = "ebt"
)

// Card brands accepted for credit/debit instruments.
const (
	CardBrandAmex       = "amex"
	CardBrandDiscover   = "discover"
	CardBrandMastercard = "mastercard"
	CardBrandVisa       = "visa"
)

// States issuing EBT cards.
const (
	EBTStateAndraPradesh  = "AndraPradesh"
	EBTStateTelangana     = "Telangana"
	EBTStateMadhyaPradesh = "MadhyaPradesh"
	EBTStateDelhi         = "Delhi"
)
