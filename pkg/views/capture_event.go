package views

import (
	"time"

	"github.com/nimeshabuddhika/split-tender-processor/pkg"
)

// CaptureRequest is consumed by the capture worker.
type CaptureRequest struct {
	OrderID     string    `json:"orderId" validate:"required,uuid"`
	TraceID     string    `json:"traceId"`
	RequestedAt time.Time `json:"requestedAt"`
}

// CaptureEvent is published once a capture attempt has been committed.
type CaptureEvent struct {
	OrderID     string          `json:"orderId"`
	TraceID     string          `json:"traceId"`
	Status      pkg.OrderStatus `json:"status"`
	SuccessDate *time.Time      `json:"successDate"`
	Errors      []string        `json:"errors"`
	CapturedAt  time.Time       `json:"capturedAt"`
}

// CaptureDeadLetter wraps a capture request the worker gave up on. Request holds the raw message
// value so undecodable payloads survive.
type CaptureDeadLetter struct {
	OrderID       string    `json:"orderId,omitempty"`
	TraceID       string    `json:"traceId,omitempty"`
	Request       string    `json:"request"`
	FailureReason string    `json:"failureReason"`
	Error         string    `json:"error"`
	FailedAt      time.Time `json:"failedAt"`
}
