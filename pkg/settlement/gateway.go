// Package settlement turns single-shot processor decisions into payment state.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/models"
	"go.uber.org/zap"
)

// Gateway settles one payment exactly once. It records the outcome on the payment
// (status, success date, last processing error) and returns a *DeclineError when the payment failed.
// It never retries and never returns without a decision.
type Gateway interface {
	Settle(ctx context.Context, payment *models.Payment) error
}

// DeclineError carries the failure reason that was stored on the payment.
type DeclineError struct {
	PaymentID string
	Reason    string
}

func (e *DeclineError) Error() string { return e.Reason }
func (e *DeclineError) Unwrap() error { return pkg.ErrSettlementFailed }

// CardGateway settles credit_card payments.
type CardGateway struct {
	processor Processor
	logger    *zap.Logger
	now       func() time.Time
}

func NewCardGateway(processor Processor, logger *zap.Logger) *CardGateway {
	return &CardGateway{processor: processor, logger: logger, now: time.Now}
}

func (g *CardGateway) Settle(ctx context.Context, payment *models.Payment) error {
	if payment.PaymentMethod != pkg.PaymentMethodCreditCard || payment.CreditCardID == nil {
		return reject(payment, "payment is not backed by a credit card", g.now())
	}
	return settle(ctx, g.processor, g.logger, g.now, payment)
}

// EBTGateway settles ebt payments.
type EBTGateway struct {
	processor Processor
	logger    *zap.Logger
	now       func() time.Time
}

func NewEBTGateway(processor Processor, logger *zap.Logger) *EBTGateway {
	return &EBTGateway{processor: processor, logger: logger, now: time.Now}
}

func (g *EBTGateway) Settle(ctx context.Context, payment *models.Payment) error {
	if payment.PaymentMethod != pkg.PaymentMethodEBT || payment.EbtID == nil {
		return reject(payment, "payment is not backed by an EBT card", g.now())
	}
	return settle(ctx, g.processor, g.logger, g.now, payment)
}

// MethodRouter dispatches each payment to the gateway registered for its method.
type MethodRouter struct {
	gateways map[pkg.PaymentMethod]Gateway
	now      func() time.Time
}

func NewMethodRouter(card Gateway, ebt Gateway) *MethodRouter {
	return &MethodRouter{
		gateways: map[pkg.PaymentMethod]Gateway{
			pkg.PaymentMethodCreditCard: card,
			pkg.PaymentMethodEBT:        ebt,
		},
		now: time.Now,
	}
}

func (r *MethodRouter) Settle(ctx context.Context, payment *models.Payment) error {
	gw, ok := r.gateways[payment.PaymentMethod]
	if !ok || gw == nil {
		return reject(payment, fmt.Sprintf("unsupported payment method %q", payment.PaymentMethod), r.now())
	}
	return gw.Settle(ctx, payment)
}

func settle(ctx context.Context, processor Processor, logger *zap.Logger, now func() time.Time, payment *models.Payment) error {
	charge := Charge{
		PaymentID:    payment.ID,
		OrderID:      payment.OrderID,
		Method:       payment.PaymentMethod,
		InstrumentID: *payment.InstrumentID(),
		Amount:       payment.Amount,
	}

	start := time.Now()
	outcome, err := processor.Charge(ctx, charge)
	settlementDuration.WithLabelValues(string(payment.PaymentMethod)).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		logger.Error("settlement_processor_error",
			zap.String(pkg.OrderId, payment.OrderID.String()),
			zap.String(pkg.PaymentId, payment.ID.String()),
			zap.Error(err))
		settlementTotal.WithLabelValues(string(payment.PaymentMethod), "error").Inc()
		return reject(payment, ReasonUnavailable, now())
	case !outcome.Approved:
		reason := outcome.Reason
		if reason == "" {
			reason = "declined"
		}
		logger.Info("settlement_declined",
			zap.String(pkg.OrderId, payment.OrderID.String()),
			zap.String(pkg.PaymentId, payment.ID.String()),
			zap.String("reason", reason))
		settlementTotal.WithLabelValues(string(payment.PaymentMethod), "declined").Inc()
		return reject(payment, reason, now())
	}

	payment.MarkSucceeded(now())
	settlementTotal.WithLabelValues(string(payment.PaymentMethod), "succeeded").Inc()
	logger.Debug("settlement_succeeded",
		zap.String(pkg.OrderId, payment.OrderID.String()),
		zap.String(pkg.PaymentId, payment.ID.String()))
	return nil
}

func reject(payment *models.Payment, reason string, at time.Time) error {
	payment.MarkFailed(reason, at)
	return &DeclineError{PaymentID: payment.ID.String(), Reason: reason}
}
