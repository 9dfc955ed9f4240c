// Package capture settles every payment of an order and derives the order's final state.
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/database"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/models"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/repositories"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/rules"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/settlement"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/views"
	"go.uber.org/zap"
)

// Publisher announces committed capture outcomes.
type Publisher interface {
	PublishCaptured(ctx context.Context, event views.CaptureEvent) error
}

// Result is the committed outcome of a capture attempt.
type Result struct {
	Order    models.Order
	Payments []models.Payment
	// Errors holds the capture-time validation message or the reason of every failed settlement.
	Errors []string
}

// ToView converts the result for API and event output.
func (r Result) ToView() views.Capture {
	errs := r.Errors
	if errs == nil {
		errs = []string{}
	}
	return views.Capture{
		Order:    r.Order.ToView(),
		Payments: models.PaymentViews(r.Payments),
		Errors:   errs,
	}
}

// Engine captures orders.
type Engine interface {
	// CaptureOrder runs the full capture of one order. Captures of the same order are serialized on the
	// order row lock; all state changes of one attempt commit together.
	//
	// Errors: ErrOrderNotFound and ErrAlreadyCaptured leave the store untouched. ErrTotalMismatch and
	// ErrEbtLimitExceeded are returned after the order and all its payments were committed as failed,
	// together with that committed Result. Settlement failures are not errors; they are listed in
	// Result.Errors and fail the order.
	CaptureOrder(ctx context.Context, traceID string, orderID uuid.UUID) (Result, error)
}

// EngineConfig holds the dependencies of the capture engine.
type EngineConfig struct {
	Logger      *zap.Logger
	DB          database.TxRunner
	OrderRepo   repositories.OrderRepository
	PaymentRepo repositories.PaymentRepository
	Gateway     settlement.Gateway
	Publisher   Publisher // optional
	// Concurrency bounds parallel settlement calls within one order. Values below 2 settle sequentially.
	Concurrency int
	Clock       func() time.Time
}

type EngineImpl struct {
	cfg EngineConfig
}

func NewEngine(cfg EngineConfig) Engine {
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	if cfg.Publisher == nil {
		cfg.Publisher = NoopPublisher{}
	}
	return &EngineImpl{cfg: cfg}
}

func (e *EngineImpl) CaptureOrder(ctx context.Context, traceID string, orderID uuid.UUID) (Result, error) {
	start := time.Now()
	logger := e.cfg.Logger.With(zap.String(pkg.TraceId, traceID), zap.String(pkg.OrderId, orderID.String()))

	var (
		result     Result
		captureErr error
	)
	err := e.cfg.DB.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		order, err := e.cfg.OrderRepo.FindByIDForUpdate(ctx, tx, orderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return pkg.NewAppError(pkg.ErrOrderNotFoundCode,
					fmt.Sprintf("Order with id %s not found", orderID), pkg.ErrOrderNotFound)
			}
			return pkg.HandleSQLError(traceID, logger, err)
		}
		if order.Status.IsTerminal() {
			return pkg.NewAppError(pkg.ErrAlreadyCapturedCode,
				fmt.Sprintf("Order with id %s is already %s", orderID, order.Status), pkg.ErrAlreadyCaptured)
		}

		payments, err := e.cfg.PaymentRepo.FindByOrderID(ctx, tx, orderID)
		if err != nil {
			return pkg.HandleSQLError(traceID, logger, err)
		}

		if vErr := rules.ValidateCaptureTotals(order, payments); vErr != nil {
			e.logValidationFailure(logger, order, payments, vErr)
			message := publicMessage(vErr)
			now := e.cfg.Clock()
			for i := range payments {
				payments[i].MarkFailed(message, now)
			}
			order.MarkFailed(now)
			if err := e.persist(ctx, tx, order, payments); err != nil {
				return pkg.HandleSQLError(traceID, logger, err)
			}
			result = Result{Order: order, Payments: payments, Errors: []string{message}}
			// commit the failed state, report the validation error afterwards
			captureErr = vErr
			return nil
		}

		settleErrs := e.settleAll(ctx, payments)
		now := e.cfg.Clock()
		if len(settleErrs) > 0 {
			order.MarkFailed(now)
		} else {
			order.MarkSucceeded(now)
		}
		if err := e.persist(ctx, tx, order, payments); err != nil {
			return pkg.HandleSQLError(traceID, logger, err)
		}
		result = Result{Order: order, Payments: payments, Errors: settleErrs}
		return nil
	})
	if err != nil {
		captureTotal.WithLabelValues(outcomeLabel(err, "")).Inc()
		return Result{}, err
	}

	captureTotal.WithLabelValues(outcomeLabel(captureErr, result.Order.Status)).Inc()
	captureDuration.Observe(time.Since(start).Seconds())
	logger.Info("order_capture_completed",
		zap.String("status", string(result.Order.Status)),
		zap.Int("payments", len(result.Payments)),
		zap.Strings("errors", result.Errors))

	event := views.CaptureEvent{
		OrderID:     result.Order.ID.String(),
		TraceID:     traceID,
		Status:      result.Order.Status,
		SuccessDate: result.Order.SuccessDate,
		Errors:      result.ToView().Errors,
		CapturedAt:  result.Order.UpdatedAt,
	}
	if pubErr := e.cfg.Publisher.PublishCaptured(ctx, event); pubErr != nil {
		// the capture is committed; a lost event does not change its outcome
		logger.Error("capture_event_publish_failed", zap.Error(pubErr))
	}
	return result, captureErr
}

// settleAll calls the gateway once per payment and returns the failure reasons in payment order.
func (e *EngineImpl) settleAll(ctx context.Context, payments []models.Payment) []string {
	outcomes := make([]error, len(payments))
	if e.cfg.Concurrency < 2 {
		for i := range payments {
			outcomes[i] = e.cfg.Gateway.Settle(ctx, &payments[i])
		}
	} else {
		sem := make(chan struct{}, e.cfg.Concurrency)
		var wg sync.WaitGroup
		for i := range payments {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				outcomes[i] = e.cfg.Gateway.Settle(ctx, &payments[i])
			}(i)
		}
		wg.Wait()
	}

	errs := make([]string, 0)
	for i, err := range outcomes {
		if err != nil {
			errs = append(errs, err.Error())
		}
		// a gateway that did not record an outcome must not leave the payment pending
		if payments[i].Status == pkg.PaymentStatusRequiresConfirmation {
			if err != nil {
				payments[i].MarkFailed(err.Error(), e.cfg.Clock())
			} else {
				payments[i].MarkSucceeded(e.cfg.Clock())
			}
		}
	}
	return errs
}

func (e *EngineImpl) persist(ctx context.Context, tx pgx.Tx, order models.Order, payments []models.Payment) error {
	for _, p := range payments {
		if err := e.cfg.PaymentRepo.UpdateOutcome(ctx, tx, p); err != nil {
			return err
		}
	}
	return e.cfg.OrderRepo.UpdateStatus(ctx, tx, order)
}

// logValidationFailure flags an overpaid order as an integrity problem: payment creation already
// rejects a running total above order_total under the same order lock.
func (e *EngineImpl) logValidationFailure(logger *zap.Logger, order models.Order, payments []models.Payment, err error) {
	sum := rules.SumAmounts(payments)
	if errors.Is(err, pkg.ErrTotalMismatch) && sum.GreaterThan(order.OrderTotal) {
		logger.Error("order_payments_exceed_total",
			zap.String("order_total", order.OrderTotal.StringFixed(2)),
			zap.String("payment_total", sum.StringFixed(2)))
		return
	}
	logger.Warn("order_capture_rejected", zap.Error(err))
}

func publicMessage(err error) string {
	var appErr pkg.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func outcomeLabel(err error, status pkg.OrderStatus) string {
	switch {
	case err == nil:
		return string(status)
	case errors.Is(err, pkg.ErrOrderNotFound):
		return "not_found"
	case errors.Is(err, pkg.ErrAlreadyCaptured):
		return "already_captured"
	case errors.Is(err, pkg.ErrTotalMismatch):
		return "total_mismatch"
	case errors.Is(err, pkg.ErrEbtLimitExceeded):
		return "ebt_limit_exceeded"
	default:
		return "error"
	}
}

// NoopPublisher drops events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishCaptured(context.Context, views.CaptureEvent) error { return nil }
