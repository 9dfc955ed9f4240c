package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/models"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/repositories"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/rules"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/views"
	apiviews "github.com/nimeshabuddhika/split-tender-processor/services/capture-api/internal/views"
	"go.uber.org/zap"
)

type PaymentService interface {
	// CreatePayment attaches a payment to a draft order. The running total check runs under the
	// order row lock, so concurrent creations cannot together exceed order_total.
	CreatePayment(ctx context.Context, traceID string, req apiviews.PaymentRequest) (views.Payment, error)
	GetPayment(ctx context.Context, traceID string, id uuid.UUID) (views.Payment, error)
	ListPayments(ctx context.Context, traceID string, page, size int) ([]views.Payment, error)
	// DeletePayment removes a payment of a draft order.
	DeletePayment(ctx context.Context, traceID string, id uuid.UUID) error
}

type PaymentServiceImpl struct {
	ServiceConfig
	orderRepo      repositories.OrderRepository
	paymentRepo    repositories.PaymentRepository
	instrumentRepo repositories.InstrumentRepository
}

func NewPaymentService(cfg ServiceConfig, orderRepo repositories.OrderRepository, paymentRepo repositories.PaymentRepository,
	instrumentRepo repositories.InstrumentRepository) PaymentService {
	return &PaymentServiceImpl{
		ServiceConfig:  cfg,
		orderRepo:      orderRepo,
		paymentRepo:    paymentRepo,
		instrumentRepo: instrumentRepo,
	}
}

func (s *PaymentServiceImpl) CreatePayment(ctx context.Context, traceID string, req apiviews.PaymentRequest) (views.Payment, error) {
	payment, err := s.buildPayment(req)
	if err != nil {
		return views.Payment{}, err
	}

	err = s.DB.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		order, err := s.orderRepo.FindByIDForUpdate(ctx, tx, payment.OrderID)
		if err != nil {
			return handleLookupError(traceID, s.Logger, err, "Order", payment.OrderID)
		}
		if order.Status != pkg.OrderStatusDraft {
			return pkg.NewAppError(pkg.ErrAlreadyCapturedCode,
				fmt.Sprintf("Order with id %s is already %s", order.ID, order.Status), pkg.ErrAlreadyCaptured)
		}
		existing, err := s.paymentRepo.FindByOrderID(ctx, tx, order.ID)
		if err != nil {
			return pkg.HandleSQLError(traceID, s.Logger, err)
		}
		if err := rules.ValidatePaymentAssociation(payment, order, existing); err != nil {
			return err
		}
		if err := s.validateInstrument(ctx, tx, payment); err != nil {
			return err
		}
		if err := s.paymentRepo.Create(ctx, tx, payment); err != nil {
			return pkg.HandleSQLError(traceID, s.Logger, err)
		}
		return nil
	})
	if err != nil {
		return views.Payment{}, err
	}
	s.Logger.Info("payment_created",
		zap.String(pkg.TraceId, traceID),
		zap.String(pkg.OrderId, payment.OrderID.String()),
		zap.String(pkg.PaymentId, payment.ID.String()),
		zap.String("payment_method", string(payment.PaymentMethod)),
		zap.String("amount", payment.Amount.StringFixed(2)))
	return payment.ToView(), nil
}

func (s *PaymentServiceImpl) buildPayment(req apiviews.PaymentRequest) (models.Payment, error) {
	amount, err := requireAmount("amount", req.Amount)
	if err != nil {
		return models.Payment{}, err
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return models.Payment{}, requiredField("description")
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return models.Payment{}, pkg.NewAppError(pkg.ErrInvalidInputCode, "orderId must be a UUID", err)
	}
	creditCardID, err := parseOptionalUUID("creditCardId", req.CreditCardID)
	if err != nil {
		return models.Payment{}, err
	}
	ebtID, err := parseOptionalUUID("ebtId", req.EbtID)
	if err != nil {
		return models.Payment{}, err
	}
	now := s.now()
	return models.Payment{
		ID:            uuid.New(),
		OrderID:       orderID,
		Amount:        amount.Round(2),
		Description:   description,
		PaymentMethod: pkg.PaymentMethod(req.PaymentMethod),
		CreditCardID:  creditCardID,
		EbtID:         ebtID,
		Status:        pkg.PaymentStatusRequiresConfirmation,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// validateInstrument checks that the referenced instrument exists and is still usable.
func (s *PaymentServiceImpl) validateInstrument(ctx context.Context, tx pgx.Tx, payment models.Payment) error {
	var (
		instrument models.Instrument
		err        error
		kind       string
	)
	if payment.CreditCardID != nil {
		kind = "Credit card"
		instrument, err = s.instrumentRepo.FindCreditCardByID(ctx, tx, *payment.CreditCardID)
	} else {
		kind = "EBT card"
		instrument, err = s.instrumentRepo.FindEBTByID(ctx, tx, *payment.EbtID)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return pkg.NewAppError(pkg.ErrInvalidPaymentCode,
			fmt.Sprintf("%s with id %s not found", kind, payment.InstrumentID()), pkg.ErrInvalidPayment)
	}
	if err != nil {
		return err
	}
	return rules.ValidateInstrumentConsistency(instrument, s.now())
}

func (s *PaymentServiceImpl) GetPayment(ctx context.Context, traceID string, id uuid.UUID) (views.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, s.Reader, id)
	if err != nil {
		return views.Payment{}, handleLookupError(traceID, s.Logger, err, "Payment", id)
	}
	return payment.ToView(), nil
}

func (s *PaymentServiceImpl) ListPayments(ctx context.Context, traceID string, page, size int) ([]views.Payment, error) {
	payments, err := s.paymentRepo.FindAll(ctx, s.Reader, page, size)
	if err != nil {
		return nil, pkg.HandleSQLError(traceID, s.Logger, err)
	}
	return models.PaymentViews(payments), nil
}

func (s *PaymentServiceImpl) DeletePayment(ctx context.Context, traceID string, id uuid.UUID) error {
	err := s.DB.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		payment, err := s.paymentRepo.FindByID(ctx, tx, id)
		if err != nil {
			return handleLookupError(traceID, s.Logger, err, "Payment", id)
		}
		order, err := s.orderRepo.FindByIDForUpdate(ctx, tx, payment.OrderID)
		if err != nil {
			return handleLookupError(traceID, s.Logger, err, "Order", payment.OrderID)
		}
		if order.Status != pkg.OrderStatusDraft {
			return pkg.NewAppError(pkg.ErrAlreadyCapturedCode,
				fmt.Sprintf("Order with id %s is already %s", order.ID, order.Status), pkg.ErrAlreadyCaptured)
		}
		if _, err := s.paymentRepo.Delete(ctx, tx, id); err != nil {
			return pkg.HandleSQLError(traceID, s.Logger, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Logger.Info("payment_deleted", zap.String(pkg.TraceId, traceID), zap.String(pkg.PaymentId, id.String()))
	return nil
}

func parseOptionalUUID(field string, raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, pkg.NewAppError(pkg.ErrInvalidInputCode, field+" must be a UUID", err)
	}
	return &id, nil
}
