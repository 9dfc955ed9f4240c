package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/models"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/repositories"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/views"
	apiviews "github.com/nimeshabuddhika/split-tender-processor/services/capture-api/internal/views"
	"go.uber.org/zap"
)

type OrderService interface {
	CreateOrder(ctx context.Context, traceID string, req apiviews.OrderRequest) (views.Order, error)
	GetOrder(ctx context.Context, traceID string, id uuid.UUID) (views.Order, error)
	ListOrders(ctx context.Context, traceID string, page, size int) ([]views.Order, error)
	DeleteOrder(ctx context.Context, traceID string, id uuid.UUID) error
	// ListOrderPayments returns the payments of an order in creation order.
	ListOrderPayments(ctx context.Context, traceID string, id uuid.UUID) ([]views.Payment, error)
}

type OrderServiceImpl struct {
	ServiceConfig
	orderRepo   repositories.OrderRepository
	paymentRepo repositories.PaymentRepository
}

func NewOrderService(cfg ServiceConfig, orderRepo repositories.OrderRepository, paymentRepo repositories.PaymentRepository) OrderService {
	return &OrderServiceImpl{ServiceConfig: cfg, orderRepo: orderRepo, paymentRepo: paymentRepo}
}

func (s *OrderServiceImpl) CreateOrder(ctx context.Context, traceID string, req apiviews.OrderRequest) (views.Order, error) {
	orderTotal, err := requireAmount("orderTotal", req.OrderTotal)
	if err != nil {
		return views.Order{}, err
	}
	ebtTotal, err := requireAmount("ebtTotal", req.EbtTotal)
	if err != nil {
		return views.Order{}, err
	}
	if ebtTotal.GreaterThan(orderTotal) {
		return views.Order{}, pkg.NewAppError(pkg.ErrInvalidInputCode,
			fmt.Sprintf("ebtTotal %s cannot exceed orderTotal %s", ebtTotal.StringFixed(2), orderTotal.StringFixed(2)), nil)
	}

	order := models.NewOrder(orderTotal, ebtTotal, s.now())
	err = s.DB.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return s.orderRepo.Create(ctx, tx, order)
	})
	if err != nil {
		return views.Order{}, pkg.HandleSQLError(traceID, s.Logger, err)
	}
	s.Logger.Info("order_created",
		zap.String(pkg.TraceId, traceID),
		zap.String(pkg.OrderId, order.ID.String()),
		zap.String("order_total", order.OrderTotal.StringFixed(2)),
		zap.String("ebt_total", order.EbtTotal.StringFixed(2)))
	return order.ToView(), nil
}

func (s *OrderServiceImpl) GetOrder(ctx context.Context, traceID string, id uuid.UUID) (views.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, s.Reader, id)
	if err != nil {
		return views.Order{}, handleLookupError(traceID, s.Logger, err, "Order", id)
	}
	return order.ToView(), nil
}

func (s *OrderServiceImpl) ListOrders(ctx context.Context, traceID string, page, size int) ([]views.Order, error) {
	orders, err := s.orderRepo.FindAll(ctx, s.Reader, page, size)
	if err != nil {
		return nil, pkg.HandleSQLError(traceID, s.Logger, err)
	}
	out := make([]views.Order, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.ToView())
	}
	return out, nil
}

func (s *OrderServiceImpl) DeleteOrder(ctx context.Context, traceID string, id uuid.UUID) error {
	var deleted bool
	err := s.DB.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		// wait for any in-flight capture of this order to finish
		if _, err := s.orderRepo.FindByIDForUpdate(ctx, tx, id); err != nil {
			return err
		}
		var err error
		deleted, err = s.orderRepo.Delete(ctx, tx, id)
		return err
	})
	if err != nil {
		return handleLookupError(traceID, s.Logger, err, "Order", id)
	}
	if !deleted {
		return handleLookupError(traceID, s.Logger, pgx.ErrNoRows, "Order", id)
	}
	s.Logger.Info("order_deleted", zap.String(pkg.TraceId, traceID), zap.String(pkg.OrderId, id.String()))
	return nil
}

func (s *OrderServiceImpl) ListOrderPayments(ctx context.Context, traceID string, id uuid.UUID) ([]views.Payment, error) {
	if _, err := s.orderRepo.FindByID(ctx, s.Reader, id); err != nil {
		return nil, handleLookupError(traceID, s.Logger, err, "Order", id)
	}
	payments, err := s.paymentRepo.FindByOrderID(ctx, s.Reader, id)
	if err != nil {
		return nil, pkg.HandleSQLError(traceID, s.Logger, err)
	}
	return models.PaymentViews(payments), nil
}
