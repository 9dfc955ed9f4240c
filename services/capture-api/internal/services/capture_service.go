package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/capture"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/repositories"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/views"
	"go.uber.org/zap"
)

// CaptureRequestPublisher queues capture requests for the capture worker.
type CaptureRequestPublisher interface {
	PublishCaptureRequest(ctx context.Context, req views.CaptureRequest) error
}

type CaptureService interface {
	// Capture runs the capture synchronously. On a total or EBT violation it returns the committed
	// failed outcome together with the validation error.
	Capture(ctx context.Context, traceID string, orderID uuid.UUID) (views.Capture, error)
	// RequestCapture queues the order for the capture worker.
	RequestCapture(ctx context.Context, traceID string, orderID uuid.UUID) error
}

type CaptureServiceImpl struct {
	ServiceConfig
	engine    capture.Engine
	orderRepo repositories.OrderRepository
	requests  CaptureRequestPublisher // nil when no broker is configured
}

func NewCaptureService(cfg ServiceConfig, engine capture.Engine, orderRepo repositories.OrderRepository,
	requests CaptureRequestPublisher) CaptureService {
	return &CaptureServiceImpl{ServiceConfig: cfg, engine: engine, orderRepo: orderRepo, requests: requests}
}

func (s *CaptureServiceImpl) Capture(ctx context.Context, traceID string, orderID uuid.UUID) (views.Capture, error) {
	result, err := s.engine.CaptureOrder(ctx, traceID, orderID)
	return result.ToView(), err
}

func (s *CaptureServiceImpl) RequestCapture(ctx context.Context, traceID string, orderID uuid.UUID) error {
	if s.requests == nil {
		return pkg.NewAppError(pkg.ErrUnavailableCode, "asynchronous capture is not configured", nil)
	}
	order, err := s.orderRepo.FindByID(ctx, s.Reader, orderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return pkg.NewAppError(pkg.ErrOrderNotFoundCode,
			fmt.Sprintf("Order with id %s not found", orderID), pkg.ErrOrderNotFound)
	}
	if err != nil {
		return pkg.HandleSQLError(traceID, s.Logger, err)
	}
	if order.Status.IsTerminal() {
		return pkg.NewAppError(pkg.ErrAlreadyCapturedCode,
			fmt.Sprintf("Order with id %s is already %s", orderID, order.Status), pkg.ErrAlreadyCaptured)
	}
	req := views.CaptureRequest{OrderID: orderID.String(), TraceID: traceID, RequestedAt: s.now()}
	if err := s.requests.PublishCaptureRequest(ctx, req); err != nil {
		s.Logger.Error("capture_request_publish_failed", zap.String(pkg.TraceId, traceID), zap.String(pkg.OrderId, orderID.String()), zap.Error(err))
		return pkg.NewAppError(pkg.ErrUnavailableCode, "failed to queue capture request", err)
	}
	s.Logger.Info("capture_requested", zap.String(pkg.TraceId, traceID), zap.String(pkg.OrderId, orderID.String()))
	return nil
}
