package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/capture"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/views"
	"github.com/nimeshabuddhika/split-tender-processor/services/capture-worker/internal/observability"
	"go.uber.org/zap"
)

// DeadLetterPublisher parks capture requests the worker gives up on.
type DeadLetterPublisher interface {
	PublishDeadLetter(ctx context.Context, letter views.CaptureDeadLetter) error
}

// Disposition is what the worker did with one capture request.
type Disposition string

const (
	// DispositionCaptured means the engine committed an outcome, succeeded or failed.
	DispositionCaptured Disposition = "captured"
	// DispositionRejected means totals did not validate; the failed order was committed.
	DispositionRejected Disposition = "rejected"
	// DispositionDuplicate means the order already left draft, so the request was a redelivery.
	DispositionDuplicate Disposition = "duplicate"
	// DispositionDeadLettered means the request was parked on the DLQ.
	DispositionDeadLettered Disposition = "dead_lettered"
)

// CaptureProcessorConfig holds the dependencies of CaptureProcessor.
type CaptureProcessorConfig struct {
	Logger     *zap.Logger
	Engine     capture.Engine
	DeadLetter DeadLetterPublisher
	Clock      func() time.Time
}

// CaptureProcessor decodes capture requests and runs them through the capture engine.
// Every message ends in exactly one Disposition, so the caller can always commit its offset.
type CaptureProcessor struct {
	cfg      CaptureProcessorConfig
	validate *validator.Validate
}

func NewCaptureProcessor(cfg CaptureProcessorConfig) *CaptureProcessor {
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &CaptureProcessor{cfg: cfg, validate: validator.New()}
}

func (p *CaptureProcessor) Process(ctx context.Context, msg *kafka.Message) Disposition {
	topic := topicOf(msg)
	start := time.Now()
	defer func() {
		observability.ProcessLatency.WithLabelValues(topic).Observe(time.Since(start).Seconds())
	}()

	var req views.CaptureRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		p.cfg.Logger.Error("capture_request_decode_failed", zap.Error(err))
		return p.deadLetter(ctx, topic, msg, req, "json unmarshal error", err)
	}
	if err := p.validate.Struct(&req); err != nil {
		p.cfg.Logger.Error("capture_request_invalid", zap.String(pkg.OrderId, req.OrderID), zap.Error(err))
		return p.deadLetter(ctx, topic, msg, req, "validation error", err)
	}

	traceID := traceIDOf(msg, req)
	logger := p.cfg.Logger.With(zap.String(pkg.TraceId, traceID), zap.String(pkg.OrderId, req.OrderID))
	orderID := uuid.MustParse(req.OrderID) // validated above

	result, err := p.cfg.Engine.CaptureOrder(ctx, traceID, orderID)
	switch {
	case err == nil:
		observability.CapturesProcessed.WithLabelValues(topic, string(result.Order.Status)).Inc()
		logger.Info("capture_request_processed",
			zap.String("status", string(result.Order.Status)),
			zap.Strings("errors", result.Errors))
		return DispositionCaptured
	case errors.Is(err, pkg.ErrTotalMismatch), errors.Is(err, pkg.ErrEbtLimitExceeded):
		observability.CapturesProcessed.WithLabelValues(topic, string(result.Order.Status)).Inc()
		logger.Warn("capture_request_rejected", zap.Error(err))
		return DispositionRejected
	case errors.Is(err, pkg.ErrAlreadyCaptured):
		observability.CapturesSkipped.WithLabelValues(topic).Inc()
		logger.Info("capture_request_duplicate", zap.Error(err))
		return DispositionDuplicate
	case errors.Is(err, pkg.ErrOrderNotFound):
		return p.deadLetter(ctx, topic, msg, req, "order not found", err)
	default:
		logger.Error("capture_request_failed", zap.Error(err))
		return p.deadLetter(ctx, topic, msg, req, "capture error", err)
	}
}

// deadLetter publishes the request with its failure reason. A failed publish is logged only;
// the offset is committed either way.
func (p *CaptureProcessor) deadLetter(ctx context.Context, topic string, msg *kafka.Message, req views.CaptureRequest, reason string, cause error) Disposition {
	observability.DLQPublished.WithLabelValues(topic, reason).Inc()
	letter := views.CaptureDeadLetter{
		OrderID:       req.OrderID,
		TraceID:       traceIDOf(msg, req),
		Request:       string(msg.Value),
		FailureReason: reason,
		Error:         cause.Error(),
		FailedAt:      p.cfg.Clock(),
	}
	if err := p.cfg.DeadLetter.PublishDeadLetter(ctx, letter); err != nil {
		p.cfg.Logger.Error("dead_letter_publish_failed",
			zap.String(pkg.OrderId, req.OrderID),
			zap.String("reason", reason),
			zap.Error(err))
		return DispositionDeadLettered
	}
	p.cfg.Logger.Info("sent_to_capture_dlq", zap.String(pkg.OrderId, req.OrderID), zap.String("reason", reason))
	return DispositionDeadLettered
}

func topicOf(msg *kafka.Message) string {
	if msg.TopicPartition.Topic == nil {
		return ""
	}
	return *msg.TopicPartition.Topic
}

// traceIDOf prefers the trace header set by the producer.
func traceIDOf(msg *kafka.Message, req views.CaptureRequest) string {
	for _, h := range msg.Headers {
		if h.Key == pkg.HeaderTraceId && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	if req.TraceID != "" {
		return req.TraceID
	}
	return uuid.NewString()
}
