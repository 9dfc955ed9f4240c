package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/capture"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/models"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/views"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var failedAt = time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)

type stubEngine struct {
	mu      sync.Mutex
	calls   []uuid.UUID
	traceID string
	result  capture.Result
	err     error
}

func (s *stubEngine) CaptureOrder(_ context.Context, traceID string, orderID uuid.UUID) (capture.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, orderID)
	s.traceID = traceID
	return s.result, s.err
}

type recordingDLQ struct {
	letters []views.CaptureDeadLetter
	err     error
}

func (r *recordingDLQ) PublishDeadLetter(_ context.Context, letter views.CaptureDeadLetter) error {
	r.letters = append(r.letters, letter)
	return r.err
}

func newProcessor(engine *stubEngine, dlq *recordingDLQ) *CaptureProcessor {
	return NewCaptureProcessor(CaptureProcessorConfig{
		Logger:     zap.NewNop(),
		Engine:     engine,
		DeadLetter: dlq,
		Clock:      func() time.Time { return failedAt },
	})
}

func captureMessage(t *testing.T, req views.CaptureRequest, traceHeader string) *kafka.Message {
	t.Helper()
	value, err := json.Marshal(req)
	require.NoError(t, err)
	topic := "order-capture-requests"
	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: 0, Offset: 7},
		Key:            []byte(req.OrderID),
		Value:          value,
	}
	if traceHeader != "" {
		msg.Headers = []kafka.Header{{Key: pkg.HeaderTraceId, Value: []byte(traceHeader)}}
	}
	return msg
}

func TestCaptureProcessor_Captured(t *testing.T) {
	orderID := uuid.New()
	engine := &stubEngine{result: capture.Result{Order: models.Order{ID: orderID, Status: pkg.OrderStatusSucceeded}}}
	dlq := &recordingDLQ{}

	got := newProcessor(engine, dlq).Process(context.Background(),
		captureMessage(t, views.CaptureRequest{OrderID: orderID.String(), TraceID: "body-trace"}, "header-trace"))

	assert.Equal(t, DispositionCaptured, got)
	assert.Equal(t, []uuid.UUID{orderID}, engine.calls)
	assert.Equal(t, "header-trace", engine.traceID)
	assert.Empty(t, dlq.letters)
}

func TestCaptureProcessor_TraceFallsBackToBody(t *testing.T) {
	engine := &stubEngine{}
	newProcessor(engine, &recordingDLQ{}).Process(context.Background(),
		captureMessage(t, views.CaptureRequest{OrderID: uuid.NewString(), TraceID: "body-trace"}, ""))
	assert.Equal(t, "body-trace", engine.traceID)
}

func TestCaptureProcessor_EngineOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		want      Disposition
		dlqReason string
	}{
		{
			name: "total mismatch commits failed order",
			err:  pkg.NewAppError(pkg.ErrTotalMismatchCode, "Payment total does not match order total", pkg.ErrTotalMismatch),
			want: DispositionRejected,
		},
		{
			name: "ebt limit commits failed order",
			err:  pkg.NewAppError(pkg.ErrEbtLimitExceededCode, "EBT total exceeded order ebt total", pkg.ErrEbtLimitExceeded),
			want: DispositionRejected,
		},
		{
			name: "redelivery of a captured order",
			err:  pkg.NewAppError(pkg.ErrAlreadyCapturedCode, "already captured", pkg.ErrAlreadyCaptured),
			want: DispositionDuplicate,
		},
		{
			name:      "unknown order",
			err:       pkg.NewAppError(pkg.ErrOrderNotFoundCode, "Order not found", pkg.ErrOrderNotFound),
			want:      DispositionDeadLettered,
			dlqReason: "order not found",
		},
		{
			name:      "storage failure",
			err:       errors.New("connection refused"),
			want:      DispositionDeadLettered,
			dlqReason: "capture error",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			orderID := uuid.New()
			engine := &stubEngine{err: tc.err, result: capture.Result{Order: models.Order{ID: orderID, Status: pkg.OrderStatusFailed}}}
			dlq := &recordingDLQ{}

			got := newProcessor(engine, dlq).Process(context.Background(),
				captureMessage(t, views.CaptureRequest{OrderID: orderID.String()}, "trace-1"))

			assert.Equal(t, tc.want, got)
			if tc.dlqReason == "" {
				assert.Empty(t, dlq.letters)
				return
			}
			require.Len(t, dlq.letters, 1)
			letter := dlq.letters[0]
			assert.Equal(t, tc.dlqReason, letter.FailureReason)
			assert.Equal(t, orderID.String(), letter.OrderID)
			assert.Equal(t, "trace-1", letter.TraceID)
			assert.Equal(t, failedAt, letter.FailedAt)
			assert.Contains(t, letter.Request, orderID.String())
		})
	}
}

func TestCaptureProcessor_MalformedMessages(t *testing.T) {
	topic := "order-capture-requests"
	tests := []struct {
		name   string
		value  string
		reason string
	}{
		{"not json", "{order", "json unmarshal error"},
		{"missing order id", `{"traceId":"t"}`, "validation error"},
		{"order id not a uuid", `{"orderId":"42"}`, "validation error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := &stubEngine{}
			dlq := &recordingDLQ{}
			msg := &kafka.Message{TopicPartition: kafka.TopicPartition{Topic: &topic}, Value: []byte(tc.value)}

			got := newProcessor(engine, dlq).Process(context.Background(), msg)

			assert.Equal(t, DispositionDeadLettered, got)
			assert.Empty(t, engine.calls)
			require.Len(t, dlq.letters, 1)
			assert.Equal(t, tc.reason, dlq.letters[0].FailureReason)
			assert.Equal(t, tc.value, dlq.letters[0].Request)
		})
	}
}

func TestCaptureProcessor_DeadLetterPublishFailureStillCompletes(t *testing.T) {
	dlq := &recordingDLQ{err: errors.New("broker down")}
	engine := &stubEngine{err: errors.New("connection refused")}

	got := newProcessor(engine, dlq).Process(context.Background(),
		captureMessage(t, views.CaptureRequest{OrderID: uuid.NewString()}, ""))

	assert.Equal(t, DispositionDeadLettered, got)
	assert.Len(t, dlq.letters, 1)
}
