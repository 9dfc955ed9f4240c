package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/capture"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/repositories/memory"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/settlement"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/views"
	apiviews "github.com/nimeshabuddhika/split-tender-processor/services/capture-api/internal/views"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const traceID = "trace-test"

var fixedNow = time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)

type testServices struct {
	store       *memory.Store
	instruments InstrumentService
	orders      OrderService
	payments    PaymentService
	captures    CaptureService
	requests    *recordingRequests
}

type recordingRequests struct {
	mu   sync.Mutex
	reqs []views.CaptureRequest
	err  error
}

func (r *recordingRequests) PublishCaptureRequest(_ context.Context, req views.CaptureRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.reqs = append(r.reqs, req)
	return nil
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	store := memory.NewStore()
	logger := zap.NewNop()
	cfg := ServiceConfig{Logger: logger, DB: store, Clock: func() time.Time { return fixedNow }}
	proc := settlement.SimulatedProcessor{}
	engine := capture.NewEngine(capture.EngineConfig{
		Logger:      logger,
		DB:          store,
		OrderRepo:   store,
		PaymentRepo: store.Payments(),
		Gateway:     settlement.NewMethodRouter(settlement.NewCardGateway(proc, logger), settlement.NewEBTGateway(proc, logger)),
		Clock:       cfg.Clock,
	})
	requests := &recordingRequests{}
	return &testServices{
		store:       store,
		instruments: NewInstrumentService(cfg, store),
		orders:      NewOrderService(cfg, store, store.Payments()),
		payments:    NewPaymentService(cfg, store, store.Payments(), store),
		captures:    NewCaptureService(cfg, engine, store, requests),
		requests:    requests,
	}
}

func (s *testServices) card(t *testing.T) string {
	t.Helper()
	card, err := s.instruments.CreateCreditCard(context.Background(), traceID, apiviews.CreditCardRequest{
		Number: "4111111111111111", Last4: "1111", Brand: pkg.CardBrandVisa, ExpMonth: 12, ExpYear: year(27),
	})
	require.NoError(t, err)
	return card.ID
}

func (s *testServices) ebt(t *testing.T) string {
	t.Helper()
	ebt, err := s.instruments.CreateEBT(context.Background(), traceID, apiviews.EBTRequest{
		Number: "5077190000004321", Last4: "4321", State: pkg.EBTStateDelhi, IssueMonth: 6, IssueYear: year(2024),
	})
	require.NoError(t, err)
	return ebt.ID
}

func (s *testServices) order(t *testing.T, total, ebtTotal string) views.Order {
	t.Helper()
	order, err := s.orders.CreateOrder(context.Background(), traceID, apiviews.OrderRequest{
		OrderTotal: amount(total), EbtTotal: amount(ebtTotal),
	})
	require.NoError(t, err)
	return order
}

func paymentReq(orderID, value string, method pkg.PaymentMethod, instrumentID string) apiviews.PaymentRequest {
	req := apiviews.PaymentRequest{OrderID: orderID, Amount: amount(value), Description: string(method) + " tender", PaymentMethod: string(method)}
	if method == pkg.PaymentMethodEBT {
		req.EbtID = &instrumentID
	} else {
		req.CreditCardID = &instrumentID
	}
	return req
}

func amount(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func year(y int) *int { return &y }

func requireCode(t *testing.T, err error, code pkg.ErrorCode) {
	t.Helper()
	var appErr pkg.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	assert.Equal(t, code.Code, appErr.Code.Code)
}

func TestInstrumentService_CreditCardYearsAreStoredAsFourDigits(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	created, err := s.instruments.CreateCreditCard(ctx, traceID, apiviews.CreditCardRequest{
		Number: "4111111111111111", Last4: "1111", Brand: pkg.CardBrandVisa, ExpMonth: 1, ExpYear: year(30),
	})
	require.NoError(t, err)
	assert.Equal(t, 30, created.ExpYear)

	id := uuid.MustParse(created.ID)
	stored, err := s.store.FindCreditCardByID(ctx, nil, id)
	require.NoError(t, err)
	assert.Equal(t, 2030, stored.ExpYear)
}

func TestInstrumentService_RejectsInconsistentInstruments(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	_, err := s.instruments.CreateCreditCard(ctx, traceID, apiviews.CreditCardRequest{
		Number: "4111111111111111", Last4: "2222", Brand: pkg.CardBrandVisa, ExpMonth: 12, ExpYear: year(27),
	})
	requireCode(t, err, pkg.ErrInvalidInstrumentCode)

	_, err = s.instruments.CreateCreditCard(ctx, traceID, apiviews.CreditCardRequest{
		Number: "4111111111111111", Last4: "1111", Brand: pkg.CardBrandVisa, ExpMonth: 1, ExpYear: year(2026),
	})
	requireCode(t, err, pkg.ErrInvalidInstrumentCode)

	_, err = s.instruments.CreateEBT(ctx, traceID, apiviews.EBTRequest{
		Number: "5077190000004321", Last4: "1234", State: pkg.EBTStateDelhi, IssueMonth: 6, IssueYear: year(24),
	})
	requireCode(t, err, pkg.ErrInvalidInstrumentCode)
}

func TestInstrumentService_RequiresYears(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	_, err := s.instruments.CreateCreditCard(ctx, traceID, apiviews.CreditCardRequest{
		Number: "4111111111111111", Last4: "1111", Brand: pkg.CardBrandVisa, ExpMonth: 12,
	})
	requireCode(t, err, pkg.ErrInvalidInputCode)

	_, err = s.instruments.CreateEBT(ctx, traceID, apiviews.EBTRequest{
		Number: "5077190000004321", Last4: "4321", State: pkg.EBTStateDelhi, IssueMonth: 6,
	})
	requireCode(t, err, pkg.ErrInvalidInputCode)
}

func TestInstrumentService_GetAndDelete(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	id := uuid.MustParse(s.ebt(t))

	got, err := s.instruments.GetEBT(ctx, traceID, id)
	require.NoError(t, err)
	assert.Equal(t, "4321", got.Last4)
	assert.Equal(t, 24, got.IssueYear)

	require.NoError(t, s.instruments.DeleteEBT(ctx, traceID, id))
	_, err = s.instruments.GetEBT(ctx, traceID, id)
	requireCode(t, err, pkg.ErrRecordNotFoundCode)
	requireCode(t, s.instruments.DeleteEBT(ctx, traceID, id), pkg.ErrRecordNotFoundCode)
}

func TestOrderService_CreateOrderValidatesAmounts(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		total    string
		ebtTotal string
	}{
		{"negative total", "-1.00", "0"},
		{"three decimals", "10.005", "0"},
		{"ebt above total", "10.00", "10.01"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.orders.CreateOrder(ctx, traceID, apiviews.OrderRequest{
				OrderTotal: amount(tc.total), EbtTotal: amount(tc.ebtTotal),
			})
			requireCode(t, err, pkg.ErrInvalidInputCode)
		})
	}

	t.Run("missing totals", func(t *testing.T) {
		_, err := s.orders.CreateOrder(ctx, traceID, apiviews.OrderRequest{OrderTotal: amount("10")})
		requireCode(t, err, pkg.ErrInvalidInputCode)
		_, err = s.orders.CreateOrder(ctx, traceID, apiviews.OrderRequest{EbtTotal: amount("0")})
		requireCode(t, err, pkg.ErrInvalidInputCode)
	})

	order := s.order(t, "100", "40.5")
	assert.Equal(t, "100.00", order.OrderTotal)
	assert.Equal(t, "40.50", order.EbtTotal)
	assert.Equal(t, pkg.OrderStatusDraft, order.Status)
	assert.Nil(t, order.SuccessDate)
}

func TestOrderService_GetListDelete(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	first := s.order(t, "10", "0")
	s.order(t, "20", "0")

	orders, err := s.orders.ListOrders(ctx, traceID, 1, 10)
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	orders, err = s.orders.ListOrders(ctx, traceID, 2, 10)
	require.NoError(t, err)
	assert.Empty(t, orders)

	id := uuid.MustParse(first.ID)
	got, err := s.orders.GetOrder(ctx, traceID, id)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	require.NoError(t, s.orders.DeleteOrder(ctx, traceID, id))
	_, err = s.orders.GetOrder(ctx, traceID, id)
	requireCode(t, err, pkg.ErrRecordNotFoundCode)
	requireCode(t, s.orders.DeleteOrder(ctx, traceID, id), pkg.ErrRecordNotFoundCode)
}

func TestOrderService_ListOrderPayments(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	order := s.order(t, "50", "20")
	_, err := s.payments.CreatePayment(ctx, traceID, paymentReq(order.ID, "30", pkg.PaymentMethodCreditCard, s.card(t)))
	require.NoError(t, err)
	_, err = s.payments.CreatePayment(ctx, traceID, paymentReq(order.ID, "20", pkg.PaymentMethodEBT, s.ebt(t)))
	require.NoError(t, err)

	payments, err := s.orders.ListOrderPayments(ctx, traceID, uuid.MustParse(order.ID))
	require.NoError(t, err)
	require.Len(t, payments, 2)
	for _, p := range payments {
		assert.Equal(t, pkg.PaymentStatusRequiresConfirmation, p.Status)
		assert.Nil(t, p.LastProcessingError)
	}

	_, err = s.orders.ListOrderPayments(ctx, traceID, uuid.New())
	requireCode(t, err, pkg.ErrRecordNotFoundCode)
}

func TestPaymentService_CreatePaymentAssociation(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	order := s.order(t, "100", "40")
	cardID := s.card(t)
	ebtID := s.ebt(t)

	t.Run("both references", func(t *testing.T) {
		req := paymentReq(order.ID, "10", pkg.PaymentMethodCreditCard, cardID)
		req.EbtID = &ebtID
		_, err := s.payments.CreatePayment(ctx, traceID, req)
		requireCode(t, err, pkg.ErrInvalidPaymentCode)
	})
	t.Run("no reference", func(t *testing.T) {
		_, err := s.payments.CreatePayment(ctx, traceID, apiviews.PaymentRequest{
			OrderID: order.ID, Amount: amount("10"), Description: "groceries", PaymentMethod: string(pkg.PaymentMethodEBT),
		})
		requireCode(t, err, pkg.ErrInvalidPaymentCode)
	})
	t.Run("method does not match reference", func(t *testing.T) {
		_, err := s.payments.CreatePayment(ctx, traceID, apiviews.PaymentRequest{
			OrderID: order.ID, Amount: amount("10"), Description: "groceries", PaymentMethod: string(pkg.PaymentMethodEBT), CreditCardID: &cardID,
		})
		requireCode(t, err, pkg.ErrInvalidPaymentCode)
	})
	t.Run("unknown instrument", func(t *testing.T) {
		_, err := s.payments.CreatePayment(ctx, traceID, paymentReq(order.ID, "10", pkg.PaymentMethodCreditCard, uuid.NewString()))
		requireCode(t, err, pkg.ErrInvalidPaymentCode)
	})
	t.Run("unknown order", func(t *testing.T) {
		_, err := s.payments.CreatePayment(ctx, traceID, paymentReq(uuid.NewString(), "10", pkg.PaymentMethodCreditCard, cardID))
		requireCode(t, err, pkg.ErrRecordNotFoundCode)
	})
	t.Run("missing amount", func(t *testing.T) {
		req := paymentReq(order.ID, "10", pkg.PaymentMethodCreditCard, cardID)
		req.Amount = nil
		_, err := s.payments.CreatePayment(ctx, traceID, req)
		requireCode(t, err, pkg.ErrInvalidInputCode)
	})
	t.Run("blank description", func(t *testing.T) {
		req := paymentReq(order.ID, "10", pkg.PaymentMethodCreditCard, cardID)
		req.Description = "   "
		_, err := s.payments.CreatePayment(ctx, traceID, req)
		requireCode(t, err, pkg.ErrInvalidInputCode)
	})
	t.Run("running total exceeds order total", func(t *testing.T) {
		_, err := s.payments.CreatePayment(ctx, traceID, paymentReq(order.ID, "60", pkg.PaymentMethodCreditCard, cardID))
		require.NoError(t, err)
		_, err = s.payments.CreatePayment(ctx, traceID, paymentReq(order.ID, "40.01", pkg.PaymentMethodEBT, ebtID))
		requireCode(t, err, pkg.ErrPaymentExceedsOrderCode)
		assert.ErrorIs(t, err, pkg.ErrPaymentExceedsOrder)
	})

	payments, err := s.orders.ListOrderPayments(ctx, traceID, uuid.MustParse(order.ID))
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestPaymentService_ConcurrentCreatesRespectOrderTotal(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	order := s.order(t, "100", "0")
	cardID := s.card(t)

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.payments.CreatePayment(ctx, traceID, paymentReq(order.ID, "25", pkg.PaymentMethodCreditCard, cardID))
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, pkg.ErrPaymentExceedsOrder)
	}
	assert.Equal(t, 4, accepted)
}

func TestPaymentService_RejectsChangesAfterCapture(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	order := s.order(t, "10", "0")
	cardID := s.card(t)
	payment, err := s.payments.CreatePayment(ctx, traceID, paymentReq(order.ID, "10", pkg.PaymentMethodCreditCard, cardID))
	require.NoError(t, err)

	result, err := s.captures.Capture(ctx, traceID, uuid.MustParse(order.ID))
	require.NoError(t, err)
	assert.Equal(t, pkg.OrderStatusSucceeded, result.Order.Status)

	_, err = s.payments.CreatePayment(ctx, traceID, paymentReq(order.ID, "0", pkg.PaymentMethodCreditCard, cardID))
	requireCode(t, err, pkg.ErrAlreadyCapturedCode)
	requireCode(t, s.payments.DeletePayment(ctx, traceID, uuid.MustParse(payment.ID)), pkg.ErrAlreadyCapturedCode)
}

func TestPaymentService_GetListDelete(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	order := s.order(t, "10", "0")
	payment, err := s.payments.CreatePayment(ctx, traceID, paymentReq(order.ID, "10", pkg.PaymentMethodCreditCard, s.card(t)))
	require.NoError(t, err)
	id := uuid.MustParse(payment.ID)

	got, err := s.payments.GetPayment(ctx, traceID, id)
	require.NoError(t, err)
	assert.Equal(t, "10.00", got.Amount)

	all, err := s.payments.ListPayments(ctx, traceID, 1, 20)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, s.payments.DeletePayment(ctx, traceID, id))
	requireCode(t, s.payments.DeletePayment(ctx, traceID, id), pkg.ErrRecordNotFoundCode)
}

func TestCaptureService_CaptureSplitTender(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	order := s.order(t, "100", "40")
	_, err := s.payments.CreatePayment(ctx, traceID, paymentReq(order.ID, "60", pkg.PaymentMethodCreditCard, s.card(t)))
	require.NoError(t, err)
	_, err = s.payments.CreatePayment(ctx, traceID, paymentReq(order.ID, "40", pkg.PaymentMethodEBT, s.ebt(t)))
	require.NoError(t, err)

	result, err := s.captures.Capture(ctx, traceID, uuid.MustParse(order.ID))
	require.NoError(t, err)
	assert.Equal(t, pkg.OrderStatusSucceeded, result.Order.Status)
	require.NotNil(t, result.Order.SuccessDate)
	assert.Empty(t, result.Errors)
	for _, p := range result.Payments {
		assert.Equal(t, pkg.PaymentStatusSucceeded, p.Status)
	}
}

func TestCaptureService_CaptureMismatchReturnsFailedOutcome(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	order := s.order(t, "100", "0")
	_, err := s.payments.CreatePayment(ctx, traceID, paymentReq(order.ID, "60", pkg.PaymentMethodCreditCard, s.card(t)))
	require.NoError(t, err)

	result, err := s.captures.Capture(ctx, traceID, uuid.MustParse(order.ID))
	require.Error(t, err)
	assert.ErrorIs(t, err, pkg.ErrTotalMismatch)
	assert.Equal(t, pkg.OrderStatusFailed, result.Order.Status)
	require.Len(t, result.Payments, 1)
	require.NotNil(t, result.Payments[0].LastProcessingError)
	assert.Contains(t, *result.Payments[0].LastProcessingError, order.ID)
}

func TestCaptureService_RequestCapture(t *testing.T) {
	s := newTestServices(t)
	ctx := context.Background()
	order := s.order(t, "0", "0")

	require.NoError(t, s.captures.RequestCapture(ctx, traceID, uuid.MustParse(order.ID)))
	require.Len(t, s.requests.reqs, 1)
	assert.Equal(t, order.ID, s.requests.reqs[0].OrderID)
	assert.Equal(t, traceID, s.requests.reqs[0].TraceID)

	err := s.captures.RequestCapture(ctx, traceID, uuid.New())
	requireCode(t, err, pkg.ErrOrderNotFoundCode)

	_, err = s.captures.Capture(ctx, traceID, uuid.MustParse(order.ID))
	require.NoError(t, err)
	requireCode(t, s.captures.RequestCapture(ctx, traceID, uuid.MustParse(order.ID)), pkg.ErrAlreadyCapturedCode)

	s.requests.err = errors.New("broker down")
	other := s.order(t, "0", "0")
	requireCode(t, s.captures.RequestCapture(ctx, traceID, uuid.MustParse(other.ID)), pkg.ErrUnavailableCode)
}

func TestCaptureService_RequestCaptureWithoutBroker(t *testing.T) {
	s := newTestServices(t)
	svc := NewCaptureService(ServiceConfig{Logger: zap.NewNop(), DB: s.store}, nil, s.store, nil)
	requireCode(t, svc.RequestCapture(context.Background(), traceID, uuid.New()), pkg.ErrUnavailableCode)
}
