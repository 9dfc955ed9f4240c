package settlement

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCharge(method pkg.PaymentMethod) Charge {
	return Charge{
		PaymentID:    uuid.New(),
		OrderID:      uuid.New(),
		Method:       method,
		InstrumentID: uuid.New(),
		Amount:       decimal.RequireFromString("12.50"),
	}
}

func TestHTTPProcessor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var charge Charge
		if err := json.NewDecoder(r.Body).Decode(&charge); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		assert.Equal(t, charge.PaymentID.String(), r.Header.Get("Idempotency-Key"))
		switch r.URL.Path {
		case "/v1/charges/credit_card":
			w.WriteHeader(http.StatusPaymentRequired)
			_, _ = w.Write([]byte(`{"approved":false,"reason":"card declined"}`))
		case "/v1/charges/ebt":
			_, _ = w.Write([]byte(`{"approved":true}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	proc := NewHTTPProcessor(srv.URL + "/")

	out, err := proc.Charge(context.Background(), testCharge(pkg.PaymentMethodEBT))
	require.NoError(t, err)
	assert.True(t, out.Approved)

	out, err = proc.Charge(context.Background(), testCharge(pkg.PaymentMethodCreditCard))
	require.NoError(t, err)
	assert.False(t, out.Approved)
	assert.Equal(t, "card declined", out.Reason)

	_, err = proc.Charge(context.Background(), testCharge("cash"))
	assert.Error(t, err)
}

func TestSimulatedProcessor(t *testing.T) {
	proc := SimulatedProcessor{DeclineModulo: 1}
	out, err := proc.Charge(context.Background(), testCharge(pkg.PaymentMethodCreditCard))
	require.NoError(t, err)
	assert.Equal(t, Outcome{Reason: "card declined"}, out)

	proc = SimulatedProcessor{}
	out, err = proc.Charge(context.Background(), testCharge(pkg.PaymentMethodEBT))
	require.NoError(t, err)
	assert.True(t, out.Approved)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	proc = SimulatedProcessor{MinLatency: time.Second}
	_, err = proc.Charge(ctx, testCharge(pkg.PaymentMethodEBT))
	assert.ErrorIs(t, err, context.Canceled)
}

type stubLimiter struct{ err error }

func (s stubLimiter) Wait(context.Context, time.Duration) error { return s.err }

func TestThrottledProcessor(t *testing.T) {
	next := &stubProcessor{outcome: Outcome{Approved: true}}

	out, err := NewThrottledProcessor(next, stubLimiter{}, time.Second).Charge(context.Background(), testCharge(pkg.PaymentMethodEBT))
	require.NoError(t, err)
	assert.True(t, out.Approved)

	out, err = NewThrottledProcessor(next, stubLimiter{err: pkg.ErrRateLimitExceeded}, time.Second).Charge(context.Background(), testCharge(pkg.PaymentMethodEBT))
	require.NoError(t, err)
	assert.Equal(t, ReasonThrottled, out.Reason)
	assert.Len(t, next.charges, 1)

	_, err = NewThrottledProcessor(next, stubLimiter{err: context.DeadlineExceeded}, time.Second).Charge(context.Background(), testCharge(pkg.PaymentMethodEBT))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
