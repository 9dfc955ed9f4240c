package settlement

import (
	"context"
	"testing"
	"time"

	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type exhaustedLimiter struct{ waits int }

func (l *exhaustedLimiter) Wait(context.Context, time.Duration) error {
	l.waits++
	return pkg.ErrRateLimitExceeded
}

func TestNewGateway_SimulatedDeclines(t *testing.T) {
	gw := NewGateway(Config{DeclineModulo: 1}, nil, zap.NewNop())

	card := newPayment(pkg.PaymentMethodCreditCard)
	require.Error(t, gw.Settle(context.Background(), card))
	assert.Equal(t, pkg.PaymentStatusFailed, card.Status)
	require.NotNil(t, card.LastProcessingError)
	assert.Equal(t, "card declined", *card.LastProcessingError)

	ebt := newPayment(pkg.PaymentMethodEBT)
	require.Error(t, gw.Settle(context.Background(), ebt))
	require.NotNil(t, ebt.LastProcessingError)
	assert.Equal(t, "insufficient benefit balance", *ebt.LastProcessingError)
}

func TestNewGateway_SimulatedApproves(t *testing.T) {
	gw := NewGateway(Config{}, nil, zap.NewNop())

	p := newPayment(pkg.PaymentMethodEBT)
	require.NoError(t, gw.Settle(context.Background(), p))
	assert.Equal(t, pkg.PaymentStatusSucceeded, p.Status)
}

func TestNewGateway_Throttled(t *testing.T) {
	limiter := &exhaustedLimiter{}
	gw := NewGateway(Config{MaxThrottleWait: time.Millisecond}, limiter, zap.NewNop())

	p := newPayment(pkg.PaymentMethodCreditCard)
	require.Error(t, gw.Settle(context.Background(), p))
	assert.Equal(t, 1, limiter.waits)
	require.NotNil(t, p.LastProcessingError)
	assert.Equal(t, ReasonThrottled, *p.LastProcessingError)
}
