package settlement

import (
	"context"
	"math/rand"
	"time"

	"github.com/nimeshabuddhika/split-tender-processor/pkg"
)

// SimulatedProcessor stands in for a real network in local runs. It sleeps for a random latency and
// declines a deterministic share of payments chosen by payment id.
type SimulatedProcessor struct {
	MinLatency time.Duration
	MaxLatency time.Duration
	// DeclineModulo declines a payment when its id modulo this value is zero. Zero disables declines.
	DeclineModulo uint32
}

func (s SimulatedProcessor) Charge(ctx context.Context, charge Charge) (Outcome, error) {
	latency := s.MinLatency
	if s.MaxLatency > s.MinLatency {
		latency += time.Duration(rand.Int63n(int64(s.MaxLatency - s.MinLatency)))
	}
	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-timer.C:
		}
	}

	if s.DeclineModulo > 0 && charge.PaymentID.ID()%s.DeclineModulo == 0 {
		if charge.Method == pkg.PaymentMethodEBT {
			return Outcome{Reason: "insufficient benefit balance"}, nil
		}
		return Outcome{Reason: "card declined"}, nil
	}
	return Outcome{Approved: true}, nil
}
