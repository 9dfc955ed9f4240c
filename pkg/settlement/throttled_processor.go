package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/nimeshabuddhika/split-tender-processor/pkg"
)

// Limiter grants settlement slots. *pkg.DistributedLimiter satisfies it.
type Limiter interface {
	Wait(ctx context.Context, maxWait time.Duration) error
}

// ThrottledProcessor caps the rate of charges sent to next. A charge that cannot get a slot
// within maxWait is declined with ReasonThrottled instead of being queued indefinitely.
type ThrottledProcessor struct {
	next    Processor
	limiter Limiter
	maxWait time.Duration
}

func NewThrottledProcessor(next Processor, limiter Limiter, maxWait time.Duration) *ThrottledProcessor {
	return &ThrottledProcessor{next: next, limiter: limiter, maxWait: maxWait}
}

func (t *ThrottledProcessor) Charge(ctx context.Context, charge Charge) (Outcome, error) {
	if err := t.limiter.Wait(ctx, t.maxWait); err != nil {
		if errors.Is(err, pkg.ErrRateLimitExceeded) {
			return Outcome{Reason: ReasonThrottled}, nil
		}
		return Outcome{}, err
	}
	return t.next.Charge(ctx, charge)
}
