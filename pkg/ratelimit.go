package pkg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Errors
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// DistributedLimiter combines local rate.Limiter with Redis for global enforcement.
// Every replica shares a per-second counter in Redis keyed by the current unix second.
type DistributedLimiter struct {
	localLimiter *rate.Limiter
	redisClient  redis.Cmdable // nil => local only
	key          string        // e.g: "settlement:global_rate"
	globalRate   int64
	ttl          time.Duration // counter expiry, must outlive one window
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewDistributedLimiter creates a limiter; if globalRate=0, it's unlimited.
func NewDistributedLimiter(redisClient redis.Cmdable, key string, globalRate, burst int, logger *zap.Logger) *DistributedLimiter {
	var local *rate.Limiter
	if globalRate > 0 {
		if burst <= 0 {
			burst = globalRate
		}
		local = rate.NewLimiter(rate.Limit(globalRate), burst)
	}
	return &DistributedLimiter{
		localLimiter: local,
		redisClient:  redisClient,
		key:          key,
		globalRate:   int64(globalRate),
		ttl:          2 * time.Second,
		pollInterval: 20 * time.Millisecond,
		logger:       logger,
	}
}

// Allow checks if a token is available; uses Redis for distributed increment.
func (d *DistributedLimiter) Allow(ctx context.Context) bool {
	if d.localLimiter == nil {
		return true // Unlimited
	}

	// Local check first (fast path)
	if !d.localLimiter.Allow() {
		return false
	}
	if d.redisClient == nil {
		return true
	}

	// Distributed check via Redis atomic increment
	windowKey := fmt.Sprintf("%s:%d", d.key, time.Now().Unix())
	pipe := d.redisClient.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, d.ttl)
	_, err := pipe.Exec(ctx)
	if err != nil {
		d.logger.Error("Redis rate limit error; falling back to local", zap.Error(err))
		return true
	}

	count := incr.Val()
	if count > d.globalRate {
		d.logger.Warn("Global rate limit exceeded", zap.String("key", d.key), zap.Int64("count", count))
		return false
	}
	return true
}

// Wait blocks until a token is granted or maxWait elapses. Returns ErrRateLimitExceeded when the
// wait guard trips, or the context error when ctx ends first.
func (d *DistributedLimiter) Wait(ctx context.Context, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	for {
		if d.Allow(ctx) {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrRateLimitExceeded
		}
		timer := time.NewTimer(d.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
