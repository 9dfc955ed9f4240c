//go:build integration

package pkg_test

import (
	"context"
	"testing"
	"time"

	"github.com/nimeshabuddhika/split-tender-processor/pkg"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/cache"
	"github.com/nimeshabuddhika/split-tender-processor/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDistributedLimiter_SharesBudgetAcrossReplicas(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	addr := testutil.StartRedis(t)

	client, closer, err := cache.New(ctx, logger, cache.Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(closer)

	// Wait for the start of a fresh second so both replicas count against one window.
	time.Sleep(time.Until(time.Now().Truncate(time.Second).Add(time.Second)))

	const globalRate = 5
	replicas := []*pkg.DistributedLimiter{
		pkg.NewDistributedLimiter(client, "it:settlement", globalRate, globalRate, logger),
		pkg.NewDistributedLimiter(client, "it:settlement", globalRate, globalRate, logger),
	}
	allowed := 0
	for i := 0; i < globalRate; i++ {
		for _, l := range replicas {
			if l.Allow(ctx) {
				allowed++
			}
		}
	}
	assert.Equal(t, globalRate, allowed)
}

func TestDistributedLimiter_WaitAcrossWindows(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	addr := testutil.StartRedis(t)

	client, closer, err := cache.New(ctx, logger, cache.Config{Addr: addr})
	require.NoError(t, err)
	t.Cleanup(closer)

	l := pkg.NewDistributedLimiter(client, "it:wait", 1, 1, logger)
	require.NoError(t, l.Wait(ctx, 50*time.Millisecond))
	// the next token needs both a refilled local bucket and a new redis window
	assert.NoError(t, l.Wait(ctx, 3*time.Second))
}
