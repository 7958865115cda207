package ratelimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroRateIsUnlimited(t *testing.T) {
	limiter := New(0, 0)
	assert.True(t, limiter.Unlimited())

	for i := 0; i < 10_000; i++ {
		require.True(t, limiter.Allow(), "request %d", i)
	}
}

func TestAllowEnforcesBurst(t *testing.T) {
	limiter := New(1, 3)
	assert.False(t, limiter.Unlimited())

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(), "request %d should be within burst", i)
	}
	assert.False(t, limiter.Allow())
}

func TestZeroBurstIsRaised(t *testing.T) {
	limiter := New(5, 0)
	assert.True(t, limiter.Allow())
}

func TestWaitThrottles(t *testing.T) {
	limiter := New(20, 1)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.Wait(ctx))
	}
	// Two refills at 20/s take at least ~100ms.
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestWaitHonorsCancellation(t *testing.T) {
	limiter := New(1, 1)
	require.True(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx))
}

func TestNilLimiter(t *testing.T) {
	var limiter *RateLimiter
	assert.True(t, limiter.Unlimited())
	assert.True(t, limiter.Allow())
	assert.NoError(t, limiter.Wait(context.Background()))
	assert.Zero(t, limiter.Tokens())
}
