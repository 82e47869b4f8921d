package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainboard/brainboard/internal/core"
)

func TestRateLimiterRejectsRequestAfterMax(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	limiter := &RateLimiter{MaxPerWindow: 3, Window: time.Minute, Clock: clock.Now}

	for i := 0; i < 3; i++ {
		require.NoError(t, limiter.CheckAndConsume(ctx))
	}

	err := limiter.CheckAndConsume(ctx)
	require.ErrorIs(t, err, ErrRateLimitExceeded)

	state, err := limiter.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, state.RequestCount, "rejected call does not consume")
}

func TestRateLimiterWindowReset(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	limiter := &RateLimiter{MaxPerWindow: 1, Window: time.Minute, Clock: clock.Now}

	require.NoError(t, limiter.CheckAndConsume(ctx))

	clock.Advance(time.Minute)
	require.ErrorIs(t, limiter.CheckAndConsume(ctx), ErrRateLimitExceeded, "window is still open at exactly 60s")

	clock.Advance(time.Second)
	require.NoError(t, limiter.CheckAndConsume(ctx))

	state, err := limiter.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, state.RequestCount)
	assert.Equal(t, clock.Now(), state.WindowStart)
}

func TestRateLimiterDefaults(t *testing.T) {
	ctx := context.Background()
	limiter := &RateLimiter{}

	for i := 0; i < DefaultMaxPerWindow; i++ {
		require.NoError(t, limiter.CheckAndConsume(ctx))
	}
	require.ErrorIs(t, limiter.CheckAndConsume(ctx), ErrRateLimitExceeded)
}

func TestRateLimiterBackoff(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	limiter := &RateLimiter{Clock: clock.Now}

	require.NoError(t, limiter.Record429(ctx, 30*time.Second))
	require.ErrorIs(t, limiter.CheckAndConsume(ctx), ErrRateLimitExceeded)

	clock.Advance(30 * time.Second)
	require.NoError(t, limiter.CheckAndConsume(ctx))

	state, err := limiter.State(ctx)
	require.NoError(t, err)
	assert.Nil(t, state.BackoffUntil)
	require.NotNil(t, state.Last429At)
}

type failingRateStore struct{}

func (failingRateStore) GetRateLimit(context.Context, string) (*core.RateLimitState, error) {
	return nil, errors.New("disk full")
}

func (failingRateStore) UpdateRateLimit(context.Context, string, *core.RateLimitState) error {
	return errors.New("disk full")
}

func TestRateLimiterStoreError(t *testing.T) {
	limiter := &RateLimiter{Store: failingRateStore{}}
	err := limiter.CheckAndConsume(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRateLimitExceeded)
}
