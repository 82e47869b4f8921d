package session

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainboard/brainboard/internal/core"
)

func TestRefreshWithoutRefreshToken(t *testing.T) {
	env := newTestEnv(t, http.NotFoundHandler())

	ok, err := env.client.RefreshAccessToken(context.Background())
	require.ErrorIs(t, err, ErrNoRefreshToken)
	assert.False(t, ok)
}

func TestRefreshFailureClearsCredentials(t *testing.T) {
	var redirected atomic.Int32
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, core.APIMessage{Message: "invalid refresh token"})
	}), func(o *Options) { o.OnUnauthorized = func() { redirected.Add(1) } })
	env.signIn(t, 3600)

	ok, err := env.client.RefreshAccessToken(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, env.client.Credentials().RefreshToken())
	assert.Zero(t, env.durable.Len())
	assert.Equal(t, int32(1), redirected.Load())
}

func TestRefreshRejectsIncompleteResponse(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, core.TokenResponse{AccessToken: "access-2"})
	}))
	env.signIn(t, 3600)

	ok, err := env.client.RefreshAccessToken(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, env.client.Credentials().AccessToken())
}

func TestRefreshDoesNotConsumeRateLimit(t *testing.T) {
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, tokens("access-2", "refresh-2", 3600))
	}), func(o *Options) { o.MaxPerWindow = 1 })
	env.signIn(t, 3600)

	ok, err := env.client.RefreshAccessToken(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	state, err := env.client.Limiter().State(context.Background())
	require.NoError(t, err)
	assert.Zero(t, state.RequestCount)
}

func TestConcurrentRefreshSharesOneCall(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		writeJSON(w, http.StatusOK, tokens("access-2", "refresh-2", 3600))
	}))
	env.signIn(t, 30)
	ctx := context.Background()

	results := make([]bool, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ok, err := env.client.RefreshAccessToken(ctx)
		assert.NoError(t, err)
		results[0] = ok
	}()
	go func() {
		defer wg.Done()
		// Same path the scheduled loop takes.
		env.client.tick(ctx)
		results[1] = env.client.Credentials().AccessToken() == "access-2"
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, env.client.RefreshCount())
	assert.Equal(t, []bool{true, true}, results)
	assert.Equal(t, "refresh-2", env.client.Credentials().RefreshToken())
}

func TestRefreshCallerCancellationLeavesSharedCallRunning(t *testing.T) {
	release := make(chan struct{})
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusOK, tokens("access-2", "refresh-2", 3600))
	}))
	env.signIn(t, 30)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := env.client.RefreshAccessToken(ctx)
	require.ErrorIs(t, err, context.Canceled)

	close(release)
	require.Eventually(t, func() bool {
		return env.client.Credentials().AccessToken() == "access-2"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduledRefreshLoop(t *testing.T) {
	var calls atomic.Int32
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, tokens("access-2", "refresh-2", 3600))
	}), func(o *Options) { o.RefreshInterval = 10 * time.Millisecond })
	env.signIn(t, 30)

	env.client.Start(context.Background())
	env.client.Start(context.Background())

	require.Eventually(t, func() bool {
		return env.client.Credentials().AccessToken() == "access-2"
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, env.client.Close())
	require.NoError(t, env.client.Close())

	// The new token is far from expiry so later ticks would not refresh.
	assert.Equal(t, int32(1), calls.Load())
}

func TestSharedFailedRefreshRedirectsOnce(t *testing.T) {
	var redirected atomic.Int32
	release := make(chan struct{})
	env := newTestEnv(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		writeJSON(w, http.StatusUnauthorized, core.APIMessage{Message: "refresh revoked"})
	}), func(o *Options) { o.OnUnauthorized = func() { redirected.Add(1) } })
	env.signIn(t, 30)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := env.client.GetProfile(ctx)
		assert.ErrorIs(t, err, ErrUnauthorized)
	}()
	go func() {
		defer wg.Done()
		env.client.tick(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, 1, env.client.RefreshCount())
	assert.Equal(t, int32(1), redirected.Load())
	assert.Empty(t, env.client.Credentials().AccessToken())
}
