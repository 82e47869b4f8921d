//go:build cgo

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brainboard/brainboard/internal/config"
	"github.com/brainboard/brainboard/internal/core"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenMemoryStore(t *testing.T) {
	store := openMemory(t)
	require.Equal(t, "libsql", store.Driver())
	require.NoError(t, store.Migrate(context.Background()), "migrations are idempotent")
}

func TestNamespaceRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openMemory(t)
	durable := store.Namespace(NamespaceDurable)
	volatile := store.Namespace(NamespaceVolatile)

	_, ok, err := durable.Get(ctx, "access_token")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, durable.Set(ctx, "access_token", "a"))
	require.NoError(t, durable.Set(ctx, "access_token", "b"))
	require.NoError(t, durable.Set(ctx, "refresh_token", "r"))
	require.NoError(t, volatile.Set(ctx, "access_token", "other"))

	value, ok, err := durable.Get(ctx, "access_token")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", value)

	keys, err := durable.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"access_token", "refresh_token"}, keys)

	require.NoError(t, durable.Delete(ctx, "access_token", "missing"))
	keys, err = durable.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"refresh_token"}, keys)

	require.NoError(t, durable.Clear(ctx))
	keys, err = durable.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	value, ok, err = volatile.Get(ctx, "access_token")
	require.NoError(t, err)
	require.True(t, ok, "clearing one namespace leaves the other")
	assert.Equal(t, "other", value)
}

func TestRateLimitPersistence(t *testing.T) {
	ctx := context.Background()
	store := openMemory(t)

	state, err := store.GetRateLimit(ctx, "api.example.com")
	require.NoError(t, err)
	assert.Nil(t, state)

	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	backoff := start.Add(30 * time.Second)
	require.NoError(t, store.UpdateRateLimit(ctx, "api.example.com", &core.RateLimitState{
		RequestCount: 7,
		WindowStart:  start,
		BackoffUntil: &backoff,
	}))
	require.NoError(t, store.UpdateRateLimit(ctx, "localhost:8787", &core.RateLimitState{RequestCount: 1, WindowStart: start}))

	state, err = store.GetRateLimit(ctx, "api.example.com")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, 7, state.RequestCount)
	assert.Equal(t, start, state.WindowStart)
	require.NotNil(t, state.BackoffUntil)
	assert.Equal(t, backoff, *state.BackoffUntil)
	assert.Nil(t, state.Last429At)

	entries, err := store.ListRateLimits(ctx, RateLimitQuery{Prefix: "api."})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "api.example.com", entries[0].Key)

	require.NoError(t, store.UpdateRateLimit(ctx, "a_b", &core.RateLimitState{RequestCount: 1, WindowStart: start}))
	require.NoError(t, store.UpdateRateLimit(ctx, "axb", &core.RateLimitState{RequestCount: 1, WindowStart: start}))
	entries, err = store.ListRateLimits(ctx, RateLimitQuery{Prefix: "a_"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a_b", entries[0].Key)

	entries, err = store.ListRateLimits(ctx, RateLimitQuery{Prefix: "%"})
	require.NoError(t, err)
	assert.Empty(t, entries)

	removed, err := store.ResetRateLimits(ctx, RateLimitQuery{All: true})
	require.NoError(t, err)
	assert.Equal(t, int64(4), removed)

	entries, err = store.ListRateLimits(ctx, RateLimitQuery{All: true})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
