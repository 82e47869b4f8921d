package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brainboard/brainboard/internal/core"
)

// Rate limiter defaults.
const (
	DefaultMaxPerWindow = 100
	DefaultWindow       = time.Minute
)

// RateLimitStore persists the window state per key.
type RateLimitStore interface {
	GetRateLimit(ctx context.Context, endpoint string) (*core.RateLimitState, error)
	UpdateRateLimit(ctx context.Context, endpoint string, state *core.RateLimitState) error
}

// RateLimiter is a fixed-window request counter. Each call to
// CheckAndConsume either takes one slot in the current window or fails with
// ErrRateLimitExceeded. There is no background timer.
type RateLimiter struct {
	Store        RateLimitStore
	Key          string
	MaxPerWindow int
	Window       time.Duration
	Clock        func() time.Time

	mu sync.Mutex
}

// CheckAndConsume resets the window once more than Window has elapsed since
// it started, then takes a slot if one is free.
func (r *RateLimiter) CheckAndConsume(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load(ctx)
	if err != nil {
		return err
	}

	now := r.now()
	if state.BackoffUntil != nil {
		if now.Before(*state.BackoffUntil) {
			return fmt.Errorf("%w: server asked to retry in %s", ErrRateLimitExceeded, state.BackoffUntil.Sub(now).Round(time.Second))
		}
		state.BackoffUntil = nil
	}

	if now.Sub(state.WindowStart) > r.window() {
		state.RequestCount = 0
		state.WindowStart = now
	}

	if state.RequestCount >= r.max() {
		return fmt.Errorf("%w: %d requests per %s", ErrRateLimitExceeded, r.max(), r.window())
	}

	state.RequestCount++
	return r.Store.UpdateRateLimit(ctx, r.key(), state)
}

// Record429 blocks further requests until retryAfter has passed.
func (r *RateLimiter) Record429(ctx context.Context, retryAfter time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load(ctx)
	if err != nil {
		return err
	}

	now := r.now()
	state.Last429At = &now
	if retryAfter > 0 {
		until := now.Add(retryAfter)
		state.BackoffUntil = &until
	}
	return r.Store.UpdateRateLimit(ctx, r.key(), state)
}

// State returns a copy of the current window.
func (r *RateLimiter) State(ctx context.Context) (core.RateLimitState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, err := r.load(ctx)
	if err != nil {
		return core.RateLimitState{}, err
	}
	return *state, nil
}

func (r *RateLimiter) load(ctx context.Context) (*core.RateLimitState, error) {
	if r.Store == nil {
		r.Store = newMemoryRateStore()
	}
	state, err := r.Store.GetRateLimit(ctx, r.key())
	if err != nil {
		return nil, fmt.Errorf("load rate limit state: %w", err)
	}
	if state == nil {
		state = &core.RateLimitState{WindowStart: r.now()}
	}
	return state, nil
}

func (r *RateLimiter) key() string {
	if r.Key == "" {
		return "default"
	}
	return r.Key
}

func (r *RateLimiter) max() int {
	if r.MaxPerWindow <= 0 {
		return DefaultMaxPerWindow
	}
	return r.MaxPerWindow
}

func (r *RateLimiter) window() time.Duration {
	if r.Window <= 0 {
		return DefaultWindow
	}
	return r.Window
}

func (r *RateLimiter) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}

type memoryRateStore struct {
	mu    sync.Mutex
	state map[string]core.RateLimitState
}

func newMemoryRateStore() *memoryRateStore {
	return &memoryRateStore{state: make(map[string]core.RateLimitState)}
}

func (m *memoryRateStore) GetRateLimit(_ context.Context, endpoint string) (*core.RateLimitState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.state[endpoint]
	if !ok {
		return nil, nil
	}
	return &state, nil
}

func (m *memoryRateStore) UpdateRateLimit(_ context.Context, endpoint string, state *core.RateLimitState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state[endpoint] = *state
	return nil
}
