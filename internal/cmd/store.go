package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/brainboard/brainboard/internal/config"
	"github.com/brainboard/brainboard/internal/core/store"
	"github.com/brainboard/brainboard/internal/core/store/redisstore"
	"github.com/brainboard/brainboard/internal/session"
)

var errNoPersistedWindows = errors.New("the memory store keeps no rate limit state between runs")

// backend is the state store selected by store.driver.
type backend struct {
	driver   string
	durable  session.KV
	volatile session.KV
	rates    session.RateLimitStore

	sql   *store.Store
	redis *redisstore.Store
}

// openBackend opens the configured store. The memory driver persists nothing,
// so every command starts signed out.
func openBackend(ctx context.Context, cfg config.StoreConfig) (*backend, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return &backend{
			driver:   cfg.Driver,
			durable:  session.NewMemoryKV(),
			volatile: session.NewMemoryKV(),
		}, nil
	case config.DriverRedis:
		rs, err := redisstore.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &backend{
			driver:   cfg.Driver,
			durable:  rs.Namespace(store.NamespaceDurable),
			volatile: rs.Namespace(store.NamespaceVolatile),
			rates:    rs,
			redis:    rs,
		}, nil
	default:
		db, err := store.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &backend{
			driver:   config.DriverLibsql,
			durable:  db.Namespace(store.NamespaceDurable),
			volatile: db.Namespace(store.NamespaceVolatile),
			rates:    db,
			sql:      db,
		}, nil
	}
}

func (b *backend) Close() error {
	switch {
	case b.sql != nil:
		return b.sql.Close()
	case b.redis != nil:
		return b.redis.Close()
	}
	return nil
}

func (b *backend) listRateLimits(ctx context.Context, q store.RateLimitQuery) ([]store.RateLimitEntry, error) {
	switch {
	case b.sql != nil:
		return b.sql.ListRateLimits(ctx, q)
	case b.redis != nil:
		keys, err := b.redisKeys(ctx, q)
		if err != nil {
			return nil, err
		}
		entries := make([]store.RateLimitEntry, 0, len(keys))
		for _, key := range keys {
			state, err := b.redis.GetRateLimit(ctx, key)
			if err != nil {
				return nil, err
			}
			if state != nil {
				entries = append(entries, store.RateLimitEntry{Key: key, State: *state})
			}
		}
		return entries, nil
	}
	return nil, errNoPersistedWindows
}

func (b *backend) resetRateLimits(ctx context.Context, q store.RateLimitQuery) (int64, error) {
	switch {
	case b.sql != nil:
		return b.sql.ResetRateLimits(ctx, q)
	case b.redis != nil:
		keys, err := b.redisKeys(ctx, q)
		if err != nil {
			return 0, err
		}
		return b.redis.ResetRateLimits(ctx, keys...)
	}
	return 0, errNoPersistedWindows
}

func (b *backend) redisKeys(ctx context.Context, q store.RateLimitQuery) ([]string, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	prefix := strings.TrimSpace(q.Prefix)
	exact := strings.TrimSpace(q.Key)
	switch {
	case q.All:
		prefix = ""
	case exact != "":
		prefix = exact
	}
	keys, err := b.redis.RateLimitKeys(ctx, prefix)
	if err != nil || q.All || exact == "" {
		return keys, err
	}
	for _, key := range keys {
		if key == exact {
			return []string{key}, nil
		}
	}
	return nil, nil
}
