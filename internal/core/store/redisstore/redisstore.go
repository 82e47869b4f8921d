// Package redisstore keeps the session namespaces and the rate window in
// redis, for setups where several machines share one session.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brainboard/brainboard/internal/config"
	"github.com/brainboard/brainboard/internal/core"
)

// rateLimitTTL expires idle windows so abandoned keys do not accumulate.
const rateLimitTTL = 24 * time.Hour

// Store wraps a redis client. Every key it writes starts with prefix.
type Store struct {
	client *redis.Client
	prefix string
}

// New wraps an existing client.
func New(client *redis.Client, prefix string) *Store {
	prefix = strings.Trim(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = config.AppName
	}
	return &Store{client: client, prefix: prefix}
}

// Open connects using the redis fields of cfg and verifies the connection.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}
	return New(client, cfg.RedisPrefix), nil
}

// Close releases the client.
func (s *Store) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// Namespace returns the hash-backed key-value view for name.
func (s *Store) Namespace(name string) *Namespace {
	return &Namespace{client: s.client, key: s.namespaceKey(name)}
}

func (s *Store) namespaceKey(name string) string {
	return s.prefix + ":kv:" + name
}

func (s *Store) rateLimitKey(key string) string {
	return s.prefix + ":ratelimit:" + key
}

// Namespace stores one namespace as a single redis hash.
type Namespace struct {
	client *redis.Client
	key    string
}

func (n *Namespace) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := n.client.HGet(ctx, n.key, key).Result()
	if err == redis.Nil {
		return "", false, nil
	} else if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (n *Namespace) Set(ctx context.Context, key, value string) error {
	return n.client.HSet(ctx, n.key, key, value).Err()
}

func (n *Namespace) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return n.client.HDel(ctx, n.key, keys...).Err()
}

func (n *Namespace) Clear(ctx context.Context) error {
	return n.client.Del(ctx, n.key).Err()
}

// GetRateLimit returns the stored window for key, or nil when none exists.
func (s *Store) GetRateLimit(ctx context.Context, key string) (*core.RateLimitState, error) {
	raw, err := s.client.Get(ctx, s.rateLimitKey(key)).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("fetch rate limit: %w", err)
	}

	var state core.RateLimitState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode rate limit: %w", err)
	}
	return &state, nil
}

// UpdateRateLimit stores the window for key.
func (s *Store) UpdateRateLimit(ctx context.Context, key string, state *core.RateLimitState) error {
	if state == nil {
		return errors.New("rate limit state is required")
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode rate limit: %w", err)
	}
	return s.client.Set(ctx, s.rateLimitKey(key), raw, rateLimitTTL).Err()
}

// RateLimitKeys lists stored window keys that start with prefix. prefix is
// matched literally: glob characters in it are escaped.
func (s *Store) RateLimitKeys(ctx context.Context, prefix string) ([]string, error) {
	base := s.rateLimitKey("")
	var keys []string
	iter := s.client.Scan(ctx, 0, escapeGlob(base+prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := strings.TrimPrefix(iter.Val(), base)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan rate limits: %w", err)
	}
	sort.Strings(keys)
	return keys, nil
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ResetRateLimits deletes windows for the given keys.
func (s *Store) ResetRateLimits(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	full := make([]string, len(keys))
	for i, key := range keys {
		full[i] = s.rateLimitKey(key)
	}
	return s.client.Del(ctx, full...).Result()
}
