package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brainboard/brainboard/internal/core"
)

// RateLimitEntry is one persisted window.
type RateLimitEntry struct {
	Key   string              `json:"key"`
	State core.RateLimitState `json:"state"`
}

// RateLimitQuery selects windows for the rate-limit admin commands.
type RateLimitQuery struct {
	All    bool
	Key    string
	Prefix string
}

// Validate requires exactly one way of selecting rows.
func (q RateLimitQuery) Validate() error {
	if q.All || strings.TrimSpace(q.Key) != "" || strings.TrimSpace(q.Prefix) != "" {
		return nil
	}
	return errors.New("must specify --all, --key, or --prefix")
}

func (q RateLimitQuery) whereClause() (string, []any, error) {
	if err := q.Validate(); err != nil {
		return "", nil, err
	}
	switch {
	case q.All:
		return "", nil, nil
	case strings.TrimSpace(q.Key) != "":
		return "WHERE endpoint = ?", []any{strings.TrimSpace(q.Key)}, nil
	default:
		return `WHERE endpoint LIKE ? ESCAPE '\'`, []any{likePrefix.Replace(strings.TrimSpace(q.Prefix)) + "%"}, nil
	}
}

// likePrefix quotes LIKE wildcards so a prefix matches literally.
var likePrefix = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ListRateLimits returns the selected windows ordered by key.
func (s *Store) ListRateLimits(ctx context.Context, q RateLimitQuery) ([]RateLimitEntry, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	where, args, err := q.whereClause()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT endpoint, request_count, window_start, backoff_until, last_429_at
		FROM rate_limits
		%s
		ORDER BY endpoint
	`, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup

	entries := []RateLimitEntry{}
	for rows.Next() {
		var key string
		state, err := scanRateLimit(rows.Scan, &key)
		if err != nil {
			return nil, fmt.Errorf("scan rate limits: %w", err)
		}
		entries = append(entries, RateLimitEntry{Key: key, State: state})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rate limits: %w", err)
	}
	return entries, nil
}

// ResetRateLimits deletes the selected windows and reports how many went.
func (s *Store) ResetRateLimits(ctx context.Context, q RateLimitQuery) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	where, args, err := q.whereClause()
	if err != nil {
		return 0, err
	}

	result, err := s.DB.ExecContext(ctx, fmt.Sprintf(`DELETE FROM rate_limits %s`, where), args...)
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reset rate limits: %w", err)
	}
	return affected, nil
}
