package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Namespaces used by the session client.
const (
	NamespaceDurable  = "durable"
	NamespaceVolatile = "volatile"
)

// Namespace is one string key-value namespace inside the kv_entries table.
type Namespace struct {
	store *Store
	name  string
}

// Namespace returns the key-value view for name.
func (s *Store) Namespace(name string) *Namespace {
	return &Namespace{store: s, name: name}
}

// Name returns the namespace name.
func (n *Namespace) Name() string {
	return n.name
}

// Get returns the value for key and whether it was present.
func (n *Namespace) Get(ctx context.Context, key string) (string, bool, error) {
	if err := n.check(); err != nil {
		return "", false, err
	}

	var value string
	err := n.store.DB.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE namespace = ? AND key = ?`,
		n.name, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s/%s: %w", n.name, key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (n *Namespace) Set(ctx context.Context, key, value string) error {
	if err := n.check(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("key is required")
	}

	_, err := n.store.DB.ExecContext(ctx, `
		INSERT INTO kv_entries (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`, n.name, key, value, time.Now().UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("write %s/%s: %w", n.name, key, err)
	}
	return nil
}

// Delete removes keys. Missing keys are not an error.
func (n *Namespace) Delete(ctx context.Context, keys ...string) error {
	if err := n.check(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, 0, len(keys)+1)
	args = append(args, n.name)
	for _, key := range keys {
		args = append(args, key)
	}

	query := fmt.Sprintf(`DELETE FROM kv_entries WHERE namespace = ? AND key IN (%s)`, placeholders)
	if _, err := n.store.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete from %s: %w", n.name, err)
	}
	return nil
}

// Clear removes every key in the namespace.
func (n *Namespace) Clear(ctx context.Context) error {
	if err := n.check(); err != nil {
		return err
	}
	if _, err := n.store.DB.ExecContext(ctx, `DELETE FROM kv_entries WHERE namespace = ?`, n.name); err != nil {
		return fmt.Errorf("clear %s: %w", n.name, err)
	}
	return nil
}

// Keys lists the keys in the namespace in order.
func (n *Namespace) Keys(ctx context.Context) ([]string, error) {
	if err := n.check(); err != nil {
		return nil, err
	}

	rows, err := n.store.DB.QueryContext(ctx, `SELECT key FROM kv_entries WHERE namespace = ? ORDER BY key`, n.name)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", n.name, err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("list %s: %w", n.name, err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func (n *Namespace) check() error {
	if n == nil || n.store == nil || n.store.DB == nil {
		return errors.New("store is not initialized")
	}
	if strings.TrimSpace(n.name) == "" {
		return errors.New("namespace is required")
	}
	return nil
}
