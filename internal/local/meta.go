package local

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Well-known metadata keys.
const (
	MetaSessionToken = "session_token"
	MetaLastPull     = "last_pull"
)

// Meta is a small key/value table for device-scoped state that is not
// entity data: the persisted session token, last-pull bookkeeping.
type Meta struct {
	db *sql.DB
}

func NewMeta(store *Store) *Meta {
	return &Meta{db: store.DB()}
}

// Get returns the value for key, or nil when the key is absent.
func (m *Meta) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := m.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (m *Meta) Set(ctx context.Context, key string, value []byte) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (m *Meta) Delete(ctx context.Context, key string) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}

func (m *Meta) Clear(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `DELETE FROM metadata`)
	if err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}
	return nil
}
