// Package local implements the per-device cache store: one sqlite table per
// entity type plus a metadata table. Pure storage; no business logic.
package local

import (
	"context"
	"database/sql"

	"github.com/daybook-app/daybook/internal/local/migrations"
	"github.com/pressly/goose/v3"

	_ "modernc.org/sqlite"
)

// Store owns the sqlite handle shared by all tables.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at dsn and applies pending
// migrations.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, ".")
}

// DB exposes the underlying handle for table construction.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Close() error { return s.db.Close() }
