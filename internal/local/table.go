package local

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/daybook-app/daybook/internal/common"
	"github.com/daybook-app/daybook/internal/dbx"
	"github.com/daybook-app/daybook/internal/models"
)

// Table is the cache table for one entity type. Rows carry the entity's
// Meta fields as columns (the columns are authoritative) and the full
// entity as a JSON payload.
type Table[T any, PT models.Ptr[T]] struct {
	db  *sql.DB
	typ models.Type
}

func NewTable[T any, PT models.Ptr[T]](store *Store, typ models.Type) *Table[T, PT] {
	return &Table[T, PT]{db: store.DB(), typ: typ}
}

// Type returns the entity kind this table stores.
func (t *Table[T, PT]) Type() models.Type { return t.typ }

func nullableRemoteID(id string) sql.NullString {
	return sql.NullString{String: id, Valid: id != ""}
}

// Put inserts the entity when it has no local id yet, otherwise updates the
// existing row. The owner column never changes on update; an update naming
// a different owner affects no rows and reports ErrNotFound.
func (t *Table[T, PT]) Put(ctx context.Context, e PT) error {
	return t.put(ctx, t.db, e)
}

func (t *Table[T, PT]) put(ctx context.Context, db dbx.DBTX, e PT) error {
	m := e.Base()
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", t.typ, err)
	}

	if m.LocalID == 0 {
		query := fmt.Sprintf(
			`INSERT INTO %s (remote_id, owner_id, updated_at, payload) VALUES (?, ?, ?, ?)`,
			t.typ.Table())
		res, err := db.ExecContext(ctx, query,
			nullableRemoteID(m.RemoteID), m.OwnerID, m.UpdatedAt.UnixMilli(), payload)
		if err != nil {
			return fmt.Errorf("failed to insert %s: %w", t.typ, err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get insert id: %w", err)
		}
		m.LocalID = id
		return nil
	}

	query := fmt.Sprintf(
		`UPDATE %s SET remote_id=?, updated_at=?, payload=? WHERE local_id=? AND owner_id=?`,
		t.typ.Table())
	res, err := db.ExecContext(ctx, query,
		nullableRemoteID(m.RemoteID), m.UpdatedAt.UnixMilli(), payload, m.LocalID, m.OwnerID)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", t.typ, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("%s local_id=%d: %w", t.typ, m.LocalID, common.ErrNotFound)
	}
	return nil
}

// Get returns the entity stored under localID.
func (t *Table[T, PT]) Get(ctx context.Context, localID int64) (PT, error) {
	query := fmt.Sprintf(
		`SELECT local_id, remote_id, owner_id, updated_at, payload FROM %s WHERE local_id=?`,
		t.typ.Table())
	e, err := t.scanRow(t.db.QueryRowContext(ctx, query, localID))
	if err != nil {
		return nil, fmt.Errorf("%s local_id=%d: %w", t.typ, localID, err)
	}
	return e, nil
}

// Delete removes the row for localID. Missing rows report ErrNotFound.
func (t *Table[T, PT]) Delete(ctx context.Context, localID int64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE local_id=?`, t.typ.Table())
	res, err := t.db.ExecContext(ctx, query, localID)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", t.typ, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra == 0 {
		return fmt.Errorf("%s local_id=%d: %w", t.typ, localID, common.ErrNotFound)
	}
	return nil
}

// QueryByOwner lists every cached entity owned by ownerID.
func (t *Table[T, PT]) QueryByOwner(ctx context.Context, ownerID string) ([]PT, error) {
	query := fmt.Sprintf(
		`SELECT local_id, remote_id, owner_id, updated_at, payload FROM %s WHERE owner_id=? ORDER BY local_id`,
		t.typ.Table())
	rows, err := t.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select %s: %w", t.typ, err)
	}
	defer rows.Close()

	var result []PT
	for rows.Next() {
		e, err := t.scanRow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// QueryByRemoteID returns the cached entity carrying the given remote
// identifier, or ErrNotFound.
func (t *Table[T, PT]) QueryByRemoteID(ctx context.Context, remoteID string) (PT, error) {
	query := fmt.Sprintf(
		`SELECT local_id, remote_id, owner_id, updated_at, payload FROM %s WHERE remote_id=?`,
		t.typ.Table())
	e, err := t.scanRow(t.db.QueryRowContext(ctx, query, remoteID))
	if err != nil {
		return nil, fmt.Errorf("%s remote_id=%s: %w", t.typ, remoteID, err)
	}
	return e, nil
}

// SetRemoteID backfills the remote identifier after a first successful push.
func (t *Table[T, PT]) SetRemoteID(ctx context.Context, localID int64, remoteID string) error {
	query := fmt.Sprintf(`UPDATE %s SET remote_id=? WHERE local_id=?`, t.typ.Table())
	res, err := t.db.ExecContext(ctx, query, remoteID, localID)
	if err != nil {
		return fmt.Errorf("failed to set remote id on %s: %w", t.typ, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("%s local_id=%d: %w", t.typ, localID, common.ErrNotFound)
	}
	return nil
}

// ReplaceAllForOwner atomically swaps every row owned by ownerID for the
// supplied set: a single transaction deletes the existing rows and inserts
// the replacements, so a partially-applied refresh is never observable.
// Entities gain fresh local ids.
func (t *Table[T, PT]) ReplaceAllForOwner(ctx context.Context, ownerID string, entities []PT) error {
	return dbx.WithTx(ctx, t.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := fmt.Sprintf(`DELETE FROM %s WHERE owner_id=?`, t.typ.Table())
		if _, err := tx.ExecContext(ctx, query, ownerID); err != nil {
			return fmt.Errorf("failed to clear %s for owner: %w", t.typ, err)
		}
		for _, e := range entities {
			e.Base().LocalID = 0
			if err := t.put(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (t *Table[T, PT]) scanRow(row rowScanner) (PT, error) {
	var (
		localID   int64
		remoteID  sql.NullString
		ownerID   string
		updatedAt int64
		payload   []byte
	)
	if err := row.Scan(&localID, &remoteID, &ownerID, &updatedAt, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("row scan failed: %w", err)
	}

	e := PT(new(T))
	if err := json.Unmarshal(payload, e); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", t.typ, err)
	}
	m := e.Base()
	m.LocalID = localID
	m.RemoteID = remoteID.String
	m.OwnerID = ownerID
	m.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return e, nil
}
