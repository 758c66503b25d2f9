package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/daybook-app/daybook/internal/common"
	"github.com/daybook-app/daybook/internal/models"
	"github.com/daybook-app/daybook/internal/remote/migrations"
	"github.com/google/uuid"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore implements Authority on a multi-tenant Postgres schema:
// one jsonb-payload table per entity type plus a share_records table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to dsn and applies pending migrations.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		db.Close()
		return nil, err
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error { return s.db.Close() }

// Ping reports whether the authority is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", common.ErrRemoteUnavailable)
	}
	return nil
}

func validCollection(collection string) error {
	if !models.Type(collection).Valid() {
		return fmt.Errorf("unknown collection %q: %w", collection, common.ErrNotFound)
	}
	return nil
}

// unavailable wraps a driver error as ErrRemoteUnavailable, keeping the
// cause in the message.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, common.ErrRemoteUnavailable, err)
}

func (s *PostgresStore) Create(ctx context.Context, collection string, doc Document) (string, error) {
	if err := validCollection(collection); err != nil {
		return "", err
	}
	id := doc.ID
	if id == "" {
		id = uuid.NewString()
	}

	query, args, err := psql.Insert(collection).
		Columns("id", "owner_id", "updated_at", "payload").
		Values(id, doc.OwnerID, doc.UpdatedAt, doc.Payload).
		ToSql()
	if err != nil {
		return "", err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", unavailable("create "+collection, err)
	}
	return id, nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, doc Document) error {
	if err := validCollection(collection); err != nil {
		return err
	}

	// Owner is immutable: the update names it in the predicate, never in
	// the SET list.
	query, args, err := psql.Update(collection).
		Set("updated_at", doc.UpdatedAt).
		Set("payload", doc.Payload).
		Where(sq.Eq{"id": id, "owner_id": doc.OwnerID}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return unavailable("update "+collection, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("update "+collection, err)
	}
	if n == 0 {
		return fmt.Errorf("%s id=%s: %w", collection, id, common.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	if err := validCollection(collection); err != nil {
		return err
	}
	query, args, err := psql.Delete(collection).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return unavailable("delete "+collection, err)
	}
	return nil
}

// fieldPredicate maps a query field to a squirrel predicate. Indexed
// columns are addressed directly; everything else goes through the jsonb
// payload.
func fieldPredicate(field string, value any) sq.Sqlizer {
	switch field {
	case "id", "owner_id":
		return sq.Eq{field: value}
	default:
		return sq.Expr("payload->>? = ?", field, fmt.Sprint(value))
	}
}

func (s *PostgresStore) QueryWhere(ctx context.Context, collection, field string, value any) ([]Document, error) {
	if err := validCollection(collection); err != nil {
		return nil, err
	}
	query, args, err := psql.Select("id", "owner_id", "updated_at", "payload").
		From(collection).
		Where(fieldPredicate(field, value)).
		OrderBy("updated_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.queryDocs(ctx, collection, query, args)
}

func (s *PostgresStore) QueryWhereIn(ctx context.Context, collection, field string, values []string) ([]Document, error) {
	if err := validCollection(collection); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}

	var pred sq.Sqlizer
	switch field {
	case "id", "owner_id":
		pred = sq.Eq{field: values}
	default:
		pred = sq.Expr("payload->>? = ANY(?)", field, values)
	}

	query, args, err := psql.Select("id", "owner_id", "updated_at", "payload").
		From(collection).
		Where(pred).
		OrderBy("updated_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.queryDocs(ctx, collection, query, args)
}

func (s *PostgresStore) queryDocs(ctx context.Context, collection, query string, args []any) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query "+collection, err)
	}
	defer rows.Close()

	var result []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.UpdatedAt, &d.Payload); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query "+collection, err)
	}
	return result, nil
}

func (s *PostgresStore) CreateShare(ctx context.Context, rec *models.ShareRecord) error {
	query, args, err := psql.Insert("share_records").
		Columns("entity_type", "entity_id", "owner_id", "owner_email", "grantee_email",
			"permission", "status", "title", "starts_at", "ends_at", "created_at").
		Values(string(rec.EntityType), rec.EntityID, rec.OwnerID, rec.OwnerEmail, rec.GranteeEmail,
			string(rec.Permission), string(rec.Status), rec.Summary.Title,
			rec.Summary.StartsAt, rec.Summary.EndsAt, rec.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return unavailable("create share", err)
	}
	return nil
}

func shareSelect() sq.SelectBuilder {
	return psql.Select("entity_type", "entity_id", "owner_id", "owner_email", "grantee_email",
		"permission", "status", "title", "starts_at", "ends_at", "created_at").
		From("share_records")
}

func scanShare(row rowScanner) (*models.ShareRecord, error) {
	var rec models.ShareRecord
	var typ, permission, status string
	var startsAt, endsAt sql.NullTime
	if err := row.Scan(&typ, &rec.EntityID, &rec.OwnerID, &rec.OwnerEmail, &rec.GranteeEmail,
		&permission, &status, &rec.Summary.Title, &startsAt, &endsAt,
		&rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.EntityType = models.Type(typ)
	rec.Permission = models.SharePermission(permission)
	rec.Status = models.ShareStatus(status)
	if startsAt.Valid {
		t := startsAt.Time
		rec.Summary.StartsAt = &t
	}
	if endsAt.Valid {
		t := endsAt.Time
		rec.Summary.EndsAt = &t
	}
	return &rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *PostgresStore) GetShare(ctx context.Context, typ models.Type, entityID, granteeEmail string) (*models.ShareRecord, error) {
	query, args, err := shareSelect().
		Where(sq.Eq{"entity_type": string(typ), "entity_id": entityID, "grantee_email": granteeEmail}).
		ToSql()
	if err != nil {
		return nil, err
	}
	rec, err := scanShare(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get share", err)
	}
	return rec, nil
}

func (s *PostgresStore) SharesForGrantee(ctx context.Context, granteeEmail string) ([]*models.ShareRecord, error) {
	query, args, err := shareSelect().
		Where(sq.Eq{"grantee_email": granteeEmail}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.queryShares(ctx, query, args)
}

func (s *PostgresStore) SharesForEntity(ctx context.Context, typ models.Type, entityID string) ([]*models.ShareRecord, error) {
	query, args, err := shareSelect().
		Where(sq.Eq{"entity_type": string(typ), "entity_id": entityID}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, err
	}
	return s.queryShares(ctx, query, args)
}

func (s *PostgresStore) queryShares(ctx context.Context, query string, args []any) ([]*models.ShareRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("query shares", err)
	}
	defer rows.Close()

	var result []*models.ShareRecord
	for rows.Next() {
		rec, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("query shares", err)
	}
	return result, nil
}

func (s *PostgresStore) UpdateShareStatus(ctx context.Context, typ models.Type, entityID, granteeEmail string, status models.ShareStatus) error {
	query, args, err := psql.Update("share_records").
		Set("status", string(status)).
		Where(sq.Eq{"entity_type": string(typ), "entity_id": entityID, "grantee_email": granteeEmail}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return unavailable("update share", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("update share", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteShare(ctx context.Context, typ models.Type, entityID, granteeEmail string) error {
	query, args, err := psql.Delete("share_records").
		Where(sq.Eq{"entity_type": string(typ), "entity_id": entityID, "grantee_email": granteeEmail}).
		ToSql()
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return unavailable("delete share", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("delete share", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteSharesForEntity(ctx context.Context, typ models.Type, entityID string) error {
	query, args, err := psql.Delete("share_records").
		Where(sq.Eq{"entity_type": string(typ), "entity_id": entityID}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return unavailable("delete shares", err)
	}
	return nil
}
