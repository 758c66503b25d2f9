// Package remote defines the remote authority store: the single networked
// source of truth all devices converge against. One collection per entity
// type plus one collection for share records.
//
// There is no retry or offline queue at this layer. Every failed call maps
// to common.ErrRemoteUnavailable and the caller decides whether its
// already-applied local write should stand.
package remote

import (
	"context"
	"time"

	"github.com/daybook-app/daybook/internal/models"
)

// Document is the wire shape of one stored entity: identifying columns plus
// the JSON-encoded entity payload.
type Document struct {
	ID        string
	OwnerID   string
	UpdatedAt time.Time
	Payload   []byte
}

// Store is the document side of the authority.
type Store interface {
	// Create stores a new document and returns its assigned identifier.
	Create(ctx context.Context, collection string, doc Document) (string, error)

	// Update overwrites an existing document's content. The owner column is
	// immutable. Missing documents report ErrNotFound.
	Update(ctx context.Context, collection, id string, doc Document) error

	Delete(ctx context.Context, collection, id string) error

	// QueryWhere returns every document whose field equals value. "owner_id"
	// and "id" address the indexed columns; any other field addresses the
	// JSON payload.
	QueryWhere(ctx context.Context, collection, field string, value any) ([]Document, error)

	// QueryWhereIn returns every document whose field is one of values.
	QueryWhereIn(ctx context.Context, collection, field string, values []string) ([]Document, error)
}

// ShareStore is the share-record side of the authority. Records are keyed
// by (entity type, entity remote id, grantee email).
type ShareStore interface {
	CreateShare(ctx context.Context, rec *models.ShareRecord) error
	GetShare(ctx context.Context, typ models.Type, entityID, granteeEmail string) (*models.ShareRecord, error)
	SharesForGrantee(ctx context.Context, granteeEmail string) ([]*models.ShareRecord, error)
	SharesForEntity(ctx context.Context, typ models.Type, entityID string) ([]*models.ShareRecord, error)
	UpdateShareStatus(ctx context.Context, typ models.Type, entityID, granteeEmail string, status models.ShareStatus) error
	DeleteShare(ctx context.Context, typ models.Type, entityID, granteeEmail string) error
	DeleteSharesForEntity(ctx context.Context, typ models.Type, entityID string) error
}

// Authority is the full remote contract consumed by the sync coordinator
// and the sharing subsystem.
type Authority interface {
	Store
	ShareStore
}
