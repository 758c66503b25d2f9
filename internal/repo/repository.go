// Package repo exposes the typed CRUD façades the presentation layer calls.
// Each repository composes the local cache table, the sync coordinator and
// the sharing subsystem into one per-entity-type API: permission check,
// optimistic local write, immediate push.
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daybook-app/daybook/internal/common"
	"github.com/daybook-app/daybook/internal/local"
	"github.com/daybook-app/daybook/internal/logging"
	"github.com/daybook-app/daybook/internal/models"
	"github.com/daybook-app/daybook/internal/sharing"
	"github.com/daybook-app/daybook/internal/sync"
)

// ErrNotShareable is returned by share operations on entity types that do
// not participate in sharing (folders, tags, habit bookkeeping).
var ErrNotShareable = errors.New("entity type does not support sharing")

// ErrNoBlobStore is returned by attachment operations when no blob store
// was configured.
var ErrNoBlobStore = errors.New("no blob store configured")

// SummaryFunc extracts the invitation summary a pending share is allowed to
// expose from an entity.
type SummaryFunc[T any, PT models.Ptr[T]] func(e PT) models.ShareSummary

// Repository is the generic per-entity-type façade. T is the concrete
// entity schema; PT its pointer form.
type Repository[T any, PT models.Ptr[T]] struct {
	typ       models.Type
	local     *local.Table[T, PT]
	coord     *sync.Coordinator[T, PT]
	shares    *sharing.Service
	summarize SummaryFunc[T, PT] // nil means not shareable
	log       logging.Logger
}

func NewRepository[T any, PT models.Ptr[T]](typ models.Type, table *local.Table[T, PT],
	coord *sync.Coordinator[T, PT], shares *sharing.Service,
	summarize SummaryFunc[T, PT], log logging.Logger) *Repository[T, PT] {

	return &Repository[T, PT]{
		typ:       typ,
		local:     table,
		coord:     coord,
		shares:    shares,
		summarize: summarize,
		log:       log.With("type", string(typ)),
	}
}

func (r *Repository[T, PT]) Type() models.Type { return r.typ }

// Create stores the entity locally under the acting identity and pushes it.
// The local row is visible immediately; a failed push is returned to the
// caller with the optimistic write left standing.
func (r *Repository[T, PT]) Create(ctx context.Context, e PT) error {
	actor, err := r.shares.Actor(ctx)
	if err != nil {
		return err
	}

	m := e.Base()
	m.LocalID = 0
	m.RemoteID = ""
	m.OwnerID = actor.ID
	m.UpdatedAt = time.Now().UTC()

	if err := r.local.Put(ctx, e); err != nil {
		return err
	}
	return r.coord.Push(ctx, e)
}

// Update mutates the entity after the sharing permission check. For the
// owner the cached row is rewritten first; a grantee editing a shared item
// has no local row of their own, so the change goes straight to the
// authority.
func (r *Repository[T, PT]) Update(ctx context.Context, e PT) error {
	m := e.Base()
	if err := r.shares.CanMutate(ctx, r.typ, m); err != nil {
		return err
	}

	m.UpdatedAt = time.Now().UTC()
	if m.LocalID != 0 {
		if err := r.local.Put(ctx, e); err != nil {
			return err
		}
	}
	return r.coord.Push(ctx, e)
}

// Get returns one cached entity, subject to the view check.
func (r *Repository[T, PT]) Get(ctx context.Context, localID int64) (PT, error) {
	e, err := r.local.Get(ctx, localID)
	if err != nil {
		return nil, err
	}
	if err := r.shares.CanView(ctx, r.typ, e.Base()); err != nil {
		return nil, err
	}
	return e, nil
}

// Delete removes the entity. Deletion is an owner action: the local row
// goes first, then the remote document, then any share records. A failed
// remote delete is reported but the local row stays gone; the next pull
// resurrects the entity from remote state.
func (r *Repository[T, PT]) Delete(ctx context.Context, localID int64) error {
	actor, err := r.shares.Actor(ctx)
	if err != nil {
		return err
	}
	e, err := r.local.Get(ctx, localID)
	if err != nil {
		return err
	}
	m := e.Base()
	if m.OwnerID != actor.ID {
		return fmt.Errorf("only the owner may delete: %w", common.ErrPermissionDenied)
	}

	if err := r.local.Delete(ctx, localID); err != nil {
		return err
	}
	if err := r.coord.Delete(ctx, e); err != nil {
		return err
	}
	if m.RemoteID != "" {
		if err := r.shares.RemoveAllForEntity(ctx, r.typ, m.RemoteID); err != nil {
			return err
		}
	}
	return nil
}

// List returns the actor's own entities from the local cache.
func (r *Repository[T, PT]) List(ctx context.Context) ([]PT, error) {
	actor, err := r.shares.Actor(ctx)
	if err != nil {
		return nil, err
	}
	return r.local.QueryByOwner(ctx, actor.ID)
}

// ListShared returns the entities other owners have shared with the actor
// and the actor has accepted, fetched straight from the authority.
func (r *Repository[T, PT]) ListShared(ctx context.Context) ([]PT, error) {
	accepted, err := r.shares.AcceptedFor(ctx, r.typ)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(accepted))
	for _, rec := range accepted {
		ids = append(ids, rec.EntityID)
	}
	return r.coord.FetchByRemoteIDs(ctx, ids)
}

// ListMerged is the view the UI renders: owned plus accepted-shared,
// deduplicated by remote identifier with the owned local copy winning, so
// the owner's own edits are never shadowed by a stale shared snapshot.
func (r *Repository[T, PT]) ListMerged(ctx context.Context) ([]PT, error) {
	owned, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	shared, err := r.ListShared(ctx)
	if err != nil {
		return nil, err
	}
	return MergeByRemoteID(owned, shared), nil
}

// MergeByRemoteID deduplicates the union of owned and shared entities by
// remote identifier. Owned entries come first and take precedence; entities
// without a remote identifier (never pushed) cannot collide and are kept.
func MergeByRemoteID[T any, PT models.Ptr[T]](owned, shared []PT) []PT {
	seen := make(map[string]struct{}, len(owned))
	merged := make([]PT, 0, len(owned)+len(shared))
	for _, e := range owned {
		if id := e.Base().RemoteID; id != "" {
			seen[id] = struct{}{}
		}
		merged = append(merged, e)
	}
	for _, e := range shared {
		id := e.Base().RemoteID
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		merged = append(merged, e)
	}
	return merged
}

// Share grants granteeEmail access to the entity stored under localID.
// The entity must have been pushed at least once.
func (r *Repository[T, PT]) Share(ctx context.Context, localID int64, granteeEmail string, permission models.SharePermission) (*models.ShareRecord, error) {
	if r.summarize == nil {
		return nil, ErrNotShareable
	}
	e, err := r.local.Get(ctx, localID)
	if err != nil {
		return nil, err
	}
	m := e.Base()
	if m.RemoteID == "" {
		return nil, fmt.Errorf("entity must be synced before sharing: %w", common.ErrNotFound)
	}
	return r.shares.Share(ctx, r.typ, m.RemoteID, m.OwnerID, granteeEmail, permission, r.summarize(e))
}

// RespondToShare records the grantee's accept/decline decision for the
// entity with the given remote identifier.
func (r *Repository[T, PT]) RespondToShare(ctx context.Context, remoteID, granteeEmail string, decision models.ShareStatus) error {
	if r.summarize == nil {
		return ErrNotShareable
	}
	return r.shares.Respond(ctx, r.typ, remoteID, granteeEmail, decision)
}

// Revoke removes the grantee's share record for the entity under localID.
func (r *Repository[T, PT]) Revoke(ctx context.Context, localID int64, granteeEmail string) error {
	if r.summarize == nil {
		return ErrNotShareable
	}
	e, err := r.local.Get(ctx, localID)
	if err != nil {
		return err
	}
	m := e.Base()
	return r.shares.Revoke(ctx, r.typ, m.RemoteID, m.OwnerID, granteeEmail)
}

// Invitations lists the actor's open invitations for this entity type.
func (r *Repository[T, PT]) Invitations(ctx context.Context) ([]*models.ShareRecord, error) {
	if r.summarize == nil {
		return nil, ErrNotShareable
	}
	return r.shares.PendingFor(ctx, r.typ)
}

// Grants lists the records the owner has issued for the entity under
// localID.
func (r *Repository[T, PT]) Grants(ctx context.Context, localID int64) ([]*models.ShareRecord, error) {
	if r.summarize == nil {
		return nil, ErrNotShareable
	}
	e, err := r.local.Get(ctx, localID)
	if err != nil {
		return nil, err
	}
	return r.shares.GrantsForEntity(ctx, r.typ, e.Base().RemoteID)
}
