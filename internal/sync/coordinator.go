// Package sync orchestrates push (local to remote) and pull (remote to local)
// for each entity type.
//
// The model is deliberately simple: the remote authority is the single
// source of truth, the local cache is a read/write-through mirror. Push is
// last-writer-wins with no version check. Pull is a wholesale replace of
// the owner's local rows, not a merge; a local row that was never pushed is
// silently discarded by a pull. A failed push leaves the optimistic local
// write in place with no compensating rollback.
package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/daybook-app/daybook/internal/local"
	"github.com/daybook-app/daybook/internal/logging"
	"github.com/daybook-app/daybook/internal/models"
	"github.com/daybook-app/daybook/internal/remote"
)

// Coordinator moves one entity type between the local cache table and its
// remote collection.
type Coordinator[T any, PT models.Ptr[T]] struct {
	typ    models.Type
	local  *local.Table[T, PT]
	remote remote.Store
	log    logging.Logger
}

func NewCoordinator[T any, PT models.Ptr[T]](typ models.Type, table *local.Table[T, PT], store remote.Store, log logging.Logger) *Coordinator[T, PT] {
	return &Coordinator[T, PT]{
		typ:    typ,
		local:  table,
		remote: store,
		log:    log.With("type", string(typ)),
	}
}

func (c *Coordinator[T, PT]) Type() models.Type { return c.typ }

// Encode flattens an entity into its wire document.
func Encode[T any, PT models.Ptr[T]](e PT) (remote.Document, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return remote.Document{}, fmt.Errorf("failed to encode entity: %w", err)
	}
	m := e.Base()
	return remote.Document{
		ID:        m.RemoteID,
		OwnerID:   m.OwnerID,
		UpdatedAt: m.UpdatedAt,
		Payload:   payload,
	}, nil
}

// Decode rebuilds an entity from a wire document. The document columns are
// authoritative for the Meta fields; the local id is left unset.
func Decode[T any, PT models.Ptr[T]](doc remote.Document) (PT, error) {
	e := PT(new(T))
	if err := json.Unmarshal(doc.Payload, e); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", doc.ID, err)
	}
	m := e.Base()
	m.LocalID = 0
	m.RemoteID = doc.ID
	m.OwnerID = doc.OwnerID
	m.UpdatedAt = doc.UpdatedAt.UTC()
	return e, nil
}

// Push sends the entity's current state to the remote authority: an update
// when it already has a remote identifier, otherwise a create whose new
// identifier is written back into the local row. On failure the local row
// keeps its optimistic state.
func (c *Coordinator[T, PT]) Push(ctx context.Context, e PT) error {
	doc, err := Encode[T, PT](e)
	if err != nil {
		return err
	}
	m := e.Base()

	if m.RemoteID != "" {
		if err := c.remote.Update(ctx, c.typ.Collection(), m.RemoteID, doc); err != nil {
			c.log.Warn(ctx, "push update failed", "remote_id", m.RemoteID, "error", err)
			return err
		}
		return nil
	}

	id, err := c.remote.Create(ctx, c.typ.Collection(), doc)
	if err != nil {
		c.log.Warn(ctx, "push create failed", "local_id", m.LocalID, "error", err)
		return err
	}
	m.RemoteID = id
	if m.LocalID != 0 {
		if err := c.local.SetRemoteID(ctx, m.LocalID, id); err != nil {
			return fmt.Errorf("failed to record remote id: %w", err)
		}
	}
	return nil
}

// Pull replaces the owner's cached rows with the authority's current state.
// Either the whole replace applies or none of it does.
func (c *Coordinator[T, PT]) Pull(ctx context.Context, ownerID string) error {
	docs, err := c.remote.QueryWhere(ctx, c.typ.Collection(), "owner_id", ownerID)
	if err != nil {
		return err
	}
	entities := make([]PT, 0, len(docs))
	for _, doc := range docs {
		e, err := Decode[T, PT](doc)
		if err != nil {
			return err
		}
		entities = append(entities, e)
	}
	if err := c.local.ReplaceAllForOwner(ctx, ownerID, entities); err != nil {
		return err
	}
	c.log.Info(ctx, "pulled", "owner", ownerID, "count", len(entities))
	return nil
}

// Delete removes the entity's remote document. The caller has already
// removed the local row; if the remote delete fails the stores diverge
// until the next pull re-creates the row from remote state.
func (c *Coordinator[T, PT]) Delete(ctx context.Context, e PT) error {
	m := e.Base()
	if m.RemoteID == "" {
		return nil
	}
	if err := c.remote.Delete(ctx, c.typ.Collection(), m.RemoteID); err != nil {
		c.log.Warn(ctx, "remote delete failed, stores diverge until next pull",
			"remote_id", m.RemoteID, "error", err)
		return err
	}
	return nil
}

// FetchByRemoteIDs loads entities straight from the authority, bypassing
// the cache. Used for shared items, which live in other owners' scopes.
func (c *Coordinator[T, PT]) FetchByRemoteIDs(ctx context.Context, ids []string) ([]PT, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	docs, err := c.remote.QueryWhereIn(ctx, c.typ.Collection(), "id", ids)
	if err != nil {
		return nil, err
	}
	entities := make([]PT, 0, len(docs))
	for _, doc := range docs {
		e, err := Decode[T, PT](doc)
		if err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// Clear drops the owner's cached rows. Used when the identity signs out.
func (c *Coordinator[T, PT]) Clear(ctx context.Context, ownerID string) error {
	return c.local.ReplaceAllForOwner(ctx, ownerID, nil)
}
