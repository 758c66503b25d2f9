// Package sharing governs invitations, permissions and visibility of shared
// items. Every mutating repository call consults it before touching either
// store.
//
// A share record walks a three-state machine: pending to accepted or
// pending to declined, answered by the grantee exactly once. The owner can
// remove the record from any state; removal is a deletion, not a fourth
// state, and re-inviting means creating a fresh record.
package sharing

import (
	"context"
	"fmt"
	"time"

	"github.com/daybook-app/daybook/internal/common"
	"github.com/daybook-app/daybook/internal/identity"
	"github.com/daybook-app/daybook/internal/logging"
	"github.com/daybook-app/daybook/internal/models"
	"github.com/daybook-app/daybook/internal/remote"
)

type Service struct {
	shares   remote.ShareStore
	provider identity.Provider
	log      logging.Logger
}

func NewService(shares remote.ShareStore, provider identity.Provider, log logging.Logger) *Service {
	return &Service{shares: shares, provider: provider, log: log}
}

// Actor returns the signed-in identity or ErrNotAuthenticated.
func (s *Service) Actor(ctx context.Context) (*identity.Identity, error) {
	id, err := s.provider.Current(ctx)
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, common.ErrNotAuthenticated
	}
	return id, nil
}

// Share creates a pending record granting granteeEmail access to the
// entity. Only the entity's owner may share, and only an entity that
// already exists remotely can be referenced.
func (s *Service) Share(ctx context.Context, typ models.Type, entityID, ownerID string,
	granteeEmail string, permission models.SharePermission, summary models.ShareSummary) (*models.ShareRecord, error) {

	actor, err := s.Actor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.ID != ownerID {
		return nil, fmt.Errorf("only the owner may share: %w", common.ErrPermissionDenied)
	}
	if entityID == "" {
		return nil, fmt.Errorf("entity has no remote identifier yet: %w", common.ErrNotFound)
	}
	if !permission.Valid() {
		return nil, fmt.Errorf("unknown permission %q", permission)
	}
	if granteeEmail == "" || granteeEmail == actor.Email {
		return nil, fmt.Errorf("invalid grantee %q", granteeEmail)
	}

	rec := &models.ShareRecord{
		EntityType:   typ,
		EntityID:     entityID,
		OwnerID:      ownerID,
		OwnerEmail:   actor.Email,
		GranteeEmail: granteeEmail,
		Permission:   permission,
		Status:       models.StatusPending,
		Summary:      summary,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.shares.CreateShare(ctx, rec); err != nil {
		return nil, err
	}
	s.log.Info(ctx, "share created", "type", string(typ), "entity", entityID, "grantee", granteeEmail)
	return rec, nil
}

// Respond lets the named grantee accept or decline a pending invitation.
// The actor must be the grantee, and the record must still be pending.
func (s *Service) Respond(ctx context.Context, typ models.Type, entityID, granteeEmail string, decision models.ShareStatus) error {
	actor, err := s.Actor(ctx)
	if err != nil {
		return err
	}
	if actor.Email != granteeEmail {
		return fmt.Errorf("only the grantee may respond: %w", common.ErrPermissionDenied)
	}
	if decision != models.StatusAccepted && decision != models.StatusDeclined {
		return fmt.Errorf("invalid decision %q", decision)
	}

	rec, err := s.shares.GetShare(ctx, typ, entityID, granteeEmail)
	if err != nil {
		return err
	}
	if rec.Status != models.StatusPending {
		return fmt.Errorf("share is %s: %w", rec.Status, common.ErrInvalidTransition)
	}
	return s.shares.UpdateShareStatus(ctx, typ, entityID, granteeEmail, decision)
}

// Revoke removes the grantee's record entirely. Owner only, any state.
func (s *Service) Revoke(ctx context.Context, typ models.Type, entityID, ownerID, granteeEmail string) error {
	actor, err := s.Actor(ctx)
	if err != nil {
		return err
	}
	if actor.ID != ownerID {
		return fmt.Errorf("only the owner may revoke: %w", common.ErrPermissionDenied)
	}
	return s.shares.DeleteShare(ctx, typ, entityID, granteeEmail)
}

// RemoveAllForEntity deletes every share record referencing the entity.
// Called when the owner deletes the entity itself.
func (s *Service) RemoveAllForEntity(ctx context.Context, typ models.Type, entityID string) error {
	return s.shares.DeleteSharesForEntity(ctx, typ, entityID)
}

// CanMutate decides whether the actor may change the entity: the owner
// always can; anyone else needs an accepted edit share. A pending or
// declined record, or an accepted view share, denies.
func (s *Service) CanMutate(ctx context.Context, typ models.Type, m *models.Meta) error {
	actor, err := s.Actor(ctx)
	if err != nil {
		return err
	}
	if actor.ID == m.OwnerID {
		return nil
	}
	if m.RemoteID == "" {
		return common.ErrPermissionDenied
	}
	rec, err := s.shares.GetShare(ctx, typ, m.RemoteID, actor.Email)
	if err != nil {
		if common.IsNotFound(err) {
			return common.ErrPermissionDenied
		}
		return err
	}
	if rec.Status == models.StatusAccepted && rec.Permission == models.PermissionEdit {
		return nil
	}
	return common.ErrPermissionDenied
}

// CanView decides whether the actor may read the entity's content: the
// owner, or any grantee with an accepted share regardless of permission
// level. Pending and declined records expose only the invitation summary,
// never the entity.
func (s *Service) CanView(ctx context.Context, typ models.Type, m *models.Meta) error {
	actor, err := s.Actor(ctx)
	if err != nil {
		return err
	}
	if actor.ID == m.OwnerID {
		return nil
	}
	if m.RemoteID == "" {
		return common.ErrPermissionDenied
	}
	rec, err := s.shares.GetShare(ctx, typ, m.RemoteID, actor.Email)
	if err != nil {
		if common.IsNotFound(err) {
			return common.ErrPermissionDenied
		}
		return err
	}
	if rec.Status == models.StatusAccepted {
		return nil
	}
	return common.ErrPermissionDenied
}

// AcceptedFor lists the actor's accepted shares routed through one entity
// type. The ids feed the repositories' shared listings.
func (s *Service) AcceptedFor(ctx context.Context, typ models.Type) ([]*models.ShareRecord, error) {
	return s.forActorByStatus(ctx, typ, models.StatusAccepted)
}

// PendingFor lists the actor's open invitations for one entity type. Each
// record carries only the summary needed to render the invitation.
func (s *Service) PendingFor(ctx context.Context, typ models.Type) ([]*models.ShareRecord, error) {
	return s.forActorByStatus(ctx, typ, models.StatusPending)
}

func (s *Service) forActorByStatus(ctx context.Context, typ models.Type, status models.ShareStatus) ([]*models.ShareRecord, error) {
	actor, err := s.Actor(ctx)
	if err != nil {
		return nil, err
	}
	all, err := s.shares.SharesForGrantee(ctx, actor.Email)
	if err != nil {
		return nil, err
	}
	var result []*models.ShareRecord
	for _, rec := range all {
		if rec.EntityType == typ && rec.Status == status {
			result = append(result, rec)
		}
	}
	return result, nil
}

// GrantsForEntity lists every record the owner has issued for one entity.
func (s *Service) GrantsForEntity(ctx context.Context, typ models.Type, entityID string) ([]*models.ShareRecord, error) {
	return s.shares.SharesForEntity(ctx, typ, entityID)
}
