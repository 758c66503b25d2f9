package sync

import (
	"context"
	"errors"

	"github.com/daybook-app/daybook/internal/identity"
	"github.com/daybook-app/daybook/internal/logging"
	"github.com/daybook-app/daybook/internal/models"
)

// Puller is the type-erased face a Coordinator shows the Manager.
type Puller interface {
	Type() models.Type
	Pull(ctx context.Context, ownerID string) error
	Clear(ctx context.Context, ownerID string) error
}

// Manager owns the full set of per-type coordinators and reacts to identity
// changes: every sign-in (or switch) triggers a fresh pull of every entity
// type, and a sign-out clears all caches scoped to the departing identity
// so nothing leaks into the next session.
type Manager struct {
	provider identity.Provider
	changes  <-chan identity.Change
	cancel   func()
	pullers  []Puller
	log      logging.Logger
}

// NewManager subscribes to identity changes at construction, so a sign-in
// that lands before Run starts draining is buffered rather than dropped.
func NewManager(provider identity.Provider, log logging.Logger) *Manager {
	changes, cancel := provider.Subscribe()
	return &Manager{provider: provider, changes: changes, cancel: cancel, log: log}
}

func (m *Manager) Register(p Puller) {
	m.pullers = append(m.pullers, p)
}

// PullAll refreshes every entity type for the given owner. The first error
// stops the walk; a pull that fails must not be papered over.
func (m *Manager) PullAll(ctx context.Context, ownerID string) error {
	for _, p := range m.pullers {
		if err := p.Pull(ctx, ownerID); err != nil {
			return err
		}
	}
	return nil
}

// ClearAll drops every cached row scoped to the given owner.
func (m *Manager) ClearAll(ctx context.Context, ownerID string) error {
	var errs []error
	for _, p := range m.pullers {
		if err := p.Clear(ctx, ownerID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Refresh pulls everything for the currently signed-in identity.
func (m *Manager) Refresh(ctx context.Context) error {
	id, err := m.provider.Current(ctx)
	if err != nil {
		return err
	}
	if id == nil {
		return nil
	}
	return m.PullAll(ctx, id.ID)
}

// Run applies buffered and subsequent identity changes until ctx is
// cancelled. Blocking; callers usually run it in a goroutine.
func (m *Manager) Run(ctx context.Context) {
	defer m.cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-m.changes:
			if !ok {
				return
			}
			m.apply(ctx, change)
		}
	}
}

func (m *Manager) apply(ctx context.Context, change identity.Change) {
	if change.Old != nil && (change.New == nil || change.New.ID != change.Old.ID) {
		if err := m.ClearAll(ctx, change.Old.ID); err != nil {
			m.log.Error(ctx, "failed to clear caches for departing identity",
				"owner", change.Old.ID, "error", err)
		}
	}
	if change.New != nil {
		if err := m.PullAll(ctx, change.New.ID); err != nil {
			m.log.Error(ctx, "initial pull failed", "owner", change.New.ID, "error", err)
		}
	}
}
