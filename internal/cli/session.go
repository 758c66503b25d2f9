package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/daybook-app/daybook/internal/local"
)

// Login accepts a session token pasted by the user, installs it as the
// current identity and persists it so a restart resumes the session. The
// identity change itself triggers the initial pull via the sync manager.
func (a *App) Login(ctx context.Context) error {
	token, err := GetToken(stdout)
	if err != nil {
		return err
	}
	id, err := a.provider.SetToken(token)
	if err != nil {
		fmt.Fprintln(stdout, "Login failed:", err)
		return err
	}
	if err := a.meta.Set(ctx, local.MetaSessionToken, []byte(token)); err != nil {
		a.log.Warn(ctx, "failed to persist session token", "error", err)
	}
	fmt.Fprintf(stdout, "Signed in as %s\n", id.Email)
	return nil
}

// Logout clears the identity; the sync manager clears the departing
// identity's caches in response.
func (a *App) Logout(ctx context.Context) error {
	a.provider.Clear()
	if err := a.meta.Delete(ctx, local.MetaSessionToken); err != nil {
		a.log.Warn(ctx, "failed to drop session token", "error", err)
	}
	fmt.Fprintln(stdout, "Signed out")
	return nil
}

// Refresh re-pulls every entity type for the current identity.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.repos.Sync.Refresh(ctx); err != nil {
		fmt.Fprintln(stdout, "Refresh failed:", err)
		return err
	}
	stamp := time.Now().UTC().Format(time.RFC3339)
	if err := a.meta.Set(ctx, local.MetaLastPull, []byte(stamp)); err != nil {
		a.log.Warn(ctx, "failed to record pull time", "error", err)
	}
	fmt.Fprintln(stdout, "Refreshed")
	return nil
}
