package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/daybook-app/daybook/internal/models"
)

// sharer abstracts the sharing surface of a repository so the REPL
// commands can dispatch on the entity type name.
type sharer interface {
	ShareByLocalID(ctx context.Context, localID int64, grantee string, perm models.SharePermission) (*models.ShareRecord, error)
	RespondByRemoteID(ctx context.Context, remoteID, grantee string, decision models.ShareStatus) error
	RevokeByLocalID(ctx context.Context, localID int64, grantee string) error
	PendingInvitations(ctx context.Context) ([]*models.ShareRecord, error)
	IssuedGrants(ctx context.Context, localID int64) ([]*models.ShareRecord, error)
}

func (a *App) sharerFor(kind string) (sharer, models.Type, bool) {
	switch kind {
	case "notes", "note":
		return notesSharer{a}, models.TypeNote, true
	case "events", "event":
		return eventsSharer{a}, models.TypeCalendarEvent, true
	case "tasks", "task":
		return tasksSharer{a}, models.TypeTask, true
	}
	return nil, "", false
}

type notesSharer struct{ a *App }

func (s notesSharer) ShareByLocalID(ctx context.Context, id int64, grantee string, perm models.SharePermission) (*models.ShareRecord, error) {
	return s.a.repos.Notes.Share(ctx, id, grantee, perm)
}
func (s notesSharer) RespondByRemoteID(ctx context.Context, remoteID, grantee string, decision models.ShareStatus) error {
	return s.a.repos.Notes.RespondToShare(ctx, remoteID, grantee, decision)
}
func (s notesSharer) RevokeByLocalID(ctx context.Context, id int64, grantee string) error {
	return s.a.repos.Notes.Revoke(ctx, id, grantee)
}
func (s notesSharer) PendingInvitations(ctx context.Context) ([]*models.ShareRecord, error) {
	return s.a.repos.Notes.Invitations(ctx)
}
func (s notesSharer) IssuedGrants(ctx context.Context, id int64) ([]*models.ShareRecord, error) {
	return s.a.repos.Notes.Grants(ctx, id)
}

type eventsSharer struct{ a *App }

func (s eventsSharer) ShareByLocalID(ctx context.Context, id int64, grantee string, perm models.SharePermission) (*models.ShareRecord, error) {
	return s.a.repos.Events.Share(ctx, id, grantee, perm)
}
func (s eventsSharer) RespondByRemoteID(ctx context.Context, remoteID, grantee string, decision models.ShareStatus) error {
	return s.a.repos.Events.RespondToShare(ctx, remoteID, grantee, decision)
}
func (s eventsSharer) RevokeByLocalID(ctx context.Context, id int64, grantee string) error {
	return s.a.repos.Events.Revoke(ctx, id, grantee)
}
func (s eventsSharer) PendingInvitations(ctx context.Context) ([]*models.ShareRecord, error) {
	return s.a.repos.Events.Invitations(ctx)
}
func (s eventsSharer) IssuedGrants(ctx context.Context, id int64) ([]*models.ShareRecord, error) {
	return s.a.repos.Events.Grants(ctx, id)
}

type tasksSharer struct{ a *App }

func (s tasksSharer) ShareByLocalID(ctx context.Context, id int64, grantee string, perm models.SharePermission) (*models.ShareRecord, error) {
	return s.a.repos.Tasks.Share(ctx, id, grantee, perm)
}
func (s tasksSharer) RespondByRemoteID(ctx context.Context, remoteID, grantee string, decision models.ShareStatus) error {
	return s.a.repos.Tasks.RespondToShare(ctx, remoteID, grantee, decision)
}
func (s tasksSharer) RevokeByLocalID(ctx context.Context, id int64, grantee string) error {
	return s.a.repos.Tasks.Revoke(ctx, id, grantee)
}
func (s tasksSharer) PendingInvitations(ctx context.Context) ([]*models.ShareRecord, error) {
	return s.a.repos.Tasks.Invitations(ctx)
}
func (s tasksSharer) IssuedGrants(ctx context.Context, id int64) ([]*models.ShareRecord, error) {
	return s.a.repos.Tasks.Grants(ctx, id)
}

// Share grants another user access to an owned item.
// Usage: share <notes|events|tasks> <localID> <email> <view|edit>
func (a *App) Share(ctx context.Context, args []string) error {
	if len(args) != 4 {
		fmt.Fprintln(stdout, "Usage: share <notes|events|tasks> <localID> <email> <view|edit>")
		return nil
	}
	s, _, ok := a.sharerFor(args[0])
	if !ok {
		fmt.Fprintln(stdout, "Unknown or unshareable type:", args[0])
		return nil
	}
	localID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Fprintln(stdout, "Invalid local id:", args[1])
		return nil
	}
	rec, err := s.ShareByLocalID(ctx, localID, args[2], models.SharePermission(args[3]))
	if err != nil {
		fmt.Fprintln(stdout, "Error:", err)
		return err
	}
	fmt.Fprintf(stdout, "Invitation sent to %s (%s access)\n", rec.GranteeEmail, rec.Permission)
	return nil
}

// Invites lists pending invitations addressed to the current user.
func (a *App) Invites(ctx context.Context) error {
	total := 0
	for _, kind := range []string{"notes", "events", "tasks"} {
		s, typ, _ := a.sharerFor(kind)
		recs, err := s.PendingInvitations(ctx)
		if err != nil {
			fmt.Fprintln(stdout, "Error:", err)
			return err
		}
		for _, r := range recs {
			fmt.Fprintf(stdout, "%-16s %-36s from %-24s %-4s  %q\n",
				typ, r.EntityID, r.OwnerEmail, r.Permission, r.Summary.Title)
			total++
		}
	}
	if total == 0 {
		fmt.Fprintln(stdout, "No pending invitations")
	}
	return nil
}

// Respond records an accept or decline decision on a pending invitation.
// Usage: accept|decline <notes|events|tasks> <remoteID>
func (a *App) Respond(ctx context.Context, args []string, decision models.ShareStatus) error {
	if len(args) != 2 {
		fmt.Fprintf(stdout, "Usage: %s <notes|events|tasks> <remoteID>\n", decision)
		return nil
	}
	s, _, ok := a.sharerFor(args[0])
	if !ok {
		fmt.Fprintln(stdout, "Unknown or unshareable type:", args[0])
		return nil
	}
	if err := s.RespondByRemoteID(ctx, args[1], a.currentEmail(ctx), decision); err != nil {
		fmt.Fprintln(stdout, "Error:", err)
		return err
	}
	fmt.Fprintln(stdout, decision)
	return nil
}

// RevokeShare removes a previously granted share.
// Usage: revoke <notes|events|tasks> <localID> <email>
func (a *App) RevokeShare(ctx context.Context, args []string) error {
	if len(args) != 3 {
		fmt.Fprintln(stdout, "Usage: revoke <notes|events|tasks> <localID> <email>")
		return nil
	}
	s, _, ok := a.sharerFor(args[0])
	if !ok {
		fmt.Fprintln(stdout, "Unknown or unshareable type:", args[0])
		return nil
	}
	localID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Fprintln(stdout, "Invalid local id:", args[1])
		return nil
	}
	if err := s.RevokeByLocalID(ctx, localID, args[2]); err != nil {
		fmt.Fprintln(stdout, "Error:", err)
		return err
	}
	fmt.Fprintln(stdout, "Revoked")
	return nil
}

// Shares lists the grants the owner has issued for one item.
// Usage: shares <notes|events|tasks> <localID>
func (a *App) Shares(ctx context.Context, args []string) error {
	if len(args) != 2 {
		fmt.Fprintln(stdout, "Usage: shares <notes|events|tasks> <localID>")
		return nil
	}
	s, _, ok := a.sharerFor(args[0])
	if !ok {
		fmt.Fprintln(stdout, "Unknown or unshareable type:", args[0])
		return nil
	}
	localID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Fprintln(stdout, "Invalid local id:", args[1])
		return nil
	}
	recs, err := s.IssuedGrants(ctx, localID)
	if err != nil {
		fmt.Fprintln(stdout, "Error:", err)
		return err
	}
	for _, r := range recs {
		fmt.Fprintf(stdout, "%-24s %-4s %s\n", r.GranteeEmail, r.Permission, r.Status)
	}
	return nil
}
