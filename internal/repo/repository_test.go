package repo

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybook-app/daybook/internal/common"
	"github.com/daybook-app/daybook/internal/identity"
	"github.com/daybook-app/daybook/internal/local"
	"github.com/daybook-app/daybook/internal/logging"
	"github.com/daybook-app/daybook/internal/models"
	"github.com/daybook-app/daybook/internal/remote"
	"github.com/daybook-app/daybook/internal/sharing"
	"github.com/daybook-app/daybook/internal/sync"
)

var testKey = []byte("repo-test-key")

// fixture wires the full stack once per user device: each device gets its
// own cache database, all devices talk to the same authority.
type fixture struct {
	authority *remote.MemoryStore
	provider  *identity.TokenProvider
	repos     *Repositories
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})))
}

func newFixture(t *testing.T, authority *remote.MemoryStore) *fixture {
	t.Helper()
	store, err := local.Open(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	log := testLogger()
	provider := identity.NewTokenProvider(testKey)
	shares := sharing.NewService(authority, provider, log)
	manager := sync.NewManager(provider, log)
	repos := New(store, authority, shares, manager, nil, log)

	return &fixture{authority: authority, provider: provider, repos: repos}
}

func (f *fixture) signIn(t *testing.T, userID, email string) {
	t.Helper()
	token, err := identity.MintToken(identity.Identity{ID: userID, Email: email}, testKey, time.Hour)
	require.NoError(t, err)
	_, err = f.provider.SetToken(token)
	require.NoError(t, err)
}

func TestCreate_RequiresSession(t *testing.T) {
	f := newFixture(t, remote.NewMemoryStore())

	err := f.repos.Notes.Create(context.Background(), &models.Note{Title: "x"})
	require.ErrorIs(t, err, common.ErrNotAuthenticated)
}

func TestCreate_WritesLocallyAndPushes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, remote.NewMemoryStore())
	f.signIn(t, "u1", "alice@example.com")

	n := &models.Note{Title: "groceries", Content: "milk"}
	require.NoError(t, f.repos.Notes.Create(ctx, n))

	assert.NotZero(t, n.LocalID)
	assert.NotEmpty(t, n.RemoteID)
	assert.Equal(t, "u1", n.OwnerID)

	docs, err := f.authority.QueryWhere(ctx, "notes", "owner_id", "u1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, n.RemoteID, docs[0].ID)
}

func TestCreate_OfflineKeepsLocalWriteAndReportsError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, remote.NewMemoryStore())
	f.signIn(t, "u1", "alice@example.com")
	f.authority.SetOffline(true)

	n := &models.Note{Title: "offline note"}
	err := f.repos.Notes.Create(ctx, n)
	require.ErrorIs(t, err, common.ErrRemoteUnavailable)

	assert.NotZero(t, n.LocalID, "optimistic local write stands")
	assert.Empty(t, n.RemoteID)

	list, err := f.repos.Notes.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "offline note", list[0].Title)
}

func TestUpdate_OwnerRewritesCacheAndRemote(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, remote.NewMemoryStore())
	f.signIn(t, "u1", "alice@example.com")

	task := &models.Task{Title: "draft"}
	require.NoError(t, f.repos.Tasks.Create(ctx, task))

	task.Title = "final"
	task.Completed = true
	require.NoError(t, f.repos.Tasks.Update(ctx, task))

	got, err := f.repos.Tasks.Get(ctx, task.LocalID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)
	assert.True(t, got.Completed)

	assert.Equal(t, 1, f.authority.Creates, "update must not re-create remotely")
}

func TestGet_StrangerDenied(t *testing.T) {
	ctx := context.Background()
	authority := remote.NewMemoryStore()
	alice := newFixture(t, authority)
	alice.signIn(t, "u1", "alice@example.com")

	n := &models.Note{Title: "private"}
	require.NoError(t, alice.repos.Notes.Create(ctx, n))

	// Same device, different signed-in user: the cached row exists but the
	// view check fails.
	alice.signIn(t, "u2", "eve@example.com")
	_, err := alice.repos.Notes.Get(ctx, n.LocalID)
	require.ErrorIs(t, err, common.ErrPermissionDenied)
}

func TestDelete_OwnerRemovesEverywhereAndDropsShares(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, remote.NewMemoryStore())
	f.signIn(t, "u1", "alice@example.com")

	n := &models.Note{Title: "doomed"}
	require.NoError(t, f.repos.Notes.Create(ctx, n))
	_, err := f.repos.Notes.Share(ctx, n.LocalID, "bob@example.com", models.PermissionView)
	require.NoError(t, err)

	require.NoError(t, f.repos.Notes.Delete(ctx, n.LocalID))

	_, err = f.repos.Notes.Get(ctx, n.LocalID)
	require.ErrorIs(t, err, common.ErrNotFound)

	docs, err := f.authority.QueryWhere(ctx, "notes", "owner_id", "u1")
	require.NoError(t, err)
	assert.Empty(t, docs)

	recs, err := f.authority.SharesForEntity(ctx, models.TypeNote, n.RemoteID)
	require.NoError(t, err)
	assert.Empty(t, recs, "deleting the entity removes its share records")
}

func TestDelete_NonOwnerDenied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, remote.NewMemoryStore())
	f.signIn(t, "u1", "alice@example.com")

	n := &models.Note{Title: "mine"}
	require.NoError(t, f.repos.Notes.Create(ctx, n))

	f.signIn(t, "u2", "eve@example.com")
	err := f.repos.Notes.Delete(ctx, n.LocalID)
	require.ErrorIs(t, err, common.ErrPermissionDenied)
}

func TestShare_UnpushedEntityRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, remote.NewMemoryStore())
	f.signIn(t, "u1", "alice@example.com")
	f.authority.SetOffline(true)

	n := &models.Note{Title: "never pushed"}
	_ = f.repos.Notes.Create(ctx, n) // push fails, no remote id

	f.authority.SetOffline(false)
	_, err := f.repos.Notes.Share(ctx, n.LocalID, "bob@example.com", models.PermissionView)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestShare_FoldersAreNotShareable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, remote.NewMemoryStore())
	f.signIn(t, "u1", "alice@example.com")

	folder := &models.Folder{Name: "inbox"}
	require.NoError(t, f.repos.Folders.Create(ctx, folder))

	_, err := f.repos.Folders.Share(ctx, folder.LocalID, "bob@example.com", models.PermissionView)
	require.ErrorIs(t, err, ErrNotShareable)
}

// shareFlow builds the canonical two-user setup: alice owns an event and
// shares it with bob.
func shareFlow(t *testing.T, perm models.SharePermission) (alice, bob *fixture, event *models.CalendarEvent) {
	t.Helper()
	ctx := context.Background()
	authority := remote.NewMemoryStore()
	alice = newFixture(t, authority)
	bob = newFixture(t, authority)

	alice.signIn(t, "u1", "alice@example.com")
	event = &models.CalendarEvent{
		Title:    "standup",
		StartsAt: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2025, 7, 1, 9, 15, 0, 0, time.UTC),
	}
	require.NoError(t, alice.repos.Events.Create(ctx, event))
	_, err := alice.repos.Events.Share(ctx, event.LocalID, "bob@example.com", perm)
	require.NoError(t, err)

	bob.signIn(t, "u2", "bob@example.com")
	return alice, bob, event
}

func TestSharedFlow_InvitationCarriesSummary(t *testing.T) {
	ctx := context.Background()
	_, bob, event := shareFlow(t, models.PermissionView)

	invites, err := bob.repos.Events.Invitations(ctx)
	require.NoError(t, err)
	require.Len(t, invites, 1)

	inv := invites[0]
	assert.Equal(t, event.RemoteID, inv.EntityID)
	assert.Equal(t, "alice@example.com", inv.OwnerEmail)
	assert.Equal(t, "standup", inv.Summary.Title)
	require.NotNil(t, inv.Summary.StartsAt)
	assert.True(t, inv.Summary.StartsAt.Equal(event.StartsAt))
}

func TestSharedFlow_AcceptMakesEntityVisible(t *testing.T) {
	ctx := context.Background()
	_, bob, event := shareFlow(t, models.PermissionView)

	// Before accepting the entity itself is invisible.
	shared, err := bob.repos.Events.ListShared(ctx)
	require.NoError(t, err)
	assert.Empty(t, shared)

	require.NoError(t, bob.repos.Events.RespondToShare(ctx, event.RemoteID, "bob@example.com", models.StatusAccepted))

	shared, err = bob.repos.Events.ListShared(ctx)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, "standup", shared[0].Title)
	assert.Equal(t, "u1", shared[0].OwnerID, "shared entity keeps its true owner")
}

func TestSharedFlow_DeclineHidesEntityOwnerStillSees(t *testing.T) {
	ctx := context.Background()
	alice, bob, event := shareFlow(t, models.PermissionView)

	require.NoError(t, bob.repos.Events.RespondToShare(ctx, event.RemoteID, "bob@example.com", models.StatusDeclined))

	shared, err := bob.repos.Events.ListShared(ctx)
	require.NoError(t, err)
	assert.Empty(t, shared)

	alice.signIn(t, "u1", "alice@example.com")
	mine, err := alice.repos.Events.List(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1, "a decline never touches the owner's data")
}

func TestSharedFlow_EditGranteeUpdatesAuthority(t *testing.T) {
	ctx := context.Background()
	alice, bob, event := shareFlow(t, models.PermissionEdit)

	require.NoError(t, bob.repos.Events.RespondToShare(ctx, event.RemoteID, "bob@example.com", models.StatusAccepted))

	shared, err := bob.repos.Events.ListShared(ctx)
	require.NoError(t, err)
	require.Len(t, shared, 1)

	edited := shared[0]
	edited.Title = "standup (moved)"
	require.NoError(t, bob.repos.Events.Update(ctx, edited))

	// The owner sees the grantee's edit after the next pull.
	alice.signIn(t, "u1", "alice@example.com")
	require.NoError(t, alice.repos.Sync.Refresh(ctx))
	mine, err := alice.repos.Events.List(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "standup (moved)", mine[0].Title)
}

func TestSharedFlow_ViewGranteeCannotUpdate(t *testing.T) {
	ctx := context.Background()
	_, bob, event := shareFlow(t, models.PermissionView)

	require.NoError(t, bob.repos.Events.RespondToShare(ctx, event.RemoteID, "bob@example.com", models.StatusAccepted))

	shared, err := bob.repos.Events.ListShared(ctx)
	require.NoError(t, err)
	require.Len(t, shared, 1)

	shared[0].Title = "hijacked"
	err = bob.repos.Events.Update(ctx, shared[0])
	require.ErrorIs(t, err, common.ErrPermissionDenied)
}

func TestSharedFlow_RevokeCutsAccess(t *testing.T) {
	ctx := context.Background()
	alice, bob, event := shareFlow(t, models.PermissionView)

	require.NoError(t, bob.repos.Events.RespondToShare(ctx, event.RemoteID, "bob@example.com", models.StatusAccepted))

	alice.signIn(t, "u1", "alice@example.com")
	require.NoError(t, alice.repos.Events.Revoke(ctx, event.LocalID, "bob@example.com"))

	shared, err := bob.repos.Events.ListShared(ctx)
	require.NoError(t, err)
	assert.Empty(t, shared)
}

func TestListMerged_OwnedAndSharedWithDedup(t *testing.T) {
	ctx := context.Background()
	authority := remote.NewMemoryStore()
	alice := newFixture(t, authority)
	bob := newFixture(t, authority)

	alice.signIn(t, "u1", "alice@example.com")
	shared := &models.Note{Title: "shared plans"}
	require.NoError(t, alice.repos.Notes.Create(ctx, shared))
	_, err := alice.repos.Notes.Share(ctx, shared.LocalID, "bob@example.com", models.PermissionView)
	require.NoError(t, err)

	bob.signIn(t, "u2", "bob@example.com")
	own := &models.Note{Title: "my own"}
	require.NoError(t, bob.repos.Notes.Create(ctx, own))
	require.NoError(t, bob.repos.Notes.RespondToShare(ctx, shared.RemoteID, "bob@example.com", models.StatusAccepted))

	merged, err := bob.repos.Notes.ListMerged(ctx)
	require.NoError(t, err)
	require.Len(t, merged, 2)
	assert.Equal(t, "my own", merged[0].Title, "owned entries come first")
	assert.Equal(t, "shared plans", merged[1].Title)
}

func TestMergeByRemoteID_OwnedCopyWins(t *testing.T) {
	owned := &models.Note{Title: "mine"}
	owned.RemoteID = "n-1"
	unpushed := &models.Note{Title: "unpushed"}
	staleShared := &models.Note{Title: "theirs"}
	staleShared.RemoteID = "n-1"
	otherShared := &models.Note{Title: "other"}
	otherShared.RemoteID = "n-2"
	noID := &models.Note{Title: "no id"}

	merged := MergeByRemoteID[models.Note](
		[]*models.Note{owned, unpushed},
		[]*models.Note{staleShared, otherShared, noID},
	)

	require.Len(t, merged, 3)
	assert.Equal(t, "mine", merged[0].Title, "owned copy shadows the shared snapshot")
	assert.Equal(t, "unpushed", merged[1].Title, "entities without a remote id are kept")
	assert.Equal(t, "other", merged[2].Title)
}

func TestNotesAttach_WithoutBlobStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, remote.NewMemoryStore())
	f.signIn(t, "u1", "alice@example.com")

	n := &models.Note{Title: "with file"}
	require.NoError(t, f.repos.Notes.Create(ctx, n))

	_, err := f.repos.Notes.Attach(ctx, n.LocalID, "a.txt", []byte("hi"))
	require.ErrorIs(t, err, ErrNoBlobStore)
}

func TestFoldersDelete_ReparentsContents(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, remote.NewMemoryStore())
	f.signIn(t, "u1", "alice@example.com")

	parent := &models.Folder{Name: "projects"}
	require.NoError(t, f.repos.Folders.Create(ctx, parent))

	child := &models.Folder{Name: "archive", ParentID: parent.RemoteID}
	require.NoError(t, f.repos.Folders.Create(ctx, child))

	note := &models.Note{Title: "inside", FolderID: parent.RemoteID}
	require.NoError(t, f.repos.Notes.Create(ctx, note))

	require.NoError(t, f.repos.Folders.Delete(ctx, parent.LocalID))

	gotChild, err := f.repos.Folders.Get(ctx, child.LocalID)
	require.NoError(t, err)
	assert.Empty(t, gotChild.ParentID, "child folder moves to the root scope")

	gotNote, err := f.repos.Notes.Get(ctx, note.LocalID)
	require.NoError(t, err)
	assert.Empty(t, gotNote.FolderID, "contained note moves to the root scope")
}

func TestHabitsAndProgress_OwnerOnlyCRUD(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, remote.NewMemoryStore())
	f.signIn(t, "u1", "alice@example.com")

	habit := &models.Habit{Name: "run", Weekdays: []int{1, 3, 5}}
	require.NoError(t, f.repos.Habits.Create(ctx, habit))

	progress := &models.DailyProgress{HabitID: habit.RemoteID, Date: "2025-07-01", Done: true}
	require.NoError(t, f.repos.Progress.Create(ctx, progress))

	session := &models.PomodoroSession{Kind: "work", StartedAt: time.Now().UTC(), Minutes: 25}
	require.NoError(t, f.repos.Pomodoro.Create(ctx, session))

	for _, typ := range []models.Type{models.TypeHabit, models.TypeDailyProgress, models.TypePomodoro} {
		docs, err := f.authority.QueryWhere(ctx, typ.Collection(), "owner_id", "u1")
		require.NoError(t, err)
		assert.Len(t, docs, 1, string(typ))
	}
}
