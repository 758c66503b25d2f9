package sync

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybook-app/daybook/internal/common"
	"github.com/daybook-app/daybook/internal/local"
	"github.com/daybook-app/daybook/internal/logging"
	"github.com/daybook-app/daybook/internal/models"
	"github.com/daybook-app/daybook/internal/remote"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	})))
}

func newFixture(t *testing.T) (*local.Table[models.Note, *models.Note], *remote.MemoryStore, *Coordinator[models.Note, *models.Note]) {
	t.Helper()
	store, err := local.Open(context.Background(), filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	table := local.NewTable[models.Note, *models.Note](store, models.TypeNote)
	authority := remote.NewMemoryStore()
	coord := NewCoordinator[models.Note, *models.Note](models.TypeNote, table, authority, testLogger())
	return table, authority, coord
}

func note(owner, title string) *models.Note {
	n := &models.Note{Title: title, Content: "content"}
	n.OwnerID = owner
	n.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	return n
}

func TestPush_FirstPushBackfillsRemoteID(t *testing.T) {
	ctx := context.Background()
	table, authority, coord := newFixture(t)

	n := note("u1", "hello")
	require.NoError(t, table.Put(ctx, n))
	require.NoError(t, coord.Push(ctx, n))

	assert.NotEmpty(t, n.RemoteID)
	assert.Equal(t, 1, authority.Creates)

	cached, err := table.Get(ctx, n.LocalID)
	require.NoError(t, err)
	assert.Equal(t, n.RemoteID, cached.RemoteID, "remote id must be recorded in the cache row")
}

func TestPush_SecondPushUpdatesInsteadOfDuplicating(t *testing.T) {
	ctx := context.Background()
	table, authority, coord := newFixture(t)

	n := note("u1", "v1")
	require.NoError(t, table.Put(ctx, n))
	require.NoError(t, coord.Push(ctx, n))

	n.Title = "v2"
	require.NoError(t, table.Put(ctx, n))
	require.NoError(t, coord.Push(ctx, n))

	assert.Equal(t, 1, authority.Creates, "second push must be an update")

	docs, err := authority.QueryWhere(ctx, "notes", "owner_id", "u1")
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestPush_FailureLeavesOptimisticLocalWrite(t *testing.T) {
	ctx := context.Background()
	table, authority, coord := newFixture(t)

	n := note("u1", "offline")
	require.NoError(t, table.Put(ctx, n))

	authority.SetOffline(true)
	err := coord.Push(ctx, n)
	require.ErrorIs(t, err, common.ErrRemoteUnavailable)

	cached, err := table.Get(ctx, n.LocalID)
	require.NoError(t, err)
	assert.Equal(t, "offline", cached.Title, "local write survives a failed push")
	assert.Empty(t, cached.RemoteID)
}

func TestPullPush_RoundTripPreservesContent(t *testing.T) {
	ctx := context.Background()
	table, _, coord := newFixture(t)

	n := note("u1", "full")
	n.FolderID = "f-1"
	n.Pinned = true
	n.Tags = []models.TagRef{{Name: "work", Color: "#ff0000"}}
	require.NoError(t, table.Put(ctx, n))
	require.NoError(t, coord.Push(ctx, n))

	require.NoError(t, coord.Pull(ctx, "u1"))

	cached, err := table.QueryByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cached, 1)

	got := cached[0]
	// Local ids are re-minted by the replace; compare content only.
	want := *n
	want.LocalID = got.LocalID
	if diff := cmp.Diff(&want, got); diff != "" {
		t.Fatalf("pulled note differs (-want +got):\n%s", diff)
	}
}

func TestPull_DiscardsUnpushedLocalRows(t *testing.T) {
	ctx := context.Background()
	table, _, coord := newFixture(t)

	pushed := note("u1", "pushed")
	require.NoError(t, table.Put(ctx, pushed))
	require.NoError(t, coord.Push(ctx, pushed))

	unpushed := note("u1", "never pushed")
	require.NoError(t, table.Put(ctx, unpushed))

	require.NoError(t, coord.Pull(ctx, "u1"))

	cached, err := table.QueryByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, "pushed", cached[0].Title)
}

func TestPull_RemoteErrorKeepsCacheIntact(t *testing.T) {
	ctx := context.Background()
	table, authority, coord := newFixture(t)

	n := note("u1", "kept")
	require.NoError(t, table.Put(ctx, n))

	authority.SetOffline(true)
	err := coord.Pull(ctx, "u1")
	require.ErrorIs(t, err, common.ErrRemoteUnavailable)

	cached, err := table.QueryByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cached, 1, "failed pull must not touch the cache")
}

func TestDelete_NoRemoteIDIsNoOp(t *testing.T) {
	ctx := context.Background()
	_, authority, coord := newFixture(t)

	authority.SetOffline(true) // would fail if any call were made
	require.NoError(t, coord.Delete(ctx, note("u1", "local only")))
}

func TestDelete_RemoteFailurePropagates(t *testing.T) {
	ctx := context.Background()
	table, authority, coord := newFixture(t)

	n := note("u1", "doomed")
	require.NoError(t, table.Put(ctx, n))
	require.NoError(t, coord.Push(ctx, n))

	authority.SetOffline(true)
	err := coord.Delete(ctx, n)
	require.ErrorIs(t, err, common.ErrRemoteUnavailable)

	authority.SetOffline(false)
	docs, err := authority.QueryWhere(ctx, "notes", "owner_id", "u1")
	require.NoError(t, err)
	assert.Len(t, docs, 1, "remote document survives the failed delete")
}

func TestFetchByRemoteIDs(t *testing.T) {
	ctx := context.Background()
	table, _, coord := newFixture(t)

	a := note("u1", "a")
	b := note("u1", "b")
	require.NoError(t, table.Put(ctx, a))
	require.NoError(t, coord.Push(ctx, a))
	require.NoError(t, table.Put(ctx, b))
	require.NoError(t, coord.Push(ctx, b))

	got, err := coord.FetchByRemoteIDs(ctx, []string{a.RemoteID})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Title)
	assert.Zero(t, got[0].LocalID, "fetched entities carry no local id")

	none, err := coord.FetchByRemoteIDs(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestClear_DropsOwnerRowsOnly(t *testing.T) {
	ctx := context.Background()
	table, _, coord := newFixture(t)

	require.NoError(t, table.Put(ctx, note("u1", "mine")))
	require.NoError(t, table.Put(ctx, note("u2", "other")))

	require.NoError(t, coord.Clear(ctx, "u1"))

	mine, err := table.QueryByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, mine)

	other, err := table.QueryByOwner(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}
