package repo

import (
	"context"

	"github.com/daybook-app/daybook/internal/local"
	"github.com/daybook-app/daybook/internal/logging"
	"github.com/daybook-app/daybook/internal/models"
	"github.com/daybook-app/daybook/internal/remote"
	"github.com/daybook-app/daybook/internal/sharing"
	"github.com/daybook-app/daybook/internal/sync"
)

// Repositories is the full per-type API surface handed to presentation
// callers, plus the sync manager that keeps the caches fresh.
type Repositories struct {
	Notes    *NotesRepository
	Folders  *FoldersRepository
	Tags     *Repository[models.Tag, *models.Tag]
	Events   *Repository[models.CalendarEvent, *models.CalendarEvent]
	Tasks    *Repository[models.Task, *models.Task]
	Habits   *Repository[models.Habit, *models.Habit]
	Pomodoro *Repository[models.PomodoroSession, *models.PomodoroSession]
	Progress *Repository[models.DailyProgress, *models.DailyProgress]

	Sync *sync.Manager
}

// New wires every repository against the shared stores. Notes, calendar
// events and tasks participate in sharing; the structural and bookkeeping
// types are owner-only.
func New(store *local.Store, authority remote.Authority, shares *sharing.Service,
	manager *sync.Manager, uploader Uploader, log logging.Logger) *Repositories {

	notes := build[models.Note](store, authority, shares, manager, log, models.TypeNote,
		func(n *models.Note) models.ShareSummary {
			return models.ShareSummary{Title: n.Title}
		})
	folders := build[models.Folder](store, authority, shares, manager, log, models.TypeFolder, nil)
	tags := build[models.Tag](store, authority, shares, manager, log, models.TypeTag, nil)
	events := build[models.CalendarEvent](store, authority, shares, manager, log, models.TypeCalendarEvent,
		func(e *models.CalendarEvent) models.ShareSummary {
			starts, ends := e.StartsAt, e.EndsAt
			return models.ShareSummary{Title: e.Title, StartsAt: &starts, EndsAt: &ends}
		})
	tasks := build[models.Task](store, authority, shares, manager, log, models.TypeTask,
		func(t *models.Task) models.ShareSummary {
			return models.ShareSummary{Title: t.Title, StartsAt: t.DueAt}
		})
	habits := build[models.Habit](store, authority, shares, manager, log, models.TypeHabit, nil)
	pomodoro := build[models.PomodoroSession](store, authority, shares, manager, log, models.TypePomodoro, nil)
	progress := build[models.DailyProgress](store, authority, shares, manager, log, models.TypeDailyProgress, nil)

	return &Repositories{
		Notes:    &NotesRepository{Repository: notes, uploader: uploader},
		Folders:  &FoldersRepository{Repository: folders, notes: notes},
		Tags:     tags,
		Events:   events,
		Tasks:    tasks,
		Habits:   habits,
		Pomodoro: pomodoro,
		Progress: progress,
		Sync:     manager,
	}
}

func build[T any, PT models.Ptr[T]](store *local.Store, authority remote.Authority,
	shares *sharing.Service, manager *sync.Manager, log logging.Logger,
	typ models.Type, summarize SummaryFunc[T, PT]) *Repository[T, PT] {

	table := local.NewTable[T, PT](store, typ)
	coord := sync.NewCoordinator[T, PT](typ, table, authority, log)
	manager.Register(coord)
	return NewRepository[T, PT](typ, table, coord, shares, summarize, log)
}

// Uploader is the blob-store face the notes repository needs for
// attachments.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte) (models.Attachment, error)
	DownloadURL(ctx context.Context, key string) (string, error)
}

// NotesRepository adds attachment handling on top of the generic note CRUD.
type NotesRepository struct {
	*Repository[models.Note, *models.Note]
	uploader Uploader
}

// Attach uploads data to the blob store and records the descriptor on the
// note. The note update follows the usual local-write-then-push path.
func (r *NotesRepository) Attach(ctx context.Context, localID int64, name string, data []byte) (*models.Note, error) {
	if r.uploader == nil {
		return nil, ErrNoBlobStore
	}
	note, err := r.local.Get(ctx, localID)
	if err != nil {
		return nil, err
	}
	att, err := r.uploader.Upload(ctx, name, data)
	if err != nil {
		return nil, err
	}
	note.Attachments = append(note.Attachments, att)
	if err := r.Update(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

// AttachmentURL returns a short-lived download link for an attachment key.
func (r *NotesRepository) AttachmentURL(ctx context.Context, key string) (string, error) {
	if r.uploader == nil {
		return "", ErrNoBlobStore
	}
	return r.uploader.DownloadURL(ctx, key)
}

// FoldersRepository overrides deletion so a removed folder never
// orphan-deletes its contents: child folders and contained notes are
// reparented to the root scope first.
type FoldersRepository struct {
	*Repository[models.Folder, *models.Folder]
	notes *Repository[models.Note, *models.Note]
}

func (r *FoldersRepository) Delete(ctx context.Context, localID int64) error {
	actor, err := r.shares.Actor(ctx)
	if err != nil {
		return err
	}
	folder, err := r.local.Get(ctx, localID)
	if err != nil {
		return err
	}

	// Hierarchy references use remote identifiers; an unpushed folder
	// cannot have been referenced as a parent.
	if folder.RemoteID != "" {
		children, err := r.local.QueryByOwner(ctx, actor.ID)
		if err != nil {
			return err
		}
		for _, child := range children {
			if child.ParentID != folder.RemoteID {
				continue
			}
			child.ParentID = ""
			if err := r.Update(ctx, child); err != nil {
				return err
			}
		}

		notes, err := r.notes.local.QueryByOwner(ctx, actor.ID)
		if err != nil {
			return err
		}
		for _, note := range notes {
			if note.FolderID != folder.RemoteID {
				continue
			}
			note.FolderID = ""
			if err := r.notes.Update(ctx, note); err != nil {
				return err
			}
		}
	}

	return r.Repository.Delete(ctx, localID)
}
