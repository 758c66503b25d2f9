package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/daybook-app/daybook/internal/models"
)

func (a *App) AddNote(ctx context.Context) error {
	title, err := GetSimpleText(a.reader, "Title", stdout)
	if err != nil {
		return err
	}
	content, err := GetMultiline(a.reader, "Content", stdout)
	if err != nil {
		return err
	}

	note := &models.Note{Title: title, Content: content}
	if err := a.repos.Notes.Create(ctx, note); err != nil {
		fmt.Fprintln(stdout, "Saved locally, push failed:", err)
		return err
	}
	fmt.Fprintf(stdout, "Created note %d (remote %s)\n", note.LocalID, note.RemoteID)
	return nil
}

func (a *App) ListNotes(ctx context.Context) error {
	notes, err := a.repos.Notes.ListMerged(ctx)
	if err != nil {
		fmt.Fprintln(stdout, "Error:", err)
		return err
	}
	for _, n := range notes {
		marker := ""
		if a.isSharedWithMe(ctx, n.OwnerID) {
			marker = " (shared)"
		}
		fmt.Fprintf(stdout, "%4d  %-30s %s%s\n", n.LocalID, n.Title, n.RemoteID, marker)
	}
	return nil
}

// AttachFile uploads a file from disk as a note attachment.
func (a *App) AttachFile(ctx context.Context) error {
	idText, err := GetSimpleText(a.reader, "Note id", stdout)
	if err != nil {
		return err
	}
	localID, err := strconv.ParseInt(idText, 10, 64)
	if err != nil {
		fmt.Fprintln(stdout, "Invalid id")
		return err
	}
	path, err := GetSimpleText(a.reader, "File path", stdout)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(stdout, "Cannot read file:", err)
		return err
	}

	note, err := a.repos.Notes.Attach(ctx, localID, filepath.Base(path), data)
	if err != nil {
		fmt.Fprintln(stdout, "Attach failed:", err)
		return err
	}
	fmt.Fprintf(stdout, "Attached %s (%d bytes) to note %d\n",
		filepath.Base(path), len(data), note.LocalID)
	return nil
}

func (a *App) isSharedWithMe(ctx context.Context, ownerID string) bool {
	id, err := a.provider.Current(ctx)
	if err != nil || id == nil {
		return false
	}
	return ownerID != id.ID
}
