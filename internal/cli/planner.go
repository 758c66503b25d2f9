package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/daybook-app/daybook/internal/models"
)

func (a *App) AddTask(ctx context.Context) error {
	title, err := GetSimpleText(a.reader, "Task", stdout)
	if err != nil {
		return err
	}
	task := &models.Task{Title: title}
	if err := a.repos.Tasks.Create(ctx, task); err != nil {
		fmt.Fprintln(stdout, "Saved locally, push failed:", err)
		return err
	}
	fmt.Fprintf(stdout, "Created task %d\n", task.LocalID)
	return nil
}

func (a *App) ListTasks(ctx context.Context) error {
	tasks, err := a.repos.Tasks.ListMerged(ctx)
	if err != nil {
		fmt.Fprintln(stdout, "Error:", err)
		return err
	}
	for _, t := range tasks {
		state := " "
		if t.Completed {
			state = "x"
		}
		fmt.Fprintf(stdout, "%4d [%s] %-30s %s\n", t.LocalID, state, t.Title, t.RemoteID)
	}
	return nil
}

func (a *App) AddEvent(ctx context.Context) error {
	title, err := GetSimpleText(a.reader, "Event title", stdout)
	if err != nil {
		return err
	}
	startText, err := GetSimpleText(a.reader, "Starts (2006-01-02 15:04)", stdout)
	if err != nil {
		return err
	}
	starts, err := time.Parse("2006-01-02 15:04", startText)
	if err != nil {
		fmt.Fprintln(stdout, "Invalid time:", err)
		return err
	}

	event := &models.CalendarEvent{
		Title:    title,
		StartsAt: starts,
		EndsAt:   starts.Add(time.Hour),
	}
	if err := a.repos.Events.Create(ctx, event); err != nil {
		fmt.Fprintln(stdout, "Saved locally, push failed:", err)
		return err
	}
	fmt.Fprintf(stdout, "Created event %d\n", event.LocalID)
	return nil
}

func (a *App) ListEvents(ctx context.Context) error {
	events, err := a.repos.Events.ListMerged(ctx)
	if err != nil {
		fmt.Fprintln(stdout, "Error:", err)
		return err
	}
	for _, e := range events {
		fmt.Fprintf(stdout, "%4d  %s  %-30s %s\n",
			e.LocalID, e.StartsAt.Format("2006-01-02 15:04"), e.Title, e.RemoteID)
	}
	return nil
}
