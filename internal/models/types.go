package models

import "time"

// TagRef is a denormalized copy of a tag embedded in a referencing entity.
// Renaming or recoloring the tag does not rewrite copies already saved;
// references reflect the tag as it looked when attached.
type TagRef struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// Attachment describes a blob uploaded to object storage. Only the
// descriptor lives in the note; the bytes are fetched via presigned URLs.
type Attachment struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Note is a piece of free-form content, optionally filed into a folder.
// FolderID references the folder's remote identifier; empty means the root
// scope.
type Note struct {
	Meta
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	FolderID    string       `json:"folderId,omitempty"`
	Pinned      bool         `json:"pinned,omitempty"`
	Tags        []TagRef     `json:"tags,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Folder groups notes. Hierarchy is a nullable parent reference by remote
// identifier; empty ParentID means the root scope. Deleting a folder never
// cascades: children and contained notes are reparented to the root.
type Folder struct {
	Meta
	Name     string `json:"name"`
	ParentID string `json:"parentId,omitempty"`
}

// Tag is an owned, named, colored label. Entities reference tags via
// embedded TagRef copies, not foreign keys.
type Tag struct {
	Meta
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// CalendarEvent is a scheduled item with a time range.
type CalendarEvent struct {
	Meta
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	StartsAt    time.Time `json:"startsAt"`
	EndsAt      time.Time `json:"endsAt"`
	AllDay      bool      `json:"allDay,omitempty"`
	Tags        []TagRef  `json:"tags,omitempty"`
}

// Task is a to-do item.
type Task struct {
	Meta
	Title       string     `json:"title"`
	Notes       string     `json:"notes,omitempty"`
	DueAt       *time.Time `json:"dueAt,omitempty"`
	Priority    int        `json:"priority,omitempty"`
	Completed   bool       `json:"completed,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Tags        []TagRef   `json:"tags,omitempty"`
}

// Habit is a recurring practice tracked via DailyProgress rows.
// Weekdays holds time.Weekday values (0 = Sunday) on which the habit is due.
type Habit struct {
	Meta
	Name     string `json:"name"`
	Color    string `json:"color,omitempty"`
	Weekdays []int  `json:"weekdays,omitempty"`
	Archived bool   `json:"archived,omitempty"`
}

// PomodoroSession records one focus or break interval, optionally linked to
// a task by its remote identifier.
type PomodoroSession struct {
	Meta
	TaskID    string    `json:"taskId,omitempty"`
	Kind      string    `json:"kind"` // "work" or "break"
	StartedAt time.Time `json:"startedAt"`
	Minutes   int       `json:"minutes"`
}

// DailyProgress marks a habit done (or not) on a calendar day.
// Date is formatted as "2006-01-02".
type DailyProgress struct {
	Meta
	HabitID string `json:"habitId"`
	Date    string `json:"date"`
	Done    bool   `json:"done"`
}
