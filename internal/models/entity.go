// Package models defines the entity shapes shared by the local cache store,
// the remote authority store and the repositories built on top of them.
//
// Every entity embeds Meta: a device-local identifier, an optional remote
// identifier (absent until the first successful push), the owning identity
// and a last-modified timestamp. The owner is immutable after creation; the
// local store enforces this on update.
package models

import "time"

// Meta is the base every entity embeds.
//
// LocalID is assigned by the local cache store on first insert and is stable
// for the device's lifetime (until a wholesale replace re-creates the rows).
// RemoteID is empty until the entity has been pushed at least once.
type Meta struct {
	LocalID   int64     `json:"-"`
	RemoteID  string    `json:"remoteId,omitempty"`
	OwnerID   string    `json:"ownerId"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Base returns the embedded Meta. Promotion gives every entity type this
// method, which is what the Entity interface is built on.
func (m *Meta) Base() *Meta { return m }

// Entity is satisfied by a pointer to any type embedding Meta.
type Entity interface {
	Base() *Meta
}

// Ptr constrains a type parameter to "pointer to T that is an Entity",
// letting generic stores and repositories allocate and populate values.
type Ptr[T any] interface {
	*T
	Entity
}

// Type identifies one of the fixed entity kinds. The string value doubles as
// the local table name and the remote collection name.
type Type string

const (
	TypeNote          Type = "notes"
	TypeFolder        Type = "folders"
	TypeTag           Type = "tags"
	TypeCalendarEvent Type = "calendar_events"
	TypeTask          Type = "tasks"
	TypeHabit         Type = "habits"
	TypePomodoro      Type = "pomodoro_sessions"
	TypeDailyProgress Type = "daily_progress"
)

// Types lists every entity kind, in the order caches are pulled.
func Types() []Type {
	return []Type{
		TypeNote, TypeFolder, TypeTag, TypeCalendarEvent,
		TypeTask, TypeHabit, TypePomodoro, TypeDailyProgress,
	}
}

// Table is the local sqlite table for this kind.
func (t Type) Table() string { return string(t) }

// Collection is the remote authority collection for this kind.
func (t Type) Collection() string { return string(t) }

// Valid reports whether t names a known entity kind.
func (t Type) Valid() bool {
	for _, k := range Types() {
		if t == k {
			return true
		}
	}
	return false
}
