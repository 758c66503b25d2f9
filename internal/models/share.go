package models

import "time"

// SharePermission is the access level a share grants.
type SharePermission string

const (
	PermissionView SharePermission = "view"
	PermissionEdit SharePermission = "edit"
)

func (p SharePermission) Valid() bool {
	return p == PermissionView || p == PermissionEdit
}

// ShareStatus is the state of an invitation. There is no fourth state:
// revocation deletes the record outright.
type ShareStatus string

const (
	StatusPending  ShareStatus = "pending"
	StatusAccepted ShareStatus = "accepted"
	StatusDeclined ShareStatus = "declined"
)

// ShareSummary is the slice of entity content a pending or declined
// invitation is allowed to expose: just enough to render the invitation.
type ShareSummary struct {
	Title    string     `json:"title"`
	StartsAt *time.Time `json:"startsAt,omitempty"`
	EndsAt   *time.Time `json:"endsAt,omitempty"`
}

// ShareRecord governs one grantee's access to one remotely-existing entity.
// It is created by the entity's owner with status pending, answered exactly
// once by the grantee, and removable by the owner at any time.
type ShareRecord struct {
	EntityType   Type            `json:"entityType"`
	EntityID     string          `json:"entityId"` // remote identifier
	OwnerID      string          `json:"ownerId"`
	OwnerEmail   string          `json:"ownerEmail,omitempty"`
	GranteeEmail string          `json:"granteeEmail"`
	Permission   SharePermission `json:"permission"`
	Status       ShareStatus     `json:"status"`
	Summary      ShareSummary    `json:"summary"`
	CreatedAt    time.Time       `json:"createdAt"`
}
