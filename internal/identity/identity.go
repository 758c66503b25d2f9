// Package identity exposes the current authenticated identity and a stream
// of identity-change events. Sign-in and token issuing live outside this
// program; what arrives here is a signed session token carrying the user id
// and email.
package identity

import "context"

// Identity is the authenticated user as seen by the rest of the system.
type Identity struct {
	ID    string
	Email string
}

// Change describes one identity transition. Old is nil on first sign-in,
// New is nil on sign-out.
type Change struct {
	Old *Identity
	New *Identity
}

// Provider supplies the current identity and change notifications.
//
// Current returns (nil, nil) when nobody is signed in; callers that require
// a session map that to common.ErrNotAuthenticated.
type Provider interface {
	Current(ctx context.Context) (*Identity, error)

	// Subscribe registers a listener. The returned func cancels the
	// subscription and closes the channel.
	Subscribe() (<-chan Change, func())
}
