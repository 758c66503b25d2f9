// Package common holds error values shared by the client cache, the remote
// authority store, and the layers composed on top of them.
package common

import "errors"

var (
	// ErrNotAuthenticated is returned when an operation requires a signed-in
	// identity and none is present.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrRemoteUnavailable wraps any network, timeout or server-side failure
	// of a remote authority call. The already-applied local write stands;
	// the caller decides what to do with it.
	ErrRemoteUnavailable = errors.New("remote authority unavailable")

	// ErrNotFound is returned when a requested local or remote row is absent.
	ErrNotFound = errors.New("not found")

	// ErrPermissionDenied is returned when the sharing subsystem rejects an
	// actor for an operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrConflict is declared for completeness. The sync model is
	// last-writer-wins without version checks, so nothing produces it:
	// simultaneous-edit divergence surfaces as a silent overwrite.
	ErrConflict = errors.New("conflict")

	// ErrInvalidTransition is returned by the share state machine when a
	// response arrives for a record that is no longer pending.
	ErrInvalidTransition = errors.New("invalid share transition")

	ErrInvalidToken = errors.New("invalid token")
)

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
