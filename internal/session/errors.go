package session

import "errors"

var (
	// ErrNotAuthenticated is returned when no usable session is held.
	ErrNotAuthenticated = errors.New("not authenticated with Google")

	// ErrIdentityMissing is returned when the OAuth client file is absent or unusable.
	ErrIdentityMissing = errors.New("google OAuth client credentials not configured")
)
