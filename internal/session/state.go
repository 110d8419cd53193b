package session

import "fmt"

// State is the position of the Manager in the session lifecycle.
type State int

const (
	StateUninitialized State = iota
	StateIdentityMissing
	StateIdentityLoaded
	StateNoSession
	StateSessionExpired
	StateSessionActive
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIdentityMissing:
		return "identity_missing"
	case StateIdentityLoaded:
		return "identity_loaded"
	case StateNoSession:
		return "no_session"
	case StateSessionExpired:
		return "session_expired"
	case StateSessionActive:
		return "session_active"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
