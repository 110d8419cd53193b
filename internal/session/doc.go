// Package session owns the delegated-access session of the server: it loads
// the application identity and persisted session through the credential
// store, refreshes expired access silently, runs the interactive browser
// consent flow with a short-lived local callback listener, and hands an
// authorized HTTP client to tool handlers.
//
// Resuming silently (Initialize) and asking the user (Authenticate) are
// separate entry points. Initialize never opens a browser; tool handlers call
// it when the session is not ready and only prompt the user when it fails.
//
// The exported methods of Manager report success as booleans and log the
// details. Only the handle-producing methods (HTTPClient, TokenSource,
// Identity) return errors, and those wrap ErrNotAuthenticated or
// ErrIdentityMissing.
package session
