// Package auth_tools provides the MCP tools that manage the Google session.
//
// These tools let an AI assistant drive the sign-in lifecycle:
//   - google_auth_status reports whether a session is ready and where the
//     credential files live
//   - google_authenticate resumes the session or runs the browser consent flow
//   - google_get_auth_url and google_save_auth_code complete sign-in by hand
//     when no browser can be opened on the server's host
//   - google_logout deletes the local session and revokes the grant
//
// The consent flow:
//  1. Place the OAuth client file at the path reported by google_auth_status
//  2. Call google_authenticate; a browser opens on Google's consent screen
//  3. After consent Google redirects to the local callback listener and the
//     session is saved
//
// If the browser cannot reach the listener, call google_get_auth_url, open
// the URL anywhere, and pass the code (or the whole redirect URL) to
// google_save_auth_code.
//
// Once authenticated, the session is refreshed automatically as needed.
package auth_tools
