// Package google holds the on-disk credential store and the OAuth2 plumbing
// for Google APIs.
//
// Two documents live on disk:
//
//   - the application identity (credentials.json), provisioned by the operator
//     in the configuration directory and never written by this program
//   - the session state (token.json), owned by this program and stored in the
//     data directory with owner-only permissions
//
// Directory resolution follows per-platform conventions (XDG on Linux,
// Application Support on macOS, APPDATA/LOCALAPPDATA on Windows) with explicit
// WORKSPACE_MCP_CONFIG_DIR / WORKSPACE_MCP_DATA_DIR overrides.
//
// Reads never fail loudly. A missing file yields LoadNotFound and an unreadable
// or malformed one yields LoadCorrupt, so callers can fall back to
// re-authentication while still telling the two apart.
package google
