package common

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/workspace-mcp/internal/server"
	"github.com/teemow/workspace-mcp/internal/session"
)

// RequireSession gates a tool on a live Google session. When the session
// is not ready it attempts a silent resume; it never opens a browser.
// A nil result means the caller may proceed; otherwise the result is the
// message to return to the client.
func RequireSession(ctx context.Context, sc *server.ServerContext) *mcp.CallToolResult {
	m := sc.Session()
	if m.IsReady() || m.Initialize(ctx) {
		return nil
	}
	return mcp.NewToolResultError(NotAuthenticatedMessage(m))
}

// NotAuthenticatedMessage is the fixed text shown when a tool needs a
// session that is not available.
func NotAuthenticatedMessage(m *session.Manager) string {
	if m.State() == session.StateIdentityMissing {
		return m.SetupInstructions()
	}
	return fmt.Sprintf("Not authenticated with Google. Please run the google_authenticate tool "+
		"(or `workspace-mcp auth login`) and try again. OAuth client file: %s", m.IdentityPath())
}
