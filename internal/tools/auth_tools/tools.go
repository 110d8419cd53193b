package auth_tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workspace-mcp/internal/instrumentation"
	"github.com/teemow/workspace-mcp/internal/server"
	"github.com/teemow/workspace-mcp/internal/tools/common"
)

// RegisterAuthTools registers the Google session tools with the MCP server
func RegisterAuthTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	statusTool := mcp.NewTool("google_auth_status",
		mcp.WithDescription("Report whether a Google session is available, who is signed in, and where the OAuth client and session files are stored"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(statusTool, common.InstrumentedToolHandler("google_auth_status", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleAuthStatus(ctx, sc)
		}))

	authenticateTool := mcp.NewTool("google_authenticate",
		mcp.WithDescription("Sign in to Google. Resumes a saved session if possible; otherwise opens the consent screen in a browser on this machine and waits for the user to approve access"),
	)
	s.AddTool(authenticateTool, common.InstrumentedToolHandlerWithService("google_authenticate",
		instrumentation.ServiceOAuth2, instrumentation.OperationExchange, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleAuthenticate(ctx, sc)
		}))

	getAuthURLTool := mcp.NewTool("google_get_auth_url",
		mcp.WithDescription("Get the OAuth URL to authorize Google services access (Gmail, Calendar, Drive) without opening a browser"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(getAuthURLTool, common.InstrumentedToolHandler("google_get_auth_url", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleGetAuthURL(sc)
		}))

	saveAuthCodeTool := mcp.NewTool("google_save_auth_code",
		mcp.WithDescription("Save the OAuth authorization code to complete Google authentication started with google_get_auth_url"),
		mcp.WithString("authCode",
			mcp.Required(),
			mcp.Description("The authorization code from Google OAuth, or the full redirect URL containing it"),
		),
	)
	s.AddTool(saveAuthCodeTool, common.InstrumentedToolHandlerWithService("google_save_auth_code",
		instrumentation.ServiceOAuth2, instrumentation.OperationExchange, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSaveAuthCode(ctx, request, sc)
		}))

	logoutTool := mcp.NewTool("google_logout",
		mcp.WithDescription("Sign out of Google: delete the saved session and revoke the access grant"),
		mcp.WithDestructiveHintAnnotation(true),
	)
	s.AddTool(logoutTool, common.InstrumentedToolHandlerWithService("google_logout",
		instrumentation.ServiceOAuth2, instrumentation.OperationRevoke, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleLogout(ctx, sc)
		}))

	return nil
}

type authStatus struct {
	State             string `json:"state"`
	Ready             bool   `json:"ready"`
	FlowInProgress    bool   `json:"flowInProgress,omitempty"`
	User              string `json:"user,omitempty"`
	Expiry            string `json:"expiry,omitempty"`
	Scopes            string `json:"scopes,omitempty"`
	CredentialsFile   string `json:"credentialsFile"`
	CredentialsStatus string `json:"credentialsStatus"`
	SessionFile       string `json:"sessionFile"`
}

func handleAuthStatus(ctx context.Context, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	m := sc.Session()
	if !m.IsReady() {
		m.Initialize(ctx)
	}

	st := m.Status()
	status := authStatus{
		State:             st.State.String(),
		Ready:             st.Ready,
		FlowInProgress:    st.FlowInProgress,
		Scopes:            st.Scope,
		CredentialsFile:   st.IdentityPath,
		CredentialsStatus: st.IdentityStatus.String(),
		SessionFile:       st.SessionPath,
	}
	if !st.Expiry.IsZero() {
		status.Expiry = st.Expiry.Format(time.RFC3339)
	}
	if st.Ready {
		if user, err := m.Identity(ctx); err == nil {
			status.User = user.Email
		}
	}

	result, _ := json.MarshalIndent(status, "", "  ")
	return mcp.NewToolResultText(string(result)), nil
}

func handleAuthenticate(ctx context.Context, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	m := sc.Session()
	if m.Authenticate(ctx) {
		return mcp.NewToolResultText(signedInMessage(ctx, sc)), nil
	}

	authURL, ok := m.AuthURL()
	if !ok {
		return mcp.NewToolResultError(m.SetupInstructions()), nil
	}
	return mcp.NewToolResultError(fmt.Sprintf(`Authentication failed, try again.

If no browser could be opened on this machine, authorize manually:
1. Visit this URL in your browser:
   %s
2. Sign in and grant access
3. Call google_save_auth_code with the code (or the whole URL you were redirected to)`, authURL)), nil
}

func handleGetAuthURL(sc *server.ServerContext) (*mcp.CallToolResult, error) {
	m := sc.Session()
	authURL, ok := m.AuthURL()
	if !ok {
		return mcp.NewToolResultError(m.SetupInstructions()), nil
	}

	result := fmt.Sprintf(`To authorize Google services access (Gmail, Calendar, Drive):

1. Visit this URL in your browser:
   %s

2. Sign in with your Google account
3. Grant access to Google services
4. Copy the authorization code, or the whole URL you were redirected to

5. Call the google_save_auth_code tool with it to complete authentication`, authURL)

	return mcp.NewToolResultText(result), nil
}

func handleSaveAuthCode(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})

	authCode, ok := args["authCode"].(string)
	if !ok || strings.TrimSpace(authCode) == "" {
		return mcp.NewToolResultError("authCode is required"), nil
	}

	m := sc.Session()
	if !m.SetAuthCode(ctx, authCode) {
		if _, ok := m.AuthURL(); !ok {
			return mcp.NewToolResultError(m.SetupInstructions()), nil
		}
		return mcp.NewToolResultError("Authentication failed, try again. The code may have expired or already been used; " +
			"get a fresh one with google_get_auth_url."), nil
	}

	return mcp.NewToolResultText(signedInMessage(ctx, sc)), nil
}

func handleLogout(ctx context.Context, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sc.Session().Logout(ctx)
	return mcp.NewToolResultText("Signed out of Google. The local session was deleted and the grant revoked."), nil
}

func signedInMessage(ctx context.Context, sc *server.ServerContext) string {
	user, err := sc.Session().Identity(ctx)
	if err != nil || user.Email == "" {
		return "✅ Authentication successful! You can now use the Gmail, Calendar and Drive tools."
	}
	return fmt.Sprintf("✅ Authentication successful! Signed in as %s. You can now use the Gmail, Calendar and Drive tools.", user.Email)
}
