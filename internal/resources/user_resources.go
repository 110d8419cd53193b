package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/workspace-mcp/internal/server"
)

const (
	// ProfileURI identifies the signed-in user's profile.
	ProfileURI = "user://profile"

	// SessionURI identifies the session status snapshot.
	SessionURI = "user://session"
)

// RegisterUserResources registers resources describing the signed-in user
// and the state of the Google session.
func RegisterUserResources(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	profileResource := mcp.NewResource(
		ProfileURI,
		"Current User Profile",
		mcp.WithResourceDescription("Information about the currently authenticated Google account"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(profileResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleUserProfile(ctx, request, sc)
	})

	sessionResource := mcp.NewResource(
		SessionURI,
		"Google Session",
		mcp.WithResourceDescription("State of the Google session and the location of its credential files"),
		mcp.WithMIMEType("application/json"),
	)
	s.AddResource(sessionResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleSession(request, sc)
	})

	return nil
}

// handleUserProfile returns the signed-in user, with mailbox counters when
// the Gmail API is reachable.
func handleUserProfile(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	m := sc.Session()
	if !m.IsReady() && !m.Initialize(ctx) {
		return nil, fmt.Errorf("not authenticated with Google; run google_authenticate first")
	}

	user, err := m.Identity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user profile: %w", err)
	}

	profileData := map[string]interface{}{
		"email":         user.Email,
		"verifiedEmail": user.VerifiedEmail,
	}
	if user.Name != "" {
		profileData["name"] = user.Name
	}
	if user.Picture != "" {
		profileData["picture"] = user.Picture
	}

	if client, err := sc.GmailClient(ctx); err == nil {
		if profile, err := client.GetProfile(ctx); err == nil {
			profileData["messagesTotal"] = profile.MessagesTotal
			profileData["threadsTotal"] = profile.ThreadsTotal
		}
	}

	return jsonContents(request.Params.URI, profileData)
}

func handleSession(request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	st := sc.Session().Status()

	data := map[string]interface{}{
		"state":           st.State.String(),
		"ready":           st.Ready,
		"flowInProgress":  st.FlowInProgress,
		"credentialsFile": st.IdentityPath,
		"sessionFile":     st.SessionPath,
	}
	if !st.Expiry.IsZero() {
		data["expiry"] = st.Expiry.Format(time.RFC3339)
	}
	return jsonContents(request.Params.URI, data)
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource data: %w", err)
	}

	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}
