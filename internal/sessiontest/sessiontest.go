// Package sessiontest builds session managers over temporary credential
// stores for tests of packages that consume a Google session.
package sessiontest

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teemow/workspace-mcp/internal/google"
	"github.com/teemow/workspace-mcp/internal/session"
)

// AccessToken is the access token of sessions written by WriteSession.
const AccessToken = "test-access-token"

// Env is a session manager backed by a store under t.TempDir.
type Env struct {
	Store   *google.CredentialStore
	Manager *session.Manager
}

// New creates an Env. The browser is disabled; opts may adjust the rest.
func New(t testing.TB, opts ...func(*session.Config)) *Env {
	t.Helper()
	root := t.TempDir()
	store := google.NewCredentialStore(google.Paths{
		ConfigDir: filepath.Join(root, "config"),
		DataDir:   filepath.Join(root, "data"),
	}, nil)

	cfg := session.Config{
		Store:          store,
		DisableBrowser: true,
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m, err := session.NewManager(cfg)
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	return &Env{Store: store, Manager: m}
}

// WriteIdentity provisions an installed-app client file.
func (e *Env) WriteIdentity(t testing.TB) {
	t.Helper()
	e.Store.EnsureDirectories()
	data, err := json.Marshal(map[string]interface{}{
		"installed": map[string]interface{}{
			"client_id":     "test-client.apps.googleusercontent.com",
			"client_secret": "test-secret",
			"redirect_uris": []string{"http://localhost"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(e.Store.IdentityPath(), data, 0o600); err != nil {
		t.Fatalf("failed to write identity: %v", err)
	}
}

// WriteSession persists a session expiring at expiry.
func (e *Env) WriteSession(t testing.TB, expiry time.Time) {
	t.Helper()
	err := e.Store.SaveSessionState(&google.SessionState{
		AccessToken:  AccessToken,
		RefreshToken: "test-refresh-token",
		ExpiryDate:   expiry.UnixMilli(),
		TokenType:    "Bearer",
		Scope:        "openid email",
	})
	if err != nil {
		t.Fatalf("failed to write session: %v", err)
	}
}

// SignIn provisions an identity and an unexpired session and resumes it.
func (e *Env) SignIn(t testing.TB) {
	t.Helper()
	e.WriteIdentity(t)
	e.WriteSession(t, time.Now().Add(time.Hour))
	if !e.Manager.Initialize(context.Background()) {
		t.Fatal("session did not resume")
	}
}
