package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/teemow/workspace-mcp/internal/google"
)

const (
	testClientID     = "client-id.apps.googleusercontent.com"
	testClientSecret = "client-secret"
	goodCode         = "ABC123"
)

// fakeGoogle serves the token, revoke and userinfo endpoints plus an API
// route that echoes the bearer token it was called with.
type fakeGoogle struct {
	srv *httptest.Server

	mu           sync.Mutex
	exchanges    int
	refreshes    int
	revokes      []string
	revokeStatus int
	refreshFails bool
	idToken      string
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	fg := &fakeGoogle{revokeStatus: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", fg.handleToken)
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		fg.mu.Lock()
		fg.revokes = append(fg.revokes, r.PostForm.Get("token"))
		status := fg.revokeStatus
		fg.mu.Unlock()
		w.WriteHeader(status)
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"7","email":"userinfo@example.com","verified_email":true}`))
	})
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("Authorization")))
	})

	fg.srv = httptest.NewServer(mux)
	t.Cleanup(fg.srv.Close)
	return fg
}

func (fg *fakeGoogle) handleToken(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	fg.mu.Lock()
	defer fg.mu.Unlock()

	writeJSON := func(status int, v map[string]interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	invalidGrant := map[string]interface{}{"error": "invalid_grant", "error_description": "Bad Request"}

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		fg.exchanges++
		code := r.PostForm.Get("code")
		if code != goodCode {
			writeJSON(http.StatusBadRequest, invalidGrant)
			return
		}
		resp := map[string]interface{}{
			"access_token":  "access-" + code,
			"refresh_token": "refresh-1",
			"expires_in":    3600,
			"token_type":    "Bearer",
			"scope":         "openid email",
		}
		if fg.idToken != "" {
			resp["id_token"] = fg.idToken
		}
		writeJSON(http.StatusOK, resp)
	case "refresh_token":
		fg.refreshes++
		if fg.refreshFails {
			writeJSON(http.StatusBadRequest, invalidGrant)
			return
		}
		writeJSON(http.StatusOK, map[string]interface{}{
			"access_token": fmt.Sprintf("refreshed-%d", fg.refreshes),
			"expires_in":   3600,
			"token_type":   "Bearer",
		})
	default:
		writeJSON(http.StatusBadRequest, map[string]interface{}{"error": "unsupported_grant_type"})
	}
}

func (fg *fakeGoogle) counts() (exchanges, refreshes int, revokes []string) {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	return fg.exchanges, fg.refreshes, append([]string(nil), fg.revokes...)
}

// browserRecorder stands in for the system browser.
type browserRecorder struct {
	mu     sync.Mutex
	urls   []string
	onOpen func(authURL string)
}

func (b *browserRecorder) open(authURL string) error {
	b.mu.Lock()
	b.urls = append(b.urls, authURL)
	onOpen := b.onOpen
	b.mu.Unlock()
	if onOpen != nil {
		go onOpen(authURL)
	}
	return nil
}

func (b *browserRecorder) opened() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.urls...)
}

type testEnv struct {
	google  *fakeGoogle
	browser *browserRecorder
	store   *google.CredentialStore
	manager *Manager
}

func newTestEnv(t *testing.T, opts ...func(*Config)) *testEnv {
	t.Helper()
	fg := newFakeGoogle(t)
	root := t.TempDir()
	store := google.NewCredentialStore(google.Paths{
		ConfigDir: filepath.Join(root, "config"),
		DataDir:   filepath.Join(root, "data"),
	}, nil)
	browser := &browserRecorder{}

	cfg := Config{
		Store: store,
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/o/oauth2/auth",
			TokenURL:  fg.srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RevokeURL:       fg.srv.URL + "/revoke",
		CallbackTimeout: 5 * time.Second,
		OpenBrowser:     browser.open,
		HTTPClient:      fg.srv.Client(),
		UserInfoOptions: []option.ClientOption{option.WithEndpoint(fg.srv.URL + "/")},
		IDTokenVerifier: func(_ context.Context, clientID string) *google.IDTokenVerifier {
			return google.NewIDTokenVerifierWithConfig(google.Issuer, &oidc.StaticKeySet{}, &oidc.Config{
				ClientID:                   clientID,
				InsecureSkipSignatureCheck: true,
			})
		},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	m, err := NewManager(cfg)
	require.NoError(t, err)
	return &testEnv{google: fg, browser: browser, store: store, manager: m}
}

// writeIdentity provisions a client secrets file redirecting to redirectURL.
func (e *testEnv) writeIdentity(t *testing.T, redirectURL string) {
	t.Helper()
	e.store.EnsureDirectories()
	doc := map[string]interface{}{
		"installed": map[string]interface{}{
			"client_id":     testClientID,
			"client_secret": testClientSecret,
			"redirect_uris": []string{redirectURL},
		},
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(e.store.IdentityPath(), data, 0o600))
}

func (e *testEnv) writeSession(t *testing.T, s *google.SessionState) {
	t.Helper()
	require.NoError(t, e.store.SaveSessionState(s))
}

func (e *testEnv) readSession(t *testing.T) *google.SessionState {
	t.Helper()
	data, err := os.ReadFile(e.store.SessionPath())
	require.NoError(t, err)
	s, err := google.ParseSessionState(data)
	require.NoError(t, err)
	return s
}

// freeRedirect returns a loopback redirect URI on a port that was free a
// moment ago.
func freeRedirect(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return fmt.Sprintf("http://127.0.0.1:%d/oauth2callback", port)
}

func portFree(addr string) bool {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}

var noKeepAlive = &http.Client{
	Transport: &http.Transport{DisableKeepAlives: true},
	Timeout:   5 * time.Second,
}

// redirectBack plays the authorization server: it sends the browser to the
// redirect URI carried in authURL with the given query, keeping the state
// unless the query overrides it.
func redirectBack(authURL string, query url.Values) (int, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return 0, err
	}
	target, err := url.Parse(u.Query().Get("redirect_uri"))
	if err != nil {
		return 0, err
	}
	q := url.Values{}
	q.Set("state", u.Query().Get("state"))
	for k, v := range query {
		q[k] = v
	}
	target.RawQuery = q.Encode()

	resp, err := noKeepAlive.Get(target.String())
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func activeSession(expiry time.Time) *google.SessionState {
	return &google.SessionState{
		AccessToken:  "stored-access",
		RefreshToken: "stored-refresh",
		ExpiryDate:   expiry.UnixMilli(),
		TokenType:    "Bearer",
		Scope:        "openid email",
	}
}
