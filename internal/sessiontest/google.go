package sessiontest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/teemow/workspace-mcp/internal/session"
)

const (
	// GoodCode is the only authorization code FakeGoogle accepts.
	GoodCode = "GOOD-CODE"

	// UserEmail is the address FakeGoogle's userinfo endpoint reports.
	UserEmail = "user@example.com"
)

// FakeGoogle serves the token, revoke and userinfo endpoints.
type FakeGoogle struct {
	Server *httptest.Server

	mu      sync.Mutex
	revoked []string
}

// NewFakeGoogle starts a FakeGoogle closed at the end of the test.
func NewFakeGoogle(t testing.TB) *FakeGoogle {
	t.Helper()
	fg := &FakeGoogle{}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("grant_type") == "authorization_code" && r.PostForm.Get("code") != GoodCode {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "fake-access",
			"refresh_token": "fake-refresh",
			"expires_in":    3600,
			"token_type":    "Bearer",
			"scope":         "openid email",
		})
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		fg.mu.Lock()
		fg.revoked = append(fg.revoked, r.PostForm.Get("token"))
		fg.mu.Unlock()
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":             "42",
			"email":          UserEmail,
			"verified_email": true,
			"name":           "Test User",
		})
	})

	fg.Server = httptest.NewServer(mux)
	t.Cleanup(fg.Server.Close)
	return fg
}

// Revoked returns the tokens revoked so far.
func (fg *FakeGoogle) Revoked() []string {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	return append([]string(nil), fg.revoked...)
}

// Configure points a session manager at fg.
func (fg *FakeGoogle) Configure(cfg *session.Config) {
	cfg.Endpoint = oauth2.Endpoint{
		AuthURL:   "https://accounts.example.com/o/oauth2/auth",
		TokenURL:  fg.Server.URL + "/token",
		AuthStyle: oauth2.AuthStyleInParams,
	}
	cfg.RevokeURL = fg.Server.URL + "/revoke"
	cfg.HTTPClient = fg.Server.Client()
	cfg.UserInfoOptions = []option.ClientOption{option.WithEndpoint(fg.Server.URL + "/")}
}
