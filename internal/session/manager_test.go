package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/workspace-mcp/internal/google"
)

func TestNewManagerRequiresStore(t *testing.T) {
	_, err := NewManager(Config{})
	assert.Error(t, err)
}

func TestInitialize(t *testing.T) {
	t.Run("no identity", func(t *testing.T) {
		env := newTestEnv(t)

		assert.False(t, env.manager.Initialize(context.Background()))
		assert.Equal(t, StateIdentityMissing, env.manager.State())
		assert.False(t, env.manager.IsReady())
		assert.Empty(t, env.browser.opened())
		assert.Contains(t, env.manager.SetupInstructions(), env.manager.IdentityPath())

		_, ok := env.manager.AuthURL()
		assert.False(t, ok)
	})

	t.Run("no session", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeIdentity(t, freeRedirect(t))

		assert.False(t, env.manager.Initialize(context.Background()))
		assert.Equal(t, StateNoSession, env.manager.State())
		assert.Equal(t, google.LoadNotFound, env.manager.Status().SessionStatus)
		assert.Empty(t, env.browser.opened())
	})

	t.Run("valid session", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeIdentity(t, freeRedirect(t))
		env.writeSession(t, activeSession(time.Now().Add(time.Hour)))

		assert.True(t, env.manager.Initialize(context.Background()))
		assert.Equal(t, StateSessionActive, env.manager.State())
		assert.True(t, env.manager.IsReady())

		_, refreshes, _ := env.google.counts()
		assert.Zero(t, refreshes)
	})

	t.Run("unknown expiry is not refreshed", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeIdentity(t, freeRedirect(t))
		s := activeSession(time.Now())
		s.ExpiryDate = 0
		env.writeSession(t, s)

		assert.True(t, env.manager.Initialize(context.Background()))
		_, refreshes, _ := env.google.counts()
		assert.Zero(t, refreshes)
	})

	t.Run("corrupt session", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeIdentity(t, freeRedirect(t))
		require.NoError(t, os.MkdirAll(env.store.Paths().DataDir, 0o700))
		require.NoError(t, os.WriteFile(env.store.SessionPath(), []byte("{not json"), 0o600))

		assert.False(t, env.manager.Initialize(context.Background()))
		st := env.manager.Status()
		assert.Equal(t, StateNoSession, st.State)
		assert.Equal(t, google.LoadCorrupt, st.SessionStatus)
	})

	t.Run("corrupt identity", func(t *testing.T) {
		env := newTestEnv(t)
		env.store.EnsureDirectories()
		require.NoError(t, os.WriteFile(env.store.IdentityPath(), []byte(`{"installed":{}}`), 0o600))

		assert.False(t, env.manager.Initialize(context.Background()))
		st := env.manager.Status()
		assert.Equal(t, StateIdentityMissing, st.State)
		assert.Equal(t, google.LoadCorrupt, st.IdentityStatus)
	})
}

func TestInitializeRefreshesExpiredSession(t *testing.T) {
	env := newTestEnv(t)
	env.writeIdentity(t, freeRedirect(t))
	env.writeSession(t, activeSession(time.Now().Add(-10*time.Minute)))

	require.True(t, env.manager.Initialize(context.Background()))
	assert.Equal(t, StateSessionActive, env.manager.State())
	assert.Empty(t, env.browser.opened())

	saved := env.readSession(t)
	assert.Equal(t, "refreshed-1", saved.AccessToken)
	assert.Equal(t, "stored-refresh", saved.RefreshToken)
	assert.Equal(t, "openid email", saved.Scope)
	assert.True(t, saved.Expiry().After(time.Now()))
}

func TestInitializeRefreshFailure(t *testing.T) {
	tests := []struct {
		name    string
		session func() *google.SessionState
		setup   func(*fakeGoogle)
	}{
		{
			name:    "refresh rejected",
			session: func() *google.SessionState { return activeSession(time.Now().Add(-time.Minute)) },
			setup:   func(fg *fakeGoogle) { fg.refreshFails = true },
		},
		{
			name: "no refresh token",
			session: func() *google.SessionState {
				s := activeSession(time.Now().Add(-time.Minute))
				s.RefreshToken = ""
				return s
			},
			setup: func(*fakeGoogle) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			tt.setup(env.google)
			env.writeIdentity(t, freeRedirect(t))
			env.writeSession(t, tt.session())

			assert.False(t, env.manager.Initialize(context.Background()))
			assert.Equal(t, StateNoSession, env.manager.State())
			assert.False(t, env.manager.IsReady())
			assert.Empty(t, env.browser.opened())
		})
	}
}

func TestAuthenticateBrowserFlow(t *testing.T) {
	env := newTestEnv(t)
	env.writeIdentity(t, freeRedirect(t))

	var listener *callbackListener
	env.manager.listenerStarted = func(l *callbackListener) { listener = l }

	statuses := make(chan int, 1)
	env.browser.onOpen = func(authURL string) {
		status, err := redirectBack(authURL, url.Values{"code": {goodCode}})
		if err != nil {
			status = -1
		}
		statuses <- status
	}

	require.True(t, env.manager.Authenticate(context.Background()))
	assert.Equal(t, http.StatusOK, <-statuses)
	assert.True(t, env.manager.IsReady())
	assert.Equal(t, StateSessionActive, env.manager.State())

	opened := env.browser.opened()
	require.Len(t, opened, 1)
	u, err := url.Parse(opened[0])
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Contains(t, q.Get("scope"), "https://www.googleapis.com/auth/drive")
	assert.NotEmpty(t, q.Get("state"))

	saved := env.readSession(t)
	assert.Equal(t, "access-"+goodCode, saved.AccessToken)
	assert.Equal(t, "refresh-1", saved.RefreshToken)

	require.NotNil(t, listener)
	assert.Equal(t, int32(1), listener.closes.Load())
	assert.True(t, portFree(listener.Addr().String()))
	assert.False(t, env.manager.Status().FlowInProgress)
}

func TestAuthenticateUnsuccessfulFlows(t *testing.T) {
	tests := []struct {
		name       string
		query      url.Values
		wantStatus int
	}{
		{"denied", url.Values{"error": {"access_denied"}}, http.StatusForbidden},
		{"state mismatch", url.Values{"state": {"forged"}, "code": {goodCode}}, http.StatusBadRequest},
		{"missing code", url.Values{}, http.StatusBadRequest},
		{"exchange rejected", url.Values{"code": {"bad-code"}}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.writeIdentity(t, freeRedirect(t))

			var listener *callbackListener
			env.manager.listenerStarted = func(l *callbackListener) { listener = l }

			statuses := make(chan int, 1)
			env.browser.onOpen = func(authURL string) {
				status, err := redirectBack(authURL, tt.query)
				if err != nil {
					status = -1
				}
				statuses <- status
			}

			assert.False(t, env.manager.Authenticate(context.Background()))
			assert.Equal(t, tt.wantStatus, <-statuses)
			assert.False(t, env.manager.IsReady())
			assert.Equal(t, StateNoSession, env.manager.State())

			_, err := os.Stat(env.store.SessionPath())
			assert.True(t, os.IsNotExist(err))

			require.NotNil(t, listener)
			assert.Equal(t, int32(1), listener.closes.Load())
			assert.True(t, portFree(listener.Addr().String()))
		})
	}
}

func TestAuthenticateTimeout(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.CallbackTimeout = 100 * time.Millisecond })
	env.writeIdentity(t, freeRedirect(t))

	var listener *callbackListener
	env.manager.listenerStarted = func(l *callbackListener) { listener = l }

	start := time.Now()
	assert.False(t, env.manager.Authenticate(context.Background()))
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, env.browser.opened(), 1)

	require.NotNil(t, listener)
	assert.True(t, portFree(listener.Addr().String()))
	assert.False(t, env.manager.Status().FlowInProgress)
}

func TestAuthenticateCancelledCallerLeavesFlowToTimeout(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.CallbackTimeout = 300 * time.Millisecond })
	env.writeIdentity(t, freeRedirect(t))

	var listener atomic.Pointer[callbackListener]
	env.manager.listenerStarted = func(l *callbackListener) { listener.Store(l) }

	ctx, cancel := context.WithCancel(context.Background())
	env.browser.onOpen = func(string) { cancel() }

	assert.False(t, env.manager.Authenticate(ctx))
	require.Eventually(t, func() bool {
		l := listener.Load()
		return l != nil && l.closes.Load() == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.True(t, portFree(listener.Load().Addr().String()))
	assert.False(t, env.manager.Status().FlowInProgress)
}

func TestAuthenticateOneCallerCancelling(t *testing.T) {
	env := newTestEnv(t)
	env.writeIdentity(t, freeRedirect(t))

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan bool, 1)
	go func() { first <- env.manager.Authenticate(ctx) }()
	require.Eventually(t, func() bool { return len(env.browser.opened()) == 1 }, 5*time.Second, 10*time.Millisecond)

	second := make(chan bool, 1)
	go func() { second <- env.manager.Authenticate(context.Background()) }()

	cancel()
	select {
	case ok := <-first:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	// The listener is still up for the callers that kept waiting.
	status, err := redirectBack(env.browser.opened()[0], url.Values{"code": {goodCode}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	select {
	case ok := <-second:
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("waiting caller did not return")
	}
	assert.True(t, env.manager.IsReady())
	assert.Len(t, env.browser.opened(), 1)
}

func TestAuthenticateConcurrentCallersShareOneFlow(t *testing.T) {
	env := newTestEnv(t)
	env.writeIdentity(t, freeRedirect(t))

	release := make(chan struct{})
	env.browser.onOpen = func(authURL string) {
		<-release
		_, _ = redirectBack(authURL, url.Values{"code": {goodCode}})
	}

	const callers = 3
	results := make([]bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = env.manager.Authenticate(context.Background())
		}(i)
	}

	require.Eventually(t, func() bool { return len(env.browser.opened()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, env.manager.Status().FlowInProgress)
	close(release)
	wg.Wait()

	for i, ok := range results {
		assert.True(t, ok, "caller %d", i)
	}
	assert.Len(t, env.browser.opened(), 1)
	exchanges, _, _ := env.google.counts()
	assert.Equal(t, 1, exchanges)
}

func TestAuthenticateResumesWithoutBrowser(t *testing.T) {
	env := newTestEnv(t)
	env.writeIdentity(t, freeRedirect(t))
	env.writeSession(t, activeSession(time.Now().Add(time.Hour)))

	assert.True(t, env.manager.Authenticate(context.Background()))
	assert.Empty(t, env.browser.opened())
}

func TestAuthenticateWithoutIdentity(t *testing.T) {
	env := newTestEnv(t)

	assert.False(t, env.manager.Authenticate(context.Background()))
	assert.Equal(t, StateIdentityMissing, env.manager.State())
	assert.Empty(t, env.browser.opened())
}

func TestAuthenticatePortInUse(t *testing.T) {
	env := newTestEnv(t)
	redirect := freeRedirect(t)
	env.writeIdentity(t, redirect)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	ln, err := net.Listen("tcp", u.Host)
	require.NoError(t, err)
	defer func() { _ = ln.Close() }()

	assert.False(t, env.manager.Authenticate(context.Background()))
	assert.Empty(t, env.browser.opened())
}

func TestAuthenticateNonLoopbackRedirect(t *testing.T) {
	env := newTestEnv(t)
	env.writeIdentity(t, "https://app.example.com/oauth2callback")

	assert.False(t, env.manager.Authenticate(context.Background()))
	assert.Empty(t, env.browser.opened())

	authURL, ok := env.manager.AuthURL()
	require.True(t, ok)
	assert.Contains(t, authURL, url.QueryEscape("https://app.example.com/oauth2callback"))
}

func TestAuthenticateRecoversFromCorruptSession(t *testing.T) {
	env := newTestEnv(t)
	env.writeIdentity(t, freeRedirect(t))
	require.NoError(t, os.MkdirAll(env.store.Paths().DataDir, 0o700))
	require.NoError(t, os.WriteFile(env.store.SessionPath(), []byte("garbage"), 0o600))

	env.browser.onOpen = func(authURL string) {
		_, _ = redirectBack(authURL, url.Values{"code": {goodCode}})
	}

	require.True(t, env.manager.Authenticate(context.Background()))
	assert.Equal(t, "access-"+goodCode, env.readSession(t).AccessToken)
	assert.Equal(t, google.LoadFound, env.manager.Status().SessionStatus)
}

func TestSetAuthCode(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"bare code", goodCode},
		{"padded code", "  " + goodCode + "\n"},
		{"pasted redirect URL", "http://localhost:3000/oauth2callback?code=" + goodCode + "&scope=openid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.writeIdentity(t, freeRedirect(t))

			require.True(t, env.manager.SetAuthCode(context.Background(), tt.input))
			assert.True(t, env.manager.IsReady())
			assert.Equal(t, StateSessionActive, env.manager.State())
			assert.Equal(t, "access-"+goodCode, env.readSession(t).AccessToken)
			assert.Empty(t, env.browser.opened())
		})
	}
}

func TestSetAuthCodeFailureKeepsPersistedSession(t *testing.T) {
	env := newTestEnv(t)
	env.writeIdentity(t, freeRedirect(t))
	env.writeSession(t, activeSession(time.Now().Add(time.Hour)))
	require.True(t, env.manager.Initialize(context.Background()))

	before, err := os.ReadFile(env.store.SessionPath())
	require.NoError(t, err)

	assert.False(t, env.manager.SetAuthCode(context.Background(), "bad-code"))

	after, err := os.ReadFile(env.store.SessionPath())
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.True(t, env.manager.IsReady())
}

func TestSetAuthCodeRejectsInput(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		env := newTestEnv(t)
		env.writeIdentity(t, freeRedirect(t))
		assert.False(t, env.manager.SetAuthCode(context.Background(), "   "))
		exchanges, _, _ := env.google.counts()
		assert.Zero(t, exchanges)
	})

	t.Run("no identity", func(t *testing.T) {
		env := newTestEnv(t)
		assert.False(t, env.manager.SetAuthCode(context.Background(), goodCode))
		assert.Equal(t, StateIdentityMissing, env.manager.State())
		exchanges, _, _ := env.google.counts()
		assert.Zero(t, exchanges)
	})
}

func TestAuthURL(t *testing.T) {
	env := newTestEnv(t)
	env.writeIdentity(t, "http://localhost/oauth2callback")

	authURL, ok := env.manager.AuthURL()
	require.True(t, ok)
	assert.Equal(t, StateUninitialized, env.manager.State())

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, "http://localhost:3000/oauth2callback", q.Get("redirect_uri"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	_, hasState := q["state"]
	assert.False(t, hasState)
	assert.Empty(t, env.browser.opened())
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	env.google.revokeStatus = http.StatusInternalServerError
	env.writeIdentity(t, freeRedirect(t))
	env.writeSession(t, activeSession(time.Now().Add(time.Hour)))
	require.True(t, env.manager.Initialize(context.Background()))

	env.manager.Logout(context.Background())

	assert.False(t, env.manager.IsReady())
	assert.Equal(t, StateNoSession, env.manager.State())
	_, err := os.Stat(env.store.SessionPath())
	assert.True(t, os.IsNotExist(err))

	_, _, revokes := env.google.counts()
	assert.Equal(t, []string{"stored-refresh"}, revokes)

	_, err = env.manager.TokenSource(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLogoutWithoutSession(t *testing.T) {
	env := newTestEnv(t)
	env.writeIdentity(t, freeRedirect(t))
	env.manager.Initialize(context.Background())

	env.manager.Logout(context.Background())
	env.manager.Logout(context.Background())

	_, _, revokes := env.google.counts()
	assert.Empty(t, revokes)
	assert.Equal(t, StateNoSession, env.manager.State())
}

func TestLogoutRevokesPersistedSessionNotYetLoaded(t *testing.T) {
	env := newTestEnv(t)
	env.writeIdentity(t, freeRedirect(t))
	s := activeSession(time.Now().Add(time.Hour))
	s.RefreshToken = ""
	env.writeSession(t, s)

	env.manager.Logout(context.Background())

	_, _, revokes := env.google.counts()
	assert.Equal(t, []string{"stored-access"}, revokes)
	_, err := os.Stat(env.store.SessionPath())
	assert.True(t, os.IsNotExist(err))
}

func TestTokenSourceErrors(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.manager.TokenSource(context.Background())
	assert.ErrorIs(t, err, ErrIdentityMissing)

	env.writeIdentity(t, freeRedirect(t))
	env.manager.Initialize(context.Background())
	_, err = env.manager.HTTPClient(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestHTTPClientPersistsRefreshedToken(t *testing.T) {
	env := newTestEnv(t)
	env.writeIdentity(t, freeRedirect(t))
	// Inside the oauth2 expiry margin, so the first request refreshes.
	env.writeSession(t, activeSession(time.Now().Add(5*time.Second)))
	require.True(t, env.manager.Initialize(context.Background()))

	client, err := env.manager.HTTPClient(context.Background())
	require.NoError(t, err)

	resp, err := client.Get(env.google.srv.URL + "/api")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "Bearer refreshed-1", string(body))
	saved := env.readSession(t)
	assert.Equal(t, "refreshed-1", saved.AccessToken)
	assert.Equal(t, "stored-refresh", saved.RefreshToken)
	assert.True(t, env.manager.IsReady())
}

func TestHTTPClientRejectedRefreshEndsSession(t *testing.T) {
	env := newTestEnv(t)
	env.google.refreshFails = true
	env.writeIdentity(t, freeRedirect(t))
	env.writeSession(t, activeSession(time.Now().Add(5*time.Second)))
	require.True(t, env.manager.Initialize(context.Background()))

	client, err := env.manager.HTTPClient(context.Background())
	require.NoError(t, err)

	_, err = client.Get(env.google.srv.URL + "/api")
	assert.Error(t, err)
	assert.False(t, env.manager.IsReady())
	assert.Equal(t, StateNoSession, env.manager.State())
}

func TestStaleTokenSourceAfterNewSignIn(t *testing.T) {
	env := newTestEnv(t)
	env.writeIdentity(t, freeRedirect(t))
	env.writeSession(t, activeSession(time.Now().Add(5*time.Second)))
	require.True(t, env.manager.Initialize(context.Background()))

	stale, err := env.manager.TokenSource(context.Background())
	require.NoError(t, err)

	env.manager.Logout(context.Background())
	require.True(t, env.manager.SetAuthCode(context.Background(), goodCode))
	require.Equal(t, "access-"+goodCode, env.readSession(t).AccessToken)

	// The old source still refreshes its own grant, but the result never
	// replaces the session signed in since.
	tok, err := stale.Token()
	require.NoError(t, err)
	assert.Equal(t, "refreshed-1", tok.AccessToken)

	saved := env.readSession(t)
	assert.Equal(t, "access-"+goodCode, saved.AccessToken)
	assert.Equal(t, "refresh-1", saved.RefreshToken)

	current, err := env.manager.TokenSource(context.Background())
	require.NoError(t, err)
	tok, err = current.Token()
	require.NoError(t, err)
	assert.Equal(t, "access-"+goodCode, tok.AccessToken)
}

func TestStaleTokenSourceRejectionKeepsNewSession(t *testing.T) {
	env := newTestEnv(t)
	env.writeIdentity(t, freeRedirect(t))
	env.writeSession(t, activeSession(time.Now().Add(5*time.Second)))
	require.True(t, env.manager.Initialize(context.Background()))

	stale, err := env.manager.TokenSource(context.Background())
	require.NoError(t, err)

	env.manager.Logout(context.Background())
	require.True(t, env.manager.SetAuthCode(context.Background(), goodCode))

	env.google.mu.Lock()
	env.google.refreshFails = true
	env.google.mu.Unlock()

	_, err = stale.Token()
	assert.Error(t, err)
	assert.True(t, env.manager.IsReady())
	assert.Equal(t, StateSessionActive, env.manager.State())
}

func unsignedIDToken(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "RS256", "typ": "JWT"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	enc := base64.RawURLEncoding
	return strings.Join([]string{enc.EncodeToString(header), enc.EncodeToString(payload), enc.EncodeToString([]byte("sig"))}, ".")
}

func TestIdentityFromIDToken(t *testing.T) {
	env := newTestEnv(t)
	env.google.idToken = unsignedIDToken(t, map[string]interface{}{
		"iss":   google.Issuer,
		"aud":   testClientID,
		"sub":   "1234",
		"email": "jane@example.com",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	env.writeIdentity(t, freeRedirect(t))
	require.True(t, env.manager.SetAuthCode(context.Background(), goodCode))

	assert.Nil(t, env.manager.CachedUser())
	user, err := env.manager.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, "1234", user.ID)

	require.NotNil(t, env.manager.CachedUser())
	assert.Equal(t, "jane@example.com", env.manager.CachedUser().Email)
}

func TestIdentityFallsBackToUserInfo(t *testing.T) {
	env := newTestEnv(t)
	env.writeIdentity(t, freeRedirect(t))
	require.True(t, env.manager.SetAuthCode(context.Background(), goodCode))

	user, err := env.manager.Identity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "userinfo@example.com", user.Email)

	env.manager.Logout(context.Background())
	assert.Nil(t, env.manager.CachedUser())
	_, err = env.manager.Identity(context.Background())
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"ABC", "ABC"},
		{" ABC ", "ABC"},
		{"4/0AeaYSH-abc", "4/0AeaYSH-abc"},
		{"http://localhost:3000/oauth2callback?code=XYZ&scope=email", "XYZ"},
		{"http://localhost:3000/oauth2callback?error=access_denied", "http://localhost:3000/oauth2callback?error=access_denied"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, extractCode(tt.input))
		})
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateUninitialized, "uninitialized"},
		{StateIdentityMissing, "identity_missing"},
		{StateIdentityLoaded, "identity_loaded"},
		{StateNoSession, "no_session"},
		{StateSessionExpired, "session_expired"},
		{StateSessionActive, "session_active"},
		{State(99), "State(99)"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}

func TestManagerImplementsTokenProvider(t *testing.T) {
	var _ google.TokenProvider = (*Manager)(nil)
}
