package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/teemow/workspace-mcp/internal/google"
	"github.com/teemow/workspace-mcp/internal/instrumentation"
	"github.com/teemow/workspace-mcp/internal/logging"
)

// TokenSource returns a source for the live session. Refreshed tokens are
// persisted; a refresh rejected by Google ends the session.
func (m *Manager) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.identity == nil {
		return nil, ErrIdentityMissing
	}
	if !m.ready || m.session == nil {
		return nil, ErrNotAuthenticated
	}

	tok := m.session.Token()
	base := m.oauthConfig(m.identity).TokenSource(m.clientContext(context.WithoutCancel(ctx)), tok)
	return &persistingTokenSource{manager: m, src: base, generation: m.generation, last: tok.AccessToken}, nil
}

// HTTPClient returns a client authorized with the live session.
func (m *Manager) HTTPClient(ctx context.Context) (*http.Client, error) {
	ts, err := m.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	var base http.RoundTripper
	if m.httpClient != nil {
		base = m.httpClient.Transport
	}
	return google.NewHTTPClient(ts, base), nil
}

// Identity returns the signed-in user, from the session's id_token when it
// verifies and from the userinfo API otherwise. The result is cached until
// the session ends.
func (m *Manager) Identity(ctx context.Context) (*google.UserInfo, error) {
	m.mu.Lock()
	user, session, identity := m.user, m.session, m.identity
	ready, generation := m.ready, m.generation
	m.mu.Unlock()

	if user != nil {
		return user, nil
	}
	if identity == nil {
		return nil, ErrIdentityMissing
	}
	if !ready || session == nil {
		return nil, ErrNotAuthenticated
	}

	if session.IDToken != "" {
		info, err := m.newVerifier(context.WithoutCancel(ctx), identity.ClientID).Verify(ctx, session.IDToken)
		if err == nil && info.Email != "" {
			return m.cacheUser(generation, info), nil
		}
		m.logger.Debug("Falling back to userinfo API", logging.Err(err))
	}

	client, err := m.HTTPClient(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, m.userInfoOptions...)
	info, err := google.FetchUserInfo(ctx, opts...)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	m.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceOAuth2, instrumentation.OperationUserInfo, status, time.Since(start))
	if err != nil {
		return nil, err
	}
	return m.cacheUser(generation, info), nil
}

// CachedUser returns the identity resolved by a previous Identity call, if any.
// It never blocks on the network.
func (m *Manager) CachedUser() *google.UserInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user
}

func (m *Manager) cacheUser(generation uint64, info *google.UserInfo) *google.UserInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Only cache against the session the lookup was made for.
	if m.session != nil && m.generation == generation {
		m.user = info
	}
	return info
}

// persistRefreshed records a token refreshed by a TokenSource handed out
// for the session of the given generation. Tokens of a session that has
// since been replaced or signed out are dropped.
func (m *Manager) persistRefreshed(ctx context.Context, generation uint64, tok *oauth2.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil || m.generation != generation {
		m.logger.Debug("Dropping token refreshed for a previous session")
		return
	}
	next := m.session.Refreshed(tok)
	if err := m.store.SaveSessionState(next); err != nil {
		m.logger.Error("Failed to persist refreshed session", logging.Err(err))
	}
	m.session = next
	m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
}

// refreshRejected ends the session after Google refused a refresh.
func (m *Manager) refreshRejected(ctx context.Context, generation uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
	if m.session == nil || m.generation != generation {
		return
	}
	m.logger.Warn("Google rejected the session refresh; re-authentication required", logging.Err(err))
	m.clearSessionLocked()
	m.setStateLocked(ctx, StateNoSession)
}

// persistingTokenSource forwards to an oauth2 source and writes every new
// access token back through the manager.
type persistingTokenSource struct {
	manager    *Manager
	src        oauth2.TokenSource
	generation uint64

	mu   sync.Mutex
	last string
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	tok, err := s.src.Token()
	if err != nil {
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) {
			s.manager.refreshRejected(ctx, s.generation, err)
		}
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		s.manager.persistRefreshed(ctx, s.generation, tok)
	}
	return tok, nil
}
