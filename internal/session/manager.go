package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/option"

	"github.com/teemow/workspace-mcp/internal/google"
	"github.com/teemow/workspace-mcp/internal/instrumentation"
	"github.com/teemow/workspace-mcp/internal/logging"
)

// DefaultCallbackTimeout bounds how long Authenticate waits for the consent redirect.
const DefaultCallbackTimeout = 5 * time.Minute

// Config configures a Manager. Only Store is required.
type Config struct {
	Store *google.CredentialStore

	// Scopes defaults to google.DefaultOAuthScopes.
	Scopes []string

	// Endpoint and RevokeURL default to Google's.
	Endpoint  oauth2.Endpoint
	RevokeURL string

	// CallbackTimeout defaults to DefaultCallbackTimeout.
	CallbackTimeout time.Duration

	// OpenBrowser defaults to the host's browser. DisableBrowser only logs the URL.
	OpenBrowser    func(url string) error
	DisableBrowser bool

	// HTTPClient is used for token, revoke and userinfo requests.
	HTTPClient *http.Client

	// UserInfoOptions are appended when calling the userinfo API.
	UserInfoOptions []option.ClientOption

	// IDTokenVerifier builds the verifier for the session's id_token.
	// Defaults to verification against Google's published keys.
	IDTokenVerifier func(ctx context.Context, clientID string) *google.IDTokenVerifier

	Logger      *slog.Logger
	Metrics     *instrumentation.Metrics
	AuditLogger *instrumentation.AuditLogger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Status is a snapshot of the Manager for reporting.
type Status struct {
	State          State
	Ready          bool
	FlowInProgress bool
	IdentityStatus google.LoadStatus
	SessionStatus  google.LoadStatus
	IdentityPath   string
	SessionPath    string
	Expiry         time.Time
	Scope          string
}

// Manager is the single owner of the in-memory session. It is safe for
// concurrent use.
type Manager struct {
	store           *google.CredentialStore
	scopes          []string
	endpoint        oauth2.Endpoint
	revokeURL       string
	callbackTimeout time.Duration
	openBrowser     func(string) error
	httpClient      *http.Client
	userInfoOptions []option.ClientOption
	newVerifier     func(ctx context.Context, clientID string) *google.IDTokenVerifier
	logger          *slog.Logger
	metrics         *instrumentation.Metrics
	audit           *instrumentation.AuditLogger
	now             func() time.Time

	mu             sync.Mutex
	state          State
	identity       *google.ApplicationIdentity
	session        *google.SessionState
	// generation changes whenever session is replaced or cleared; refreshes
	// of the same session keep it.
	generation     uint64
	ready          bool
	identityStatus google.LoadStatus
	sessionStatus  google.LoadStatus
	user           *google.UserInfo

	flights    singleflight.Group
	flowActive atomic.Bool

	// listenerStarted is a test hook observing each callback listener.
	listenerStarted func(*callbackListener)
}

// NewManager creates a Manager in StateUninitialized.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, errors.New("credential store is required")
	}

	m := &Manager{
		store:           cfg.Store,
		scopes:          cfg.Scopes,
		endpoint:        cfg.Endpoint,
		revokeURL:       cfg.RevokeURL,
		callbackTimeout: cfg.CallbackTimeout,
		openBrowser:     cfg.OpenBrowser,
		httpClient:      cfg.HTTPClient,
		userInfoOptions: cfg.UserInfoOptions,
		newVerifier:     cfg.IDTokenVerifier,
		logger:          cfg.Logger,
		metrics:         cfg.Metrics,
		audit:           cfg.AuditLogger,
		now:             cfg.Now,
	}
	if len(m.scopes) == 0 {
		m.scopes = google.DefaultOAuthScopes
	}
	if m.revokeURL == "" {
		m.revokeURL = google.RevokeURL
	}
	if m.callbackTimeout <= 0 {
		m.callbackTimeout = DefaultCallbackTimeout
	}
	if m.openBrowser == nil {
		m.openBrowser = OpenBrowser
	}
	if cfg.DisableBrowser {
		m.openBrowser = func(string) error { return errors.New("browser launch disabled") }
	}
	if m.newVerifier == nil {
		m.newVerifier = google.NewIDTokenVerifier
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With(slog.String("component", "session"))
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// Initialize tries to resume a session without user interaction. It loads
// the identity and session from disk and refreshes an expired session once.
// It never opens a browser.
func (m *Manager) Initialize(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initializeLocked(ctx)
}

func (m *Manager) initializeLocked(ctx context.Context) bool {
	m.store.EnsureDirectories()

	identity, status := m.store.LoadApplicationIdentity()
	m.identityStatus = status
	if identity == nil {
		m.identity = nil
		m.clearSessionLocked()
		m.setStateLocked(ctx, StateIdentityMissing)
		m.logger.Warn("Google OAuth client credentials not available",
			logging.Path(m.store.IdentityPath()),
			slog.String(logging.KeyStatus, status.String()))
		return false
	}
	m.identity = identity
	m.setStateLocked(ctx, StateIdentityLoaded)

	session, status := m.store.LoadSessionState()
	m.sessionStatus = status
	if session == nil {
		m.clearSessionLocked()
		m.setStateLocked(ctx, StateNoSession)
		return false
	}

	if session.Expired(m.now()) {
		m.setStateLocked(ctx, StateSessionExpired)
		refreshed, err := m.refresh(ctx, session)
		if err != nil {
			m.logger.Warn("Failed to refresh expired session", logging.Err(err))
			m.clearSessionLocked()
			m.setStateLocked(ctx, StateNoSession)
			return false
		}
		session = refreshed
	}

	m.activateLocked(ctx, session)
	return true
}

// refresh performs one refresh exchange and persists the result.
func (m *Manager) refresh(ctx context.Context, session *google.SessionState) (*google.SessionState, error) {
	if session.RefreshToken == "" {
		m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		return nil, errors.New("session has no refresh token")
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceOAuth2, instrumentation.OperationRefresh)
	defer span.End()

	src := m.oauthConfig(m.identity).TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: session.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		instrumentation.SetSpanError(span, err)
		m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("refresh exchange failed: %w", err)
	}
	m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
	instrumentation.SetSpanSuccess(span)

	next := session.Refreshed(tok)
	if err := m.store.SaveSessionState(next); err != nil {
		m.logger.Error("Failed to persist refreshed session", logging.Err(err))
	}
	m.logger.Info("Session refreshed", slog.Time("expiry", next.Expiry()))
	return next, nil
}

// Authenticate resumes or establishes a session, running the interactive
// consent flow when nothing can be resumed. Concurrent callers share one flow.
func (m *Manager) Authenticate(ctx context.Context) bool {
	ch := m.flights.DoChan("authenticate", func() (interface{}, error) {
		// The flight outlives any single caller; the callback timeout ends it.
		return m.authenticate(context.WithoutCancel(ctx)), nil
	})

	select {
	case res := <-ch:
		ok, _ := res.Val.(bool)
		return ok
	case <-ctx.Done():
		return false
	}
}

func (m *Manager) authenticate(ctx context.Context) bool {
	if m.Initialize(ctx) {
		return true
	}

	m.mu.Lock()
	identity := m.identity
	m.mu.Unlock()
	if identity == nil {
		m.logger.Warn(m.SetupInstructions())
		return false
	}

	ctx, span := instrumentation.StartAuthSpan(ctx, instrumentation.FlowBrowser)
	defer span.End()

	m.flowActive.Store(true)
	defer m.flowActive.Store(false)

	res := m.runConsentFlow(ctx, identity)
	span.SetAttributes(attribute.String(instrumentation.SpanAttrOutcome, res.outcome.String()))
	m.metrics.RecordCallbackOutcome(ctx, res.outcome.String())

	if res.outcome != OutcomeAuthorized {
		instrumentation.SetSpanError(span, res.err)
		m.logger.Warn("Interactive authentication did not complete",
			logging.Outcome(res.outcome.String()), logging.Err(res.err))
		m.recordAuth(ctx, instrumentation.FlowBrowser, outcomeResult(res.outcome), res.err)
		return false
	}

	m.establish(ctx, google.NewSessionState(res.token))
	instrumentation.SetSpanSuccess(span)
	m.recordAuth(ctx, instrumentation.FlowBrowser, instrumentation.OAuthResultSuccess, nil)
	return true
}

// runConsentFlow binds the callback listener, opens the browser and waits.
// The listener is closed before it returns, whatever the outcome.
func (m *Manager) runConsentFlow(ctx context.Context, identity *google.ApplicationIdentity) flowResult {
	state, err := google.GenerateState()
	if err != nil {
		return flowResult{outcome: OutcomeFailed, err: err}
	}

	conf := m.oauthConfig(identity)
	authURL := google.AuthCodeURL(conf, state)

	flowCtx, cancelFlow := context.WithCancel(ctx)
	exchange := func(ctx context.Context, code string) (*oauth2.Token, error) {
		return m.exchange(ctx, conf, code)
	}

	l, err := startCallbackListener(flowCtx, conf.RedirectURL, state, exchange, m.logger)
	if err != nil {
		cancelFlow()
		return flowResult{outcome: OutcomeFailed, err: fmt.Errorf("failed to start callback listener: %w", err)}
	}
	defer func() {
		cancelFlow()
		if err := l.Close(); err != nil {
			m.logger.Warn("Callback listener did not shut down cleanly", logging.Err(err))
		}
	}()
	if m.listenerStarted != nil {
		m.listenerStarted(l)
	}

	if err := m.openBrowser(authURL); err != nil {
		m.logger.Warn("Could not open a browser; open the authorization URL manually",
			slog.String("url", authURL), logging.Err(err))
	} else {
		m.logger.Info("Opened browser for Google authorization", slog.String("url", authURL))
	}

	return l.wait(flowCtx, m.callbackTimeout)
}

// SetAuthCode exchanges a code obtained out of band, for example from the
// URL returned by AuthURL. A full redirect URL containing ?code= is accepted.
// On failure the persisted session is left untouched.
func (m *Manager) SetAuthCode(ctx context.Context, code string) bool {
	code = extractCode(code)
	if code == "" {
		m.logger.Warn("Empty authorization code")
		return false
	}

	ctx, span := instrumentation.StartAuthSpan(ctx, instrumentation.FlowCode)
	defer span.End()

	m.mu.Lock()
	if m.identity == nil {
		identity, status := m.store.LoadApplicationIdentity()
		m.identityStatus = status
		if identity == nil {
			m.setStateLocked(ctx, StateIdentityMissing)
			m.mu.Unlock()
			m.logger.Warn(m.SetupInstructions())
			m.recordAuth(ctx, instrumentation.FlowCode, instrumentation.OAuthResultFailure, ErrIdentityMissing)
			return false
		}
		m.identity = identity
		m.setStateLocked(ctx, StateIdentityLoaded)
	}
	conf := m.oauthConfig(m.identity)
	m.mu.Unlock()

	tok, err := m.exchange(ctx, conf, code)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		m.logger.Warn("Authorization code exchange failed", logging.Err(err))
		m.recordAuth(ctx, instrumentation.FlowCode, instrumentation.OAuthResultFailure, err)
		return false
	}

	m.establish(ctx, google.NewSessionState(tok))
	instrumentation.SetSpanSuccess(span)
	m.recordAuth(ctx, instrumentation.FlowCode, instrumentation.OAuthResultSuccess, nil)
	return true
}

// IsReady reports whether a validated session is held in memory.
func (m *Manager) IsReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready && m.session != nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns a snapshot for status reporting.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{
		State:          m.state,
		Ready:          m.ready && m.session != nil,
		FlowInProgress: m.flowActive.Load(),
		IdentityStatus: m.identityStatus,
		SessionStatus:  m.sessionStatus,
		IdentityPath:   m.store.IdentityPath(),
		SessionPath:    m.store.SessionPath(),
	}
	if m.session != nil {
		st.Expiry = m.session.Expiry()
		st.Scope = m.session.Scope
	}
	return st
}

// Logout deletes the persisted session, clears memory and revokes the grant
// with Google. Revocation is best effort; local state is cleared regardless.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	session := m.session
	if session == nil {
		session, _ = m.store.LoadSessionState()
	}
	if err := m.store.DeleteSessionState(); err != nil {
		m.logger.Error("Failed to delete session state", logging.Err(err))
	}
	m.clearSessionLocked()
	m.sessionStatus = google.LoadNotFound
	if m.identity != nil {
		m.setStateLocked(ctx, StateNoSession)
	}
	m.mu.Unlock()

	m.audit.Auth(ctx, instrumentation.AuthEvent{Flow: instrumentation.FlowLogout, Outcome: "signed_out"})
	if session == nil {
		return
	}

	token := session.RefreshToken
	if token == "" {
		token = session.AccessToken
	}

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceOAuth2, instrumentation.OperationRevoke)
	defer span.End()
	start := time.Now()
	err := google.RevokeToken(ctx, m.httpClient, m.revokeURL, token)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		m.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceOAuth2, instrumentation.OperationRevoke, instrumentation.StatusError, time.Since(start))
		m.logger.Warn("Failed to revoke Google grant", logging.Err(err))
		return
	}
	m.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceOAuth2, instrumentation.OperationRevoke, instrumentation.StatusSuccess, time.Since(start))
	m.logger.Info("Google grant revoked")
}

// AuthURL returns the consent URL a user can open manually, or false when no
// application identity is available. It changes no state.
func (m *Manager) AuthURL() (string, bool) {
	m.mu.Lock()
	identity := m.identity
	m.mu.Unlock()

	if identity == nil {
		identity, _ = m.store.LoadApplicationIdentity()
	}
	if identity == nil {
		return "", false
	}
	return google.AuthCodeURL(m.oauthConfig(identity), ""), true
}

// IdentityPath returns where the OAuth client file must be placed.
func (m *Manager) IdentityPath() string {
	return m.store.IdentityPath()
}

// SessionPath returns where the session is persisted.
func (m *Manager) SessionPath() string {
	return m.store.SessionPath()
}

// SetupInstructions tells the operator how to provision the OAuth client.
func (m *Manager) SetupInstructions() string {
	return fmt.Sprintf("Google OAuth client credentials not found. Create an OAuth client ID "+
		"(application type \"Desktop app\") in the Google Cloud Console, download its JSON "+
		"and save it as %s.", m.store.IdentityPath())
}

func (m *Manager) exchange(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	start := time.Now()
	tok, err := conf.Exchange(m.clientContext(ctx), code)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	m.metrics.RecordGoogleAPIOperation(ctx, instrumentation.ServiceOAuth2, instrumentation.OperationExchange, status, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}
	return tok, nil
}

// establish persists a freshly obtained session and activates it.
func (m *Manager) establish(ctx context.Context, session *google.SessionState) {
	if err := m.store.SaveSessionState(session); err != nil {
		m.logger.Error("Failed to persist session; it will not survive a restart", logging.Err(err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionStatus = google.LoadFound
	m.activateLocked(ctx, session)
	m.logger.Info("Authenticated with Google", logging.State(m.state.String()))
}

func (m *Manager) activateLocked(ctx context.Context, session *google.SessionState) {
	m.session = session
	m.generation++
	m.ready = true
	m.user = nil
	m.setStateLocked(ctx, StateSessionActive)
}

func (m *Manager) clearSessionLocked() {
	m.session = nil
	m.generation++
	m.ready = false
	m.user = nil
}

func (m *Manager) setStateLocked(ctx context.Context, s State) {
	if m.state == s {
		return
	}
	m.logger.Debug("Session state changed",
		slog.String("from", m.state.String()),
		logging.State(s.String()))
	m.state = s
	m.metrics.RecordSessionTransition(ctx, s.String())
}

func (m *Manager) oauthConfig(identity *google.ApplicationIdentity) *oauth2.Config {
	return google.NewOAuthConfig(identity, m.scopes, m.endpoint)
}

func (m *Manager) clientContext(ctx context.Context) context.Context {
	if m.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

func (m *Manager) recordAuth(ctx context.Context, flow, result string, err error) {
	m.metrics.RecordOAuthAuth(ctx, flow, result)

	m.audit.Auth(ctx, instrumentation.AuthEvent{Flow: flow, Outcome: result, Err: err})
}

func outcomeResult(o Outcome) string {
	switch o {
	case OutcomeAuthorized:
		return instrumentation.OAuthResultSuccess
	case OutcomeDenied:
		return instrumentation.OAuthResultDenied
	case OutcomeRejected:
		return instrumentation.OAuthResultRejected
	case OutcomeTimeout:
		return instrumentation.OAuthResultTimeout
	default:
		return instrumentation.OAuthResultFailure
	}
}

// extractCode accepts a bare code or a pasted redirect URL carrying one.
func extractCode(input string) string {
	input = strings.TrimSpace(input)
	if !strings.Contains(input, "code=") {
		return input
	}
	u, err := url.Parse(input)
	if err != nil {
		return input
	}
	if code := u.Query().Get("code"); code != "" {
		return code
	}
	return input
}
