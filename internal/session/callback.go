package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/workspace-mcp/internal/google"
	"github.com/teemow/workspace-mcp/internal/logging"
)

// Outcome is how an interactive consent flow ended.
type Outcome int

const (
	// OutcomeAuthorized means a code was received and exchanged.
	OutcomeAuthorized Outcome = iota + 1
	// OutcomeDenied means the authorization server returned an error, usually access_denied.
	OutcomeDenied
	// OutcomeRejected means the callback lacked a code or carried the wrong state.
	OutcomeRejected
	// OutcomeFailed means the code exchange failed or the handler panicked.
	OutcomeFailed
	// OutcomeTimeout means no callback arrived in time.
	OutcomeTimeout
	// OutcomeCancelled means the caller's context ended first.
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAuthorized:
		return "authorized"
	case OutcomeDenied:
		return "denied"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

const listenerShutdownTimeout = 5 * time.Second

type exchangeFunc func(ctx context.Context, code string) (*oauth2.Token, error)

type flowResult struct {
	outcome Outcome
	token   *oauth2.Token
	err     error
}

// callbackListener is a single-use HTTP server that receives the consent
// redirect. The first request on the callback path claims it; the flow
// result is written exactly once by whichever of the handler, the timer or
// the caller's context gets there first.
type callbackListener struct {
	ctx      context.Context
	path     string
	state    string
	exchange exchangeFunc
	logger   *slog.Logger

	server   *http.Server
	listener net.Listener

	claimed     atomic.Bool
	resolveOnce sync.Once
	done        chan struct{}
	result      flowResult

	closeOnce sync.Once
	closeErr  error
	closes    atomic.Int32
}

// callbackAddress derives the listen address and route from a redirect URI.
// Only loopback http redirects can be served locally.
func callbackAddress(redirectURL string) (addr, path string, err error) {
	u, err := url.Parse(redirectURL)
	if err != nil {
		return "", "", fmt.Errorf("invalid redirect URI %q: %w", redirectURL, err)
	}
	if u.Scheme != "http" || !google.IsLoopbackHost(u.Hostname()) {
		return "", "", fmt.Errorf("redirect URI %q is not a loopback http address", redirectURL)
	}

	port := u.Port()
	if port == "" {
		port = strconv.Itoa(google.DefaultCallbackPort)
	}
	path = u.Path
	if path == "" {
		path = "/"
	}
	return net.JoinHostPort(u.Hostname(), port), path, nil
}

// startCallbackListener binds the redirect address and starts serving.
// The caller must Close the listener.
func startCallbackListener(ctx context.Context, redirectURL, state string, exchange exchangeFunc, logger *slog.Logger) (*callbackListener, error) {
	addr, path, err := callbackAddress(redirectURL)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	l := &callbackListener{
		ctx:      ctx,
		path:     path,
		state:    state,
		exchange: exchange,
		logger:   logger,
		listener: ln,
		done:     make(chan struct{}),
	}
	l.server = &http.Server{
		Handler:           l,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.resolve(flowResult{outcome: OutcomeFailed, err: fmt.Errorf("callback listener stopped: %w", err)})
		}
	}()

	logger.Debug("Callback listener started", slog.String("addr", ln.Addr().String()), logging.Path(path))
	return l, nil
}

// Addr returns the bound address.
func (l *callbackListener) Addr() net.Addr {
	return l.listener.Addr()
}

func (l *callbackListener) resolve(res flowResult) bool {
	won := false
	l.resolveOnce.Do(func() {
		l.result = res
		close(l.done)
		won = true
	})
	return won
}

// wait blocks until the flow resolves, the timeout fires or ctx ends.
func (l *callbackListener) wait(ctx context.Context, timeout time.Duration) flowResult {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-l.done:
	case <-timer.C:
		l.resolve(flowResult{outcome: OutcomeTimeout, err: fmt.Errorf("no callback received within %s", timeout)})
	case <-ctx.Done():
		l.resolve(flowResult{outcome: OutcomeCancelled, err: ctx.Err()})
	}

	<-l.done
	return l.result
}

// Close shuts the server down. Only the first call has an effect.
func (l *callbackListener) Close() error {
	l.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), listenerShutdownTimeout)
		defer cancel()
		l.closeErr = l.server.Shutdown(ctx)
		l.closes.Add(1)
		l.logger.Debug("Callback listener closed")
	})
	return l.closeErr
}

func (l *callbackListener) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != l.path {
		http.NotFound(w, r)
		return
	}
	if !l.claimed.CompareAndSwap(false, true) {
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")

	defer func() {
		if rec := recover(); rec != nil {
			l.logger.Error("Panic while handling OAuth callback", slog.Any("panic", rec))
			l.resolve(flowResult{outcome: OutcomeFailed, err: fmt.Errorf("callback handler panic: %v", rec)})
			writeCallbackPage(w, http.StatusInternalServerError, callbackPageData{
				Title:   "Authentication failed",
				Message: "An internal error occurred. Return to your assistant and try again.",
			})
		}
	}()

	select {
	case <-l.done:
		writeExpiredPage(w)
		return
	default:
	}

	res := l.handle(r)
	if !l.resolve(res) {
		writeExpiredPage(w)
		return
	}

	switch res.outcome {
	case OutcomeAuthorized:
		writeCallbackPage(w, http.StatusOK, callbackPageData{
			Title:   "Authentication successful",
			Message: "You can close this window and return to your assistant.",
			Success: true,
		})
	case OutcomeDenied:
		writeCallbackPage(w, http.StatusForbidden, callbackPageData{
			Title:   "Authentication denied",
			Message: "Access was not granted. Return to your assistant to try again.",
		})
	case OutcomeRejected:
		writeCallbackPage(w, http.StatusBadRequest, callbackPageData{
			Title:   "Authentication failed",
			Message: "The sign-in response was incomplete or did not match this request.",
		})
	default:
		writeCallbackPage(w, http.StatusBadGateway, callbackPageData{
			Title:   "Authentication failed",
			Message: "Google did not accept the authorization code. Return to your assistant and try again.",
		})
	}
}

func (l *callbackListener) handle(r *http.Request) flowResult {
	q := r.URL.Query()

	if e := q.Get("error"); e != "" {
		return flowResult{outcome: OutcomeDenied, err: fmt.Errorf("authorization denied: %s", e)}
	}
	if q.Get("state") != l.state {
		return flowResult{outcome: OutcomeRejected, err: errors.New("callback state does not match")}
	}
	code := q.Get("code")
	if code == "" {
		return flowResult{outcome: OutcomeRejected, err: errors.New("callback carried no authorization code")}
	}

	tok, err := l.exchange(l.ctx, code)
	if err != nil {
		return flowResult{outcome: OutcomeFailed, err: err}
	}
	return flowResult{outcome: OutcomeAuthorized, token: tok}
}

func writeExpiredPage(w http.ResponseWriter) {
	writeCallbackPage(w, http.StatusGone, callbackPageData{
		Title:   "Authentication expired",
		Message: "This sign-in request is no longer active. Return to your assistant and start again.",
	})
}
