package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultRateLimitCleanup is how often idle per-client limiters are dropped.
const DefaultRateLimitCleanup = 10 * time.Minute

// RateLimiter limits requests per client address. Forwarding headers are
// ignored: the MCP endpoint is not meant to sit behind a proxy.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	visitors map[string]*rate.Limiter
	stop     chan struct{}
	once     sync.Once
}

// NewRateLimiter allows rps requests per second per client with the given
// burst. Close stops the cleanup loop.
func NewRateLimiter(rps float64, burst int, cleanup time.Duration) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	if cleanup <= 0 {
		cleanup = DefaultRateLimitCleanup
	}
	rl := &RateLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		visitors: make(map[string]*rate.Limiter),
		stop:     make(chan struct{}),
	}
	go rl.cleanupLoop(cleanup)
	return rl
}

// Allow reports whether a request from client may proceed now.
func (rl *RateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	limiter, ok := rl.visitors[client]
	if !ok {
		limiter = rate.NewLimiter(rl.limit, rl.burst)
		rl.visitors[client] = limiter
	}
	rl.mu.Unlock()
	return limiter.Allow()
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(clientAddr(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Close stops the cleanup loop.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) cleanupLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			rl.visitors = make(map[string]*rate.Limiter)
			rl.mu.Unlock()
		}
	}
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
