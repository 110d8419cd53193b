package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthOK           = "ok"
	healthNotReady     = "not ready"
	healthShuttingDown = "shutting down"
)

// HealthChecker serves the liveness and readiness probes of the HTTP
// transport. A missing Google session does not fail readiness: callers fix
// that through the auth tools, which need the endpoint to be up.
type HealthChecker struct {
	sc       *ServerContext
	started  time.Time
	draining atomic.Bool
}

// NewHealthChecker returns a checker reporting on sc. sc may be nil in tests.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	return &HealthChecker{sc: sc, started: time.Now()}
}

// Drain makes readiness fail so that load balancers stop routing before
// the listener closes.
func (h *HealthChecker) Drain() {
	h.draining.Store(true)
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Checks  map[string]string `json:"checks"`
	Session *SessionHealth    `json:"session,omitempty"`
}

// SessionHealth describes the Google session without credentials.
type SessionHealth struct {
	State          string `json:"state"`
	Ready          bool   `json:"ready"`
	FlowInProgress bool   `json:"flow_in_progress"`
	Expiry         string `json:"expiry,omitempty"`
}

// checks evaluates every readiness condition. ok is false when any failed.
func (h *HealthChecker) checks() (checks map[string]string, ok bool) {
	checks = map[string]string{"ready": healthOK, "shutdown": healthOK}
	ok = true
	if h.draining.Load() {
		checks["ready"] = healthNotReady
		ok = false
	}
	if h.sc != nil && h.sc.IsShutdown() {
		checks["shutdown"] = healthShuttingDown
		ok = false
	}
	return checks, ok
}

func (h *HealthChecker) session() *SessionHealth {
	if h.sc == nil || h.sc.Session() == nil {
		return nil
	}
	st := h.sc.Session().Status()
	out := &SessionHealth{
		State:          st.State.String(),
		Ready:          st.Ready,
		FlowInProgress: st.FlowInProgress,
	}
	if !st.Expiry.IsZero() {
		out.Expiry = st.Expiry.UTC().Format(time.RFC3339)
	}
	return out
}

// RegisterHealthEndpoints mounts /healthz, /readyz and /healthz/detailed.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthOK})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		checks, ok := h.checks()
		if !ok {
			writeHealth(w, http.StatusServiceUnavailable, HealthResponse{Status: healthNotReady, Checks: checks})
			return
		}
		writeHealth(w, http.StatusOK, HealthResponse{Status: healthOK, Checks: checks})
	})

	mux.HandleFunc("/healthz/detailed", func(w http.ResponseWriter, _ *http.Request) {
		checks, ok := h.checks()
		resp := DetailedHealthResponse{
			Status:  healthOK,
			Uptime:  time.Since(h.started).Truncate(time.Second).String(),
			Checks:  checks,
			Session: h.session(),
		}
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
			resp.Status = healthNotReady
			if checks["shutdown"] != healthOK {
				resp.Status = healthShuttingDown
			}
		}
		writeHealth(w, status, resp)
	})
}

func writeHealth(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
