// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeranaias/locktower/internal/audit"
	"github.com/jeranaias/locktower/internal/config"
	"github.com/jeranaias/locktower/internal/locks"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// MaxRequestBodySize is the maximum size for a request body.
	// Lock requests carry a resource name and a session id, nothing more.
	MaxRequestBodySize = 64 * 1024

	// MaxResourceLength is the maximum length for a resource name.
	MaxResourceLength = 512

	// MaxSessionLength is the maximum length for a session identifier.
	MaxSessionLength = 256

	// statusRecentLines is how many audit lines ride along on /v1/status.
	// Full history lives on /v1/audit.
	statusRecentLines = 10

	// Version is the server version.
	Version = "0.3.0"
)

// ============================================================================
// SERVER
// ============================================================================

// Server is the locktower HTTP API server.
type Server struct {
	cfg    *config.Config
	router *http.ServeMux
	server *http.Server

	mgr *locks.Manager
	rec *audit.Recorder
	hub *eventHub

	store   *audit.Store
	metrics http.Handler

	started time.Time

	mu sync.RWMutex
}

// New creates a Server around a lock manager and its audit recorder.
// A nil config falls back to defaults.
func New(cfg *config.Config, mgr *locks.Manager, rec *audit.Recorder) *Server {
	if cfg == nil {
		cfg = config.Default()
	}

	if rec == nil {
		rec = audit.NewRecorder(nil, nil)
	}

	s := &Server{
		cfg:     cfg,
		router:  http.NewServeMux(),
		mgr:     mgr,
		rec:     rec,
		hub:     newEventHub(),
		started: time.Now(),
	}

	// Every audit entry fans out to the live event stream.
	rec.Notify(func(line string) {
		s.hub.publish(line)
	})

	s.setupRoutes()
	return s
}

// WithStore attaches the durable audit store so /v1/audit can serve
// history older than the in-memory ring.
func (s *Server) WithStore(store *audit.Store) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store = store
	return s
}

// WithRegistry enables the /metrics endpoint for the given registry.
func (s *Server) WithRegistry(reg *prometheus.Registry) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return s
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.cfg.Server.Addr
}

// ============================================================================
// ROUTES
// ============================================================================

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Lock operations
	s.router.HandleFunc("POST /v1/locks/acquire", s.handleAcquire)
	s.router.HandleFunc("POST /v1/locks/release", s.handleRelease)
	s.router.HandleFunc("POST /v1/simulate/read", s.handleSimulate(locks.ModeRead))
	s.router.HandleFunc("POST /v1/simulate/write", s.handleSimulate(locks.ModeWrite))
	s.router.HandleFunc("POST /v1/unlock", s.handleUnlock)
	s.router.HandleFunc("POST /v1/clear", s.handleClear)

	// Inspection endpoints
	s.router.HandleFunc("GET /v1/status", s.handleStatus)
	s.router.HandleFunc("GET /v1/queue", s.handleQueue)
	s.router.HandleFunc("GET /v1/audit", s.handleAudit)

	// Live event streams
	s.router.HandleFunc("GET /v1/events", s.handleEvents)
	s.router.HandleFunc("GET /v1/events/ws", s.handleEventsWS)

	// Health and metrics endpoints
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /metrics", s.handleMetrics)
}

// ============================================================================
// REQUEST / RESPONSE TYPES
// ============================================================================

// AcquireRequest asks for a lock on a resource.
type AcquireRequest struct {
	Resource string `json:"resource"`
	Session  string `json:"session,omitempty"`
	Mode     string `json:"mode"`
}

// AcquireResponse reports a granted lock.
type AcquireResponse struct {
	Resource string `json:"resource"`
	Session  string `json:"session"`
	Mode     string `json:"mode"`
	Granted  bool   `json:"granted"`
	WaitedMS int64  `json:"waited_ms"`
}

// ReleaseRequest gives up a session's lock on a resource.
type ReleaseRequest struct {
	Resource string `json:"resource"`
	Session  string `json:"session,omitempty"`
}

// ReleaseResponse reports the release outcome.
type ReleaseResponse struct {
	Resource string `json:"resource"`
	Session  string `json:"session"`
	Released bool   `json:"released"`
}

// SimulateRequest spawns a synthetic holder for a resource.
type SimulateRequest struct {
	Resource string `json:"resource"`
	HoldMS   int    `json:"hold_ms,omitempty"`
}

// SimulateResponse reports the synthetic session that was started.
type SimulateResponse struct {
	Resource string `json:"resource"`
	Session  string `json:"session"`
	Mode     string `json:"mode"`
	HoldMS   int    `json:"hold_ms"`
}

// UnlockRequest force-unlocks one resource.
type UnlockRequest struct {
	Resource string `json:"resource"`
}

// StatusResponse reports held locks, table statistics and the most recent
// audit lines, newest first.
type StatusResponse struct {
	Stats  locks.Stats      `json:"stats"`
	Active []locks.HeldLock `json:"active"`
	Recent []string         `json:"recent"`
}

// QueueResponse reports waiting requests in arrival order.
type QueueResponse struct {
	Pending []locks.QueuedRequest `json:"pending"`
	Count   int                   `json:"count"`
}

// AuditResponse carries rendered audit lines, most recent first.
type AuditResponse struct {
	Lines  []string `json:"lines"`
	Count  int      `json:"count"`
	Source string   `json:"source"`
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Resources     int    `json:"resources"`
	AuditDurable  bool   `json:"audit_durable"`
	AuditDropped  int64  `json:"audit_dropped"`
}

// ============================================================================
// LOCK HANDLERS
// ============================================================================

// handleAcquire handles POST /v1/locks/acquire. The call blocks until the
// lock is granted or the wait fails; client disconnects withdraw the request.
func (s *Server) handleAcquire(w http.ResponseWriter, r *http.Request) {
	var req AcquireRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	mode, err := locks.ParseMode(req.Mode)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	session := s.resolveSession(r, req.Session)
	if session == "" {
		s.writeError(w, http.StatusBadRequest, "session required")
		return
	}
	if !s.checkNames(w, req.Resource, session) {
		return
	}

	start := time.Now()
	switch mode {
	case locks.ModeWrite:
		err = s.mgr.AcquireWrite(r.Context(), req.Resource, session)
	default:
		err = s.mgr.AcquireRead(r.Context(), req.Resource, session)
	}
	if err != nil {
		s.writeLockError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, AcquireResponse{
		Resource: req.Resource,
		Session:  session,
		Mode:     mode.String(),
		Granted:  true,
		WaitedMS: time.Since(start).Milliseconds(),
	})
}

// handleRelease handles POST /v1/locks/release. Releasing a lock the
// session does not hold is a no-op, reported via the released flag.
func (s *Server) handleRelease(w http.ResponseWriter, r *http.Request) {
	var req ReleaseRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	session := s.resolveSession(r, req.Session)
	if !s.checkNames(w, req.Resource, session) {
		return
	}

	released := s.mgr.Release(req.Resource, session)
	s.writeJSON(w, http.StatusOK, ReleaseResponse{
		Resource: req.Resource,
		Session:  session,
		Released: released,
	})
}

// handleSimulate builds the handler for POST /v1/simulate/{read,write}.
// The synthetic session is reported immediately while the hold plays out
// in the background.
func (s *Server) handleSimulate(mode locks.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SimulateRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		if !s.checkNames(w, req.Resource, "") {
			return
		}

		hold := time.Duration(req.HoldMS) * time.Millisecond
		if req.HoldMS <= 0 {
			hold = s.cfg.Locks.DefaultHold()
		}
		if hold > s.cfg.Locks.MaxHold() {
			s.writeError(w, http.StatusBadRequest,
				fmt.Sprintf("hold_ms above maximum %d", s.cfg.Locks.MaxHoldMS))
			return
		}

		var (
			session string
			err     error
		)
		if mode == locks.ModeWrite {
			session, err = s.mgr.SimulateWrite(req.Resource, hold)
		} else {
			session, err = s.mgr.SimulateRead(req.Resource, hold)
		}
		if err != nil {
			s.writeLockError(w, err)
			return
		}

		s.writeJSON(w, http.StatusOK, SimulateResponse{
			Resource: req.Resource,
			Session:  session,
			Mode:     mode.String(),
			HoldMS:   int(hold.Milliseconds()),
		})
	}
}

// handleUnlock handles POST /v1/unlock.
func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	if !s.checkNames(w, req.Resource, "") {
		return
	}

	if err := s.mgr.ForceUnlock(req.Resource); err != nil {
		s.writeLockError(w, err)
		return
	}

	log.Printf("FORCE_UNLOCK | resource=%s client_ip=%s", truncateString(req.Resource, 64), GetClientIP(r))
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ok",
		"resource": req.Resource,
	})
}

// handleClear handles POST /v1/clear.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	cleared := s.mgr.Clear()
	log.Printf("CLEAR_ALL | resources=%d client_ip=%s", cleared, GetClientIP(r))

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"cleared": cleared,
	})
}

// ============================================================================
// INSPECTION HANDLERS
// ============================================================================

// handleStatus handles GET /v1/status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, StatusResponse{
		Stats:  s.mgr.Stats(),
		Active: s.mgr.ActiveLocks(),
		Recent: s.rec.Recent(statusRecentLines),
	})
}

// handleQueue handles GET /v1/queue.
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	pending := s.mgr.PendingRequests()
	s.writeJSON(w, http.StatusOK, QueueResponse{
		Pending: pending,
		Count:   len(pending),
	})
}

// handleAudit handles GET /v1/audit. The durable store serves history when
// attached; otherwise the in-memory ring answers.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	if store != nil {
		entries, err := store.Tail(r.Context(), limit)
		if err == nil {
			lines := make([]string, len(entries))
			for i, e := range entries {
				lines[i] = e.Line()
			}
			s.writeJSON(w, http.StatusOK, AuditResponse{
				Lines:  lines,
				Count:  len(lines),
				Source: "store",
			})
			return
		}
		// Fall through to the ring on store errors; history is best-effort.
		log.Printf("AUDIT_TAIL_FAILED | error=%v", err)
	}

	lines := s.rec.Recent(limit)
	s.writeJSON(w, http.StatusOK, AuditResponse{
		Lines:  lines,
		Count:  len(lines),
		Source: "ring",
	})
}

// handleHealth handles GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	store := s.store
	s.mu.RUnlock()

	stats := s.mgr.Stats()
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       Version,
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
		Resources:     stats.Resources,
		AuditDurable:  store != nil,
		AuditDropped:  s.rec.Dropped(),
	})
}

// handleMetrics handles GET /metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	h := s.metrics
	s.mu.RUnlock()

	if h == nil {
		s.writeError(w, http.StatusNotFound, "metrics not enabled")
		return
	}
	h.ServeHTTP(w, r)
}

// ============================================================================
// SERVER LIFECYCLE
// ============================================================================

// Handler returns the fully assembled handler, middleware included.
func (s *Server) Handler() http.Handler {
	limiter := NewClientLimiter(s.cfg.Server.RateLimitRPS, s.cfg.Server.RateLimitBurst)

	handler := Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		CORSMiddleware(DefaultCORSConfig()),
		LoggingMiddleware(log.Default()),
		RateLimitMiddleware(limiter),
		SessionMiddleware(),
	)(s.router)

	// Apply auth middleware if a token is configured
	if s.cfg.Server.AuthToken != "" {
		handler = AuthMiddleware(s.cfg.Server.AuthToken)(handler)
	}

	return handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
		// Acquire long-polls up to the lock timeout and the event stream
		// stays open indefinitely, so only reads get a hard deadline.
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s", addr, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	log.Printf("SERVER_SHUTDOWN | starting graceful shutdown")

	// Close stream subscribers first so SSE and WebSocket handlers return.
	s.hub.shutdown()

	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

// decodeBody parses a JSON request body, reporting failures itself.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// resolveSession picks the caller's session id: explicit body field first,
// then whatever the session middleware put on the request.
func (s *Server) resolveSession(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return SessionFromRequest(r)
}

// checkNames bounds resource and session lengths. Empty resources are left
// for the manager so the error matches every other entry point.
func (s *Server) checkNames(w http.ResponseWriter, resource, session string) bool {
	if len(resource) > MaxResourceLength {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("resource name exceeds %d characters", MaxResourceLength))
		return false
	}
	if len(session) > MaxSessionLength {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("session id exceeds %d characters", MaxSessionLength))
		return false
	}
	return true
}

// writeLockError maps manager errors onto HTTP statuses.
func (s *Server) writeLockError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, locks.ErrInvalidResource):
		s.writeErrorTyped(w, http.StatusBadRequest, "invalid_resource", err.Error())
	case errors.Is(err, locks.ErrTimeout):
		s.writeErrorTyped(w, http.StatusRequestTimeout, "lock_timeout", err.Error())
	case errors.Is(err, locks.ErrCancelled):
		s.writeErrorTyped(w, http.StatusConflict, "lock_cancelled", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client gave up; nobody reads this, but keep the mapping honest.
		s.writeErrorTyped(w, http.StatusRequestTimeout, "client_cancelled", err.Error())
	default:
		s.writeErrorTyped(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeErrorTyped(w, status, "invalid_request_error", message)
}

// writeErrorTyped writes a JSON error response with an explicit error type
// so clients can map failures back onto sentinel errors.
func (s *Server) writeErrorTyped(w http.ResponseWriter, status int, errType, message string) {
	s.writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    errType,
			"code":    status,
		},
	})
}

// truncateString truncates a string to the specified length.
// Uses rune-based truncation to handle Unicode correctly.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
