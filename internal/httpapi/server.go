// Package httpapi exposes the session control API: create, inspect, approve,
// halt, list, and a server-sent-events stream of workflow progress.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Danish137/cerina-protocol-foundry/internal/engine"
	"github.com/Danish137/cerina-protocol-foundry/pkg/blackboard"
)

// Server handles the session control API. Workflow goroutines started by
// create are bound to runCtx, not the request context, so they outlive the
// HTTP request that created them.
type Server struct {
	engine *engine.Engine
	client *blackboard.Client
	runCtx context.Context
	log    *slog.Logger
}

// NewServer builds the API handler.
func NewServer(runCtx context.Context, eng *engine.Engine, client *blackboard.Client, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		engine: eng,
		client: client,
		runCtx: runCtx,
		log:    logger,
	}

	mux := http.NewServeMux()

	// /api/sessions           → POST: create, GET: list
	mux.HandleFunc("/api/sessions", s.handleSessions)

	// /api/sessions/{id}          →  GET: session snapshot
	// /api/sessions/{id}/approve  → POST: approve (optional edited draft)
	// /api/sessions/{id}/halt     → POST: halt
	// /api/sessions/{id}/stream   →  GET: SSE event stream
	mux.HandleFunc("/api/sessions/", s.handleSessionWithID)

	mux.HandleFunc("/healthz", s.handleHealth)

	return mux
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type createSessionRequest struct {
	Intent string `json:"intent"`
}

type createSessionResponse struct {
	SessionID string            `json:"session_id"`
	Status    blackboard.Status `json:"status"`
}

type sessionResponse struct {
	Session *blackboard.Session `json:"session"`
}

type listSessionsResponse struct {
	Sessions []*blackboard.Session `json:"sessions"`
}

// ─────────────────────────────────────────────
// Routing
// ─────────────────────────────────────────────

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSession(w, r)
	case http.MethodGet:
		s.handleListSessions(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleSessionWithID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	if path == "" {
		http.NotFound(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id := parts[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		s.handleGetSession(w, r, id)
		return
	}

	if len(parts) == 2 {
		switch parts[1] {
		case "approve":
			if r.Method != http.MethodPost {
				methodNotAllowed(w)
				return
			}
			s.handleApprove(w, r, id)
			return
		case "halt":
			if r.Method != http.MethodPost {
				methodNotAllowed(w)
				return
			}
			s.handleHalt(w, r, id)
			return
		case "stream":
			if r.Method != http.MethodGet {
				methodNotAllowed(w)
				return
			}
			s.handleStream(w, r, id)
			return
		}
	}

	http.NotFound(w, r)
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Intent) == "" {
		badRequest(w, "intent is required")
		return
	}

	session, err := s.engine.CreateSession(r.Context(), req.Intent)
	if err != nil {
		s.internalError(w, err)
		return
	}

	// Drive the workflow detached from the request lifetime.
	go func() {
		if err := s.engine.Run(s.runCtx, session.ID); err != nil && !errors.Is(err, context.Canceled) {
			s.log.Error("workflow run failed", "session_id", session.ID, "error", err)
		}
	}()

	writeJSON(w, http.StatusCreated, createSessionResponse{
		SessionID: session.ID,
		Status:    session.Status,
	})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			badRequest(w, "invalid limit")
			return
		}
		limit = parsed
	}

	sessions, err := s.client.ListSessions(r.Context(), limit)
	if err != nil {
		s.internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listSessionsResponse{Sessions: sessions})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.engine.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, engine.ErrSessionNotFound) {
			notFound(w)
			return
		}
		s.internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Session: session})
}

type approveRequest struct {
	ApprovedContent string `json:"approved_content,omitempty"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request, id string) {
	var req approveRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid JSON body")
			return
		}
	}

	session, err := s.engine.Approve(r.Context(), id, req.ApprovedContent)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Session: session})
}

func (s *Server) handleHalt(w http.ResponseWriter, r *http.Request, id string) {
	session, err := s.engine.Halt(r.Context(), id)
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Session: session})
}

// handleHealth reports Redis connectivity, 503 when unreachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.client.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"redis":  "disconnected",
			"error":  err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"redis":  "connected",
	})
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrSessionNotFound):
		notFound(w)
	case errors.Is(err, engine.ErrInvalidStateTransition):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		s.internalError(w, err)
	}
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.log.Error("internal error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "session not found"})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
}
