// Package web exposes the observer HTTP surface: a chat endpoint, the
// audit ledger, session management, runtime settings, and a WebSocket
// stream of agent events.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/deskwork/deskwork/internal/agent"
	"github.com/deskwork/deskwork/internal/audit"
	"github.com/deskwork/deskwork/internal/buildinfo"
	"github.com/deskwork/deskwork/internal/config"
	"github.com/deskwork/deskwork/internal/events"
	"github.com/deskwork/deskwork/internal/session"
)

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": msg}); err != nil {
		logger.Debug("failed to write error response", "error", err)
	}
}

// Server is the observer HTTP server.
type Server struct {
	listen   string
	loop     *agent.Agent
	ledger   *audit.Ledger
	sessions *session.Store
	settings *config.SettingsStore
	bus      *events.Bus
	logger   *slog.Logger
	server   *http.Server
}

// NewServer creates an observer server bound to listen (host:port).
func NewServer(listen string, loop *agent.Agent, ledger *audit.Ledger, sessions *session.Store, settings *config.SettingsStore, bus *events.Bus, logger *slog.Logger) *Server {
	return &Server{
		listen:   listen,
		loop:     loop,
		ledger:   ledger,
		sessions: sessions,
		settings: settings,
		bus:      bus,
		logger:   logger,
	}
}

// routes builds the observer mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/audit", s.handleAudit)
	mux.HandleFunc("GET /api/audit/verify", s.handleAuditVerify)

	mux.HandleFunc("GET /api/sessions", s.handleSessionList)
	mux.HandleFunc("POST /api/sessions", s.handleSessionCreate)
	mux.HandleFunc("PATCH /api/sessions/{id}", s.handleSessionUpdate)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleSessionDelete)

	mux.HandleFunc("GET /api/settings", s.handleSettingsGet)
	mux.HandleFunc("POST /api/settings", s.handleSettingsSet)

	mux.HandleFunc("GET /ws/events", s.handleEvents)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/version", s.handleVersion)

	return mux
}

// Start registers routes and serves until the listener fails or the
// server is shut down.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.listen,
		Handler:      s.withLogging(s.routes()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // chat requests span full conversation loops
	}

	s.logger.Info("starting observer server", "listen", s.listen)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// chatRequest is the /api/chat request body.
type chatRequest struct {
	Prompt     string `json:"prompt"`
	WorkingDir string `json:"working_dir,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err), s.logger)
		return
	}
	if req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required", s.logger)
		return
	}

	answer, err := s.loop.Chat(r.Context(), req.Prompt, req.WorkingDir, req.SessionID)
	if err != nil {
		s.logger.Error("chat failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error(), s.logger)
		return
	}
	writeJSON(w, map[string]string{"response": answer}, s.logger)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	entries, err := s.ledger.Read(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), s.logger)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, map[string]any{"entries": entries}, s.logger)
}

func (s *Server) handleAuditVerify(w http.ResponseWriter, r *http.Request) {
	broken, err := s.ledger.Verify()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), s.logger)
		return
	}
	writeJSON(w, map[string]any{
		"intact":       broken < 0,
		"broken_index": broken,
	}, s.logger)
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), s.logger)
		return
	}
	if list == nil {
		list = []session.Meta{}
	}
	writeJSON(w, map[string]any{"sessions": list}, s.logger)
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	meta, err := s.sessions.Create(req.Title)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), s.logger)
		return
	}
	writeJSON(w, meta, s.logger)
}

func (s *Server) handleSessionUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		Title  *string `json:"title,omitempty"`
		Pinned *bool   `json:"pinned,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err), s.logger)
		return
	}
	if req.Title != nil {
		if err := s.sessions.Rename(id, *req.Title); err != nil {
			writeError(w, http.StatusNotFound, err.Error(), s.logger)
			return
		}
	}
	if req.Pinned != nil {
		if err := s.sessions.Pin(id, *req.Pinned); err != nil {
			writeError(w, http.StatusNotFound, err.Error(), s.logger)
			return
		}
	}
	writeJSON(w, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Delete(r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), s.logger)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) handleSettingsGet(w http.ResponseWriter, r *http.Request) {
	snap := s.settings.Snapshot()
	// The API key never leaves the process.
	writeJSON(w, map[string]any{
		"provider":  snap.Provider,
		"model":     snap.Model,
		"read_only": snap.ReadOnly,
	}, s.logger)
}

func (s *Server) handleSettingsSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model    *string `json:"model,omitempty"`
		ReadOnly *bool   `json:"read_only,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err), s.logger)
		return
	}
	s.settings.Update(func(st *config.Settings) {
		if req.Model != nil {
			st.Model = *req.Model
		}
		if req.ReadOnly != nil {
			st.ReadOnly = *req.ReadOnly
		}
	})
	writeJSON(w, map[string]string{"status": "ok"}, s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "healthy"}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, buildinfo.Info(), s.logger)
}
