// Package web is the presentation boundary: a small JSON API over the
// curriculum and a websocket endpoint where each connection is one
// interactive learning session.
package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lenslove/academy/internal/curriculum"
	"github.com/lenslove/academy/internal/progress"
	"github.com/lenslove/academy/internal/report"
)

// Config holds the dependencies shared by all sessions.
type Config struct {
	UserID         string
	Store          *progress.Store
	Registry       *curriculum.Registry
	Events         progress.EventLogger
	MaxUploadBytes int
}

// Server serves the HTTP API and session websockets.
type Server struct {
	cfg Config

	// One live session at a time: each session caches the learner's record,
	// so a second one would save over the first one's awards.
	mu     sync.Mutex
	active bool
}

// NewServer validates the configuration.
func NewServer(cfg Config) (*Server, error) {
	if cfg.UserID == "" {
		return nil, progress.ErrInvalidUser
	}
	if cfg.Store == nil || cfg.Registry == nil {
		return nil, fmt.Errorf("store and registry are required")
	}
	if cfg.Events == nil {
		cfg.Events = progress.NopEventLogger{}
	}
	return &Server{cfg: cfg}, nil
}

// Handler creates the HTTP router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReadyz)
	mux.HandleFunc("GET /api/curriculum", s.handleCurriculum)
	mux.HandleFunc("GET /api/lessons", s.handleLesson)
	mux.HandleFunc("GET /api/report.xlsx", s.handleReport)
	mux.HandleFunc("GET /ws", s.handleSession)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.cfg.Store.Ping(r.Context()); err != nil {
		slog.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

type moduleEntry struct {
	Name    string   `json:"name"`
	Lessons []string `json:"lessons"`
}

func (s *Server) modules() ([]moduleEntry, error) {
	names := s.cfg.Registry.Modules()
	out := make([]moduleEntry, 0, len(names))
	for _, name := range names {
		lessons, err := s.cfg.Registry.Lessons(name)
		if err != nil {
			return nil, err
		}
		out = append(out, moduleEntry{Name: name, Lessons: lessons})
	}
	return out, nil
}

func (s *Server) handleCurriculum(w http.ResponseWriter, r *http.Request) {
	modules, err := s.modules()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"modules": modules})
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lesson, err := s.cfg.Registry.Lesson(q.Get("module"), q.Get("lesson"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"module": lesson.ID.Module,
		"lesson": lesson,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rec, err := s.cfg.Store.Read(r.Context(), s.cfg.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteProgress(&buf, s.cfg.Registry, s.cfg.UserID, rec); err != nil {
		writeError(w, fmt.Errorf("building progress report: %w", err))
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="progress.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("failed to send progress report", "error", err)
	}
}

// acquire claims the single session slot.
func (s *Server) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return false
	}
	s.active = true
	return true
}

func (s *Server) release() {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, curriculum.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, progress.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
