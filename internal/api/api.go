// Package api exposes a small HTTP surface for health checks and usage stats.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/BTreeMap/DocForge/internal/models"
	"github.com/BTreeMap/DocForge/internal/store"
)

// DefaultShutdownTimeout bounds graceful server shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server serves the health and stats endpoints.
type Server struct {
	store  store.Store
	server *http.Server
}

// NewServer creates the API server. An empty address disables it; Start
// becomes a no-op.
func NewServer(st store.Store, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{store: st}
	if cfg.Addr == "" {
		slog.Debug("API server disabled, no address configured")
		return s
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)

	s.server = &http.Server{Addr: cfg.Addr, Handler: r}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() {
	if s.server == nil {
		return
	}
	slog.Info("API server starting", "addr", s.server.Addr)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("API server failed", "error", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	slog.Info("API server stopping")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statsResponse is the /stats payload.
type statsResponse struct {
	ActiveSessions int                    `json:"active_sessions"`
	Documents      map[models.DocType]int `json:"documents"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.CountSessions()
	if err != nil {
		slog.Error("API stats failed to count sessions", "error", err)
		http.Error(w, "failed to count sessions", http.StatusInternalServerError)
		return
	}
	documents, err := s.store.CountDocuments()
	if err != nil {
		slog.Error("API stats failed to count documents", "error", err)
		http.Error(w, "failed to count documents", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{ActiveSessions: sessions, Documents: documents})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("API failed to encode response", "error", err)
	}
}
