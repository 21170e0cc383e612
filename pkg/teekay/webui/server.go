// Package webui implements the dashboard JSON API. Users log in through
// single-use magic links the agent hands out over text; a session cookie
// scopes every other endpoint to that user's conversation.
package webui

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/teekay-ai/teekay/pkg/teekay/schedule"
	"github.com/teekay-ai/teekay/pkg/teekay/store"
)

// Config controls the dashboard server.
type Config struct {
	// Addr is the listen address, e.g. ":8090".
	Addr string `yaml:"addr"`
	// SessionTTLHours is how long a login lasts. Default 168 (7 days).
	SessionTTLHours int `yaml:"session_ttl_hours"`
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8090"
	}
	if c.SessionTTLHours <= 0 {
		c.SessionTTLHours = 168
	}
}

const sessionCookie = "teekay_session"

// Server is the dashboard HTTP server.
type Server struct {
	store    *store.Store
	schedule *schedule.Service
	cfg      Config
	log      *slog.Logger
	httpSrv  *http.Server
}

// NewServer creates the dashboard server.
func NewServer(st *store.Store, svc *schedule.Service, cfg Config, logger *slog.Logger) *Server {
	cfg.ApplyDefaults()
	s := &Server{
		store:    st,
		schedule: svc,
		cfg:      cfg,
		log:      logger.With("component", "webui"),
	}
	s.httpSrv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes builds the API router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/verify", s.handleVerify)
		r.Post("/auth/logout", s.handleLogout)
		r.Get("/auth/status", s.handleAuthStatus)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/me", s.handleGetProfile)
			r.Put("/me", s.handleUpdateProfile)
			r.Get("/messages", s.handleListMessages)

			r.Get("/memories", s.handleListMemories)
			r.Post("/memories", s.handleCreateMemory)
			r.Put("/memories/{id}", s.handleUpdateMemory)
			r.Delete("/memories/{id}", s.handleDeleteMemory)

			r.Get("/tasks", s.handleListTasks)
			r.Post("/tasks", s.handleCreateTask)
			r.Put("/tasks/{id}", s.handleUpdateTask)
			r.Delete("/tasks/{id}", s.handleDeleteTask)

			r.Post("/tasks/{id}/reminders", s.handleCreateReminder)
			r.Put("/reminders/{id}", s.handleUpdateReminder)
			r.Delete("/reminders/{id}", s.handleDeleteReminder)
		})
	})
	return r
}

// Start begins serving. Blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.log.Info("dashboard listening", "addr", s.cfg.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
