// Package api exposes the request/response surface: account registration,
// login, and project CRUD, plus the websocket mount for the live session
// channel. All durable-store writes happen here, never in the relay.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/farid/collabco/internal/observability"
	"github.com/farid/collabco/pkg/auth"
	"github.com/farid/collabco/pkg/relay"
	"github.com/farid/collabco/pkg/store"
)

// Server is the HTTP server fronting the store and the relay.
type Server struct {
	host   string
	port   int
	store  *store.Store
	tokens *auth.TokenManager
	relay  *relay.Relay
	logger zerolog.Logger
	server *http.Server
}

// Config holds server configuration.
type Config struct {
	Host   string
	Port   int
	Store  *store.Store
	Tokens *auth.TokenManager
	Relay  *relay.Relay
	Logger zerolog.Logger
}

// NewServer creates an API server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Port <= 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Tokens == nil {
		return nil, fmt.Errorf("token manager is required")
	}
	if cfg.Relay == nil {
		return nil, fmt.Errorf("relay is required")
	}

	return &Server{
		host:   cfg.Host,
		port:   cfg.Port,
		store:  cfg.Store,
		tokens: cfg.Tokens,
		relay:  cfg.Relay,
		logger: cfg.Logger,
	}, nil
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("collabco backend is running"))
	})

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.Handle("GET /api/user/me", s.requireAuth(s.handleMe))

	mux.Handle("POST /api/projects", s.requireAuth(s.handleCreateProject))
	mux.Handle("GET /api/projects", s.requireAuth(s.handleListProjects))
	mux.Handle("GET /api/projects/{id}", s.requireAuth(s.handleGetProject))
	mux.Handle("PUT /api/projects/{id}", s.requireAuth(s.handleUpdateProject))
	mux.Handle("DELETE /api/projects/{id}", s.requireAuth(s.handleDeleteProject))

	mux.HandleFunc("GET /ws", s.relay.HandleWebSocket)

	mux.Handle("GET /metrics", observability.MetricsHandler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	return s.withCORS(mux)
}

// Start starts the HTTP server without blocking.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.host, s.port),
		Handler: s.Handler(),
	}

	s.logger.Info().Str("host", s.host).Int("port", s.port).Msg("Starting API server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("API server error")
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	s.logger.Info().Msg("Shutting down API server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// withCORS mirrors the permissive policy of the hosted frontend split.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
