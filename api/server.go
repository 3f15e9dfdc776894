// Package api exposes the answering pipeline over HTTP: chat,
// health/readiness probes, and session management.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/moodlemate/moodlemate/internal/log"
	"github.com/moodlemate/moodlemate/internal/rag"
)

// ServerConfig contains configuration for creating the HTTP server.
type ServerConfig struct {
	Addr     string
	Pipeline *rag.Pipeline // Required
	Pool     *pgxpool.Pool // Optional: nil skips the DB ping in /ready
	Logger   log.Logger
}

// Server is the JSON HTTP server for the chat service.
type Server struct {
	httpServer *http.Server
	logger     log.Logger
}

// NewServer creates a server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	addr := cfg.Addr
	if addr == "" {
		addr = ":8000"
	}

	ch := &chatHandler{pipeline: cfg.Pipeline, logger: logger}
	hh := &healthHandler{pipeline: cfg.Pipeline, pool: cfg.Pool, logger: logger}
	sh := &sessionHandler{memory: cfg.Pipeline.Memory(), logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", ch.send)
	mux.HandleFunc("GET /health", hh.health)
	mux.HandleFunc("GET /ready", hh.ready)
	mux.HandleFunc("GET /api/sessions/stats", sh.stats)
	mux.HandleFunc("DELETE /api/sessions/{id}", sh.clear)

	// Middleware stack, outermost first: recovery then logging.
	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      2 * time.Minute,
			IdleTimeout:       2 * time.Minute,
		},
		logger: logger,
	}, nil
}

// Handler returns the configured handler for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves until ctx is canceled, then shuts down gracefully with a
// bounded drain window.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.logger.Info("shutting down http server")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
