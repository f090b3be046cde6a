// Package server defines the core Server struct that composes the app's
// main dependencies.
//
// It owns the lifecycle of:
//   - configuration
//   - the structured logger
//   - the database connection factory
//   - the http.Server serving the lookup API
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/emission-lookup/internal/config"
	"github.com/deppfellow/emission-lookup/internal/database"
	"github.com/rs/zerolog"
)

// ErrHTTPServerNotInitialized is returned by Start before SetupHTTPServer.
var ErrHTTPServerNotInitialized = errors.New("HTTP server not initialized")

// Server is the application container that holds shared resources.
//
// It is not the HTTP server itself; the CLI uses it without ever serving.
type Server struct {
	Config *config.Config
	Logger *zerolog.Logger

	// DB hands out scoped database connections.
	DB *database.Factory

	httpServer *http.Server
}

// New constructs a Server and resolves the database target.
//
// Connecting is deferred to the first lookup, so an unreachable database
// does not stop startup; /status reports it instead.
func New(cfg *config.Config, logger *zerolog.Logger, opts ...database.Option) (*Server, error) {
	db, err := database.NewFactory(cfg, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logger.Info().
		Str("target", db.Target().String()).
		Str("env", cfg.Primary.Env).
		Msg("database target resolved")

	return &Server{
		Config: cfg,
		Logger: logger,
		DB:     db,
	}, nil
}

// SetupHTTPServer configures the internal net/http server around handler.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:         ":" + s.Config.Server.Port,
		Handler:      handler,
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start runs the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return ErrHTTPServerNotInitialized
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Msg("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server (if any), waiting for in-flight requests
// until ctx expires, then closes the database handle.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}

	if err := s.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}
