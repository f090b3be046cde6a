package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/deppfellow/emission-lookup/internal/database"
	"github.com/deppfellow/emission-lookup/internal/handler"
	"github.com/deppfellow/emission-lookup/internal/repository"
	"github.com/deppfellow/emission-lookup/internal/router"
	"github.com/deppfellow/emission-lookup/internal/service"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the lookup HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := newServer()
	if err != nil {
		return err
	}

	if serveMigrate {
		if err := database.Migrate(ctx, &log, srv.DB); err != nil {
			_ = srv.Shutdown(context.Background())
			return err
		}
	}

	repos := repository.NewRepositories(srv)
	services := service.NewServices(srv, repos)
	handlers := handler.NewHandlers(srv, services)
	srv.SetupHTTPServer(router.NewRouter(srv, handlers))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	select {
	case err := <-serveErr:
		_ = srv.Shutdown(context.Background())
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("server did not stop within %s: %w", shutdownTimeout, err)
		}
		return err
	}

	log.Info().Msg("server stopped")
	return nil
}
