// Package repository handles all interactions with the database.
//
// It contains the raw SQL for the three emission lookups and the code that
// runs them, abstracting SQL and driver errors away from the service layer.
package repository

import (
	"context"
	"database/sql"

	"github.com/deppfellow/emission-lookup/internal/database"
	"github.com/deppfellow/emission-lookup/internal/server"
)

// ConnProvider hands out scoped connections. *database.Factory satisfies it.
type ConnProvider interface {
	Conn(ctx context.Context) (*sql.Conn, error)
	Driver() database.Driver
}

// Repositories is a container for all repository instances.
type Repositories struct {
	Emission *EmissionRepository
}

// NewRepositories constructs the repository container from the shared
// server dependencies.
func NewRepositories(s *server.Server) *Repositories {
	return &Repositories{
		Emission: NewEmissionRepository(s.DB, s.Logger, s.Config.Observability.Logging.SlowQueryThreshold),
	}
}
