// Package database contains the logic for establishing connections to the
// database the emission lookups run against.
//
// It handles:
//   - resolving DB_URL / DB_USER / DB_PASSWORD into a driver-specific Target
//   - opening the database handle for that target (MySQL, PostgreSQL through
//     pgx, or SQLite)
//   - wiring SQL query tracing/logging (pgx tracelog + zerolog) in local env
//   - handing out scoped connections that the caller must close
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/deppfellow/emission-lookup/internal/config"
	loggerConfig "github.com/deppfellow/emission-lookup/internal/logger"
	_ "github.com/go-sql-driver/mysql"
	pgxzero "github.com/jackc/pgx-zerolog"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// DatabasePingTimeout is how long Ping waits when the caller's context
// carries no deadline.
const DatabasePingTimeout = 10 * time.Second

var (
	// ErrConnect wraps every failure to open the handle or obtain a connection.
	ErrConnect = errors.New("database connection failed")

	// ErrClosed is returned by Conn after Close.
	ErrClosed = errors.New("database factory is closed")
)

// Opener opens a database handle for a resolved target. Tests replace it to
// observe the target or to simulate an unreachable database.
type Opener func(target Target) (*sql.DB, error)

// Option customizes a Factory.
type Option func(*Factory)

// WithOpener replaces the default driver-backed opener.
func WithOpener(open Opener) Option {
	return func(f *Factory) {
		f.open = open
	}
}

// Factory produces live connections for the configured target.
//
// The database handle is opened lazily on the first Conn call; a failed open
// is reported to that caller and attempted again on the next call.
type Factory struct {
	target         Target
	connectTimeout time.Duration
	open           Opener
	log            *zerolog.Logger

	mu     sync.Mutex
	db     *sql.DB
	closed bool
}

// NewFactory resolves the configured target. It does not connect.
func NewFactory(cfg *config.Config, logger *zerolog.Logger, opts ...Option) (*Factory, error) {
	target, err := ParseTarget(cfg.Database)
	if err != nil {
		return nil, err
	}

	f := &Factory{
		target:         target,
		connectTimeout: time.Duration(cfg.Database.ConnectTimeout) * time.Second,
		log:            logger,
	}
	f.open = f.defaultOpener(cfg.IsLocal())

	for _, opt := range opts {
		opt(f)
	}

	return f, nil
}

// Target returns the resolved connection target.
func (f *Factory) Target() Target {
	return f.target
}

// Driver returns the driver the target is opened with.
func (f *Factory) Driver() Driver {
	return f.target.Driver
}

// defaultOpener opens the target with its real driver.
//
// PostgreSQL goes through pgx's stdlib adapter so a tracer can be attached
// to the connection config; in local env that tracer logs every statement.
func (f *Factory) defaultOpener(local bool) Opener {
	return func(target Target) (*sql.DB, error) {
		if target.Driver != DriverPostgres {
			return sql.Open(string(target.Driver), target.DSN)
		}

		connConfig, err := pgx.ParseConfig(target.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to parse pgx config: %w", err)
		}

		if local {
			globalLevel := f.log.GetLevel()
			connConfig.Tracer = &tracelog.TraceLog{
				Logger:   pgxzero.NewLogger(loggerConfig.NewPgxLogger(globalLevel)),
				LogLevel: loggerConfig.GetPgxTraceLogLevel(globalLevel),
			}
		}

		return stdlib.OpenDB(*connConfig), nil
	}
}

// handle returns the shared database handle, opening it if needed.
func (f *Factory) handle() (*sql.DB, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrClosed
	}
	if f.db != nil {
		return f.db, nil
	}

	db, err := f.open(f.target)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrConnect, f.target, err)
	}

	f.db = db
	f.log.Info().Str("target", f.target.String()).Msg("opened database handle")
	return db, nil
}

// Conn returns a live connection. The caller owns it and must Close it on
// every path; closing hands it back to the handle.
func (f *Factory) Conn(ctx context.Context) (*sql.Conn, error) {
	db, err := f.handle()
	if err != nil {
		return nil, err
	}

	if f.connectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.connectTimeout)
		defer cancel()
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, f.target, err)
	}

	return conn, nil
}

// Ping checks the database is reachable.
func (f *Factory) Ping(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DatabasePingTimeout)
		defer cancel()
	}

	conn, err := f.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Stats reports handle statistics; zero before the first Conn.
func (f *Factory) Stats() sql.DBStats {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.db == nil {
		return sql.DBStats{}
	}
	return f.db.Stats()
}

// Close releases the database handle. It is safe to call more than once.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true
	if f.db == nil {
		return nil
	}

	f.log.Info().Msg("closing database handle")
	err := f.db.Close()
	f.db = nil
	return err
}
