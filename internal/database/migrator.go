package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	tern "github.com/jackc/tern/v2/migrate"
	"github.com/rs/zerolog"
)

// Embed all SQL files under migrations/ at compile time.
//
//go:embed migrations/*.sql
var migrations embed.FS

// downMarker separates the up and down halves of a tern migration file.
const downMarker = "---- create above / drop below ----"

// Migrate creates the devices, vehicles and traffic_levels tables.
//
// On PostgreSQL it runs the embedded migrations with jackc/tern, which
// records the applied version in schema_version. MySQL and SQLite get the
// "create above" half of each file executed in order; every statement is
// CREATE TABLE IF NOT EXISTS, so running it again is harmless.
func Migrate(ctx context.Context, logger *zerolog.Logger, f *Factory) error {
	subtree, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("retrieving database migrations subtree: %w", err)
	}

	if f.Driver() == DriverPostgres {
		return migratePostgres(ctx, logger, f.Target(), subtree)
	}
	return migratePlain(ctx, logger, f, subtree)
}

func migratePostgres(ctx context.Context, logger *zerolog.Logger, target Target, subtree fs.FS) error {
	// A single dedicated connection; tern needs a *pgx.Conn.
	conn, err := pgx.Connect(ctx, target.DSN)
	if err != nil {
		return fmt.Errorf("connecting for migrations: %w", err)
	}
	defer conn.Close(ctx)

	m, err := tern.NewMigrator(ctx, conn, "schema_version")
	if err != nil {
		return fmt.Errorf("constructing database migrator: %w", err)
	}

	if err := m.LoadMigrations(subtree); err != nil {
		return fmt.Errorf("loading database migrations: %w", err)
	}

	from, err := m.GetCurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("retrieving current database migration version: %w", err)
	}

	if err := m.Migrate(ctx); err != nil {
		return err
	}

	if from == int32(len(m.Migrations)) {
		logger.Info().Msgf("database schema up to date, version %d", len(m.Migrations))
	} else {
		logger.Info().Msgf("migrated database schema, from %d to %d", from, len(m.Migrations))
	}
	return nil
}

func migratePlain(ctx context.Context, logger *zerolog.Logger, f *Factory, subtree fs.FS) error {
	names, err := fs.Glob(subtree, "*.sql")
	if err != nil {
		return fmt.Errorf("listing database migrations: %w", err)
	}
	sort.Strings(names)

	conn, err := f.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	for _, name := range names {
		body, err := fs.ReadFile(subtree, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		up, _, _ := strings.Cut(string(body), downMarker)
		for _, stmt := range splitStatements(up) {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("applying migration %s: %w", name, err)
			}
		}
	}

	logger.Info().
		Str("driver", string(f.Driver())).
		Int("migrations", len(names)).
		Msg("database schema applied")
	return nil
}

// splitStatements splits a script on ";". The embedded migrations contain no
// semicolons inside literals.
func splitStatements(script string) []string {
	var stmts []string
	for _, part := range strings.Split(script, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}
