package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/deppfellow/emission-lookup/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url, user, password string) *config.Config {
	return &config.Config{
		Primary:  config.Primary{Env: "test"},
		Database: dbConfig(url, user, password),
	}
}

func sqliteURL(t *testing.T) string {
	return "sqlite:" + filepath.Join(t.TempDir(), "emissions.db")
}

func TestFactory_OpenerSeesConfiguredTarget(t *testing.T) {
	logger := zerolog.Nop()
	var seen []Target

	fakeOpener := func(target Target) (*sql.DB, error) {
		seen = append(seen, target)
		return sql.Open("sqlite", filepath.Join(t.TempDir(), "fake.db"))
	}

	f, err := NewFactory(testConfig("jdbc:mysql://db.internal:3306/fleet?useSSL=false", "fleet", "hunter2"), &logger, WithOpener(fakeOpener))
	require.NoError(t, err)
	defer f.Close()

	conn, err := f.Conn(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// The handle is opened once and reused.
	conn, err = f.Conn(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	require.Len(t, seen, 1)
	assert.Equal(t, DriverMySQL, seen[0].Driver)
	assert.Equal(t, "db.internal:3306", seen[0].Host)
	assert.Equal(t, "fleet", seen[0].Database)
	assert.Equal(t, "fleet", seen[0].User)
	assert.Equal(t, "hunter2", seen[0].Password)
}

func TestFactory_OpenFailureSurfaces(t *testing.T) {
	logger := zerolog.Nop()
	refused := errors.New("connection refused")
	calls := 0

	f, err := NewFactory(testConfig(config.DefaultDatabaseURL, "root", ""), &logger, WithOpener(func(Target) (*sql.DB, error) {
		calls++
		return nil, refused
	}))
	require.NoError(t, err)

	_, err = f.Conn(context.Background())
	assert.ErrorIs(t, err, refused)

	// No retry inside a call; the next call tries again.
	_, err = f.Conn(context.Background())
	assert.ErrorIs(t, err, refused)
	assert.Equal(t, 2, calls)
}

func TestFactory_SQLitePingAndClose(t *testing.T) {
	logger := zerolog.Nop()
	f, err := NewFactory(testConfig(sqliteURL(t), "root", ""), &logger)
	require.NoError(t, err)

	require.NoError(t, f.Ping(context.Background()))
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Conn(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewFactory_InvalidURL(t *testing.T) {
	logger := zerolog.Nop()
	_, err := NewFactory(testConfig("oracle://nope", "root", ""), &logger)
	assert.ErrorIs(t, err, ErrUnsupportedURL)
}

func TestMigrate_SQLite(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	f, err := NewFactory(testConfig(sqliteURL(t), "root", ""), &logger)
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, Migrate(ctx, &logger, f))
	// Idempotent.
	require.NoError(t, Migrate(ctx, &logger, f))

	conn, err := f.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()

	for _, table := range []string{"devices", "vehicles", "traffic_levels"} {
		var name string
		err := conn.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_PostgresUnreachable(t *testing.T) {
	logger := zerolog.Nop()

	// Port 1 refuses connections; the timeout bounds it if something listens.
	f, err := NewFactory(testConfig("postgres://127.0.0.1:1/emissions?sslmode=disable&connect_timeout=1", "root", ""), &logger)
	require.NoError(t, err)
	defer f.Close()

	err = Migrate(context.Background(), &logger, f)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connecting for migrations")
}

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements("CREATE TABLE a (x INT);\n\n CREATE TABLE b (y INT);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE TABLE b (y INT)"}, stmts)
}
