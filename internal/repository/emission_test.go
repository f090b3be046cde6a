package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/deppfellow/emission-lookup/internal/database"
	"github.com/deppfellow/emission-lookup/internal/errs"
	"github.com/deppfellow/emission-lookup/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) (*EmissionRepository, *database.Factory) {
	t.Helper()
	s := testutil.NewServer(t, testutil.DefaultSeed())
	return NewRepositories(s).Emission, s.DB
}

func TestEmissionRepository_KnownKeys(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	v, err := repo.DeviceEmission(ctx, "refrigerator")
	require.NoError(t, err)
	assert.Equal(t, 0.15, v)

	v, err = repo.VehicleEmission(ctx, "car")
	require.NoError(t, err)
	assert.Equal(t, 0.192, v)

	v, err = repo.TrafficFactor(ctx, "high")
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)
}

func TestEmissionRepository_MissingKeyIsNotFound(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	for _, kind := range Kinds {
		t.Run(string(kind), func(t *testing.T) {
			v, err := repo.Lookup(ctx, kind, "does-not-exist")
			assert.Equal(t, 0.0, v)
			assert.True(t, errs.IsNotFound(err), "got %v", err)
		})
	}
}

func TestEmissionRepository_KeyIsParameterized(t *testing.T) {
	repo, _ := newRepo(t)

	v, err := repo.DeviceEmission(context.Background(), "laptop' OR '1'='1")
	assert.Equal(t, 0.0, v)
	assert.True(t, errs.IsNotFound(err))
}

func TestEmissionRepository_NullColumnReadsAsZero(t *testing.T) {
	repo, db := newRepo(t)
	ctx := context.Background()

	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "INSERT INTO devices (name, emission_value) VALUES (?, NULL)", "unmetered")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	v, err := repo.DeviceEmission(ctx, "unmetered")
	require.NoError(t, err)
	assert.Equal(t, 0.0, v)
}

func TestEmissionRepository_ReleasesConnections(t *testing.T) {
	repo, db := newRepo(t)
	ctx := context.Background()

	_, err := repo.VehicleEmission(ctx, "bus")
	require.NoError(t, err)
	_, err = repo.VehicleEmission(ctx, "spaceship")
	require.Error(t, err)

	assert.Equal(t, 0, db.Stats().InUse)
}

func TestEmissionRepository_ConnectionFailureIsUnavailable(t *testing.T) {
	s := testutil.NewServer(t, testutil.Seed{}, database.WithOpener(func(database.Target) (*sql.DB, error) {
		return nil, errors.New("dial tcp 127.0.0.1:3306: connect: connection refused")
	}))
	repo := NewRepositories(s).Emission

	v, err := repo.TrafficFactor(context.Background(), "low")
	assert.Equal(t, 0.0, v)
	assert.True(t, errs.IsUnavailable(err), "got %v", err)
	assert.False(t, errs.IsNotFound(err))
}

func TestEmissionRepository_MissingTableIsInternal(t *testing.T) {
	// Schema never migrated: the query fails instead of matching nothing.
	s := testutil.NewServer(t, testutil.Seed{}, database.WithOpener(func(target database.Target) (*sql.DB, error) {
		return sql.Open(string(target.Driver), target.DSN)
	}))
	repo := NewRepositories(s).Emission

	_, err := repo.DeviceEmission(context.Background(), "laptop")
	require.Error(t, err)
	assert.False(t, errs.IsNotFound(err))
	assert.Equal(t, 500, errs.StatusOf(err))
}

func TestEmissionRepository_UnknownKind(t *testing.T) {
	repo, _ := newRepo(t)
	_, err := repo.Lookup(context.Background(), Kind("boat"), "x")
	assert.Error(t, err)
}

type countingProvider struct {
	ConnProvider
	conns int
}

func (c *countingProvider) Conn(ctx context.Context) (*sql.Conn, error) {
	c.conns++
	return c.ConnProvider.Conn(ctx)
}

func TestEmissionRepository_OneConnectionPerCall(t *testing.T) {
	_, db := newRepo(t)
	provider := &countingProvider{ConnProvider: db}
	logger := zerolog.Nop()
	repo := NewEmissionRepository(provider, &logger, time.Nanosecond)

	for i := 0; i < 3; i++ {
		_, err := repo.TrafficFactor(context.Background(), "medium")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, provider.conns)
}

func TestParseKind(t *testing.T) {
	for input, want := range map[string]Kind{
		"device":         KindDevice,
		"Vehicles":       KindVehicle,
		"traffic_levels": KindTraffic,
		"traffic-level":  KindTraffic,
	} {
		got, err := ParseKind(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseKind("boat")
	assert.Error(t, err)

	assert.Equal(t, "traffic_levels", KindTraffic.Table())
}

func TestEmissionRepository_CanceledContext(t *testing.T) {
	repo, db := newRepo(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.TrafficFactor(ctx, "low")
	assert.True(t, errs.IsCanceled(err), "got %v", err)
	assert.Equal(t, 0, db.Stats().InUse)
}
