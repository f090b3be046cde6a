package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/deppfellow/emission-lookup/internal/database"
	"github.com/deppfellow/emission-lookup/internal/errs"
	"github.com/deppfellow/emission-lookup/internal/repository"
	"github.com/deppfellow/emission-lookup/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, opts ...database.Option) *EmissionService {
	t.Helper()
	s := testutil.NewServer(t, testutil.DefaultSeed(), opts...)
	return NewServices(s, repository.NewRepositories(s)).Emission
}

func TestEmissionService_KnownKeysReturnStoredValue(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.Equal(t, 0.05, svc.GetDeviceEmission(ctx, "laptop"))
	assert.Equal(t, 0.103, svc.GetVehicleEmission(ctx, "motorcycle"))
	assert.Equal(t, 1.2, svc.GetTrafficFactor(ctx, "medium"))
}

func TestEmissionService_MissingKeysReturnDefault(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.Equal(t, 0.0, svc.GetDeviceEmission(ctx, "toaster"))
	assert.Equal(t, 0.0, svc.GetVehicleEmission(ctx, "hovercraft"))
	assert.Equal(t, 0.0, svc.GetTrafficFactor(ctx, "gridlock"))
}

func TestEmissionService_ConnectionFailureReturnsDefault(t *testing.T) {
	svc := newService(t, database.WithOpener(func(database.Target) (*sql.DB, error) {
		return nil, errors.New("connection refused")
	}))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		assert.Equal(t, 0.0, svc.GetDeviceEmission(ctx, "laptop"))
		assert.Equal(t, 0.0, svc.GetVehicleEmission(ctx, "car"))
		assert.Equal(t, 0.0, svc.GetTrafficFactor(ctx, "low"))
	})

	_, err := svc.Lookup(ctx, repository.KindDevice, "laptop")
	assert.True(t, errs.IsUnavailable(err))
}

func TestEmissionService_StrictLookupDistinguishesMiss(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	v, err := svc.Lookup(ctx, repository.KindVehicle, "bus")
	require.NoError(t, err)
	assert.Equal(t, 0.105, v)

	_, err = svc.Lookup(ctx, repository.KindVehicle, "hovercraft")
	assert.True(t, errs.IsNotFound(err))
}

type stubLookuper struct {
	value float64
	err   error
}

func (s stubLookuper) Lookup(context.Context, repository.Kind, string) (float64, error) {
	return s.value, s.err
}

func TestEmissionService_LogsFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)

	failing := NewEmissionService(stubLookuper{err: errs.NewServiceUnavailableError()}, &logger)
	assert.Equal(t, 0.0, failing.GetTrafficFactor(context.Background(), "high"))
	assert.Contains(t, buf.String(), `"level":"error"`)
	assert.Contains(t, buf.String(), `"table":"traffic_levels"`)

	buf.Reset()
	missing := NewEmissionService(stubLookuper{err: errs.NewNotFoundError("Device not found", true, nil)}, &logger)
	assert.Equal(t, 0.0, missing.GetDeviceEmission(context.Background(), "toaster"))
	// Misses log at debug, below the configured level.
	assert.Empty(t, buf.String())
}

func TestEmissionService_CanceledLogsAtWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)

	svc := NewEmissionService(stubLookuper{err: errs.NewRequestCanceledError()}, &logger)
	assert.Equal(t, 0.0, svc.GetDeviceEmission(context.Background(), "laptop"))
	assert.Contains(t, buf.String(), `"level":"warn"`)
}

func TestEmissionService_UsesContextLogger(t *testing.T) {
	var appBuf, reqBuf bytes.Buffer
	appLogger := zerolog.New(&appBuf)
	reqLogger := zerolog.New(&reqBuf).With().Str("request_id", "abc").Logger()

	svc := NewEmissionService(stubLookuper{err: errors.New("boom")}, &appLogger)
	ctx := reqLogger.WithContext(context.Background())

	svc.GetVehicleEmission(ctx, "car")
	assert.Empty(t, appBuf.String())
	assert.Contains(t, reqBuf.String(), `"request_id":"abc"`)
}
