package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/deppfellow/emission-lookup/internal/errs"
	"github.com/deppfellow/emission-lookup/internal/repository"
	"github.com/deppfellow/emission-lookup/internal/service"
	"github.com/deppfellow/emission-lookup/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEmissionHandler(t *testing.T) *EmissionHandler {
	t.Helper()
	s := testutil.NewServer(t, testutil.DefaultSeed())
	services := service.NewServices(s, repository.NewRepositories(s))
	return NewEmissionHandler(s, services.Emission)
}

func newContext(target, param, value string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), rec)
	c.SetParamNames(param)
	c.SetParamValues(value)
	return c, rec
}

func TestEmissionHandler_GetDeviceEmission(t *testing.T) {
	h := newEmissionHandler(t)

	c, rec := newContext("/", "name", "refrigerator")
	require.NoError(t, h.GetDeviceEmission()(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"name":"refrigerator","emission_value":0.15}`, rec.Body.String())
}

func TestEmissionHandler_GetVehicleEmission_Strict(t *testing.T) {
	h := newEmissionHandler(t)

	c, _ := newContext("/?strict=true", "type", "tram")
	err := h.GetVehicleEmission()(c)

	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestEmissionHandler_GetTrafficFactor_Default(t *testing.T) {
	h := newEmissionHandler(t)

	c, rec := newContext("/", "level", "gridlock")
	require.NoError(t, h.GetTrafficFactor()(c))

	assert.JSONEq(t, `{"level":"gridlock","factor":0}`, rec.Body.String())
}

func TestEmissionHandler_RejectsOverlongKey(t *testing.T) {
	h := newEmissionHandler(t)

	c, _ := newContext("/", "name", strings.Repeat("x", 256))
	err := h.GetDeviceEmission()(c)

	var httpErr *errs.HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	require.Len(t, httpErr.Errors, 1)
	assert.Equal(t, "name", httpErr.Errors[0].Field)
}
