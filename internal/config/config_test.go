package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads. Empty counts as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"DB_URL", "DB_USER", "DB_PASSWORD", "DB_CONNECT_TIMEOUT",
		"EMISSIONS_PRIMARY__ENV",
		"EMISSIONS_SERVER__PORT",
		"EMISSIONS_SERVER__RATE_LIMIT",
		"EMISSIONS_OBSERVABILITY__LOGGING__LEVEL",
		"EMISSIONS_OBSERVABILITY__LOGGING__FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabaseURL, cfg.Database.URL)
	assert.Equal(t, "root", cfg.Database.User)
	assert.Equal(t, "", cfg.Database.Password)
	assert.Equal(t, 10, cfg.Database.ConnectTimeout)

	assert.Equal(t, "local", cfg.Primary.Env)
	assert.True(t, cfg.IsLocal())
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.InDelta(t, 20.0, cfg.Server.RateLimit, 1e-9)

	assert.Equal(t, "info", cfg.Observability.Logging.Level)
	assert.Equal(t, "json", cfg.Observability.Logging.Format)
	assert.Equal(t, 100*time.Millisecond, cfg.Observability.Logging.SlowQueryThreshold)
	assert.Equal(t, 5*time.Second, cfg.Observability.HealthChecks.Timeout)
	assert.Equal(t, ServiceName, cfg.Observability.ServiceName)
	assert.Equal(t, "local", cfg.Observability.Environment)
}

func TestLoad_DatabaseOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_URL", "postgres://db.internal:5432/emissions")
	t.Setenv("DB_USER", "calc")
	t.Setenv("DB_PASSWORD", "s3cret")
	t.Setenv("DB_CONNECT_TIMEOUT", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://db.internal:5432/emissions", cfg.Database.URL)
	assert.Equal(t, "calc", cfg.Database.User)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, 3, cfg.Database.ConnectTimeout)
}

func TestLoad_EmptyValueFallsBackToDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_USER", "")
	t.Setenv("DB_URL", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultDatabaseUser, cfg.Database.User)
	assert.Equal(t, DefaultDatabaseURL, cfg.Database.URL)
}

func TestLoad_AppOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("EMISSIONS_PRIMARY__ENV", "production")
	t.Setenv("EMISSIONS_SERVER__PORT", "9090")
	t.Setenv("EMISSIONS_SERVER__RATE_LIMIT", "2.5")
	t.Setenv("EMISSIONS_OBSERVABILITY__LOGGING__LEVEL", "debug")
	t.Setenv("EMISSIONS_OBSERVABILITY__LOGGING__FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "production", cfg.Primary.Env)
	assert.True(t, cfg.Observability.IsProduction())
	assert.False(t, cfg.IsLocal())
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.InDelta(t, 2.5, cfg.Server.RateLimit, 1e-9)
	assert.Equal(t, "debug", cfg.Observability.Logging.Level)
	assert.Equal(t, "console", cfg.Observability.Logging.Format)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("unknown log level", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("EMISSIONS_OBSERVABILITY__LOGGING__LEVEL", "loud")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid logging level")
	})

	t.Run("unknown log format", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("EMISSIONS_OBSERVABILITY__LOGGING__FORMAT", "xml")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "config validation failed")
	})
}

func TestObservabilityConfig_GetLogLevel(t *testing.T) {
	c := &ObservabilityConfig{Environment: "production"}
	assert.Equal(t, "info", c.GetLogLevel())

	c.Environment = "staging"
	assert.Equal(t, "debug", c.GetLogLevel())

	c.Logging.Level = "warn"
	assert.Equal(t, "warn", c.GetLogLevel())
}
