// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file when one
// exists), layers them over built-in defaults, loads them into structured Go
// types and validates the result so the rest of the application receives a
// single injected *Config instead of reading the environment itself.
//
// Two families of variables are read:
//   - DB_URL, DB_USER, DB_PASSWORD, DB_CONNECT_TIMEOUT for the database target.
//   - EMISSIONS_<SECTION>__<FIELD> for everything else, where "__" separates
//     nesting levels, e.g. EMISSIONS_SERVER__PORT -> server.port.
//
// A variable that is set but empty is treated exactly like an unset one.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	// Side-effect import: loads `.env` into the process environment before
	// Load reads it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

const (
	// DefaultDatabaseURL is the target used when DB_URL is unset or empty.
	DefaultDatabaseURL = "jdbc:mysql://localhost:3306/projectcrud?useSSL=false"

	// DefaultDatabaseUser is the user used when DB_USER is unset or empty.
	DefaultDatabaseUser = "root"

	// DefaultDatabasePassword is the password used when DB_PASSWORD is unset or empty.
	DefaultDatabasePassword = ""

	databaseEnvPrefix = "DB_"
	appEnvPrefix      = "EMISSIONS_"
)

// Config is the root configuration object for the application.
//
// The `koanf:"..."` tags specify where koanf maps values from; the
// `validate:"..."` tags are enforced by go-playground/validator.
type Config struct {
	Primary       Primary             `koanf:"primary" validate:"required"`
	Server        ServerConfig        `koanf:"server" validate:"required"`
	Database      DatabaseConfig      `koanf:"database" validate:"required"`
	Observability ObservabilityConfig `koanf:"observability" validate:"required"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required,min=1"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required,min=1"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required,min=1"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`

	// RateLimit is the sustained number of API requests per second allowed
	// per client IP. Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit" validate:"min=0"`
}

// DatabaseConfig describes the database the lookups run against.
//
// URL accepts the JDBC form (jdbc:mysql://host:3306/db?useSSL=false) as well
// as mysql://, postgres://, postgresql:// and sqlite: URLs. User and Password
// always win over credentials embedded in URL.
type DatabaseConfig struct {
	URL      string `koanf:"url" validate:"required"`
	User     string `koanf:"user" validate:"required"`
	Password string `koanf:"password"`

	// ConnectTimeout bounds opening a connection, in seconds.
	ConnectTimeout int `koanf:"connect_timeout" validate:"min=1"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"primary.env": "local",

		"server.port":                 "8080",
		"server.read_timeout":         30,
		"server.write_timeout":        30,
		"server.idle_timeout":         60,
		"server.cors_allowed_origins": []string{"*"},
		"server.rate_limit":           20.0,

		"database.url":             DefaultDatabaseURL,
		"database.user":            DefaultDatabaseUser,
		"database.password":        DefaultDatabasePassword,
		"database.connect_timeout": 10,

		"observability.logging.level":                "info",
		"observability.logging.format":               "json",
		"observability.logging.slow_query_threshold": "100ms",
		"observability.health_checks.timeout":        "5s",
	}
}

// databaseKey maps DB_URL -> database.url, DB_CONNECT_TIMEOUT -> database.connect_timeout.
func databaseKey(key, value string) (string, interface{}) {
	if value == "" {
		return "", nil
	}
	return "database." + strings.ToLower(strings.TrimPrefix(key, databaseEnvPrefix)), value
}

// appKey maps EMISSIONS_OBSERVABILITY__LOGGING__LEVEL -> observability.logging.level.
func appKey(key, value string) (string, interface{}) {
	if value == "" {
		return "", nil
	}
	k := strings.ToLower(strings.TrimPrefix(key, appEnvPrefix))
	return strings.ReplaceAll(k, "__", "."), value
}

// Load builds the configuration from defaults and the environment,
// validates it and returns it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("could not load config defaults: %w", err)
	}

	if err := k.Load(env.ProviderWithValue(databaseEnvPrefix, ".", databaseKey), nil); err != nil {
		return nil, fmt.Errorf("could not load database env variables: %w", err)
	}

	if err := k.Load(env.ProviderWithValue(appEnvPrefix, ".", appKey), nil); err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	mainConfig.Observability.ServiceName = ServiceName
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}

// IsLocal reports whether the application runs on a developer machine.
func (c *Config) IsLocal() bool {
	return c.Primary.Env == "local"
}
