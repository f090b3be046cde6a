// Package testutil builds throwaway SQLite-backed servers for tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/deppfellow/emission-lookup/internal/config"
	"github.com/deppfellow/emission-lookup/internal/database"
	"github.com/deppfellow/emission-lookup/internal/server"
	"github.com/rs/zerolog"
)

// Seed holds the rows inserted into each lookup table.
type Seed struct {
	Devices       map[string]float64
	Vehicles      map[string]float64
	TrafficLevels map[string]float64
}

// DefaultSeed is a small, realistic data set.
func DefaultSeed() Seed {
	return Seed{
		Devices: map[string]float64{
			"laptop":       0.05,
			"refrigerator": 0.15,
			"television":   0.1,
		},
		Vehicles: map[string]float64{
			"car":        0.192,
			"bus":        0.105,
			"motorcycle": 0.103,
		},
		TrafficLevels: map[string]float64{
			"low":    1.0,
			"medium": 1.2,
			"high":   1.5,
		},
	}
}

// Config returns a test configuration pointing at a fresh SQLite file.
func Config(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Primary: config.Primary{Env: "test"},
		Server: config.ServerConfig{
			Port:               "0",
			ReadTimeout:        5,
			WriteTimeout:       5,
			IdleTimeout:        5,
			CORSAllowedOrigins: []string{"*"},
		},
		Database: config.DatabaseConfig{
			URL:            "sqlite:" + filepath.Join(t.TempDir(), "emissions.db"),
			User:           config.DefaultDatabaseUser,
			ConnectTimeout: 5,
		},
		Observability: config.ObservabilityConfig{
			ServiceName: config.ServiceName,
			Environment: "test",
			Logging: config.LoggingConfig{
				Level:              "debug",
				Format:             "json",
				SlowQueryThreshold: time.Second,
			},
			HealthChecks: config.HealthChecksConfig{Timeout: 2 * time.Second},
		},
	}
}

// NewServer builds a Server over a migrated, seeded SQLite database and
// closes it when the test ends.
func NewServer(t *testing.T, seed Seed, opts ...database.Option) *server.Server {
	t.Helper()

	logger := zerolog.Nop()
	s, err := server.New(Config(t), &logger, opts...)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	if len(opts) == 0 {
		Populate(t, s.DB, seed)
	}
	return s
}

// Populate creates the schema and inserts seed.
func Populate(t *testing.T, db *database.Factory, seed Seed) {
	t.Helper()
	ctx := context.Background()
	logger := zerolog.Nop()

	if err := database.Migrate(ctx, &logger, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("conn: %v", err)
	}
	defer conn.Close()

	insert := func(query string, rows map[string]float64) {
		for key, value := range rows {
			if _, err := conn.ExecContext(ctx, query, key, value); err != nil {
				t.Fatalf("insert %q: %v", key, err)
			}
		}
	}
	insert("INSERT INTO devices (name, emission_value) VALUES (?, ?)", seed.Devices)
	insert("INSERT INTO vehicles (type, emission_value) VALUES (?, ?)", seed.Vehicles)
	insert("INSERT INTO traffic_levels (level, factor) VALUES (?, ?)", seed.TrafficLevels)
}
