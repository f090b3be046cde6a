package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/emission-lookup/internal/sqlerr"
	"github.com/rs/zerolog"
)

// Kind selects one of the three lookup tables.
type Kind string

const (
	KindDevice  Kind = "device"
	KindVehicle Kind = "vehicle"
	KindTraffic Kind = "traffic"
)

// Kinds lists every Kind in a stable order.
var Kinds = []Kind{KindDevice, KindVehicle, KindTraffic}

// ParseKind accepts the kind names plus the table names they read.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "device", "devices":
		return KindDevice, nil
	case "vehicle", "vehicles":
		return KindVehicle, nil
	case "traffic", "traffic_level", "traffic_levels", "traffic-level", "traffic-levels":
		return KindTraffic, nil
	}
	return "", fmt.Errorf("unknown lookup kind %q (want device, vehicle or traffic)", s)
}

// lookupQuery is one fixed single-placeholder SELECT.
type lookupQuery struct {
	table  string
	column string
	sql    string
}

var queries = map[Kind]lookupQuery{
	KindDevice: {
		table:  "devices",
		column: "emission_value",
		sql:    "SELECT emission_value FROM devices WHERE name = ?",
	},
	KindVehicle: {
		table:  "vehicles",
		column: "emission_value",
		sql:    "SELECT emission_value FROM vehicles WHERE type = ?",
	},
	KindTraffic: {
		table:  "traffic_levels",
		column: "factor",
		sql:    "SELECT factor FROM traffic_levels WHERE level = ?",
	},
}

// Table returns the table a Kind reads.
func (k Kind) Table() string {
	return queries[k].table
}

// EmissionRepository runs the emission lookups.
//
// Every call acquires its own connection and closes it before returning,
// whatever the outcome. A missing row is reported as a 404 *errs.HTTPError,
// an unreachable database as a 503 and anything else as a 500; see sqlerr.
type EmissionRepository struct {
	db                 ConnProvider
	log                *zerolog.Logger
	slowQueryThreshold time.Duration
}

func NewEmissionRepository(db ConnProvider, logger *zerolog.Logger, slowQueryThreshold time.Duration) *EmissionRepository {
	return &EmissionRepository{
		db:                 db,
		log:                logger,
		slowQueryThreshold: slowQueryThreshold,
	}
}

// DeviceEmission returns devices.emission_value for the device name.
func (r *EmissionRepository) DeviceEmission(ctx context.Context, name string) (float64, error) {
	return r.Lookup(ctx, KindDevice, name)
}

// VehicleEmission returns vehicles.emission_value for the vehicle type.
func (r *EmissionRepository) VehicleEmission(ctx context.Context, vehicleType string) (float64, error) {
	return r.Lookup(ctx, KindVehicle, vehicleType)
}

// TrafficFactor returns traffic_levels.factor for the traffic level.
func (r *EmissionRepository) TrafficFactor(ctx context.Context, level string) (float64, error) {
	return r.Lookup(ctx, KindTraffic, level)
}

// Lookup runs the query for kind with key as its only parameter and reads
// the numeric column of the first row. A NULL column reads as 0.
func (r *EmissionRepository) Lookup(ctx context.Context, kind Kind, key string) (value float64, err error) {
	q, ok := queries[kind]
	if !ok {
		return 0, fmt.Errorf("unknown lookup kind %q", kind)
	}

	start := time.Now()
	defer func() {
		r.logSlow(q, key, time.Since(start))
	}()

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return 0, sqlerr.HandleError(err, q.table)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			r.log.Warn().Err(closeErr).Str("table", q.table).Msg("failed to release connection")
		}
	}()

	var column sql.NullFloat64
	if err := conn.QueryRowContext(ctx, r.db.Driver().Rebind(q.sql), key).Scan(&column); err != nil {
		return 0, sqlerr.HandleError(err, q.table)
	}

	return column.Float64, nil
}

func (r *EmissionRepository) logSlow(q lookupQuery, key string, elapsed time.Duration) {
	if r.slowQueryThreshold <= 0 || elapsed < r.slowQueryThreshold {
		return
	}
	r.log.Warn().
		Str("table", q.table).
		Str("column", q.column).
		Str("key", key).
		Dur("duration", elapsed).
		Msg("slow lookup")
}
