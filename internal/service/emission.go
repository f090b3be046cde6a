package service

import (
	"context"

	"github.com/deppfellow/emission-lookup/internal/errs"
	"github.com/deppfellow/emission-lookup/internal/repository"
	"github.com/rs/zerolog"
)

// DefaultValue is returned by the defaulting lookups when nothing matched or
// the database could not be queried.
const DefaultValue = 0.0

// Lookuper is the strict lookup surface. *repository.EmissionRepository
// satisfies it.
type Lookuper interface {
	Lookup(ctx context.Context, kind repository.Kind, key string) (float64, error)
}

type EmissionService struct {
	repo Lookuper
	log  *zerolog.Logger
}

func NewEmissionService(repo Lookuper, logger *zerolog.Logger) *EmissionService {
	return &EmissionService{
		repo: repo,
		log:  logger,
	}
}

// GetDeviceEmission returns the emission value of the named device, or 0.0.
func (s *EmissionService) GetDeviceEmission(ctx context.Context, name string) float64 {
	return s.orDefault(ctx, repository.KindDevice, name)
}

// GetVehicleEmission returns the emission value of the vehicle type, or 0.0.
func (s *EmissionService) GetVehicleEmission(ctx context.Context, vehicleType string) float64 {
	return s.orDefault(ctx, repository.KindVehicle, vehicleType)
}

// GetTrafficFactor returns the factor of the traffic level, or 0.0.
func (s *EmissionService) GetTrafficFactor(ctx context.Context, level string) float64 {
	return s.orDefault(ctx, repository.KindTraffic, level)
}

// Lookup is the strict form: the error is returned, not masked.
func (s *EmissionService) Lookup(ctx context.Context, kind repository.Kind, key string) (float64, error) {
	return s.repo.Lookup(ctx, kind, key)
}

// orDefault never fails. Misses are logged at debug, cancellations at warn,
// anything else at error.
func (s *EmissionService) orDefault(ctx context.Context, kind repository.Kind, key string) float64 {
	value, err := s.repo.Lookup(ctx, kind, key)
	if err == nil {
		return value
	}

	logger := s.loggerFor(ctx)
	var event *zerolog.Event
	switch {
	case errs.IsNotFound(err):
		event = logger.Debug()
	case errs.IsCanceled(err):
		event = logger.Warn()
	default:
		event = logger.Error()
	}
	event.
		Err(err).
		Str("table", kind.Table()).
		Str("key", key).
		Float64("default", DefaultValue).
		Msg("emission lookup fell back to default")

	return DefaultValue
}

// loggerFor prefers the request-scoped logger stored in ctx.
func (s *EmissionService) loggerFor(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return s.log
}
