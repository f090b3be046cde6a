package handler

import (
	"github.com/deppfellow/emission-lookup/internal/server"
	"github.com/deppfellow/emission-lookup/internal/service"
)

// Handlers groups all HTTP handlers so the router receives one value.
type Handlers struct {
	Health   *HealthHandler
	Emission *EmissionHandler
	OpenAPI  *OpenAPIHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(s),
		Emission: NewEmissionHandler(s, services.Emission),
		OpenAPI:  NewOpenAPIHandler(s),
	}
}
