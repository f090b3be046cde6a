package service

import (
	"github.com/deppfellow/emission-lookup/internal/repository"
	"github.com/deppfellow/emission-lookup/internal/server"
)

type Services struct {
	Emission *EmissionService
}

func NewServices(s *server.Server, repos *repository.Repositories) *Services {
	return &Services{
		Emission: NewEmissionService(repos.Emission, s.Logger),
	}
}
