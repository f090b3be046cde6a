package handler

import (
	"net/http"

	"github.com/deppfellow/emission-lookup/internal/repository"
	"github.com/deppfellow/emission-lookup/internal/server"
	"github.com/deppfellow/emission-lookup/internal/service"
	"github.com/deppfellow/emission-lookup/internal/validation"
	"github.com/labstack/echo/v4"
)

// DeviceEmissionRequest is GET /api/v1/devices/:name/emission.
type DeviceEmissionRequest struct {
	Name   string `param:"name" validate:"required,max=255"`
	Strict bool   `query:"strict"`
}

func (r *DeviceEmissionRequest) Validate() error { return validation.Struct(r) }

// VehicleEmissionRequest is GET /api/v1/vehicles/:type/emission.
type VehicleEmissionRequest struct {
	Type   string `param:"type" validate:"required,max=255"`
	Strict bool   `query:"strict"`
}

func (r *VehicleEmissionRequest) Validate() error { return validation.Struct(r) }

// TrafficFactorRequest is GET /api/v1/traffic-levels/:level/factor.
type TrafficFactorRequest struct {
	Level  string `param:"level" validate:"required,max=255"`
	Strict bool   `query:"strict"`
}

func (r *TrafficFactorRequest) Validate() error { return validation.Struct(r) }

type DeviceEmissionResponse struct {
	Name          string  `json:"name"`
	EmissionValue float64 `json:"emission_value"`
}

type VehicleEmissionResponse struct {
	Type          string  `json:"type"`
	EmissionValue float64 `json:"emission_value"`
}

type TrafficFactorResponse struct {
	Level  string  `json:"level"`
	Factor float64 `json:"factor"`
}

// EmissionHandler serves the three lookups. Without ?strict=true a miss or a
// database failure answers 200 with the 0.0 default; with it they answer
// 404 and 503.
type EmissionHandler struct {
	Handler
	emission *service.EmissionService
}

func NewEmissionHandler(s *server.Server, emission *service.EmissionService) *EmissionHandler {
	return &EmissionHandler{
		Handler:  NewHandler(s),
		emission: emission,
	}
}

func (h *EmissionHandler) GetDeviceEmission() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *DeviceEmissionRequest) (*DeviceEmissionResponse, error) {
		ctx := c.Request().Context()
		if !req.Strict {
			return &DeviceEmissionResponse{Name: req.Name, EmissionValue: h.emission.GetDeviceEmission(ctx, req.Name)}, nil
		}

		value, err := h.emission.Lookup(ctx, repository.KindDevice, req.Name)
		if err != nil {
			return nil, err
		}
		return &DeviceEmissionResponse{Name: req.Name, EmissionValue: value}, nil
	}, http.StatusOK, func() *DeviceEmissionRequest { return &DeviceEmissionRequest{} })
}

func (h *EmissionHandler) GetVehicleEmission() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *VehicleEmissionRequest) (*VehicleEmissionResponse, error) {
		ctx := c.Request().Context()
		if !req.Strict {
			return &VehicleEmissionResponse{Type: req.Type, EmissionValue: h.emission.GetVehicleEmission(ctx, req.Type)}, nil
		}

		value, err := h.emission.Lookup(ctx, repository.KindVehicle, req.Type)
		if err != nil {
			return nil, err
		}
		return &VehicleEmissionResponse{Type: req.Type, EmissionValue: value}, nil
	}, http.StatusOK, func() *VehicleEmissionRequest { return &VehicleEmissionRequest{} })
}

func (h *EmissionHandler) GetTrafficFactor() echo.HandlerFunc {
	return Handle(h.Handler, func(c echo.Context, req *TrafficFactorRequest) (*TrafficFactorResponse, error) {
		ctx := c.Request().Context()
		if !req.Strict {
			return &TrafficFactorResponse{Level: req.Level, Factor: h.emission.GetTrafficFactor(ctx, req.Level)}, nil
		}

		value, err := h.emission.Lookup(ctx, repository.KindTraffic, req.Level)
		if err != nil {
			return nil, err
		}
		return &TrafficFactorResponse{Level: req.Level, Factor: value}, nil
	}, http.StatusOK, func() *TrafficFactorRequest { return &TrafficFactorRequest{} })
}
