package router

import (
	"github.com/deppfellow/emission-lookup/internal/handler"
	"github.com/labstack/echo/v4"
)

func registerEmissionRoutes(g *echo.Group, h *handler.Handlers) {
	g.GET("/devices/:name/emission", h.Emission.GetDeviceEmission())
	g.GET("/vehicles/:type/emission", h.Emission.GetVehicleEmission())
	g.GET("/traffic-levels/:level/factor", h.Emission.GetTrafficFactor())
}
