// Package router initializes the HTTP router (using Echo).
//
// It registers the middlewares and defines the API route groups,
// mapping specific paths to their corresponding handlers
package router

import (
	"github.com/deppfellow/emission-lookup/internal/handler"
	"github.com/deppfellow/emission-lookup/internal/middleware"
	"github.com/deppfellow/emission-lookup/internal/server"
	"github.com/labstack/echo/v4"
)

// NewRouter builds the Echo instance serving the lookup API.
func NewRouter(s *server.Server, h *handler.Handlers) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middleware.RequestID(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
		middlewares.Global.Secure(),
		middlewares.Global.CORS(),
	)

	registerSystemRoutes(router, h)

	v1 := router.Group("/api/v1", middlewares.RateLimit.Limit())
	registerEmissionRoutes(v1, h)

	return router
}
