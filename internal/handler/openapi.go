package handler

import (
	"embed"
	"fmt"
	"net/http"

	"github.com/deppfellow/emission-lookup/internal/server"
	"github.com/labstack/echo/v4"
)

//go:embed static/openapi.html static/openapi.json
var staticFiles embed.FS

// OpenAPIHandler serves the API document and a browser UI for it.
type OpenAPIHandler struct {
	Handler
}

func NewOpenAPIHandler(s *server.Server) *OpenAPIHandler {
	return &OpenAPIHandler{
		Handler: NewHandler(s),
	}
}

// ServeOpenAPIUI serves the docs page. Caching is disabled so a redeploy
// shows up immediately.
func (h *OpenAPIHandler) ServeOpenAPIUI(c echo.Context) error {
	return h.serve(c, "static/openapi.html", echo.MIMETextHTMLCharsetUTF8)
}

// ServeOpenAPISpec serves the raw OpenAPI document the UI loads.
func (h *OpenAPIHandler) ServeOpenAPISpec(c echo.Context) error {
	return h.serve(c, "static/openapi.json", echo.MIMEApplicationJSONCharsetUTF8)
}

func (h *OpenAPIHandler) serve(c echo.Context, name, contentType string) error {
	body, err := staticFiles.ReadFile(name)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}

	c.Response().Header().Set("Cache-Control", "no-cache")
	if err := c.Blob(http.StatusOK, contentType, body); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
