package middleware

import (
	"github.com/deppfellow/emission-lookup/internal/server"
)

// Middlewares groups all middleware components used by the HTTP server.
type Middlewares struct {
	Global          *GlobalMiddlewares
	ContextEnhancer *ContextEnhancer
	RateLimit       *RateLimitMiddleware
}

// NewMiddlewares constructs all middleware components once.
func NewMiddlewares(s *server.Server) *Middlewares {
	return &Middlewares{
		Global:          NewGlobalMiddlewares(s),
		ContextEnhancer: NewContextEnhancer(s),
		RateLimit:       NewRateLimitMiddleware(s),
	}
}
