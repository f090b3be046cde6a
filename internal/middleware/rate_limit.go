package middleware

import (
	"github.com/deppfellow/emission-lookup/internal/errs"
	"github.com/deppfellow/emission-lookup/internal/server"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

type RateLimitMiddleware struct {
	server *server.Server
}

func NewRateLimitMiddleware(s *server.Server) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		server: s,
	}
}

// Limit throttles each client IP to Server.RateLimit requests per second,
// with a burst of the same size. A zero rate disables limiting.
func (r *RateLimitMiddleware) Limit() echo.MiddlewareFunc {
	limit := r.server.Config.Server.RateLimit
	if limit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	burst := int(limit)
	if burst < 1 {
		burst = 1
	}

	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:  rate.Limit(limit),
		Burst: burst,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			r.RecordRateLimitHit(c, identifier)
			return errs.NewTooManyRequestsError("Too many lookups, slow down")
		},
	})
}

// RecordRateLimitHit logs a rejected request.
func (r *RateLimitMiddleware) RecordRateLimitHit(c echo.Context, identifier string) {
	GetLogger(c).Warn().
		Str("endpoint", c.Path()).
		Str("client", identifier).
		Msg("rate limit hit")
}
