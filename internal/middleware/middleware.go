// Package middleware stores global and route-specific middleware.
//
// These intercept requests to handle cross-cutting concerns such as request
// IDs, request-scoped logging, CORS, rate limiting, panic recovery and the
// final translation of errors into JSON responses.
package middleware
