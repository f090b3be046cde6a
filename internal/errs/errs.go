// Package errs defines the application error type.
//
// Lookups, handlers and the CLI all speak *HTTPError so a caller can tell a
// missing row (404) from an unreachable database (503) or any other failure
// (500), while clients always receive the same JSON shape.
package errs
