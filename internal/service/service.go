// Package service contains the business logic.
//
// It sits between the handler and repository layers. EmissionService offers
// the lookups in two forms: the defaulting form returns 0.0 whenever no
// value can be produced, the strict form returns the repository error so
// callers can tell a miss from a failure.
package service
