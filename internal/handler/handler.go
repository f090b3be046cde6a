// Package handler is the first layer after the router.
//
// It parses path and query parameters, validates them using the validation
// package, calls the service layer and shapes the JSON response.
package handler
