package errs

import (
	"errors"
	"net/http"
	"strings"
)

// FieldError represents a field-level validation error.
//
//	{ "field": "name", "error": "is required" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ActionType is a string-based enum describing what the client should do.
type ActionType string

const (
	// ActionTypeRetry tells the client the request may succeed later.
	ActionTypeRetry ActionType = "retry"
)

// Action describes an optional "what the client should do next" instruction.
type Action struct {
	Type    ActionType `json:"type"`
	Message string     `json:"message"`
	Value   string     `json:"value"`
}

// HTTPError is the main application error type.
//
// Fields:
//   - Code: machine-friendly error code (e.g. "DEVICE_NOT_FOUND").
//   - Message: human-friendly message.
//   - Status: HTTP status code.
//   - Override: whether clients may show Message verbatim.
//   - Errors: per-field errors (validation).
//   - Action: client instruction (optional).
//
// The driver error that caused it, if any, is reachable through errors.Unwrap
// but never serialized.
type HTTPError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Status   int    `json:"status"`
	Override bool   `json:"override"`

	Errors []FieldError `json:"errors"`
	Action *Action      `json:"action"`

	cause error
}

func (e *HTTPError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *HTTPError) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *HTTPError. It does not compare fields.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// WithMessage returns a copy of this HTTPError with Message replaced.
func (e *HTTPError) WithMessage(message string) *HTTPError {
	cp := *e
	cp.Message = message
	return &cp
}

// WithCause returns a copy of this HTTPError wrapping cause.
func (e *HTTPError) WithCause(cause error) *HTTPError {
	cp := *e
	cp.cause = cause
	return &cp
}

// StatusOf returns the status carried by err, or 500 if err is not an *HTTPError.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return http.StatusInternalServerError
}

// IsNotFound reports whether err means "no matching row".
func IsNotFound(err error) bool {
	return err != nil && StatusOf(err) == http.StatusNotFound
}

// IsUnavailable reports whether err means "database unreachable".
func IsUnavailable(err error) bool {
	return err != nil && StatusOf(err) == http.StatusServiceUnavailable
}

// IsCanceled reports whether err is a 499 HTTPError.
func IsCanceled(err error) bool {
	return err != nil && StatusOf(err) == StatusClientClosedRequest
}

// MakeUpperCaseWithUnderscores converts "Bad Request" into "BAD_REQUEST".
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
