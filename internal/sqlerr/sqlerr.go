// Package sqlerr specifically handles database driver errors.
//
// It recognizes the error types of every driver the application can talk to
// (MySQL, PostgreSQL through pgx, SQLite) and converts them into application
// errors, so the lookup layer can tell a missing row from an unreachable
// database without knowing which driver is behind the connection.
package sqlerr

import "fmt"

// Code is a driver-independent error category.
type Code int

const (
	// Other is any error that does not fit a more specific category.
	Other Code = iota
	// NoRows means the query matched nothing.
	NoRows
	// ConnectionFailure means the database could not be reached or the
	// connection broke mid-query.
	ConnectionFailure
	// AuthenticationFailure means the server rejected the credentials or the
	// database name.
	AuthenticationFailure
	// UndefinedTable means the queried table does not exist.
	UndefinedTable
	// UndefinedColumn means the queried column does not exist.
	UndefinedColumn
	// SyntaxError means the server could not parse the statement.
	SyntaxError
	// Canceled means the caller gave up before the query finished.
	Canceled
)

func (c Code) String() string {
	switch c {
	case NoRows:
		return "no_rows"
	case ConnectionFailure:
		return "connection_failure"
	case AuthenticationFailure:
		return "authentication_failure"
	case UndefinedTable:
		return "undefined_table"
	case UndefinedColumn:
		return "undefined_column"
	case SyntaxError:
		return "syntax_error"
	case Canceled:
		return "canceled"
	default:
		return "other"
	}
}

// Error is a normalized driver error.
type Error struct {
	Code Code

	// DatabaseCode is the raw driver code (SQLSTATE, MySQL error number, ...).
	DatabaseCode string
	Message      string
	TableName    string

	driverErr error
}

func (e *Error) Error() string {
	if e.DatabaseCode != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.DatabaseCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the original driver error.
func (e *Error) Unwrap() error {
	return e.driverErr
}
