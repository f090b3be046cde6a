package sqlerr

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/deppfellow/emission-lookup/internal/database"
	"github.com/deppfellow/emission-lookup/internal/errs"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"modernc.org/sqlite"
)

// ErrCode reports the Code for err, classifying raw driver errors on the fly.
func ErrCode(err error) Code {
	if err == nil {
		return Other
	}
	var sqlErr *Error
	if errors.As(err, &sqlErr) {
		return sqlErr.Code
	}
	return Convert(err, "").Code
}

// Convert classifies any error returned by database/sql or one of the drivers.
func Convert(err error, tableName string) *Error {
	var (
		pgErr      *pgconn.PgError
		pgConnErr  *pgconn.ConnectError
		myErr      *mysql.MySQLError
		liteErr    *sqlite.Error
		netErr     net.Error
		normalized *Error
	)

	switch {
	case errors.As(err, &normalized):
		return normalized
	case errors.Is(err, context.Canceled):
		// Checked first: a canceled Conn also wraps database.ErrConnect.
		return &Error{Code: Canceled, Message: err.Error(), TableName: tableName, driverErr: err}
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, pgx.ErrNoRows):
		return &Error{Code: NoRows, Message: "no rows in result set", TableName: tableName, driverErr: err}
	case errors.As(err, &pgErr):
		return ConvertPgError(pgErr, tableName)
	case errors.As(err, &myErr):
		return ConvertMySQLError(myErr, tableName)
	case errors.As(err, &liteErr):
		return ConvertSQLiteError(liteErr, tableName)
	case errors.As(err, &pgConnErr),
		errors.As(err, &netErr),
		errors.Is(err, mysql.ErrInvalidConn),
		errors.Is(err, driver.ErrBadConn),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, database.ErrConnect),
		errors.Is(err, database.ErrClosed),
		errors.Is(err, context.DeadlineExceeded):
		return &Error{Code: ConnectionFailure, Message: err.Error(), TableName: tableName, driverErr: err}
	}

	return &Error{Code: Other, Message: err.Error(), TableName: tableName, driverErr: err}
}

// ConvertPgError maps a PostgreSQL error by SQLSTATE.
func ConvertPgError(src *pgconn.PgError, tableName string) *Error {
	if src.TableName != "" {
		tableName = src.TableName
	}

	code := Other
	switch {
	case src.Code == "42P01":
		code = UndefinedTable
	case src.Code == "42703":
		code = UndefinedColumn
	case src.Code == "42601":
		code = SyntaxError
	case src.Code == "28P01", src.Code == "28000", src.Code == "3D000":
		code = AuthenticationFailure
	case strings.HasPrefix(src.Code, "08"), strings.HasPrefix(src.Code, "57P"):
		// Class 08 is connection exception, 57P is operator intervention.
		code = ConnectionFailure
	}

	return &Error{
		Code:         code,
		DatabaseCode: src.Code,
		Message:      src.Message,
		TableName:    tableName,
		driverErr:    src,
	}
}

// ConvertMySQLError maps a MySQL server error by error number.
func ConvertMySQLError(src *mysql.MySQLError, tableName string) *Error {
	code := Other
	switch src.Number {
	case 1146:
		code = UndefinedTable
	case 1054:
		code = UndefinedColumn
	case 1064:
		code = SyntaxError
	case 1044, 1045, 1049:
		code = AuthenticationFailure
	case 1040, 1053, 2002, 2003, 2006, 2013:
		code = ConnectionFailure
	}

	return &Error{
		Code:         code,
		DatabaseCode: strconv.Itoa(int(src.Number)),
		Message:      src.Message,
		TableName:    tableName,
		driverErr:    src,
	}
}

// ConvertSQLiteError maps a SQLite error. SQLite reports most schema problems
// with the generic SQLITE_ERROR code, so the message is inspected as well.
func ConvertSQLiteError(src *sqlite.Error, tableName string) *Error {
	msg := src.Error()

	code := Other
	switch {
	case strings.Contains(msg, "no such table"):
		code = UndefinedTable
	case strings.Contains(msg, "no such column"):
		code = UndefinedColumn
	case strings.Contains(msg, "syntax error"):
		code = SyntaxError
	case strings.Contains(msg, "unable to open database"):
		code = ConnectionFailure
	}

	return &Error{
		Code:         code,
		DatabaseCode: strconv.Itoa(src.Code()),
		Message:      msg,
		TableName:    tableName,
		driverErr:    src,
	}
}

// generateErrorCode creates "<DOMAIN>_<ACTION>" codes such as
// DEVICE_NOT_FOUND or TRAFFIC_LEVEL_UNAVAILABLE.
func generateErrorCode(tableName string, errType Code) string {
	if tableName == "" {
		tableName = "RECORD"
	}

	domain := strings.ToUpper(tableName)
	if strings.HasSuffix(domain, "S") && len(domain) > 1 {
		domain = domain[:len(domain)-1]
	}

	action := "ERROR"
	switch errType {
	case NoRows:
		action = "NOT_FOUND"
	case ConnectionFailure, AuthenticationFailure:
		action = "UNAVAILABLE"
	case Canceled:
		action = "CANCELED"
	}

	return fmt.Sprintf("%s_%s", domain, action)
}

// getEntityName turns a table name into a singular, human entity name:
// "traffic_levels" -> "Traffic Level".
func getEntityName(tableName string) string {
	if tableName == "" {
		return "Record"
	}
	entity := tableName
	if strings.HasSuffix(entity, "s") && len(entity) > 1 {
		entity = entity[:len(entity)-1]
	}
	return humanizeText(entity)
}

// humanizeText converts snake_case into Title Case.
func humanizeText(text string) string {
	if text == "" {
		return ""
	}
	return cases.Title(language.English).String(strings.ReplaceAll(text, "_", " "))
}

// HandleError converts a low-level database error from a query against
// tableName into an application-level error.
//
// Output:
//   - *errs.HTTPError: returned unchanged
//   - no rows: 404 "<Entity> not found"
//   - connection or authentication failure: 503, wrapping the driver error
//   - caller canceled: 499, wrapping the context error
//   - anything else: 500, wrapping the driver error
func HandleError(err error, tableName string) error {
	if err == nil {
		return nil
	}

	var httpErr *errs.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	sqlErr := Convert(err, tableName)
	errorCode := generateErrorCode(sqlErr.TableName, sqlErr.Code)

	switch sqlErr.Code {
	case NoRows:
		message := fmt.Sprintf("%s not found", getEntityName(sqlErr.TableName))
		return errs.NewNotFoundError(message, true, &errorCode).WithCause(sqlErr)

	case ConnectionFailure, AuthenticationFailure:
		unavailable := errs.NewServiceUnavailableError().WithCause(sqlErr)
		unavailable.Code = errorCode
		return unavailable

	case Canceled:
		canceled := errs.NewRequestCanceledError().WithCause(sqlErr)
		canceled.Code = errorCode
		return canceled

	default:
		return errs.NewInternalServerError().WithCause(sqlErr)
	}
}
