package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/deppfellow/emission-lookup/internal/config"
	"github.com/go-sql-driver/mysql"
)

// Driver names the database/sql driver a Target is opened with.
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "pgx"
	DriverSQLite   Driver = "sqlite"
)

// ErrUnsupportedURL is returned by ParseTarget for URLs of unknown databases.
var ErrUnsupportedURL = errors.New("unsupported database url")

// jdbcOnlyParams are MySQL Connector/J options the Go driver does not know.
// On mysql:// URLs every other parameter is handed to the driver, which turns
// unknown ones into SET statements on connect.
var jdbcOnlyParams = map[string]bool{
	"usessl":                   true,
	"requiressl":               true,
	"verifyservercertificate":  true,
	"servertimezone":           true,
	"allowpublickeyretrieval":  true,
	"characterencoding":        true,
	"useunicode":               true,
	"autoreconnect":            true,
	"uselegacydatetimecode":    true,
	"zerodatetimebehavior":     true,
	"usejdbccomplianttimezone": true,
	"connecttimeout":           true,
	"sockettimeout":            true,
	"useserverprepstmts":       true,
	"cacheprepstmts":           true,
	"rewritebatchedstatements": true,
}

// driverParams are the DSN parameters go-sql-driver/mysql understands.
// A jdbc:mysql URL passes only these through; everything else in it is a
// Connector/J option.
var driverParams = map[string]bool{
	"allowallfiles":            true,
	"allowcleartextpasswords":  true,
	"allowfallbacktoplaintext": true,
	"allownativepasswords":     true,
	"allowoldpasswords":        true,
	"charset":                  true,
	"checkconnliveness":        true,
	"clientfoundrows":          true,
	"collation":                true,
	"columnswithalias":         true,
	"interpolateparams":        true,
	"loc":                      true,
	"maxallowedpacket":         true,
	"multistatements":          true,
	"parsetime":                true,
	"readtimeout":              true,
	"rejectreadonly":           true,
	"timetruncate":             true,
	"timeout":                  true,
	"tls":                      true,
	"writetimeout":             true,
}

// Target is a resolved connection target: which driver to use and the DSN
// to hand it, with DB_USER and DB_PASSWORD already applied.
type Target struct {
	Driver   Driver
	Host     string
	Database string
	User     string
	Password string
	DSN      string
}

// String describes the target without the password.
func (t Target) String() string {
	if t.Driver == DriverSQLite {
		return fmt.Sprintf("%s:%s", t.Driver, t.Database)
	}
	return fmt.Sprintf("%s://%s@%s/%s", t.Driver, t.User, t.Host, t.Database)
}

// ParseTarget resolves the configured database URL into a Target.
//
// Accepted forms:
//
//	jdbc:mysql://localhost:3306/projectcrud?useSSL=false
//	mysql://localhost:3306/projectcrud
//	jdbc:postgresql://localhost:5432/projectcrud
//	postgres://localhost:5432/projectcrud?sslmode=disable
//	sqlite:/var/lib/emissions.db
//	sqlite::memory:
func ParseTarget(cfg config.DatabaseConfig) (Target, error) {
	raw, jdbc := strings.CutPrefix(strings.TrimSpace(cfg.URL), "jdbc:")
	raw = strings.TrimSpace(raw)

	if rest, ok := strings.CutPrefix(raw, "sqlite:"); ok {
		return sqliteTarget(rest)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, fmt.Errorf("failed to parse database url: %w", err)
	}

	connectTimeout := time.Duration(cfg.ConnectTimeout) * time.Second

	switch u.Scheme {
	case "mysql", "mariadb":
		return mysqlTarget(u, cfg, connectTimeout, jdbc)
	case "postgres", "postgresql":
		return postgresTarget(u, cfg, connectTimeout)
	default:
		return Target{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, u.Scheme)
	}
}

func sqliteTarget(rest string) (Target, error) {
	// sqlite:///abs/path keeps the leading slash, sqlite://rel.db does not.
	path := rest
	if strings.HasPrefix(path, "//") {
		path = strings.TrimPrefix(path, "//")
	}
	if path == "" {
		return Target{}, fmt.Errorf("%w: sqlite url has no path", ErrUnsupportedURL)
	}

	return Target{
		Driver:   DriverSQLite,
		Database: path,
		DSN:      path,
	}, nil
}

func mysqlTarget(u *url.URL, cfg config.DatabaseConfig, connectTimeout time.Duration, jdbc bool) (Target, error) {
	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "3306")
	}

	mysqlConfig := mysql.NewConfig()
	mysqlConfig.User = cfg.User
	mysqlConfig.Passwd = cfg.Password
	mysqlConfig.Net = "tcp"
	mysqlConfig.Addr = host
	mysqlConfig.DBName = strings.TrimPrefix(u.Path, "/")
	mysqlConfig.Timeout = connectTimeout

	if err := applyConnectorJ(mysqlConfig, u.Query()); err != nil {
		return Target{}, err
	}

	for key, values := range u.Query() {
		lower := strings.ToLower(key)
		if len(values) == 0 || jdbcOnlyParams[lower] {
			continue
		}
		if jdbc && !driverParams[lower] {
			continue
		}
		if lower == "tls" {
			mysqlConfig.TLSConfig = values[0]
			continue
		}
		if mysqlConfig.Params == nil {
			mysqlConfig.Params = map[string]string{}
		}
		mysqlConfig.Params[key] = values[0]
	}

	return Target{
		Driver:   DriverMySQL,
		Host:     host,
		Database: mysqlConfig.DBName,
		User:     cfg.User,
		Password: cfg.Password,
		DSN:      mysqlConfig.FormatDSN(),
	}, nil
}

// applyConnectorJ translates the Connector/J options that have a Go driver
// counterpart. Timeouts are in milliseconds; 0 means no timeout.
func applyConnectorJ(mysqlConfig *mysql.Config, query url.Values) error {
	for key, values := range query {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		value := values[0]

		switch strings.ToLower(key) {
		case "usessl":
			enabled, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid useSSL value %q: %w", value, err)
			}
			mysqlConfig.TLSConfig = strconv.FormatBool(enabled)

		case "connecttimeout":
			timeout, err := millis(key, value)
			if err != nil {
				return err
			}
			if timeout > 0 {
				mysqlConfig.Timeout = timeout
			}

		case "sockettimeout":
			timeout, err := millis(key, value)
			if err != nil {
				return err
			}
			mysqlConfig.ReadTimeout = timeout
			mysqlConfig.WriteTimeout = timeout
		}
	}
	return nil
}

func millis(key, value string) (time.Duration, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s value %q: want milliseconds", key, value)
	}
	return time.Duration(n) * time.Millisecond, nil
}

func postgresTarget(u *url.URL, cfg config.DatabaseConfig, connectTimeout time.Duration) (Target, error) {
	dsn := *u
	dsn.Scheme = "postgres"
	dsn.User = url.UserPassword(cfg.User, cfg.Password)

	query := dsn.Query()
	if query.Get("connect_timeout") == "" && connectTimeout > 0 {
		query.Set("connect_timeout", strconv.Itoa(int(connectTimeout.Seconds())))
	}
	dsn.RawQuery = query.Encode()

	host := u.Host
	if u.Port() == "" {
		host = net.JoinHostPort(u.Hostname(), "5432")
	}

	return Target{
		Driver:   DriverPostgres,
		Host:     host,
		Database: strings.TrimPrefix(u.Path, "/"),
		User:     cfg.User,
		Password: cfg.Password,
		DSN:      dsn.String(),
	}, nil
}

// Rebind rewrites "?" placeholders into the style the driver expects.
// Only PostgreSQL differs: it numbers them ($1, $2, ...).
func (d Driver) Rebind(query string) string {
	if d != DriverPostgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)
	b.Grow(len(query) + 4)
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
