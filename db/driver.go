package db

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

// Driver captures what differs between databases: the database/sql driver
// name, how a DSN is built from structured options, and the error mapper.
// lib/pq, go-sql-driver/mysql and go-sqlite3 register with database/sql
// through this package's imports; pgx's stdlib driver must be blank-imported
// by the binary.
type Driver interface {
	Name() string
	DSN(opts DriverOptions) (string, error)
	ErrorMapper() ErrorMapper
}

// DriverOptions carries connection parameters in driver-agnostic form.
type DriverOptions struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	// Extra holds driver-specific parameters, appended in key order.
	Extra map[string]string
}

var (
	driversMu sync.RWMutex
	drivers   = map[string]Driver{}
)

// RegisterDriver adds or replaces a Driver in the registry.
func RegisterDriver(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[d.Name()] = d
}

// LookupDriver returns the registered Driver by name.
func LookupDriver(name string) (Driver, error) {
	driversMu.RLock()
	defer driversMu.RUnlock()
	d, ok := drivers[name]
	if !ok {
		return nil, fmt.Errorf("users/db: driver %q not registered", name)
	}
	return d, nil
}

func init() {
	RegisterDriver(SQLiteDriver{})
	RegisterDriver(PostgresDriver{})
	RegisterDriver(PgxDriver{})
	RegisterDriver(MySQLDriver{})
}

// Connect opens a DB for the named driver. When cfg.DSN is empty the DSN is
// built from opts. The driver's error mapper is installed ahead of the
// default one.
func Connect(driverName string, opts DriverOptions, cfg Config) (*DB, error) {
	drv, err := LookupDriver(driverName)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		dsn, err := drv.DSN(opts)
		if err != nil {
			return nil, fmt.Errorf("users/db: build DSN: %w", err)
		}
		cfg.DSN = dsn
	}
	cfg.DriverName = drv.Name()

	d, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	d.SetErrorMapper(ChainMapper(drv.ErrorMapper(), DefaultErrorMapper()))
	return d, nil
}

func sortedExtra(extra map[string]string) []string {
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SQLiteDriver is the mattn/go-sqlite3 adapter. Database is the file path
// (or ":memory:").
type SQLiteDriver struct{}

func (SQLiteDriver) Name() string { return "sqlite3" }

func (SQLiteDriver) DSN(o DriverOptions) (string, error) {
	if o.Database == "" {
		return "", fmt.Errorf("sqlite3: Database (file path) is required")
	}
	if len(o.Extra) == 0 {
		return o.Database, nil
	}
	q := make([]string, 0, len(o.Extra))
	for _, k := range sortedExtra(o.Extra) {
		q = append(q, k+"="+o.Extra[k])
	}
	return o.Database + "?" + strings.Join(q, "&"), nil
}

func (SQLiteDriver) ErrorMapper() ErrorMapper { return ErrorMapperFunc(sqliteOnly) }

func sqliteOnly(err error) error {
	if err == nil {
		return nil
	}
	if mapped := mapSQLiteError(err); mapped != nil {
		return mapped
	}
	return err
}

// PostgresDriver is the lib/pq adapter.
type PostgresDriver struct{}

func (PostgresDriver) Name() string { return "postgres" }

func (PostgresDriver) DSN(o DriverOptions) (string, error) {
	return postgresKeyValueDSN("postgres", o)
}

func (PostgresDriver) ErrorMapper() ErrorMapper { return DefaultErrorMapper() }

// PgxDriver is the jackc/pgx stdlib adapter. It accepts the same key/value
// DSN as lib/pq.
type PgxDriver struct{}

func (PgxDriver) Name() string { return "pgx" }

func (PgxDriver) DSN(o DriverOptions) (string, error) {
	return postgresKeyValueDSN("pgx", o)
}

func (PgxDriver) ErrorMapper() ErrorMapper { return DefaultErrorMapper() }

func postgresKeyValueDSN(name string, o DriverOptions) (string, error) {
	if o.Host == "" || o.Database == "" {
		return "", fmt.Errorf("%s: Host and Database are required", name)
	}
	port := o.Port
	if port == 0 {
		port = 5432
	}
	sslMode := o.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	parts := []string{
		"host=" + o.Host,
		fmt.Sprintf("port=%d", port),
		"user=" + o.User,
		"password=" + o.Password,
		"dbname=" + o.Database,
		"sslmode=" + sslMode,
	}
	for _, k := range sortedExtra(o.Extra) {
		parts = append(parts, k+"="+o.Extra[k])
	}
	return strings.Join(parts, " "), nil
}

// MySQLDriver is the go-sql-driver/mysql adapter. parseTime is always on so
// DATETIME columns scan into time.Time.
type MySQLDriver struct{}

func (MySQLDriver) Name() string { return "mysql" }

func (MySQLDriver) DSN(o DriverOptions) (string, error) {
	if o.Host == "" || o.Database == "" {
		return "", fmt.Errorf("mysql: Host and Database are required")
	}
	port := o.Port
	if port == 0 {
		port = 3306
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		o.User, o.Password, o.Host, port, o.Database)
	for _, k := range sortedExtra(o.Extra) {
		dsn += "&" + k + "=" + url.QueryEscape(o.Extra[k])
	}
	return dsn, nil
}

func (MySQLDriver) ErrorMapper() ErrorMapper { return DefaultErrorMapper() }
