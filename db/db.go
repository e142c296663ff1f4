// Package db is the SQL access layer under the user repositories. It wraps
// database/sql with context-aware helpers, query hooks and unified error
// mapping. All SQL stays explicit and lives with the caller.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Config holds all options for opening and managing the connection pool.
type Config struct {
	// DSN is the driver-specific data-source name.
	DSN string

	// DriverName is "sqlite3", "postgres", "pgx" or "mysql".
	DriverName string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// DefaultTimeout is applied when the caller's context has no deadline.
	// Zero means no default timeout.
	DefaultTimeout time.Duration

	// Hooks run around every statement. Nil entries are skipped.
	Hooks []Hook
}

// DB is a concurrency-safe wrapper around *sql.DB.
type DB struct {
	sqldb  *sql.DB
	cfg    Config
	hooks  hookChain
	errMap ErrorMapper
}

// Open opens the database described by cfg and verifies connectivity.
// Callers must Close the returned DB.
func Open(cfg Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("users/db: DSN must not be empty")
	}
	if cfg.DriverName == "" {
		return nil, fmt.Errorf("users/db: DriverName must not be empty")
	}

	sqldb, err := sql.Open(cfg.DriverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("users/db: open: %w", err)
	}
	configurePool(sqldb, cfg)

	d := &DB{
		sqldb:  sqldb,
		cfg:    cfg,
		hooks:  newHookChain(cfg.Hooks),
		errMap: DefaultErrorMapper(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqldb.PingContext(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("users/db: ping: %w", err)
	}
	return d, nil
}

func configurePool(sqldb *sql.DB, cfg Config) {
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqldb.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

// Raw returns the underlying *sql.DB, e.g. for the migration driver.
func (d *DB) Raw() *sql.DB { return d.sqldb }

// DriverName reports the database/sql driver this DB was opened with.
func (d *DB) DriverName() string { return d.cfg.DriverName }

// SetErrorMapper replaces the error mapper.
func (d *DB) SetErrorMapper(m ErrorMapper) { d.errMap = m }

func (d *DB) Close() error { return d.sqldb.Close() }

func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()
	return d.mapErr(d.sqldb.PingContext(ctx))
}

// Stats returns pool statistics.
func (d *DB) Stats() sql.DBStats { return d.sqldb.Stats() }

// Exec runs a statement that returns no rows.
func (d *DB) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	var res sql.Result
	err := observe(ctx, d.hooks, d.errMap, query, args, func() (err error) {
		res, err = d.sqldb.ExecContext(ctx, query, args...)
		return err
	})
	return res, err
}

// Query runs a query that returns rows. The caller must close the rows;
// Close also releases the default timeout.
func (d *DB) Query(ctx context.Context, query string, args ...any) (*Rows, error) {
	ctx, cancel := d.withTimeout(ctx)

	var rows *sql.Rows
	err := observe(ctx, d.hooks, d.errMap, query, args, func() (err error) {
		rows, err = d.sqldb.QueryContext(ctx, query, args...)
		return err
	})
	if err != nil {
		cancel()
		return nil, err
	}
	return &Rows{Rows: rows, cancel: cancel}, nil
}

// QueryRow runs a query expected to return at most one row. Scan on the
// result reports ErrNotFound when nothing matched and releases the default
// timeout.
func (d *DB) QueryRow(ctx context.Context, query string, args ...any) *Row {
	ctx, cancel := d.withTimeout(ctx)

	var raw *sql.Row
	_ = observe(ctx, d.hooks, d.errMap, query, args, func() error {
		raw = d.sqldb.QueryRowContext(ctx, query, args...)
		return raw.Err()
	})
	return &Row{raw: raw, errMap: d.errMap, cancel: cancel}
}

// Prepare creates a prepared statement. The caller must Close it.
func (d *DB) Prepare(ctx context.Context, query string) (*Stmt, error) {
	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	s, err := d.sqldb.PrepareContext(ctx, query)
	if err != nil {
		return nil, d.mapErr(err)
	}
	return &Stmt{stmt: s, query: query, hooks: d.hooks, errMap: d.errMap}, nil
}

// observe runs fn between the before and after hooks. The error handed to
// the after hooks and returned is already mapped.
func observe(ctx context.Context, hooks hookChain, m ErrorMapper, query string, args []any, fn func() error) error {
	start := time.Now()
	hooks.Before(ctx, query, args)
	err := fn()
	if err != nil {
		err = m.Map(err)
	}
	hooks.After(ctx, query, args, time.Since(start), err)
	return err
}

func (d *DB) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.cfg.DefaultTimeout == 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.cfg.DefaultTimeout)
}

func (d *DB) mapErr(err error) error {
	if err == nil {
		return nil
	}
	return d.errMap.Map(err)
}

// Rows is *sql.Rows tied to the query's timeout.
type Rows struct {
	*sql.Rows
	cancel context.CancelFunc
}

// Close closes the rows and releases the query context.
func (r *Rows) Close() error {
	err := r.Rows.Close()
	r.cancel()
	return err
}

// Row wraps *sql.Row and maps errors through the DB's mapper.
type Row struct {
	raw    *sql.Row
	errMap ErrorMapper
	cancel context.CancelFunc
}

// Scan copies the matched row into dest. ErrNotFound when no row matched.
func (r *Row) Scan(dest ...any) error {
	if r.cancel != nil {
		defer r.cancel()
	}
	return r.errMap.Map(r.raw.Scan(dest...))
}

// Stmt wraps a prepared *sql.Stmt with hook dispatch and error mapping.
type Stmt struct {
	stmt   *sql.Stmt
	query  string
	hooks  hookChain
	errMap ErrorMapper
}

func (s *Stmt) Exec(ctx context.Context, args ...any) (sql.Result, error) {
	var res sql.Result
	err := observe(ctx, s.hooks, s.errMap, s.query, args, func() (err error) {
		res, err = s.stmt.ExecContext(ctx, args...)
		return err
	})
	return res, err
}

func (s *Stmt) QueryRow(ctx context.Context, args ...any) *Row {
	var raw *sql.Row
	_ = observe(ctx, s.hooks, s.errMap, s.query, args, func() error {
		raw = s.stmt.QueryRowContext(ctx, args...)
		return raw.Err()
	})
	return &Row{raw: raw, errMap: s.errMap}
}

func (s *Stmt) Close() error { return s.stmt.Close() }

// Querier is the surface repositories depend on. *DB satisfies it; test
// doubles can too.
type Querier interface {
	Exec(ctx context.Context, query string, args ...any) (sql.Result, error)
	Query(ctx context.Context, query string, args ...any) (*Rows, error)
	QueryRow(ctx context.Context, query string, args ...any) *Row
	Prepare(ctx context.Context, query string) (*Stmt, error)
}

var _ Querier = (*DB)(nil)
