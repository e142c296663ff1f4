// Package migrations embeds the schema for each supported database and
// applies it with golang-migrate.
package migrations

import (
	"embed"
	"errors"
	"fmt"
	"path"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite3 "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"

	"github.com/Skryldev/users/db"
)

//go:embed sqlite3/*.sql postgres/*.sql mysql/*.sql
var files embed.FS

// Dir returns the embedded directory holding the schema for driverName.
func Dir(driverName string) (string, error) {
	switch driverName {
	case "sqlite3":
		return "sqlite3", nil
	case "postgres", "pgx":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	}
	return "", fmt.Errorf("migrations: no schema for driver %q", driverName)
}

// Source returns a golang-migrate source over the embedded files for driverName.
func Source(driverName string) (source.Driver, error) {
	dir, err := Dir(driverName)
	if err != nil {
		return nil, err
	}
	return iofs.New(files, path.Clean(dir))
}

// Migrator is a migrate.Migrate bound to a db.DB it does not own.
type Migrator struct {
	*migrate.Migrate
	src      source.Driver
	dbDriver database.Driver
	ownsDB   bool
}

// New prepares a Migrator for d. An empty dir selects the embedded schema for
// d's driver; otherwise migrations are read from dir on disk.
func New(d *db.DB, dir string, logger zerolog.Logger) (*Migrator, error) {
	var (
		src source.Driver
		err error
	)
	if dir == "" {
		src, err = Source(d.DriverName())
	} else {
		src, err = source.Open("file://" + dir)
	}
	if err != nil {
		return nil, fmt.Errorf("migrations: source: %w", err)
	}

	dbDriver, err := databaseDriver(d)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("migrations: database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("users", src, d.DriverName(), dbDriver)
	if err != nil {
		_ = src.Close()
		return nil, fmt.Errorf("migrations: init: %w", err)
	}
	m.Log = NewLogger(logger, false)

	return &Migrator{
		Migrate:  m,
		src:      src,
		dbDriver: dbDriver,
		// The sqlite3 migrate driver closes the *sql.DB it was handed on
		// Close. The others only release their dedicated conn.
		ownsDB: d.DriverName() != "sqlite3",
	}, nil
}

// Close releases the source and, where it is safe, the database driver.
// The underlying db.DB stays open.
func (m *Migrator) Close() error {
	err := m.src.Close()
	if m.ownsDB {
		err = errors.Join(err, m.dbDriver.Close())
	}
	return err
}

// CurrentVersion is Version with ErrNilVersion reported as version 0.
func (m *Migrator) CurrentVersion() (uint, bool, error) {
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

// Up applies every pending embedded migration to d. ErrNoChange is not an
// error.
func Up(d *db.DB, logger zerolog.Logger) error {
	return UpFrom(d, "", logger)
}

// UpFrom is Up reading migrations from dir, or the embedded schema when dir
// is empty.
func UpFrom(d *db.DB, dir string, logger zerolog.Logger) error {
	m, err := New(d, dir, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Migrate.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: up: %w", err)
	}
	v, _, err := m.CurrentVersion()
	if err != nil {
		return fmt.Errorf("migrations: version: %w", err)
	}
	logger.Info().Uint("version", v).Str("driver", d.DriverName()).Msg("migrations applied")
	return nil
}

func databaseDriver(d *db.DB) (database.Driver, error) {
	switch d.DriverName() {
	case "sqlite3":
		return migratesqlite3.WithInstance(d.Raw(), &migratesqlite3.Config{})
	case "postgres", "pgx":
		return migratepostgres.WithInstance(d.Raw(), &migratepostgres.Config{})
	case "mysql":
		return migratemysql.WithInstance(d.Raw(), &migratemysql.Config{})
	}
	return nil, fmt.Errorf("unsupported driver %q", d.DriverName())
}

// Logger adapts zerolog to migrate.Logger.
type Logger struct {
	logger  zerolog.Logger
	verbose bool
}

func NewLogger(logger zerolog.Logger, verbose bool) *Logger {
	return &Logger{logger: logger, verbose: verbose}
}

func (l *Logger) Printf(format string, v ...any) {
	l.logger.Info().Msgf(format, v...)
}

func (l *Logger) Verbose() bool { return l.verbose }

var _ migrate.Logger = (*Logger)(nil)
