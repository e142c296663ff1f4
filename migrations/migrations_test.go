package migrations_test

import (
	"context"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/users/db"
	"github.com/Skryldev/users/migrations"
)

func TestUp_CreatesUsersTable(t *testing.T) {
	d, err := db.Open(db.Config{DSN: ":memory:", DriverName: "sqlite3", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.NoError(t, migrations.Up(d, zerolog.Nop()))
	// A second run finds nothing to do.
	require.NoError(t, migrations.Up(d, zerolog.Nop()))

	ctx := context.Background()
	_, err = d.Exec(ctx, `INSERT INTO users (name, email, created_at) VALUES (?, ?, CURRENT_TIMESTAMP)`, "Ann", "ann@example.com")
	require.NoError(t, err)

	var active bool
	require.NoError(t, d.QueryRow(ctx, `SELECT active FROM users WHERE name = ?`, "Ann").Scan(&active))
	assert.True(t, active, "active defaults to true")
}

func TestDir(t *testing.T) {
	for driver, want := range map[string]string{
		"sqlite3":  "sqlite3",
		"postgres": "postgres",
		"pgx":      "postgres",
		"mysql":    "mysql",
	} {
		got, err := migrations.Dir(driver)
		require.NoError(t, err)
		assert.Equal(t, want, got, driver)
	}

	_, err := migrations.Dir("oracle")
	assert.Error(t, err)
}

func TestSource_ListsFirstMigration(t *testing.T) {
	for _, driver := range []string{"sqlite3", "postgres", "mysql"} {
		src, err := migrations.Source(driver)
		require.NoError(t, err, driver)

		v, err := src.First()
		require.NoError(t, err, driver)
		assert.Equal(t, uint(1), v, driver)
		require.NoError(t, src.Close())
	}
}

func TestNew_FromDirectory(t *testing.T) {
	d, err := db.Open(db.Config{DSN: ":memory:", DriverName: "sqlite3", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	m, err := migrations.New(d, "sqlite3", zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	v, dirty, err := m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)
	assert.False(t, dirty)

	require.NoError(t, m.Up())
	v, _, err = m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	require.NoError(t, m.Steps(-1))
	var n int
	err = d.QueryRow(context.Background(), `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'users'`).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n, "down migration drops the table")
}

func TestNew_MissingDirectory(t *testing.T) {
	d, err := db.Open(db.Config{DSN: ":memory:", DriverName: "sqlite3", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	_, err = migrations.New(d, "does-not-exist", zerolog.Nop())
	assert.Error(t, err)
}

func TestUpFrom_Directory(t *testing.T) {
	d, err := db.Open(db.Config{DSN: ":memory:", DriverName: "sqlite3", MaxOpenConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.NoError(t, migrations.UpFrom(d, "sqlite3", zerolog.Nop()))

	var n int
	err = d.QueryRow(context.Background(), `SELECT COUNT(*) FROM users`).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Error(t, migrations.UpFrom(d, "does-not-exist", zerolog.Nop()))
}
