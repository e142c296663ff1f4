package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "users.db", cfg.DBName)
	assert.Equal(t, 10*time.Second, cfg.DBQueryTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.CacheEnabled())
	assert.Equal(t, "pretty", cfg.LoggerOptions().Format)

	opts := cfg.DriverOptions()
	assert.Equal(t, "on", opts.Extra["_foreign_keys"])
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_DRIVER", "pgx")
	t.Setenv("DATABASE_URL", "postgres://app@db/users")
	t.Setenv("DB_MAX_OPEN_CONNS", "25")
	t.Setenv("DB_QUERY_TIMEOUT", "3s")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CACHE_TTL", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.CacheEnabled())
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, "json", cfg.LoggerOptions().Format)

	dbc := cfg.DBConfig()
	assert.Equal(t, "pgx", dbc.DriverName)
	assert.Equal(t, "postgres://app@db/users", dbc.DSN)
	assert.Equal(t, 25, dbc.MaxOpenConns)
	assert.Equal(t, 3*time.Second, dbc.DefaultTimeout)

	assert.Nil(t, cfg.DriverOptions().Extra)
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("DB_QUERY_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoggerOptions_ProductionDefaultsToJSON(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.LoggerOptions().Format)

	cfg.LogFormat = "pretty"
	assert.Equal(t, "pretty", cfg.LoggerOptions().Format, "explicit LOG_FORMAT wins")
}
