package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/Skryldev/users/db"
	"github.com/Skryldev/users/logger"
)

// Config holds runtime configuration read from the environment.
type Config struct {
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	// LogFormat is "json" or "pretty". Empty picks json in production.
	LogFormat string `envconfig:"LOG_FORMAT"`

	// DBDriver is a name registered with db.RegisterDriver.
	DBDriver string `envconfig:"DB_DRIVER" default:"sqlite3"`
	// DatabaseURL is used verbatim when set; otherwise the DSN is built
	// from the DB_* connection fields.
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBHost      string `envconfig:"DB_HOST"`
	DBPort      int    `envconfig:"DB_PORT"`
	DBUser      string `envconfig:"DB_USER"`
	DBPassword  string `envconfig:"DB_PASSWORD"`
	DBName      string `envconfig:"DB_NAME" default:"users.db"`
	DBSSLMode   string `envconfig:"DB_SSLMODE"`

	DBMaxOpenConns       int           `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	DBMaxIdleConns       int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	DBConnMaxLifetime    time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
	DBConnMaxIdleTime    time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"2m"`
	DBQueryTimeout       time.Duration `envconfig:"DB_QUERY_TIMEOUT" default:"10s"`
	DBSlowQueryThreshold time.Duration `envconfig:"DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
	DBLogArgs            bool          `envconfig:"DB_LOG_ARGS" default:"false"`

	// MigrationsPath points at a migrations directory on disk. Empty means
	// the schema embedded in the binary.
	MigrationsPath string `envconfig:"MIGRATIONS_PATH"`

	// RedisAddr enables the user cache when set.
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	CacheTTL      time.Duration `envconfig:"CACHE_TTL" default:"5m"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// CacheEnabled reports whether a Redis address was configured.
func (c *Config) CacheEnabled() bool { return c.RedisAddr != "" }

// LoggerOptions maps the LOG_* settings onto logger.Options.
func (c *Config) LoggerOptions() logger.Options {
	format := c.LogFormat
	if format == "" {
		format = "pretty"
		if c.IsProduction() {
			format = "json"
		}
	}
	return logger.Options{Level: c.LogLevel, Format: format}
}

// DBConfig maps the pool settings onto db.Config. Hooks are left to the caller.
func (c *Config) DBConfig() db.Config {
	return db.Config{
		DSN:             c.DatabaseURL,
		DriverName:      c.DBDriver,
		MaxOpenConns:    c.DBMaxOpenConns,
		MaxIdleConns:    c.DBMaxIdleConns,
		ConnMaxLifetime: c.DBConnMaxLifetime,
		ConnMaxIdleTime: c.DBConnMaxIdleTime,
		DefaultTimeout:  c.DBQueryTimeout,
	}
}

// DriverOptions maps the DB_* connection fields onto db.DriverOptions.
// SQLite gets foreign keys switched on.
func (c *Config) DriverOptions() db.DriverOptions {
	opts := db.DriverOptions{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Database: c.DBName,
		SSLMode:  c.DBSSLMode,
	}
	if c.DBDriver == "sqlite3" {
		opts.Extra = map[string]string{"_foreign_keys": "on"}
	}
	return opts
}
