package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"

	"github.com/Skryldev/users/config"
	"github.com/Skryldev/users/db"
	"github.com/Skryldev/users/logger"
	"github.com/Skryldev/users/migrations"
)

func main() {
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	lg, err := logger.Init(cfg.LoggerOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	database, err := db.Connect(cfg.DBDriver, cfg.DriverOptions(), cfg.DBConfig())
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("connect failed")
	}
	defer database.Close()

	m, err := migrations.New(database, cfg.MigrationsPath, lg)
	if err != nil {
		log.Fatal().Err(err).Msg("migration init failed")
	}
	defer m.Close()

	if err := run(m, args); err != nil {
		log.Error().Err(err).Str("command", args[0]).Msg("migration failed")
		m.Close()
		database.Close()
		os.Exit(1)
	}
}

func run(m *migrations.Migrator, args []string) error {
	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		log.Info().Msg("migrations: up completed")

	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid steps argument %q", args[1])
			}
			steps = n
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return err
		}
		log.Info().Int("steps", steps).Msg("migrations: down completed")

	case "version":
		v, dirty, err := m.CurrentVersion()
		if err != nil {
			return err
		}
		fmt.Printf("version: %d  dirty: %v\n", v, dirty)

	case "force":
		if len(args) < 2 {
			return errors.New("version argument required")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[1])
		}
		if err := m.Force(v); err != nil {
			return err
		}
		log.Info().Int("version", v).Msg("migrations: forced")

	case "drop":
		fmt.Fprint(os.Stderr, "drop destroys every table. Type 'yes' to confirm: ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if strings.TrimSpace(line) != "yes" {
			fmt.Println("aborted")
			return nil
		}
		if err := m.Drop(); err != nil {
			return err
		}
		log.Warn().Msg("migrations: all tables dropped")

	default:
		usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate <command> [args]

Commands:
  up           Apply all pending migrations
  down [N]     Roll back N migrations (default: 1)
  version      Print the current migration version
  force <V>    Set the migration version without running it
  drop         Drop all tables (dev only)

Environment:
  DB_DRIVER         sqlite3, postgres, pgx or mysql (default: sqlite3)
  DATABASE_URL      Full DSN; overrides the DB_HOST/DB_PORT/... fields
  MIGRATIONS_PATH   Directory of migration files (default: embedded schema)
  LOG_LEVEL, LOG_FORMAT`)
}
