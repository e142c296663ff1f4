package main

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Skryldev/users/cache"
	"github.com/Skryldev/users/config"
	"github.com/Skryldev/users/controller"
	"github.com/Skryldev/users/db"
	"github.com/Skryldev/users/logger"
	"github.com/Skryldev/users/migrations"
	"github.com/Skryldev/users/models"
	"github.com/Skryldev/users/repo"
	"github.com/Skryldev/users/service"
)

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("users demo failed")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	lg, err := logger.Init(cfg.LoggerOptions())
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	stats := &queryStats{}
	dbCfg := cfg.DBConfig()
	dbCfg.Hooks = []db.Hook{
		db.NewLogHook(db.LogHookConfig{
			Logger:             &lg,
			SlowQueryThreshold: cfg.DBSlowQueryThreshold,
			LogArgs:            cfg.DBLogArgs,
		}),
		db.NewMetricsHook(stats),
	}

	database, err := db.Connect(cfg.DBDriver, cfg.DriverOptions(), dbCfg)
	if err != nil {
		return fmt.Errorf("connect %s: %w", cfg.DBDriver, err)
	}
	defer database.Close()

	if err := migrations.UpFrom(database, cfg.MigrationsPath, lg); err != nil {
		return err
	}

	var users repo.UserRepository = repo.NewSQLUserRepository(database, db.DialectFor(cfg.DBDriver))
	if cfg.CacheEnabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer client.Close()
		cached := cache.New(users, client, cfg.CacheTTL, lg)
		if err := cached.Ping(context.Background()); err != nil {
			lg.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, lookups will bypass the cache")
		}
		users = cached
	}

	svc := service.New(users, models.SystemClock{}, lg)
	ctrl := controller.New(svc)

	ctx := context.Background()
	if err := demo(ctx, lg, ctrl, svc); err != nil {
		return err
	}

	total, failed := stats.snapshot()
	pool := database.Stats()
	lg.Info().
		Str("env", cfg.AppEnv).
		Int("queries", total).
		Int("failed", failed).
		Int("open_conns", pool.OpenConnections).
		Int64("wait_count", pool.WaitCount).
		Dur("wait", pool.WaitDuration).
		Msg("done")
	return nil
}

func demo(ctx context.Context, lg zerolog.Logger, ctrl *controller.UserController, svc *service.UserService) error {
	alice, err := ctrl.CreateUser(ctx, "Alice", "alice@example.com")
	if err != nil {
		return err
	}
	bob, err := ctrl.CreateUser(ctx, "Bob", "bob@example.com")
	if err != nil {
		return err
	}
	lg.Info().Stringer("user", alice).Msg("created")
	lg.Info().Stringer("user", bob).Msg("created")

	batch, err := svc.BulkCreate(ctx, []models.CreateUserParams{
		{Name: "Carol", Email: "carol@example.com"},
		{Name: "Dave", Email: "dave@example.com"},
	})
	if err != nil {
		return err
	}
	lg.Info().Int("count", len(batch)).Msg("bulk created")

	all, err := ctrl.GetAllUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range all {
		lg.Info().Int64("id", u.ID).Str("name", u.DisplayName()).Bool("active", u.Active).Msg("user")
	}

	found, err := ctrl.GetUserByID(ctx, alice.ID)
	if err != nil {
		return err
	}
	if u, ok := found.Get(); ok {
		lg.Info().Stringer("user", u).Msg("found by id")
	}

	byName, err := ctrl.SearchUsersByName(ctx, "Bob")
	if err != nil {
		return err
	}
	lg.Info().Int("matches", len(byName)).Str("name", "Bob").Msg("searched by name")

	if err := svc.SetActive(ctx, bob.ID, false); err != nil {
		return err
	}
	active, err := svc.FindActive(ctx)
	if err != nil {
		return err
	}
	lg.Info().Int("active", len(active)).Msg("active users")

	since := time.Now().Add(-time.Hour)
	recent, err := svc.Search(ctx, repo.UserFilter{NameContains: "a", CreatedAfter: &since})
	if err != nil {
		return err
	}
	lg.Info().Int("matches", len(recent)).Msg("filtered search")

	for _, id := range []int64{alice.ID, alice.ID} {
		deleted, err := ctrl.DeleteUser(ctx, id)
		if err != nil {
			return err
		}
		lg.Info().Int64("id", id).Bool("deleted", deleted).Msg("delete")
	}

	n, err := svc.Count(ctx)
	if err != nil {
		return err
	}
	lg.Info().Int64("count", n).Msg("remaining users")
	return nil
}

// queryStats is a db.MetricsCollector that keeps running totals.
type queryStats struct {
	mu     sync.Mutex
	total  int
	failed int
}

func (s *queryStats) RecordQuery(_ string, _ time.Duration, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	if !success {
		s.failed++
	}
}

func (s *queryStats) snapshot() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total, s.failed
}
