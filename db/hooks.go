package db

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Hook observes every statement. Implementations must be goroutine-safe.
// A panic inside a hook is recovered and logged; it never reaches the caller.
type Hook interface {
	BeforeQuery(ctx context.Context, query string, args []any)

	// AfterQuery receives the driver wall-clock time and the already-mapped
	// error (nil on success).
	AfterQuery(ctx context.Context, query string, args []any, duration time.Duration, err error)
}

type hookChain struct {
	hooks []Hook
}

func newHookChain(hooks []Hook) hookChain {
	filtered := make([]Hook, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			filtered = append(filtered, h)
		}
	}
	return hookChain{hooks: filtered}
}

func (c hookChain) Before(ctx context.Context, query string, args []any) {
	for _, h := range c.hooks {
		func() {
			defer recoverHook("BeforeQuery")
			h.BeforeQuery(ctx, query, args)
		}()
	}
}

func (c hookChain) After(ctx context.Context, query string, args []any, d time.Duration, err error) {
	for _, h := range c.hooks {
		func() {
			defer recoverHook("AfterQuery")
			h.AfterQuery(ctx, query, args, d, err)
		}()
	}
}

func recoverHook(phase string) {
	if r := recover(); r != nil {
		log.Error().Interface("panic", r).Str("phase", phase).Msg("users/db: hook panic")
	}
}

// LogHookConfig configures the query logging hook.
type LogHookConfig struct {
	// Logger defaults to the global zerolog logger when nil.
	Logger *zerolog.Logger
	// SlowQueryThreshold logs a warning above this duration. Zero disables it.
	SlowQueryThreshold time.Duration
	// LogArgs includes bound parameters. Leave off where args may carry PII.
	LogArgs bool
}

// NewLogHook returns a Hook that writes one structured entry per statement:
// error on failure, warn when slow, debug otherwise.
func NewLogHook(cfg LogHookConfig) Hook {
	logger := log.Logger
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &logHook{cfg: cfg, logger: logger}
}

type logHook struct {
	cfg    LogHookConfig
	logger zerolog.Logger
}

func (h *logHook) BeforeQuery(context.Context, string, []any) {}

func (h *logHook) AfterQuery(_ context.Context, query string, args []any, d time.Duration, err error) {
	var ev *zerolog.Event
	switch {
	case err != nil && !IsNotFound(err):
		ev = h.logger.Error().Err(err)
	case h.cfg.SlowQueryThreshold > 0 && d > h.cfg.SlowQueryThreshold:
		ev = h.logger.Warn().Bool("slow", true)
	default:
		ev = h.logger.Debug()
	}
	ev = ev.Str("query", trimQuery(query)).Dur("duration", d)
	if h.cfg.LogArgs && len(args) > 0 {
		ev = ev.Interface("args", args)
	}
	ev.Msg("users/db: query")
}

func trimQuery(q string) string {
	if len(q) > 500 {
		return q[:500] + "…"
	}
	return q
}

// MetricsCollector receives one observation per statement.
type MetricsCollector interface {
	RecordQuery(query string, duration time.Duration, success bool)
}

// NewMetricsHook adapts a MetricsCollector to Hook.
func NewMetricsHook(collector MetricsCollector) Hook {
	return &metricsHook{c: collector}
}

type metricsHook struct{ c MetricsCollector }

func (h *metricsHook) BeforeQuery(context.Context, string, []any) {}
func (h *metricsHook) AfterQuery(_ context.Context, query string, _ []any, d time.Duration, err error) {
	h.c.RecordQuery(query, d, err == nil)
}

// CompositeHook combines several hooks into one value.
func CompositeHook(hooks ...Hook) Hook { return &compositeHook{chain: newHookChain(hooks)} }

type compositeHook struct{ chain hookChain }

func (c *compositeHook) BeforeQuery(ctx context.Context, q string, args []any) {
	c.chain.Before(ctx, q, args)
}
func (c *compositeHook) AfterQuery(ctx context.Context, q string, args []any, d time.Duration, err error) {
	c.chain.After(ctx, q, args, d, err)
}
