package storage

import (
	"log/slog"
	"time"

	"clipstream/internal/observability/metrics"
)

// Option configures either storage backend. Options are two-sided so the
// same slice can be handed to NewStorage or NewPostgresRepository; each side
// ignores what does not apply to it.
type Option interface {
	applyJSON(*Storage)
	applyPostgres(*PostgresConfig)
}

type optionAdapter struct {
	json func(*Storage)
	pg   func(*PostgresConfig)
}

func (o optionAdapter) applyJSON(store *Storage) {
	if o.json != nil && store != nil {
		o.json(store)
	}
}

func (o optionAdapter) applyPostgres(cfg *PostgresConfig) {
	if o.pg != nil && cfg != nil {
		o.pg(cfg)
	}
}

func composeOption(json func(*Storage), pg func(*PostgresConfig)) Option {
	return optionAdapter{json: json, pg: pg}
}

func postgresOnlyOption(pg func(*PostgresConfig)) Option {
	return optionAdapter{pg: pg}
}

// WithLogger installs the logger used for fan-out and best-effort delivery
// diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return composeOption(
		func(s *Storage) {
			if logger != nil {
				s.logger = logger
			}
		},
		func(cfg *PostgresConfig) {
			if logger != nil {
				cfg.Logger = logger
			}
		},
	)
}

// WithMetrics attaches a metrics recorder for fan-out, reconcile, and
// persistence counters.
func WithMetrics(recorder *metrics.Recorder) Option {
	return composeOption(
		func(s *Storage) {
			s.metrics = recorder
		},
		nil,
	)
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return composeOption(
		func(s *Storage) {
			if now != nil {
				s.now = now
			}
		},
		nil,
	)
}

// WithPostgresMaxConnections caps the pool size.
func WithPostgresMaxConnections(max int32) Option {
	return postgresOnlyOption(func(cfg *PostgresConfig) {
		cfg.MaxConnections = max
	})
}

// WithPostgresMinConnections sets the pool floor.
func WithPostgresMinConnections(min int32) Option {
	return postgresOnlyOption(func(cfg *PostgresConfig) {
		cfg.MinConnections = min
	})
}

// WithPostgresAcquireTimeout bounds how long a store call may wait for a
// connection before surfacing a retryable timeout.
func WithPostgresAcquireTimeout(timeout time.Duration) Option {
	return postgresOnlyOption(func(cfg *PostgresConfig) {
		cfg.AcquireTimeout = timeout
	})
}

// WithPostgresConnLifetime bounds the lifetime and idle time of pooled
// connections.
func WithPostgresConnLifetime(lifetime, idle time.Duration) Option {
	return postgresOnlyOption(func(cfg *PostgresConfig) {
		cfg.MaxConnLifetime = lifetime
		cfg.MaxConnIdleTime = idle
	})
}

// WithPostgresApplicationName tags pool connections for server-side
// diagnostics.
func WithPostgresApplicationName(name string) Option {
	return postgresOnlyOption(func(cfg *PostgresConfig) {
		cfg.ApplicationName = name
	})
}
