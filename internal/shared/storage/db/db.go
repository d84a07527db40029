package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver

	"jobtracker-backend/internal/shared/config"
	"jobtracker-backend/internal/shared/telemetry"
)

// Options controls the pool and the connect loop.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	Attempts        int
	Backoff         time.Duration
}

// PoolStats is the subset of sql.DBStats surfaced by health checks.
type PoolStats struct {
	Open    int   `json:"open"`
	InUse   int   `json:"inUse"`
	Idle    int   `json:"idle"`
	Waits   int64 `json:"waits"`
	MaxOpen int   `json:"maxOpen"`
}

var (
	openDB = sql.Open
	sleep  = func(ctx context.Context, d time.Duration) error {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			return nil
		}
	}
)

// FromConfig maps configured pool settings onto Options.
func FromConfig(c config.DatabaseConfig) Options {
	return Options{
		MaxOpenConns:    c.MaxOpenConns,
		MaxIdleConns:    c.MaxIdleConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
		PingTimeout:     c.ConnectTimeout,
		Attempts:        c.ConnectAttempts,
		Backoff:         time.Second,
	}
}

// MigrateOptions narrows opts to a single connection for the migrate CLI.
func MigrateOptions(opts Options) Options {
	opts.MaxOpenConns = 1
	opts.MaxIdleConns = 1
	return opts
}

// Connect opens the pool and pings it, retrying with linear backoff while
// Postgres is still starting.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is empty")
	}
	opts = withDefaults(opts)

	database, err := openDB("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	database.SetMaxOpenConns(opts.MaxOpenConns)
	database.SetMaxIdleConns(opts.MaxIdleConns)
	database.SetConnMaxLifetime(opts.ConnMaxLifetime)
	database.SetConnMaxIdleTime(opts.ConnMaxIdleTime)

	for attempt := 1; ; attempt++ {
		err = ping(ctx, database, opts.PingTimeout)
		if err == nil {
			break
		}
		if attempt >= opts.Attempts || ctx.Err() != nil {
			_ = database.Close()
			return nil, fmt.Errorf("ping database after %d attempts: %w", attempt, err)
		}
		telemetry.Warn("db.connect_retry", map[string]any{"attempt": attempt, "error": err})
		if err := sleep(ctx, time.Duration(attempt)*opts.Backoff); err != nil {
			_ = database.Close()
			return nil, err
		}
	}

	telemetry.Info("db.connected", map[string]any{"max_open": opts.MaxOpenConns, "max_idle": opts.MaxIdleConns})
	return database, nil
}

// Stats reports current pool usage. A nil database yields zero stats.
func Stats(database *sql.DB) PoolStats {
	if database == nil {
		return PoolStats{}
	}
	s := database.Stats()
	return PoolStats{
		Open:    s.OpenConnections,
		InUse:   s.InUse,
		Idle:    s.Idle,
		Waits:   s.WaitCount,
		MaxOpen: s.MaxOpenConnections,
	}
}

func ping(ctx context.Context, database *sql.DB, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return database.PingContext(pingCtx)
}

func withDefaults(o Options) Options {
	if o.MaxOpenConns <= 0 {
		o.MaxOpenConns = 10
	}
	if o.MaxIdleConns <= 0 {
		o.MaxIdleConns = 5
	}
	if o.ConnMaxLifetime <= 0 {
		o.ConnMaxLifetime = time.Hour
	}
	if o.PingTimeout <= 0 {
		o.PingTimeout = 5 * time.Second
	}
	if o.Attempts <= 0 {
		o.Attempts = 1
	}
	return o
}
