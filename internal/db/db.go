// Package db provides the optional Postgres pool used for the dispatch
// audit log.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS alert_log (
	id           TEXT PRIMARY KEY,
	dispatch_key TEXT NOT NULL,
	event_type   TEXT NOT NULL,
	team         TEXT NOT NULL,
	sport        TEXT NOT NULL DEFAULT '',
	game_id      TEXT,
	title        TEXT NOT NULL,
	body         TEXT NOT NULL,
	priority     TEXT NOT NULL,
	grouped      INT  NOT NULL DEFAULT 1,
	status       TEXT NOT NULL,
	last_error   TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS alert_log_team_created_idx ON alert_log (team, created_at DESC);
`

// New creates and validates a connection pool, then ensures the alert_log
// table exists.
func New(ctx context.Context, databaseURL string, maxConns int) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if maxConns > 0 {
		poolCfg.MaxConns = int32(maxConns)
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		if _, err := conn.Prepare(ctx, "health_check", "SELECT 1"); err != nil {
			return fmt.Errorf("prepare health_check: %w", err)
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}
