// Package maintenance runs periodic background tasks for the serve loop as
// Go tickers: audit log retention and seen-store reporting.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	CleanupInterval time.Duration // alert_log retention sweep
	Retention       time.Duration // alert_log rows older than this are deleted
	ReportInterval  time.Duration // seen-store size log line
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		CleanupInterval: 30 * time.Minute,
		Retention:       30 * 24 * time.Hour,
		ReportInterval:  15 * time.Minute,
	}
}

// Execer is the subset of pgxpool.Pool the cleanup task needs.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Sizer reports how many items a store holds. alerts.SeenStore implements it.
type Sizer interface {
	Size(ctx context.Context) (int64, error)
}

// Start launches all configured maintenance tickers. db and seen may be nil,
// which disables their task. Blocks until ctx is cancelled. Intended to be
// called with `go`.
func Start(ctx context.Context, db Execer, seen Sizer, cfg Config, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Maintenance tickers started",
		"cleanup", cfg.CleanupInterval,
		"retention", cfg.Retention,
		"report", cfg.ReportInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if db != nil && cfg.CleanupInterval > 0 && cfg.Retention > 0 {
		t := time.NewTicker(cfg.CleanupInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { cleanup(ctx, db, cfg.Retention, logger) })
	}

	if seen != nil && cfg.ReportInterval > 0 {
		t := time.NewTicker(cfg.ReportInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { reportSeen(ctx, seen, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// cleanup removes dispatch audit rows past the retention window.
func cleanup(ctx context.Context, db Execer, retention time.Duration, logger *slog.Logger) {
	tag, err := db.Exec(ctx, `
		DELETE FROM alert_log
		WHERE created_at < NOW() - make_interval(secs => $1)`, retention.Seconds())
	if err != nil {
		logger.Warn("Cleanup: failed to purge old alert log rows", "error", err)
		return
	}
	if n := tag.RowsAffected(); n > 0 {
		logger.Info("Cleanup: purged old alert log rows", "count", n)
	}
}

func reportSeen(ctx context.Context, seen Sizer, logger *slog.Logger) {
	n, err := seen.Size(ctx)
	if err != nil {
		logger.Warn("Seen store size unavailable", "error", err)
		return
	}
	logger.Info("Seen store size", "links", n)
}
