package notifications

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/scoracle-alerts/internal/alerts"
)

// PGLog writes one alert_log row per dispatched notification.
type PGLog struct {
	pool *pgxpool.Pool
}

// NewPGLog returns nil if pool is nil (audit disabled).
func NewPGLog(pool *pgxpool.Pool) *PGLog {
	if pool == nil {
		return nil
	}
	return &PGLog{pool: pool}
}

// Record persists a delivery outcome.
func (l *PGLog) Record(ctx context.Context, d alerts.Delivery) error {
	if l == nil {
		return nil
	}
	n := d.Notification

	status, lastError := "sent", ""
	if d.Err != nil {
		status, lastError = "failed", d.Err.Error()
	}

	var gameID *string
	if n.GameID != "" {
		gameID = &n.GameID
	}

	_, err := l.pool.Exec(ctx, `
		INSERT INTO alert_log (
			id, dispatch_key, event_type, team, sport, game_id,
			title, body, priority, grouped, status, last_error, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NULLIF($12,''),$13)
		ON CONFLICT (id) DO NOTHING`,
		n.ID, n.DispatchKey(), string(n.Type), n.Team, n.Sport, gameID,
		n.Title, n.Body, string(n.Priority), len(d.Events), status, lastError, n.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert alert log: %w", err)
	}
	return nil
}
