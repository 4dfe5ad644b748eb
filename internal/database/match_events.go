// internal/database/match_events.go
package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/belatro/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS match_events (
	id         UUID PRIMARY KEY,
	match_id   TEXT NOT NULL,
	player     TEXT NOT NULL,
	direction  TEXT NOT NULL,
	kind       TEXT NOT NULL,
	payload    JSONB,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS match_events_match_idx ON match_events (match_id, created_at);
`

// EnsureSchema creates the match_events table when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

// InsertMatchEvents writes a batch in one transaction. Records already
// archived (same id) are skipped, so a redelivered batch is harmless.
func InsertMatchEvents(ctx context.Context, pool *pgxpool.Pool, events []models.MatchEvent) error {
	if len(events) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO match_events (id, match_id, player, direction, kind, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING
		`
		batch := &pgx.Batch{}
		for _, ev := range events {
			var payload any
			if len(ev.Payload) > 0 {
				payload = string(ev.Payload)
			}
			batch.Queue(q, ev.ID, ev.MatchID, ev.Player, string(ev.Direction), ev.Kind, payload,
				time.UnixMilli(ev.Timestamp).UTC())
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// CountMatchEvents returns how many events are archived for a match.
func CountMatchEvents(ctx context.Context, pool *pgxpool.Pool, matchID string) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM match_events WHERE match_id = $1`, matchID).Scan(&n)
	return n, err
}
