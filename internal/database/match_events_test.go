// internal/database/match_events_test.go
package database

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/belatro/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	o := Options{User: "belatro", Password: "p@ss word", Host: "db", Port: "5432", Database: "archive"}
	assert.Equal(t, "postgres://belatro:p%40ss%20word@db:5432/archive", o.DSN())
}

func TestInsertMatchEvents(t *testing.T) {
	host := os.Getenv("PG_HOST")
	if host == "" {
		t.Skip("PG_HOST not set, skipping postgres test")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, Options{
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Host:     host,
		Port:     os.Getenv("PG_PORT"),
		Database: os.Getenv("PG_DATABASE"),
	})
	if err != nil {
		t.Skipf("postgres not reachable: %v", err)
	}
	defer pool.Close()
	require.NoError(t, EnsureSchema(ctx, pool))

	matchID := "test-" + uuid.NewString()
	defer pool.Exec(ctx, `DELETE FROM match_events WHERE match_id = $1`, matchID)

	now := time.Now().UnixMilli()
	events := []models.MatchEvent{
		{ID: uuid.New(), MatchID: matchID, Player: "ana", Direction: models.Outbound, Kind: "refresh", Timestamp: now},
		{ID: uuid.New(), MatchID: matchID, Player: "ana", Direction: models.Inbound, Kind: "public",
			Payload: json.RawMessage(`{"gameId":"x"}`), Timestamp: now + 1},
	}
	require.NoError(t, InsertMatchEvents(ctx, pool, events))
	require.NoError(t, InsertMatchEvents(ctx, pool, events))
	require.NoError(t, InsertMatchEvents(ctx, pool, nil))

	n, err := CountMatchEvents(ctx, pool, matchID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
