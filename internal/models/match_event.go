// internal/models/match_event.go
package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Direction tells whether a journaled frame was received or sent by the client.
type Direction string

const (
	Inbound  Direction = "in"
	Outbound Direction = "out"
)

// MatchEvent is one realtime frame as journaled for the historian.
type MatchEvent struct {
	ID        uuid.UUID       `json:"id"`
	MatchID   string          `json:"match_id"`
	Player    string          `json:"player"`
	Direction Direction       `json:"direction"`
	Kind      string          `json:"kind"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"` // epoch millis
}
