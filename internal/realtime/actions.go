// internal/realtime/actions.go
package realtime

import (
	"context"

	"github.com/jason-s-yu/belatro/internal/models"
)

type playMessage struct {
	PlayerID    string      `json:"playerId"`
	Card        models.Card `json:"card"`
	DeclareBela bool        `json:"declareBela"`
}

type bidMessage struct {
	PlayerID string       `json:"playerId"`
	Pass     bool         `json:"pass"`
	Trump    *models.Suit `json:"trump,omitempty"`
}

type playerMessage struct {
	PlayerID string `json:"playerId"`
}

// Play sends a card. declareBela announces bela together with the card.
func (c *MatchClient) Play(ctx context.Context, card *models.Card, declareBela bool) error {
	if card == nil {
		return ErrNoCardSelected
	}
	return c.do(ctx, "play", playMessage{
		PlayerID:    c.cfg.PlayerName,
		Card:        *card,
		DeclareBela: declareBela,
	})
}

// Bid passes or calls trump. trump is ignored when passing.
func (c *MatchClient) Bid(ctx context.Context, pass bool, trump *models.Suit) error {
	msg := bidMessage{PlayerID: c.cfg.PlayerName, Pass: pass}
	if !pass {
		msg.Trump = trump
	}
	return c.do(ctx, "bid", msg)
}

// Challenge contests the last play.
func (c *MatchClient) Challenge(ctx context.Context) error {
	return c.do(ctx, "challenge", playerMessage{PlayerID: c.cfg.PlayerName})
}

// Refresh asks the server to resend both views.
func (c *MatchClient) Refresh(ctx context.Context) error {
	return c.do(ctx, "refresh", nil)
}

// Cancel asks the server to abort the match.
func (c *MatchClient) Cancel(ctx context.Context) error {
	return c.do(ctx, "cancel", playerMessage{PlayerID: c.cfg.PlayerName})
}

func (c *MatchClient) VoteRematch(ctx context.Context) error {
	return c.do(ctx, "rematch/vote", nil)
}

func (c *MatchClient) DeclineRematch(ctx context.Context) error {
	return c.do(ctx, "rematch/decline", nil)
}

// do routes an action through the event loop. Nothing is sent unless the
// client is connected.
func (c *MatchClient) do(ctx context.Context, kind string, body any) error {
	if !c.started.Load() {
		return ErrNotConnected
	}
	reply := make(chan error, 1)
	select {
	case c.events <- evAction{kind: kind, body: body, reply: reply}:
	case <-c.stopping:
		return ErrNotConnected
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
