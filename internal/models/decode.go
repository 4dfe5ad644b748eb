// internal/models/decode.go
package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Channel names used in parse errors.
const (
	ChannelPublic  = "public"
	ChannelPrivate = "private"
	ChannelQueue   = "queue"
	ChannelRematch = "rematch"
)

// ParseError reports an inbound payload that failed decoding or validation.
type ParseError struct {
	Channel string
	Field   string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("malformed %s payload: %s: %v", e.Channel, e.Field, e.Err)
	}
	return fmt.Sprintf("malformed %s payload: %v", e.Channel, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var (
	errMissing = errors.New("missing")
	errUnknown = errors.New("unknown value")
)

func fieldError(channel, field string, err error) *ParseError {
	return &ParseError{Channel: channel, Field: field, Err: err}
}

// DecodePublicView parses and validates a public match view.
func DecodePublicView(data []byte) (*PublicMatchView, error) {
	var v PublicMatchView
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &ParseError{Channel: ChannelPublic, Err: err}
	}
	if err := validatePublic(ChannelPublic, "", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// DecodePrivateView parses and validates a private match view.
func DecodePrivateView(data []byte) (*PrivateMatchView, error) {
	var v PrivateMatchView
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, &ParseError{Channel: ChannelPrivate, Err: err}
	}
	for i, c := range v.Hand {
		if !c.Valid() {
			return nil, fieldError(ChannelPrivate, fmt.Sprintf("hand[%d]", i), fmt.Errorf("%w: %s/%s", errUnknown, c.Suit, c.Rank))
		}
	}
	if v.PublicPart != nil {
		if err := validatePublic(ChannelPrivate, "publicPart.", v.PublicPart); err != nil {
			return nil, err
		}
	}
	return &v, nil
}

// DecodeQueueStatus parses a ranked queue status frame.
func DecodeQueueStatus(data []byte) (*QueueStatus, error) {
	var s QueueStatus
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &ParseError{Channel: ChannelQueue, Err: err}
	}
	switch s.State {
	case QueueInQueue, QueueCancelled, QueueError:
	case QueueMatchFound:
		if s.MatchID == "" {
			return nil, fieldError(ChannelQueue, "matchId", errMissing)
		}
	case "":
		return nil, fieldError(ChannelQueue, "state", errMissing)
	default:
		return nil, fieldError(ChannelQueue, "state", fmt.Errorf("%w: %s", errUnknown, s.State))
	}
	return &s, nil
}

// DecodeRematchEvent parses a rematch topic frame.
func DecodeRematchEvent(data []byte) (*RematchEvent, error) {
	var ev RematchEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, &ParseError{Channel: ChannelRematch, Err: err}
	}
	switch ev.Type {
	case RematchVote, RematchCancel:
	case RematchStart:
		if ev.NewGameID == "" {
			return nil, fieldError(ChannelRematch, "newGameId", errMissing)
		}
	default:
		return nil, fieldError(ChannelRematch, "type", fmt.Errorf("%w: %q", errUnknown, ev.Type))
	}
	return &ev, nil
}

func validatePublic(channel, prefix string, v *PublicMatchView) error {
	if v.GameID == "" {
		return fieldError(channel, prefix+"gameId", errMissing)
	}
	if !v.GameState.Valid() {
		return fieldError(channel, prefix+"gameState", fmt.Errorf("%w: %q", errUnknown, v.GameState))
	}
	if n := len(v.SeatingOrder); n != 0 && n != 4 {
		return fieldError(channel, prefix+"seatingOrder", fmt.Errorf("expected 4 seats, got %d", n))
	}
	for i, b := range v.Bids {
		field := fmt.Sprintf("%sbids[%d]", prefix, i)
		switch b.Action {
		case BidPass:
			if b.SelectedTrump != nil && !b.SelectedTrump.Valid() {
				return fieldError(channel, field+".selectedTrump", fmt.Errorf("%w: %s", errUnknown, *b.SelectedTrump))
			}
		case BidCallTrump:
			if b.SelectedTrump == nil {
				return fieldError(channel, field+".selectedTrump", errMissing)
			}
			if !b.SelectedTrump.Valid() {
				return fieldError(channel, field+".selectedTrump", fmt.Errorf("%w: %s", errUnknown, *b.SelectedTrump))
			}
		default:
			return fieldError(channel, field+".action", fmt.Errorf("%w: %q", errUnknown, b.Action))
		}
	}
	if t := v.CurrentTrick; t != nil {
		if t.Trump != nil && !t.Trump.Valid() {
			return fieldError(channel, prefix+"currentTrick.trump", fmt.Errorf("%w: %s", errUnknown, *t.Trump))
		}
		for player, c := range t.Plays {
			if !c.Valid() {
				return fieldError(channel, prefix+"currentTrick.plays."+player, fmt.Errorf("%w: %s/%s", errUnknown, c.Suit, c.Rank))
			}
		}
	}
	return nil
}
