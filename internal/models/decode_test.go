// internal/models/decode_test.go
package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePublic = `{
  "gameId": "g1",
  "gameState": "PLAYING",
  "bids": [
    {"playerId": "p1", "action": "PASS"},
    {"playerId": "p2", "action": "CALL_TRUMP", "selectedTrump": "HERC"}
  ],
  "currentTrick": {
    "leadPlayerId": "p1",
    "trump": "HERC",
    "plays": {"p1": {"boja": "PIK", "rank": "AS"}}
  },
  "teamAScore": 12,
  "teamBScore": 40,
  "teamA": [{"id": "p1", "username": "ana", "cardsLeft": 7}],
  "teamB": [{"id": "p2", "username": "bruno", "cardsLeft": 8}],
  "challengeUsedByPlayer": {"p1": false},
  "winnerTeamId": null,
  "tieBreaker": false,
  "seatingOrder": [
    {"id": "p1", "username": "ana", "cardsLeft": 7},
    {"id": "p2", "username": "bruno", "cardsLeft": 8},
    {"id": "p3", "username": "cvita", "cardsLeft": 8},
    {"id": "p4", "username": "dino", "cardsLeft": 8}
  ],
  "declarations": {"p1": {"bela": false, "fourOfAKindPoints": 0, "bestSequencePoints": 20}},
  "belaDeclaredByPlayer": {"p1": false}
}`

func TestDecodePublicView(t *testing.T) {
	v, err := DecodePublicView([]byte(samplePublic))
	require.NoError(t, err)

	assert.Equal(t, "g1", v.GameID)
	assert.Equal(t, PhasePlaying, v.GameState)
	require.Len(t, v.SeatingOrder, 4)
	assert.Equal(t, "cvita", v.SeatingOrder[2].Username)
	require.NotNil(t, v.CurrentTrick)
	assert.Equal(t, Card{Suit: SuitPik, Rank: RankAs}, v.CurrentTrick.Plays["p1"])
	require.NotNil(t, v.Bids[1].SelectedTrump)
	assert.Equal(t, SuitHerc, *v.Bids[1].SelectedTrump)
	assert.Equal(t, 20, v.Declarations["p1"].BestSequencePoints)
}

func TestDecodePublicViewRejects(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"not json", `{"gameId":`, ""},
		{"missing id", `{"gameState":"BIDDING"}`, "gameId"},
		{"unknown phase", `{"gameId":"g","gameState":"NAPPING"}`, "gameState"},
		{"three seats", `{"gameId":"g","gameState":"BIDDING","seatingOrder":[{"id":"a"},{"id":"b"},{"id":"c"}]}`, "seatingOrder"},
		{"trump call without trump", `{"gameId":"g","gameState":"BIDDING","bids":[{"playerId":"a","action":"CALL_TRUMP"}]}`, "bids[0].selectedTrump"},
		{"unknown bid action", `{"gameId":"g","gameState":"BIDDING","bids":[{"playerId":"a","action":"DOUBLE"}]}`, "bids[0].action"},
		{"bad card", `{"gameId":"g","gameState":"PLAYING","currentTrick":{"leadPlayerId":"a","plays":{"a":{"boja":"STARS","rank":"AS"}}}}`, "currentTrick.plays.a"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v, err := DecodePublicView([]byte(tc.body))
			assert.Nil(t, v)
			var pe *ParseError
			require.True(t, errors.As(err, &pe), "expected ParseError, got %v", err)
			assert.Equal(t, ChannelPublic, pe.Channel)
			assert.Equal(t, tc.field, pe.Field)
		})
	}
}

func TestDecodePrivateView(t *testing.T) {
	v, err := DecodePrivateView([]byte(`{"hand":[{"boja":"TREF","rank":"DECKO"},{"boja":"KARA","rank":"SEDMICA"}],"yourTurn":true,"challengeUsed":false}`))
	require.NoError(t, err)
	assert.True(t, v.YourTurn)
	assert.Equal(t, []Card{{SuitTref, RankDecko}, {SuitKara, RankSedmica}}, v.Hand)
	assert.Nil(t, v.PublicPart)

	_, err = DecodePrivateView([]byte(`{"hand":[{"boja":"TREF","rank":"JOKER"}]}`))
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "hand[0]", pe.Field)

	_, err = DecodePrivateView([]byte(`{"publicPart":{"gameId":"","gameState":"PLAYING"},"hand":[]}`))
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "publicPart.gameId", pe.Field)
}

func TestDecodeQueueStatus(t *testing.T) {
	s, err := DecodeQueueStatus([]byte(`{"state":"MATCH_FOUND","estWaitSeconds":-1,"queueSize":4,"mmr":1200,"matchId":"m9"}`))
	require.NoError(t, err)
	assert.Equal(t, "m9", s.MatchID)
	assert.Equal(t, -1, s.EstWaitSeconds)

	_, err = DecodeQueueStatus([]byte(`{"state":"MATCH_FOUND"}`))
	assert.Error(t, err)
	_, err = DecodeQueueStatus([]byte(`{"state":"SLEEPING"}`))
	assert.Error(t, err)
}

func TestDecodeRematchEvent(t *testing.T) {
	ev, err := DecodeRematchEvent([]byte(`{"type":"VOTE","accepted":["p1","p3"]}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p3"}, ev.Accepted)

	ev, err = DecodeRematchEvent([]byte(`{"type":"START","newGameId":"g2"}`))
	require.NoError(t, err)
	assert.Equal(t, "g2", ev.NewGameID)

	_, err = DecodeRematchEvent([]byte(`{"type":"START"}`))
	assert.Error(t, err)
}

func TestParseSuit(t *testing.T) {
	for in, want := range map[string]Suit{"herc": SuitHerc, "♦": SuitKara, "Spades": SuitPik, "TREF": SuitTref} {
		got, err := ParseSuit(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseSuit("stars")
	assert.Error(t, err)
	assert.Equal(t, "Q♠", Card{Suit: SuitPik, Rank: RankBaba}.String())
}
