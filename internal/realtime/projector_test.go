// internal/realtime/projector_test.go
package realtime

import (
	"testing"

	"github.com/jason-s-yu/belatro/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seating(names ...string) []models.PlayerInfo {
	out := make([]models.PlayerInfo, len(names))
	for i, n := range names {
		out[i] = models.PlayerInfo{ID: "id-" + n, Username: n, CardsLeft: 8}
	}
	return out
}

func TestProjectSeats(t *testing.T) {
	order := seating("A", "B", "C", "D")

	s, ok := ProjectSeats(order, "B")
	require.True(t, ok)
	assert.Equal(t, "B", s.Self.Username)
	assert.Equal(t, "D", s.Teammate.Username)
	assert.Equal(t, "A", s.Left.Username)
	assert.Equal(t, "C", s.Right.Username)

	s, ok = ProjectSeats(order, "id-D")
	require.True(t, ok)
	assert.Equal(t, "B", s.Teammate.Username)
	assert.Equal(t, "C", s.Left.Username)
	assert.Equal(t, "A", s.Right.Username)

	_, ok = ProjectSeats(order, "Z")
	assert.False(t, ok)
	_, ok = ProjectSeats(order[:3], "B")
	assert.False(t, ok)
	_, ok = ProjectSeats(nil, "B")
	assert.False(t, ok)
}

func TestVisiblePlays(t *testing.T) {
	as := models.Card{Suit: models.SuitPik, Rank: models.RankAs}
	ten := models.Card{Suit: models.SuitPik, Rank: models.RankDesetka}
	v := &models.PublicMatchView{
		GameID:       "g1",
		GameState:    models.PhasePlaying,
		SeatingOrder: seating("A", "B", "C", "D"),
		CurrentTrick: &models.Trick{
			LeadPlayerID: "id-C",
			Plays:        map[string]models.Card{"id-C": as, "A": ten},
		},
	}

	plays := VisiblePlays(v)
	require.Len(t, plays, 2)
	assert.Equal(t, "A", plays[0].Player.Username)
	assert.Equal(t, ten, plays[0].Card)
	assert.Equal(t, "C", plays[1].Player.Username)
	assert.Equal(t, as, plays[1].Card)

	v.GameState = models.PhaseBidding
	assert.Empty(t, VisiblePlays(v))

	v.GameState = models.PhasePlaying
	v.CurrentTrick = nil
	assert.Empty(t, VisiblePlays(v))
	assert.Empty(t, VisiblePlays(nil))
}

func TestProjectorClearsTableOnPhaseChange(t *testing.T) {
	p := NewProjector("B")
	card := models.Card{Suit: models.SuitHerc, Rank: models.RankKralj}
	playing := &models.PublicMatchView{
		GameID:       "g1",
		GameState:    models.PhasePlaying,
		SeatingOrder: seating("A", "B", "C", "D"),
		CurrentTrick: &models.Trick{Plays: map[string]models.Card{"id-A": card}},
	}
	p.ApplyPublic(playing)
	require.Len(t, p.View().VisiblePlays, 1)
	assert.True(t, p.View().SeatsKnown)

	bidding := *playing
	bidding.GameState = models.PhaseBidding
	p.ApplyPublic(&bidding)
	assert.Empty(t, p.View().VisiblePlays)
	assert.Equal(t, models.PhaseBidding, p.View().Phase())

	p.ApplyPrivate(&models.PrivateMatchView{Hand: []models.Card{card}})
	assert.Equal(t, []models.Card{card}, p.View().Private.Hand)
	assert.Equal(t, models.PhaseBidding, p.View().Phase())
}
