// internal/realtime/projector.go
package realtime

import "github.com/jason-s-yu/belatro/internal/models"

// Seats is the table as seen from the local player.
type Seats struct {
	Self     models.PlayerInfo
	Teammate models.PlayerInfo
	Left     models.PlayerInfo
	Right    models.PlayerInfo
}

// SeatedPlay is a card on the table together with who played it.
type SeatedPlay struct {
	Player models.PlayerInfo
	Card   models.Card
}

// View is the derived, render-ready state of a match.
type View struct {
	Public       *models.PublicMatchView
	Private      *models.PrivateMatchView
	Seats        Seats
	SeatsKnown   bool
	VisiblePlays []SeatedPlay
}

// Phase returns the current game phase, or "" before the first public view.
func (v View) Phase() models.GamePhase {
	if v.Public == nil {
		return ""
	}
	return v.Public.GameState
}

// ProjectSeats locates self in seating and derives teammate (+2), left (+3)
// and right (+1). ok is false when self is absent or the order is incomplete.
func ProjectSeats(seating []models.PlayerInfo, self string) (Seats, bool) {
	n := len(seating)
	if n != 4 {
		return Seats{}, false
	}
	idx := -1
	for i, p := range seating {
		if p.Is(self) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Seats{}, false
	}
	return Seats{
		Self:     seating[idx],
		Teammate: seating[(idx+2)%n],
		Left:     seating[(idx+3)%n],
		Right:    seating[(idx+1)%n],
	}, true
}

// VisiblePlays lists the cards on the table in seating order. Nothing is
// visible while bidding.
func VisiblePlays(v *models.PublicMatchView) []SeatedPlay {
	if v == nil || v.GameState == models.PhaseBidding || v.CurrentTrick == nil {
		return nil
	}
	plays := v.CurrentTrick.Plays
	var out []SeatedPlay
	for _, seat := range v.SeatingOrder {
		c, ok := plays[seat.ID]
		if !ok && seat.Username != "" {
			c, ok = plays[seat.Username]
		}
		if ok {
			out = append(out, SeatedPlay{Player: seat, Card: c})
		}
	}
	return out
}

// Projector keeps the latest public and private views of one player and the
// view derived from them.
type Projector struct {
	self  string
	phase models.GamePhase
	view  View
}

func NewProjector(self string) *Projector {
	return &Projector{self: self}
}

// ApplyPublic replaces the public view and recomputes seats and plays. A
// change of phase clears the table before recomputing.
func (p *Projector) ApplyPublic(v *models.PublicMatchView) {
	if v.GameState != p.phase {
		p.view.VisiblePlays = nil
		p.phase = v.GameState
	}
	p.view.Public = v
	p.view.Seats, p.view.SeatsKnown = ProjectSeats(v.SeatingOrder, p.self)
	p.view.VisiblePlays = VisiblePlays(v)
}

// ApplyPrivate replaces the private view.
func (p *Projector) ApplyPrivate(v *models.PrivateMatchView) {
	p.view.Private = v
}

// View returns a copy of the current projection.
func (p *Projector) View() View {
	v := p.view
	v.VisiblePlays = append([]SeatedPlay(nil), p.view.VisiblePlays...)
	return v
}
