// internal/models/view.go
package models

// GamePhase is the server-side game state ("gameState").
type GamePhase string

const (
	PhaseInitialized GamePhase = "INITIALIZED"
	PhaseBidding     GamePhase = "BIDDING"
	PhasePlaying     GamePhase = "PLAYING"
	PhaseCompleted   GamePhase = "COMPLETED"
	PhaseCancelled   GamePhase = "CANCELLED"
)

// Valid reports whether p is a phase the client knows how to render.
func (p GamePhase) Valid() bool {
	switch p {
	case PhaseInitialized, PhaseBidding, PhasePlaying, PhaseCompleted, PhaseCancelled:
		return true
	}
	return false
}

// BidAction is the kind of a bid.
type BidAction string

const (
	BidPass      BidAction = "PASS"
	BidCallTrump BidAction = "CALL_TRUMP"
)

// Bid is one entry of the bidding history.
type Bid struct {
	PlayerID      string    `json:"playerId"`
	Action        BidAction `json:"action"`
	SelectedTrump *Suit     `json:"selectedTrump,omitempty"`
}

// Trick is the trick on the table. Plays are keyed by player id.
type Trick struct {
	LeadPlayerID string          `json:"leadPlayerId"`
	Trump        *Suit           `json:"trump,omitempty"`
	Plays        map[string]Card `json:"plays"`
}

// Declarations summarises the melds a player holds.
type Declarations struct {
	Bela               bool         `json:"bela"`
	SequencesBySuit    map[Suit]int `json:"sequencesBySuit,omitempty"`
	FourOfAKindPoints  int          `json:"fourOfAKindPoints"`
	BestSequencePoints int          `json:"bestSequencePoints"`
}

// PublicMatchView is the state broadcast to every participant of a match.
type PublicMatchView struct {
	GameID                string                  `json:"gameId"`
	GameState             GamePhase               `json:"gameState"`
	Bids                  []Bid                   `json:"bids"`
	CurrentTrick          *Trick                  `json:"currentTrick,omitempty"`
	TeamAScore            int                     `json:"teamAScore"`
	TeamBScore            int                     `json:"teamBScore"`
	TeamA                 []PlayerInfo            `json:"teamA"`
	TeamB                 []PlayerInfo            `json:"teamB"`
	ChallengeUsedByPlayer map[string]bool         `json:"challengeUsedByPlayer,omitempty"`
	WinnerTeamID          string                  `json:"winnerTeamId,omitempty"`
	TieBreaker            bool                    `json:"tieBreaker"`
	SeatingOrder          []PlayerInfo            `json:"seatingOrder"`
	Declarations          map[string]Declarations `json:"declarations,omitempty"`
	BelaDeclaredByPlayer  map[string]bool         `json:"belaDeclaredByPlayer,omitempty"`
}

// PrivateMatchView is the state only the receiving player sees.
type PrivateMatchView struct {
	PublicPart    *PublicMatchView `json:"publicPart,omitempty"`
	Hand          []Card           `json:"hand"`
	YourTurn      bool             `json:"yourTurn"`
	ChallengeUsed bool             `json:"challengeUsed"`
}
