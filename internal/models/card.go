// internal/models/card.go
package models

import (
	"fmt"
	"strings"
)

// Suit is a card suit as named on the wire ("boja").
type Suit string

const (
	SuitHerc Suit = "HERC"
	SuitKara Suit = "KARA"
	SuitPik  Suit = "PIK"
	SuitTref Suit = "TREF"
)

// Suits lists every suit in display order.
var Suits = []Suit{SuitHerc, SuitKara, SuitPik, SuitTref}

// Valid reports whether s is one of the four known suits.
func (s Suit) Valid() bool {
	switch s {
	case SuitHerc, SuitKara, SuitPik, SuitTref:
		return true
	}
	return false
}

// Symbol returns the French-suited glyph used when rendering cards.
func (s Suit) Symbol() string {
	switch s {
	case SuitHerc:
		return "♥"
	case SuitKara:
		return "♦"
	case SuitPik:
		return "♠"
	case SuitTref:
		return "♣"
	}
	return "?"
}

// ParseSuit accepts a wire name, an English suit name or a glyph, case-insensitively.
func ParseSuit(s string) (Suit, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HERC", "HEARTS", "H", "♥":
		return SuitHerc, nil
	case "KARA", "DIAMONDS", "D", "♦":
		return SuitKara, nil
	case "PIK", "SPADES", "S", "♠":
		return SuitPik, nil
	case "TREF", "CLUBS", "C", "♣":
		return SuitTref, nil
	}
	return "", fmt.Errorf("unknown suit %q", s)
}

// Rank is a card rank in the 32-card Belot deck.
type Rank string

const (
	RankSedmica Rank = "SEDMICA"
	RankOsmica  Rank = "OSMICA"
	RankDevetka Rank = "DEVETKA"
	RankDesetka Rank = "DESETKA"
	RankDecko   Rank = "DECKO"
	RankBaba    Rank = "BABA"
	RankKralj   Rank = "KRALJ"
	RankAs      Rank = "AS"
)

var rankLabels = map[Rank]string{
	RankSedmica: "7",
	RankOsmica:  "8",
	RankDevetka: "9",
	RankDesetka: "10",
	RankDecko:   "J",
	RankBaba:    "Q",
	RankKralj:   "K",
	RankAs:      "A",
}

// Valid reports whether r is a known rank.
func (r Rank) Valid() bool {
	_, ok := rankLabels[r]
	return ok
}

// Label is the short rank label ("7".."A").
func (r Rank) Label() string {
	if l, ok := rankLabels[r]; ok {
		return l
	}
	return "?"
}

// Card is a value type; two cards are equal when suit and rank match.
type Card struct {
	Suit Suit `json:"boja"`
	Rank Rank `json:"rank"`
}

// Valid reports whether both suit and rank are known.
func (c Card) Valid() bool {
	return c.Suit.Valid() && c.Rank.Valid()
}

func (c Card) String() string {
	return c.Rank.Label() + c.Suit.Symbol()
}
