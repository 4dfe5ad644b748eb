package models

import "time"

// Match is a started or finished match as the REST API reports it.
type Match struct {
	ID          string     `json:"id"`
	TeamA       []UserRef  `json:"teamA"`
	TeamB       []UserRef  `json:"teamB"`
	OriginLobby *Lobby     `json:"originLobby,omitempty"`
	GameMode    GameMode   `json:"gameMode"`
	Result      string     `json:"result,omitempty"`
	StartTime   *time.Time `json:"startTime,omitempty"`
	EndTime     *time.Time `json:"endTime,omitempty"`
}

// Move is one recorded move. Card is a display string such as "Q♠".
type Move struct {
	Order  int    `json:"order"`
	Player string `json:"player"`
	Legal  *bool  `json:"legal,omitempty"`
	Card   string `json:"card"`
}

// MatchSummary is one row of a player's match history.
type MatchSummary struct {
	MatchID     string     `json:"matchId"`
	EndTime     *time.Time `json:"endTime,omitempty"`
	Result      string     `json:"result"`
	YourOutcome string     `json:"yourOutcome"`
	GameMode    GameMode   `json:"gameMode"`
}

// Page is the paging envelope used by history endpoints.
type Page[T any] struct {
	Content       []T  `json:"content"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	Number        int  `json:"number"`
	Size          int  `json:"size"`
	Last          bool `json:"last"`
}
