// internal/models/lobby.go
package models

import "time"

type GameMode string

const (
	ModeCasual GameMode = "CASUAL"
	ModeRanked GameMode = "RANKED"
)

type LobbyStatus string

const (
	LobbyWaiting LobbyStatus = "WAITING"
	LobbyClosed  LobbyStatus = "CLOSED"
)

// Team identifies a lobby side when switching teams.
type Team string

const (
	TeamA Team = "A"
	TeamB Team = "B"
)

// Lobby mirrors the server's lobby DTO. Password is only sent on create/update.
type Lobby struct {
	ID                string      `json:"id,omitempty"`
	Name              string      `json:"name"`
	GameMode          GameMode    `json:"gameMode,omitempty"`
	Status            LobbyStatus `json:"status,omitempty"`
	CreatedAt         *time.Time  `json:"createdAt,omitempty"`
	HostUser          UserRef     `json:"hostUser"`
	TeamAPlayers      []UserRef   `json:"teamAPlayers,omitempty"`
	TeamBPlayers      []UserRef   `json:"teamBPlayers,omitempty"`
	UnassignedPlayers []UserRef   `json:"unassignedPlayers,omitempty"`
	PrivateLobby      bool        `json:"privateLobby"`
	Password          string      `json:"password,omitempty"`
}

// PlayerCount is the number of users currently in the lobby, assigned or not.
func (l Lobby) PlayerCount() int {
	return len(l.TeamAPlayers) + len(l.TeamBPlayers) + len(l.UnassignedPlayers)
}

type JoinLobbyRequest struct {
	LobbyID  string `json:"lobbyId"`
	UserID   string `json:"userId"`
	Password string `json:"password,omitempty"`
}

type TeamSwitchRequest struct {
	LobbyID    string `json:"lobbyId"`
	UserID     string `json:"userId"`
	TargetTeam Team   `json:"targetTeam"`
}

type LeaveLobbyRequest struct {
	Username string `json:"username"`
}

type KickPlayerRequest struct {
	RequesterUsername string `json:"requesterUsername"`
	UsernameToKick    string `json:"usernameToKick"`
}
