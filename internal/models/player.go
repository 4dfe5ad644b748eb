package models

// PlayerInfo is a seat in the match as the server reports it.
type PlayerInfo struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CardsLeft int    `json:"cardsLeft"`
}

// Is reports whether the seat belongs to the given identity. The server
// keys some maps by id and some by username, so both are accepted.
func (p PlayerInfo) Is(identity string) bool {
	if identity == "" {
		return false
	}
	return p.ID == identity || p.Username == identity
}

// UserRef is the short user reference embedded in lobby and match payloads.
type UserRef struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
