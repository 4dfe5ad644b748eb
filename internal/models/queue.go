package models

// QueueState is the ranked matchmaking state pushed to a waiting player.
type QueueState string

const (
	QueueInQueue    QueueState = "IN_QUEUE"
	QueueMatchFound QueueState = "MATCH_FOUND"
	QueueCancelled  QueueState = "CANCELLED"
	QueueError      QueueState = "ERROR"
)

// QueueStatus arrives on /user/queue/ranked/status. EstWaitSeconds is -1 when unknown.
type QueueStatus struct {
	State          QueueState `json:"state"`
	EstWaitSeconds int        `json:"estWaitSeconds"`
	QueueSize      int        `json:"queueSize"`
	MMR            int        `json:"mmr"`
	MatchID        string     `json:"matchId,omitempty"`
}

type RematchType string

const (
	RematchVote   RematchType = "VOTE"
	RematchStart  RematchType = "START"
	RematchCancel RematchType = "CANCEL"
)

// RematchEvent is broadcast on /topic/games/{id}/rematch. Accepted lists the
// players that voted for a rematch so far.
type RematchEvent struct {
	Type      RematchType `json:"type"`
	Accepted  []string    `json:"accepted,omitempty"`
	NewGameID string      `json:"newGameId,omitempty"`
	By        string      `json:"by,omitempty"`
}
