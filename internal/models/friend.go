package models

import "time"

type FriendshipStatus string

const (
	FriendshipPending   FriendshipStatus = "PENDING"
	FriendshipAccepted  FriendshipStatus = "ACCEPTED"
	FriendshipRejected  FriendshipStatus = "REJECTED"
	FriendshipCancelled FriendshipStatus = "CANCELLED"
)

type Friendship struct {
	ID        string           `json:"id"`
	FromUser  User             `json:"fromUser"`
	ToUser    User             `json:"toUser"`
	Status    FriendshipStatus `json:"status"`
	CreatedAt *time.Time       `json:"createdAt,omitempty"`
}

// Other returns the side of the friendship that is not userID.
func (f Friendship) Other(userID string) User {
	if f.FromUser.ID == userID {
		return f.ToUser
	}
	return f.FromUser
}

type CreateFriendshipRequest struct {
	FromUserID string `json:"fromUserId"`
	ToUserID   string `json:"toUserId"`
}
