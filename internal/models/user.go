package models

import "time"

type User struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	EloRating   int        `json:"eloRating,omitempty"`
	Level       int        `json:"level,omitempty"`
	ExpPoints   int        `json:"expPoints,omitempty"`
	GamesPlayed int        `json:"gamesPlayed,omitempty"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
}

// UserUpdate is the body of PUT /user/{id}.
type UserUpdate struct {
	Username       string `json:"username,omitempty"`
	Email          string `json:"email,omitempty"`
	PasswordHashed string `json:"passwordHashed,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by both login and signup.
type AuthResponse struct {
	Token   string  `json:"token"`
	User    UserRef `json:"user"`
	Message string  `json:"message,omitempty"`
}
