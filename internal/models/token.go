package models

import "time"

// SessionResponse is returned by a successful login.
type SessionResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int       `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        *User     `json:"user"`
}

type LoginRequest struct {
	Username string `json:"username"`
}
