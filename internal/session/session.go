package session

import (
	"errors"
	"time"
)

// CookieName is the HttpOnly cookie carrying the opaque refresh token.
const CookieName = "refresh_token"

var ErrNotFound = errors.New("session not found")

type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"-"`
	UserAgent        string    `json:"user_agent"`
	IPAddress        string    `json:"ip_address"`
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	LastUsedAt       time.Time `json:"last_used_at"`
}
