package session

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, s *Session) error
	// GetByTokenHash never returns expired sessions.
	GetByTokenHash(ctx context.Context, tokenHash string) (Session, error)
	ListByUserID(ctx context.Context, userID string) ([]Session, error)
	Delete(ctx context.Context, userID, sessionID string) error
	DeleteByTokenHash(ctx context.Context, tokenHash string) error
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteOthers removes every session of the user except the one with keepHash.
	DeleteOthers(ctx context.Context, userID, keepHash string) (int64, error)
	// Rotate swaps the token hash of a live session and extends it.
	Rotate(ctx context.Context, sessionID, oldHash, newHash string, expiresAt time.Time) error
	CleanupExpired(ctx context.Context) (int64, error)
}

type BlacklistRepository interface {
	// AddToken reports false when jti was already on the list.
	AddToken(ctx context.Context, jti, userID string, expiresAt time.Time) (bool, error)
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	CleanupExpired(ctx context.Context) (int64, error)
}
