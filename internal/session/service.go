package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"readingjourney/internal/platform/crypto"
)

type Service struct {
	repo          Repository
	blacklistRepo BlacklistRepository
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewService(repo Repository, blacklistRepo BlacklistRepository, refreshTTL time.Duration) *Service {
	return &Service{
		repo:          repo,
		blacklistRepo: blacklistRepo,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// Start opens a session and returns the plain refresh token for the client.
func (s *Service) Start(ctx context.Context, userID, userAgent, ip string) (string, Session, error) {
	token, hash, err := crypto.NewRefreshToken()
	if err != nil {
		return "", Session{}, fmt.Errorf("generate refresh token: %w", err)
	}
	sess := Session{
		UserID:           userID,
		RefreshTokenHash: hash,
		UserAgent:        userAgent,
		IPAddress:        ip,
		ExpiresAt:        s.now().Add(s.refreshTTL),
	}
	if err := s.repo.Create(ctx, &sess); err != nil {
		return "", Session{}, fmt.Errorf("create session: %w", err)
	}
	return token, sess, nil
}

// Rotate exchanges a live refresh token for a new one. Unknown or expired
// tokens yield ErrNotFound.
func (s *Service) Rotate(ctx context.Context, refreshToken string) (string, Session, error) {
	if refreshToken == "" {
		return "", Session{}, ErrNotFound
	}
	oldHash := crypto.HashToken(refreshToken)
	sess, err := s.repo.GetByTokenHash(ctx, oldHash)
	if err != nil {
		return "", Session{}, err
	}

	token, hash, err := crypto.NewRefreshToken()
	if err != nil {
		return "", Session{}, fmt.Errorf("generate refresh token: %w", err)
	}
	expiresAt := s.now().Add(s.refreshTTL)
	if err := s.repo.Rotate(ctx, sess.ID, oldHash, hash, expiresAt); err != nil {
		return "", Session{}, err
	}
	sess.RefreshTokenHash = hash
	sess.ExpiresAt = expiresAt
	return token, sess, nil
}

// End deletes the session behind a refresh token, if any.
func (s *Service) End(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.repo.DeleteByTokenHash(ctx, crypto.HashToken(refreshToken))
}

func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	return s.repo.DeleteByUserID(ctx, userID)
}

// RevokeOthers signs the user out everywhere except the session holding
// refreshToken and reports how many sessions ended.
func (s *Service) RevokeOthers(ctx context.Context, userID, refreshToken string) (int64, error) {
	keep := ""
	if refreshToken != "" {
		keep = crypto.HashToken(refreshToken)
	}
	return s.repo.DeleteOthers(ctx, userID, keep)
}

func (s *Service) ListByUserID(ctx context.Context, userID string) ([]Session, error) {
	return s.repo.ListByUserID(ctx, userID)
}

func (s *Service) Delete(ctx context.Context, userID, sessionID string) error {
	return s.repo.Delete(ctx, userID, sessionID)
}

// RevokeAccessToken blacklists a jti until the token would have expired anyway.
func (s *Service) RevokeAccessToken(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	if jti == "" || !expiresAt.After(s.now()) {
		return nil
	}
	_, err := s.blacklistRepo.AddToken(ctx, jti, userID, expiresAt)
	return err
}

// ConsumeToken marks a single-use token as spent. It returns false when the
// jti was spent before, so concurrent callers see exactly one success.
func (s *Service) ConsumeToken(ctx context.Context, jti, userID string, expiresAt time.Time) (bool, error) {
	if jti == "" || !expiresAt.After(s.now()) {
		return false, nil
	}
	return s.blacklistRepo.AddToken(ctx, jti, userID, expiresAt)
}

func (s *Service) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	return s.blacklistRepo.IsBlacklisted(ctx, jti)
}

// CleanupExpired removes dead sessions and blacklist rows.
func (s *Service) CleanupExpired(ctx context.Context) (sessions, tokens int64, err error) {
	sessions, err = s.repo.CleanupExpired(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("cleanup sessions: %w", err)
	}
	tokens, err = s.blacklistRepo.CleanupExpired(ctx)
	if err != nil {
		return sessions, 0, fmt.Errorf("cleanup blacklist: %w", err)
	}
	return sessions, tokens, nil
}

// RunCleanup calls CleanupExpired every interval until ctx is done.
func (s *Service) RunCleanup(ctx context.Context, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sessions, tokens, err := s.CleanupExpired(ctx)
			if err != nil {
				logger.Warn("expired session cleanup failed", zap.Error(err))
				continue
			}
			if sessions > 0 || tokens > 0 {
				logger.Info("expired sessions removed",
					zap.Int64("sessions", sessions),
					zap.Int64("blacklisted_tokens", tokens),
				)
			}
		}
	}
}
