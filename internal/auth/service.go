package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"readingjourney/internal/httpx"
	"readingjourney/internal/platform/crypto"
	"readingjourney/internal/platform/mailer"
	"readingjourney/internal/session"
	"readingjourney/internal/user"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrAccountInactive    = errors.New("account deactivated")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrAlreadyVerified    = errors.New("email already verified")
	ErrUnknownAccount     = errors.New("user not found or already verified")
	ErrMailDelivery       = errors.New("mail delivery failed")
)

// UserStore is the part of the user service auth depends on.
type UserStore interface {
	Register(ctx context.Context, nu user.NewUser) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByLogin(ctx context.Context, login string) (user.User, error)
	MarkVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLastLogin(ctx context.Context, id string) error
}

// SessionStore is the part of the session service auth depends on.
type SessionStore interface {
	Start(ctx context.Context, userID, userAgent, ip string) (string, session.Session, error)
	Rotate(ctx context.Context, refreshToken string) (string, session.Session, error)
	End(ctx context.Context, refreshToken string) error
	RevokeAll(ctx context.Context, userID string) error
	RevokeAccessToken(ctx context.Context, jti, userID string, expiresAt time.Time) error
	ConsumeToken(ctx context.Context, jti, userID string, expiresAt time.Time) (bool, error)
}

type Config struct {
	Secret        string
	AccessTTL     time.Duration
	EmailTokenTTL time.Duration
	FrontendURL   string
}

type Service struct {
	cfg      Config
	users    UserStore
	sessions SessionStore
	mail     mailer.Mailer
	logger   *zap.Logger
}

func NewService(cfg Config, users UserStore, sessions SessionStore, mail mailer.Mailer, logger *zap.Logger) *Service {
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	return &Service{
		cfg:      cfg,
		users:    users,
		sessions: sessions,
		mail:     mail,
		logger:   logger,
	}
}

type SignupInput struct {
	FullName string
	UserName string
	Email    string
	Password string
}

// Tokens is the result of a successful login or refresh.
type Tokens struct {
	AccessToken  string
	ExpiresIn    int
	RefreshToken string
	User         user.User
}

// Signup creates an unverified account and mails a verification link.
// Mail failures are logged and never fail the signup.
func (s *Service) Signup(ctx context.Context, in SignupInput) (user.User, error) {
	hash, err := crypto.HashPassword(in.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Register(ctx, user.NewUser{
		FullName:     in.FullName,
		UserName:     in.UserName,
		Email:        in.Email,
		PasswordHash: hash,
	})
	if err != nil {
		return user.User{}, err
	}

	if err := s.sendVerification(ctx, u); err != nil {
		s.logger.Warn("verification mail failed", zap.String("user_id", u.ID), zap.Error(err))
	}
	return u, nil
}

func (s *Service) sendVerification(ctx context.Context, u user.User) error {
	token, _, err := crypto.GenerateToken(s.cfg.Secret, u.ID, crypto.TokenEmailVerification, s.cfg.EmailTokenTTL)
	if err != nil {
		return err
	}
	link := s.cfg.FrontendURL + "/verify-email?token=" + url.QueryEscape(token)
	return s.mail.SendVerification(ctx, u.Email, u.FullName, link)
}

func (s *Service) Login(ctx context.Context, login, password, userAgent, ip string) (Tokens, error) {
	u, err := s.users.GetByLogin(ctx, login)
	if errors.Is(err, user.ErrNotFound) {
		return Tokens{}, ErrInvalidCredentials
	}
	if err != nil {
		return Tokens{}, err
	}
	if !crypto.VerifyPassword(u.PasswordHash, password) {
		return Tokens{}, ErrInvalidCredentials
	}
	if !u.IsVerified {
		return Tokens{}, ErrEmailNotVerified
	}
	if !u.IsActive {
		return Tokens{}, ErrAccountInactive
	}

	if err := s.users.TouchLastLogin(ctx, u.ID); err != nil {
		s.logger.Warn("update last login failed", zap.String("user_id", u.ID), zap.Error(err))
	}

	accessToken, _, err := crypto.GenerateToken(s.cfg.Secret, u.ID, crypto.TokenAccess, s.cfg.AccessTTL)
	if err != nil {
		return Tokens{}, fmt.Errorf("generate access token: %w", err)
	}
	refreshToken, _, err := s.sessions.Start(ctx, u.ID, userAgent, ip)
	if err != nil {
		return Tokens{}, err
	}

	return Tokens{
		AccessToken:  accessToken,
		ExpiresIn:    int(s.cfg.AccessTTL.Seconds()),
		RefreshToken: refreshToken,
		User:         u,
	}, nil
}

// Refresh rotates the refresh token and issues a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	newRefresh, sess, err := s.sessions.Rotate(ctx, refreshToken)
	if errors.Is(err, session.ErrNotFound) {
		return Tokens{}, ErrInvalidToken
	}
	if err != nil {
		return Tokens{}, err
	}

	u, err := s.users.GetByID(ctx, sess.UserID)
	if errors.Is(err, user.ErrNotFound) {
		return Tokens{}, ErrInvalidCredentials
	}
	if err != nil {
		return Tokens{}, err
	}
	if !u.IsActive || !u.IsVerified {
		_ = s.sessions.End(ctx, newRefresh)
		return Tokens{}, ErrInvalidCredentials
	}

	accessToken, _, err := crypto.GenerateToken(s.cfg.Secret, u.ID, crypto.TokenAccess, s.cfg.AccessTTL)
	if err != nil {
		return Tokens{}, fmt.Errorf("generate access token: %w", err)
	}
	return Tokens{
		AccessToken:  accessToken,
		ExpiresIn:    int(s.cfg.AccessTTL.Seconds()),
		RefreshToken: newRefresh,
		User:         u,
	}, nil
}

func (s *Service) Me(ctx context.Context, userID string) (user.User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	claims, err := crypto.ParseToken(s.cfg.Secret, token, crypto.TokenEmailVerification)
	if err != nil {
		return ErrInvalidToken
	}
	if err := s.users.MarkVerified(ctx, claims.Sub); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUnknownAccount
		}
		return err
	}
	return nil
}

// ResendVerification is silent about unknown addresses.
func (s *Service) ResendVerification(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if u.IsVerified {
		return ErrAlreadyVerified
	}
	if err := s.sendVerification(ctx, u); err != nil {
		s.logger.Error("resend verification failed", zap.String("user_id", u.ID), zap.Error(err))
		return ErrMailDelivery
	}
	return nil
}

// ForgotPassword is silent about unknown addresses and delivery failures.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, _, err := crypto.GenerateToken(s.cfg.Secret, u.ID, crypto.TokenPasswordReset, s.cfg.EmailTokenTTL)
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	link := s.cfg.FrontendURL + "/reset-password/" + url.PathEscape(token)
	if err := s.mail.SendPasswordReset(ctx, u.Email, u.FullName, link); err != nil {
		s.logger.Error("password reset mail failed", zap.String("user_id", u.ID), zap.Error(err))
	}
	return nil
}

// ResetPassword sets a new password and revokes every session of the user.
// A reset link works once.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	claims, err := crypto.ParseToken(s.cfg.Secret, token, crypto.TokenPasswordReset)
	if err != nil || claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	if err := crypto.ValidatePasswordStrength(password); err != nil {
		return err
	}
	hash, err := crypto.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	fresh, err := s.sessions.ConsumeToken(ctx, claims.ID, claims.Sub, claims.ExpiresAt.Time)
	if err != nil {
		return fmt.Errorf("consume reset token: %w", err)
	}
	if !fresh {
		return ErrInvalidToken
	}
	if err := s.users.UpdatePassword(ctx, claims.Sub, hash); err != nil {
		return err
	}
	if err := s.sessions.RevokeAll(ctx, claims.Sub); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	return nil
}

// Logout revokes the access token and ends the session behind refreshToken.
func (s *Service) Logout(ctx context.Context, userID string, token httpx.TokenInfo, refreshToken string) error {
	if err := s.sessions.RevokeAccessToken(ctx, token.JTI, userID, token.ExpiresAt); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	if err := s.sessions.End(ctx, refreshToken); err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}
