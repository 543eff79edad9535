package auth

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"readingjourney/internal/session"
	"readingjourney/internal/user"
)

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) Register(ctx context.Context, nu user.NewUser) (user.User, error) {
	args := m.Called(ctx, nu)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (user.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *mockUsers) GetByEmail(ctx context.Context, email string) (user.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *mockUsers) GetByLogin(ctx context.Context, login string) (user.User, error) {
	args := m.Called(ctx, login)
	return args.Get(0).(user.User), args.Error(1)
}

func (m *mockUsers) MarkVerified(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUsers) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *mockUsers) TouchLastLogin(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) Start(ctx context.Context, userID, userAgent, ip string) (string, session.Session, error) {
	args := m.Called(ctx, userID, userAgent, ip)
	return args.String(0), args.Get(1).(session.Session), args.Error(2)
}

func (m *mockSessions) Rotate(ctx context.Context, refreshToken string) (string, session.Session, error) {
	args := m.Called(ctx, refreshToken)
	return args.String(0), args.Get(1).(session.Session), args.Error(2)
}

func (m *mockSessions) End(ctx context.Context, refreshToken string) error {
	return m.Called(ctx, refreshToken).Error(0)
}

func (m *mockSessions) RevokeAll(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func (m *mockSessions) RevokeAccessToken(ctx context.Context, jti, userID string, expiresAt time.Time) error {
	return m.Called(ctx, jti, userID, expiresAt).Error(0)
}

func (m *mockSessions) ConsumeToken(ctx context.Context, jti, userID string, expiresAt time.Time) (bool, error) {
	args := m.Called(ctx, jti, userID, expiresAt)
	return args.Bool(0), args.Error(1)
}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) SendVerification(ctx context.Context, to, name, link string) error {
	return m.Called(ctx, to, name, link).Error(0)
}

func (m *mockMailer) SendPasswordReset(ctx context.Context, to, name, link string) error {
	return m.Called(ctx, to, name, link).Error(0)
}
