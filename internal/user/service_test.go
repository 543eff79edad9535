package user

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"readingjourney/internal/httpx"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, u NewUser) (User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(User), args.Error(1)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(User), args.Error(1)
}

func (m *mockRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(User), args.Error(1)
}

func (m *mockRepo) GetByUserName(ctx context.Context, userName string) (User, error) {
	args := m.Called(ctx, userName)
	return args.Get(0).(User), args.Error(1)
}

func (m *mockRepo) GetByLogin(ctx context.Context, login string) (User, error) {
	args := m.Called(ctx, login)
	return args.Get(0).(User), args.Error(1)
}

func (m *mockRepo) MarkVerified(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func (m *mockRepo) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (User, error) {
	args := m.Called(ctx, id, update)
	return args.Get(0).(User), args.Error(1)
}

func (m *mockRepo) SetProfilePicture(ctx context.Context, id string, url *string) error {
	return m.Called(ctx, id, url).Error(0)
}

func (m *mockRepo) TouchLastLogin(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	input := NewUser{FullName: " Ada Lovelace ", UserName: "Ada_L", Email: " Ada@Example.com ", PasswordHash: "hash"}
	normalized := NewUser{FullName: "Ada Lovelace", UserName: "ada_l", Email: "ada@example.com", PasswordHash: "hash"}

	t.Run("creates a new user", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByEmail", ctx, "ada@example.com").Return(User{}, ErrNotFound)
		repo.On("GetByUserName", ctx, "ada_l").Return(User{}, ErrNotFound)
		repo.On("Create", ctx, normalized).Return(User{ID: "u1", Email: "ada@example.com"}, nil)

		u, err := NewService(repo).Register(ctx, input)
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)
		repo.AssertExpectations(t)
	})

	t.Run("email taken", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByEmail", ctx, "ada@example.com").Return(User{ID: "other"}, nil)

		_, err := NewService(repo).Register(ctx, input)
		assert.ErrorIs(t, err, ErrEmailTaken)
		repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("user name taken", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByEmail", ctx, "ada@example.com").Return(User{}, ErrNotFound)
		repo.On("GetByUserName", ctx, "ada_l").Return(User{ID: "other"}, nil)

		_, err := NewService(repo).Register(ctx, input)
		assert.ErrorIs(t, err, ErrUserNameTaken)
	})

	t.Run("lookup failure", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("GetByEmail", ctx, "ada@example.com").Return(User{}, errors.New("db down"))

		_, err := NewService(repo).Register(ctx, input)
		assert.EqualError(t, err, "db down")
	})
}

func TestService_AccountStatus(t *testing.T) {
	ctx := context.Background()
	repo := new(mockRepo)
	repo.On("GetByID", ctx, "missing").Return(User{}, ErrNotFound)
	repo.On("GetByID", ctx, "pending").Return(User{ID: "pending", IsActive: true}, nil)
	repo.On("GetByID", ctx, "broken").Return(User{}, errors.New("timeout"))
	svc := NewService(repo)

	status, err := svc.AccountStatus(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, httpx.AccountStatus{}, status)

	status, err = svc.AccountStatus(ctx, "pending")
	require.NoError(t, err)
	assert.Equal(t, httpx.AccountStatus{Exists: true, Active: true}, status)

	_, err = svc.AccountStatus(ctx, "broken")
	assert.Error(t, err)
}

func TestService_UpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("empty update", func(t *testing.T) {
		repo := new(mockRepo)
		_, err := NewService(repo).UpdateProfile(ctx, "u1", ProfileUpdate{})
		assert.ErrorIs(t, err, ErrNoChanges)
		repo.AssertNotCalled(t, "UpdateProfile", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("normalises values", func(t *testing.T) {
		repo := new(mockRepo)
		repo.On("UpdateProfile", ctx, "u1", mock.MatchedBy(func(p ProfileUpdate) bool {
			return *p.FullName == "Ada" && *p.Theme == "dark"
		})).Return(User{ID: "u1", FullName: "Ada", Theme: "dark"}, nil)

		name, theme := "  Ada ", "DARK"
		u, err := NewService(repo).UpdateProfile(ctx, "u1", ProfileUpdate{FullName: &name, Theme: &theme})
		require.NoError(t, err)
		assert.Equal(t, "dark", u.Theme)
		repo.AssertExpectations(t)
	})
}
