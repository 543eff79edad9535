package user

import (
	"context"
	"errors"
	"strings"

	"readingjourney/internal/httpx"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates an unverified account, rejecting a taken email or user name.
func (s *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	nu.Email = strings.ToLower(strings.TrimSpace(nu.Email))
	nu.UserName = strings.ToLower(strings.TrimSpace(nu.UserName))
	nu.FullName = strings.TrimSpace(nu.FullName)

	if _, err := s.repo.GetByEmail(ctx, nu.Email); err == nil {
		return User{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	if _, err := s.repo.GetByUserName(ctx, nu.UserName); err == nil {
		return User{}, ErrUserNameTaken
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	return s.repo.Create(ctx, nu)
}

func (s *Service) GetByID(ctx context.Context, id string) (User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetByEmail(ctx, strings.TrimSpace(email))
}

func (s *Service) GetByLogin(ctx context.Context, login string) (User, error) {
	return s.repo.GetByLogin(ctx, strings.TrimSpace(login))
}

// AccountStatus satisfies httpx.AccountLookup.
func (s *Service) AccountStatus(ctx context.Context, id string) (httpx.AccountStatus, error) {
	u, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return httpx.AccountStatus{}, nil
	}
	if err != nil {
		return httpx.AccountStatus{}, err
	}
	return httpx.AccountStatus{Exists: true, Verified: u.IsVerified, Active: u.IsActive}, nil
}

func (s *Service) MarkVerified(ctx context.Context, id string) error {
	return s.repo.MarkVerified(ctx, id)
}

func (s *Service) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return s.repo.UpdatePassword(ctx, id, passwordHash)
}

func (s *Service) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (User, error) {
	if update.IsEmpty() {
		return User{}, ErrNoChanges
	}
	if update.FullName != nil {
		trimmed := strings.TrimSpace(*update.FullName)
		update.FullName = &trimmed
	}
	if update.Gender != nil {
		lower := strings.ToLower(*update.Gender)
		update.Gender = &lower
	}
	if update.Theme != nil {
		lower := strings.ToLower(*update.Theme)
		update.Theme = &lower
	}
	return s.repo.UpdateProfile(ctx, id, update)
}

func (s *Service) SetProfilePicture(ctx context.Context, id string, url *string) error {
	return s.repo.SetProfilePicture(ctx, id, url)
}

func (s *Service) TouchLastLogin(ctx context.Context, id string) error {
	return s.repo.TouchLastLogin(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
