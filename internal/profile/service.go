package profile

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"readingjourney/internal/platform/crypto"
	"readingjourney/internal/platform/imagestore"
	"readingjourney/internal/user"
)

type Service struct {
	users    UserStore
	library  Library
	sessions SessionRevoker
	images   imagestore.Store
	logger   *zap.Logger
}

func NewService(users UserStore, library Library, sessions SessionRevoker, images imagestore.Store, logger *zap.Logger) *Service {
	return &Service{
		users:    users,
		library:  library,
		sessions: sessions,
		images:   images,
		logger:   logger,
	}
}

func (s *Service) Get(ctx context.Context, userID string) (user.User, error) {
	return s.users.GetByID(ctx, userID)
}

// Update applies a partial profile update; an empty update is user.ErrNoChanges.
func (s *Service) Update(ctx context.Context, userID string, update user.ProfileUpdate) (user.User, error) {
	return s.users.UpdateProfile(ctx, userID, update)
}

// ChangePassword replaces the password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !crypto.VerifyPassword(u.PasswordHash, current) {
		return ErrIncorrectPassword
	}
	if err := crypto.ValidatePasswordStrength(next); err != nil {
		return err
	}

	hash, err := crypto.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// UploadPicture stores a new profile picture and drops the previous one.
func (s *Service) UploadPicture(ctx context.Context, userID string, r io.Reader, maxBytes int64) (user.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return user.User{}, err
	}

	url, err := s.images.Save(ctx, imagestore.FolderAvatars, r, maxBytes)
	if err != nil {
		return user.User{}, err
	}
	if err := s.users.SetProfilePicture(ctx, userID, &url); err != nil {
		s.deleteImage(ctx, url)
		return user.User{}, err
	}

	if u.ProfilePicture != nil && *u.ProfilePicture != url {
		s.deleteImage(ctx, *u.ProfilePicture)
	}
	u.ProfilePicture = &url
	return u, nil
}

func (s *Service) DeletePicture(ctx context.Context, userID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.ProfilePicture == nil {
		return ErrNoPicture
	}
	if err := s.users.SetProfilePicture(ctx, userID, nil); err != nil {
		return err
	}
	s.deleteImage(ctx, *u.ProfilePicture)
	return nil
}

// DeleteAccount removes the user with their books and sessions. Stored
// images go last and only on success; their removal is best-effort.
func (s *Service) DeleteAccount(ctx context.Context, userID string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	covers, err := s.library.DeleteAllByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("delete books: %w", err)
	}
	if err := s.sessions.RevokeAll(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}

	for _, c := range covers {
		s.deleteImage(ctx, c)
	}
	if u.ProfilePicture != nil {
		s.deleteImage(ctx, *u.ProfilePicture)
	}
	s.logger.Info("account deleted", zap.String("user_id", userID), zap.Int("covers", len(covers)))
	return nil
}

func (s *Service) deleteImage(ctx context.Context, url string) {
	if err := s.images.Delete(ctx, url); err != nil && !errors.Is(err, imagestore.ErrForeignURL) {
		s.logger.Warn("delete image failed", zap.String("url", url), zap.Error(err))
	}
}
