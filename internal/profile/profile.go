package profile

import (
	"context"
	"errors"

	"readingjourney/internal/user"
)

var (
	ErrIncorrectPassword = errors.New("current password is incorrect")
	ErrNoPicture         = errors.New("no profile picture to delete")
)

//go:generate mockgen -source=profile.go -destination=mocks_test.go -package=profile

// UserStore is the part of the user service the profile endpoints use.
type UserStore interface {
	GetByID(ctx context.Context, id string) (user.User, error)
	UpdateProfile(ctx context.Context, id string, update user.ProfileUpdate) (user.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetProfilePicture(ctx context.Context, id string, url *string) error
	Delete(ctx context.Context, id string) error
}

// Library removes a user's books and reports the cover images they held.
type Library interface {
	DeleteAllByUser(ctx context.Context, userID string) ([]string, error)
}

// SessionRevoker ends every refresh session of a user.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, userID string) error
}
