package user

import (
	"context"
)

type Repository interface {
	Create(ctx context.Context, u NewUser) (User, error)
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByUserName(ctx context.Context, userName string) (User, error)
	// GetByLogin matches login against email or user name, case-insensitively.
	GetByLogin(ctx context.Context, login string) (User, error)
	MarkVerified(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (User, error)
	SetProfilePicture(ctx context.Context, id string, url *string) error
	TouchLastLogin(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}
