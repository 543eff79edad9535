package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("email already registered")
	ErrUserNameTaken = errors.New("user name already taken")
	ErrNoChanges     = errors.New("no data to update")
)

// User is an account. Email and UserName are stored lower-case.
type User struct {
	ID             string     `json:"id"`
	FullName       string     `json:"full_name"`
	UserName       string     `json:"user_name"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	ProfilePicture *string    `json:"profile_picture"`
	Bio            *string    `json:"bio"`
	Birthdate      *time.Time `json:"birthdate"`
	Gender         *string    `json:"gender"`
	Country        *string    `json:"country"`
	City           *string    `json:"city"`
	FavoriteGenre  *string    `json:"favorite_genre"`
	FavoriteBook   *string    `json:"favorite_book"`
	ReadingGoal    *int       `json:"reading_goal"`
	Hobbies        *string    `json:"hobbies"`
	Theme          string     `json:"theme"`
	IsVerified     bool       `json:"is_verified"`
	IsActive       bool       `json:"is_active"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastLogin      *time.Time `json:"last_login"`
}

// Summary is the short form returned by auth endpoints.
type Summary struct {
	ID             string  `json:"id"`
	FullName       string  `json:"full_name"`
	UserName       string  `json:"user_name"`
	Email          string  `json:"email"`
	ProfilePicture *string `json:"profile_picture"`
	Theme          string  `json:"theme"`
	IsVerified     bool    `json:"is_verified"`
}

func (u User) Summary() Summary {
	return Summary{
		ID:             u.ID,
		FullName:       u.FullName,
		UserName:       u.UserName,
		Email:          u.Email,
		ProfilePicture: u.ProfilePicture,
		Theme:          u.Theme,
		IsVerified:     u.IsVerified,
	}
}

// NewUser carries the fields needed to create an account.
type NewUser struct {
	FullName     string
	UserName     string
	Email        string
	PasswordHash string
}

// ProfileUpdate is a partial update; nil fields are left untouched.
type ProfileUpdate struct {
	FullName      *string
	Bio           *string
	Birthdate     *time.Time
	Gender        *string
	Country       *string
	City          *string
	FavoriteGenre *string
	FavoriteBook  *string
	ReadingGoal   *int
	Hobbies       *string
	Theme         *string
}

func (p ProfileUpdate) IsEmpty() bool {
	return p.FullName == nil && p.Bio == nil && p.Birthdate == nil && p.Gender == nil &&
		p.Country == nil && p.City == nil && p.FavoriteGenre == nil && p.FavoriteBook == nil &&
		p.ReadingGoal == nil && p.Hobbies == nil && p.Theme == nil
}
