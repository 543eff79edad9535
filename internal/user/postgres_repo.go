package user

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const selectColumns = `id, full_name, user_name, email, password_hash, profile_picture, bio, birthdate,
	gender, country, city, favorite_genre, favorite_book, reading_goal, hobbies, theme,
	is_verified, is_active, created_at, updated_at, last_login`

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.FullName, &u.UserName, &u.Email, &u.PasswordHash, &u.ProfilePicture, &u.Bio, &u.Birthdate,
		&u.Gender, &u.Country, &u.City, &u.FavoriteGenre, &u.FavoriteBook, &u.ReadingGoal, &u.Hobbies, &u.Theme,
		&u.IsVerified, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.LastLogin,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		if strings.Contains(pgErr.ConstraintName, "user_name") {
			return ErrUserNameTaken
		}
		return ErrEmailTaken
	}
	return err
}

func (r *PostgresRepo) Create(ctx context.Context, nu NewUser) (User, error) {
	query := `
	INSERT INTO users (full_name, user_name, email, password_hash)
	VALUES ($1, lower($2), lower($3), $4)
	RETURNING ` + selectColumns
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	u, err := scanUser(r.db.QueryRow(timeoutCtx, query, nu.FullName, nu.UserName, nu.Email, nu.PasswordHash))
	if err != nil {
		return User{}, mapUniqueViolation(err)
	}
	return u, nil
}

func (r *PostgresRepo) getOne(ctx context.Context, where string, arg any) (User, error) {
	query := `SELECT ` + selectColumns + ` FROM users WHERE ` + where + ` LIMIT 1`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return scanUser(r.db.QueryRow(timeoutCtx, query, arg))
}

func (r *PostgresRepo) GetByID(ctx context.Context, id string) (User, error) {
	return r.getOne(ctx, "id = $1", id)
}

func (r *PostgresRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.getOne(ctx, "lower(email) = lower($1)", email)
}

func (r *PostgresRepo) GetByUserName(ctx context.Context, userName string) (User, error) {
	return r.getOne(ctx, "lower(user_name) = lower($1)", userName)
}

func (r *PostgresRepo) GetByLogin(ctx context.Context, login string) (User, error) {
	return r.getOne(ctx, "lower(email) = lower($1) OR lower(user_name) = lower($1)", login)
}

func (r *PostgresRepo) exec(ctx context.Context, query string, args ...any) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkVerified returns ErrNotFound when the user is missing or already verified.
func (r *PostgresRepo) MarkVerified(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE users SET is_verified = true, updated_at = now() WHERE id = $1 AND NOT is_verified`, id)
}

func (r *PostgresRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, passwordHash)
}

func (r *PostgresRepo) SetProfilePicture(ctx context.Context, id string, url *string) error {
	return r.exec(ctx, `UPDATE users SET profile_picture = $2, updated_at = now() WHERE id = $1`, id, url)
}

func (r *PostgresRepo) TouchLastLogin(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, id)
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *PostgresRepo) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (User, error) {
	fields := []string{}
	args := []any{}
	set := func(column string, value any) {
		args = append(args, value)
		fields = append(fields, column+" = $"+strconv.Itoa(len(args)))
	}

	if update.FullName != nil {
		set("full_name", *update.FullName)
	}
	if update.Bio != nil {
		set("bio", *update.Bio)
	}
	if update.Birthdate != nil {
		set("birthdate", *update.Birthdate)
	}
	if update.Gender != nil {
		set("gender", *update.Gender)
	}
	if update.Country != nil {
		set("country", *update.Country)
	}
	if update.City != nil {
		set("city", *update.City)
	}
	if update.FavoriteGenre != nil {
		set("favorite_genre", *update.FavoriteGenre)
	}
	if update.FavoriteBook != nil {
		set("favorite_book", *update.FavoriteBook)
	}
	if update.ReadingGoal != nil {
		set("reading_goal", *update.ReadingGoal)
	}
	if update.Hobbies != nil {
		set("hobbies", *update.Hobbies)
	}
	if update.Theme != nil {
		set("theme", *update.Theme)
	}

	if len(fields) == 0 {
		return User{}, ErrNoChanges
	}

	fields = append(fields, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(fields, ", "), len(args), selectColumns)
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return scanUser(r.db.QueryRow(timeoutCtx, query, args...))
}
