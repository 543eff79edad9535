package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectSessions = `
	SELECT id, user_id, refresh_token_hash, COALESCE(user_agent, ''), COALESCE(ip_address, ''),
	       expires_at, created_at, last_used_at
	FROM sessions`

// PostgresRepo stores refresh-token sessions. Rows past expires_at are
// invisible to every read.
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

func scanSession(row pgx.Row) (Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.UserAgent, &s.IPAddress,
		&s.ExpiresAt, &s.CreatedAt, &s.LastUsedAt)
	return s, err
}

// exec runs a statement and returns the affected row count.
func (r *PostgresRepo) exec(ctx context.Context, query string, args ...any) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// execOne is exec for statements that must touch exactly one live session.
func (r *PostgresRepo) execOne(ctx context.Context, query string, args ...any) error {
	n, err := r.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Create(ctx context.Context, s *Session) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	err := r.db.QueryRow(ctx, `
		INSERT INTO sessions (user_id, refresh_token_hash, user_agent, ip_address, expires_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
		RETURNING id, created_at, last_used_at`,
		s.UserID, s.RefreshTokenHash, s.UserAgent, s.IPAddress, s.ExpiresAt,
	).Scan(&s.ID, &s.CreatedAt, &s.LastUsedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetByTokenHash(ctx context.Context, tokenHash string) (Session, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	s, err := scanSession(r.db.QueryRow(ctx, selectSessions+`
		WHERE refresh_token_hash = $1 AND expires_at > now()`, tokenHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return s, err
}

func (r *PostgresRepo) ListByUserID(ctx context.Context, userID string) ([]Session, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(ctx, selectSessions+`
		WHERE user_id = $1 AND expires_at > now()
		ORDER BY last_used_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	sessions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Session, error) {
		return scanSession(row)
	})
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []Session{}
	}
	return sessions, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, userID, sessionID string) error {
	return r.execOne(ctx, `DELETE FROM sessions WHERE id = $1 AND user_id = $2`, sessionID, userID)
}

func (r *PostgresRepo) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	_, err := r.exec(ctx, `DELETE FROM sessions WHERE refresh_token_hash = $1`, tokenHash)
	return err
}

func (r *PostgresRepo) DeleteByUserID(ctx context.Context, userID string) error {
	_, err := r.exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (r *PostgresRepo) DeleteOthers(ctx context.Context, userID, keepHash string) (int64, error) {
	return r.exec(ctx, `DELETE FROM sessions WHERE user_id = $1 AND refresh_token_hash <> $2`, userID, keepHash)
}

func (r *PostgresRepo) Rotate(ctx context.Context, sessionID, oldHash, newHash string, expiresAt time.Time) error {
	return r.execOne(ctx, `
		UPDATE sessions
		SET refresh_token_hash = $3, expires_at = $4, last_used_at = now()
		WHERE id = $1 AND refresh_token_hash = $2 AND expires_at > now()`,
		sessionID, oldHash, newHash, expiresAt)
}

func (r *PostgresRepo) CleanupExpired(ctx context.Context) (int64, error) {
	return r.exec(ctx, `DELETE FROM sessions WHERE expires_at <= now()`)
}

// BlacklistPostgresRepo remembers revoked access-token ids until they expire.
type BlacklistPostgresRepo struct {
	sessions *PostgresRepo
}

func NewBlacklistPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *BlacklistPostgresRepo {
	return &BlacklistPostgresRepo{sessions: NewPostgresRepo(db, timeout)}
}

func (r *BlacklistPostgresRepo) AddToken(ctx context.Context, jti, userID string, expiresAt time.Time) (bool, error) {
	n, err := r.sessions.exec(ctx, `
		INSERT INTO token_blacklist (jti, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING`, jti, userID, expiresAt)
	return n == 1, err
}

func (r *BlacklistPostgresRepo) IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	ctx, cancel := r.sessions.withTimeout(ctx)
	defer cancel()
	var revoked bool
	err := r.sessions.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM token_blacklist WHERE jti = $1 AND expires_at > now())`,
		jti).Scan(&revoked)
	return revoked, err
}

func (r *BlacklistPostgresRepo) CleanupExpired(ctx context.Context) (int64, error) {
	return r.sessions.exec(ctx, `DELETE FROM token_blacklist WHERE expires_at <= now()`)
}
