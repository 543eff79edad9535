package book

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

const checkViolation = "23514"

const selectColumns = `id, user_id, title, author, isbn, genre, rating, description, cover_image,
	reading_started, reading_finished, is_favorite, page_count, publisher, publication_year,
	language, format, created_at, updated_at`

var copyColumns = []string{
	"user_id", "title", "author", "isbn", "genre", "rating", "description", "cover_image",
	"reading_started", "reading_finished", "is_favorite", "page_count", "publisher",
	"publication_year", "language", "format",
}

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

func scanBook(row pgx.Row) (Book, error) {
	var b Book
	err := row.Scan(
		&b.ID, &b.UserID, &b.Title, &b.Author, &b.ISBN, &b.Genre, &b.Rating, &b.Description, &b.CoverImage,
		&b.ReadingStarted, &b.ReadingFinished, &b.IsFavorite, &b.PageCount, &b.Publisher, &b.PublicationYear,
		&b.Language, &b.Format, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Book{}, ErrNotFound
		}
		return Book{}, err
	}
	return b, nil
}

func collectBooks(rows pgx.Rows) ([]Book, error) {
	defer rows.Close()
	out := []Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func mapCheckViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == checkViolation && pgErr.ConstraintName == "books_reading_dates" {
		return ErrInvalidDates
	}
	return err
}

// likePattern escapes LIKE wildcards so user input matches literally.
func likePattern(s string) string {
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}

func (r *PostgresRepo) Create(ctx context.Context, userID string, nb NewBook) (Book, error) {
	query := `
	INSERT INTO books (user_id, title, author, isbn, genre, rating, description, cover_image,
		reading_started, reading_finished, is_favorite, page_count, publisher, publication_year,
		language, format)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	RETURNING ` + selectColumns
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query,
		userID, nb.Title, nb.Author, nb.ISBN, nb.Genre, nb.Rating, nb.Description, nb.CoverImage,
		nb.ReadingStarted, nb.ReadingFinished, nb.IsFavorite, nb.PageCount, nb.Publisher, nb.PublicationYear,
		nb.Language, nb.Format,
	))
	if err != nil {
		return Book{}, fmt.Errorf("insert book: %w", mapCheckViolation(err))
	}
	return b, nil
}

func (r *PostgresRepo) Get(ctx context.Context, userID, id string) (Book, error) {
	query := `SELECT ` + selectColumns + ` FROM books WHERE id = $1 AND user_id = $2`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return scanBook(r.db.QueryRow(timeoutCtx, query, id, userID))
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, int, error) {
	q = q.Normalize()

	clauses := []string{"user_id = $1"}
	args := []any{q.UserID}
	argn := 2

	if q.Favorite != nil {
		clauses = append(clauses, fmt.Sprintf("is_favorite = $%d", argn))
		args = append(args, *q.Favorite)
		argn++
	}

	if q.Genre != "" {
		clauses = append(clauses, fmt.Sprintf("genre ILIKE $%d", argn))
		args = append(args, likePattern(q.Genre))
		argn++
	}

	if q.Author != "" {
		clauses = append(clauses, fmt.Sprintf("author ILIKE $%d", argn))
		args = append(args, likePattern(q.Author))
		argn++
	}

	if q.RatingMin != nil {
		clauses = append(clauses, fmt.Sprintf("rating >= $%d", argn))
		args = append(args, *q.RatingMin)
		argn++
	}

	if q.RatingMax != nil {
		clauses = append(clauses, fmt.Sprintf("rating <= $%d", argn))
		args = append(args, *q.RatingMax)
		argn++
	}

	if q.Year != nil {
		clauses = append(clauses, fmt.Sprintf("EXTRACT(YEAR FROM reading_started AT TIME ZONE 'UTC') = $%d", argn))
		args = append(args, *q.Year)
		argn++
	}

	if q.Search != "" {
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR author ILIKE $%d)", argn, argn))
		args = append(args, likePattern(q.Search))
		argn++
	}

	where := "WHERE " + strings.Join(clauses, " AND ")

	countSQL := "SELECT COUNT(*) FROM books " + where
	var total int
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	if err := r.db.QueryRow(timeoutCtx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	dataSQL := fmt.Sprintf(`
		SELECT %s
		FROM books
		%s
		ORDER BY %s, id
		LIMIT $%d OFFSET $%d`,
		selectColumns, where, sortClauses[q.Sort], argn, argn+1)

	argsWithPage := append([]any{}, args...)
	argsWithPage = append(argsWithPage, q.Limit, q.Offset())
	timeoutCtx2, cancel2 := r.withTimeout(ctx)
	defer cancel2()
	rows, err := r.db.Query(timeoutCtx2, dataSQL, argsWithPage...)
	if err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	books, err := collectBooks(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("scan books: %w", err)
	}
	return books, total, nil
}

// ListAll returns every book of the user, newest reading_started first.
func (r *PostgresRepo) ListAll(ctx context.Context, userID string, favoritesOnly bool) ([]Book, error) {
	query := `SELECT ` + selectColumns + ` FROM books WHERE user_id = $1`
	if favoritesOnly {
		query += ` AND is_favorite`
	}
	query += ` ORDER BY reading_started DESC, id`
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list all books: %w", err)
	}
	return collectBooks(rows)
}

func (r *PostgresRepo) Update(ctx context.Context, userID, id string, u Update) (Book, error) {
	fields := []string{}
	args := []any{}
	set := func(column string, value any) {
		args = append(args, value)
		fields = append(fields, column+" = $"+strconv.Itoa(len(args)))
	}

	if u.Title != nil {
		set("title", *u.Title)
	}
	if u.Author != nil {
		set("author", *u.Author)
	}
	if u.ISBN != nil {
		set("isbn", *u.ISBN)
	}
	if u.Genre != nil {
		set("genre", *u.Genre)
	}
	if u.Rating != nil {
		set("rating", *u.Rating)
	}
	if u.Description != nil {
		set("description", *u.Description)
	}
	if u.ReadingStarted != nil {
		set("reading_started", *u.ReadingStarted)
	}
	if u.ReadingFinished != nil {
		set("reading_finished", *u.ReadingFinished)
	}
	if u.IsFavorite != nil {
		set("is_favorite", *u.IsFavorite)
	}
	if u.PageCount != nil {
		set("page_count", *u.PageCount)
	}
	if u.Publisher != nil {
		set("publisher", *u.Publisher)
	}
	if u.PublicationYear != nil {
		set("publication_year", *u.PublicationYear)
	}
	if u.Language != nil {
		set("language", *u.Language)
	}
	if u.Format != nil {
		set("format", *u.Format)
	}

	if len(fields) == 0 {
		return Book{}, ErrNoChanges
	}

	fields = append(fields, "updated_at = now()")
	args = append(args, id, userID)

	query := fmt.Sprintf("UPDATE books SET %s WHERE id = $%d AND user_id = $%d RETURNING %s",
		strings.Join(fields, ", "), len(args)-1, len(args), selectColumns)
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	b, err := scanBook(r.db.QueryRow(timeoutCtx, query, args...))
	if err != nil {
		return Book{}, mapCheckViolation(err)
	}
	return b, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, userID, id string) error {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, `DELETE FROM books WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAllByUser removes the whole library and returns the cover URLs it held.
func (r *PostgresRepo) DeleteAllByUser(ctx context.Context, userID string) ([]string, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, `DELETE FROM books WHERE user_id = $1 RETURNING cover_image`, userID)
	if err != nil {
		return nil, fmt.Errorf("delete books: %w", err)
	}
	defer rows.Close()

	covers := []string{}
	for rows.Next() {
		var cover *string
		if err := rows.Scan(&cover); err != nil {
			return nil, err
		}
		if cover != nil && *cover != "" {
			covers = append(covers, *cover)
		}
	}
	return covers, rows.Err()
}

// ToggleFavorite flips the flag in a single statement so concurrent toggles
// never read a stale value.
func (r *PostgresRepo) ToggleFavorite(ctx context.Context, userID, id string) (Book, error) {
	query := `UPDATE books SET is_favorite = NOT is_favorite, updated_at = now()
	WHERE id = $1 AND user_id = $2
	RETURNING ` + selectColumns
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return scanBook(r.db.QueryRow(timeoutCtx, query, id, userID))
}

func (r *PostgresRepo) SetCover(ctx context.Context, userID, id string, url *string) (Book, error) {
	query := `UPDATE books SET cover_image = $3, updated_at = now()
	WHERE id = $1 AND user_id = $2
	RETURNING ` + selectColumns
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	return scanBook(r.db.QueryRow(timeoutCtx, query, id, userID, url))
}

// Stats runs the totals and both breakdowns concurrently.
func (r *PostgresRepo) Stats(ctx context.Context, userID string, year int) (Stats, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(timeoutCtx)

	st := Stats{BooksByGenre: map[string]int{}, BooksByYear: map[string]int{}}

	g.Go(func() error {
		const query = `
		SELECT COUNT(*),
		       COUNT(reading_finished),
		       COUNT(*) FILTER (WHERE is_favorite),
		       COALESCE(AVG(rating), 0),
		       COUNT(*) FILTER (WHERE rating > 0),
		       COALESCE(SUM(page_count), 0),
		       COUNT(*) FILTER (WHERE EXTRACT(YEAR FROM reading_finished AT TIME ZONE 'UTC') = $2)
		FROM books
		WHERE user_id = $1`
		var total, finished, favorites, rated, pages, finishedThisYear int64
		var avg float64
		err := r.db.QueryRow(gctx, query, userID, year).Scan(
			&total, &finished, &favorites, &avg, &rated, &pages, &finishedThisYear,
		)
		if err != nil {
			return fmt.Errorf("book totals: %w", err)
		}
		st.TotalBooks = int(total)
		st.BooksFinished = int(finished)
		st.BooksReading = int(total - finished)
		st.FavoriteBooks = int(favorites)
		st.AverageRating = math.Round(avg*10) / 10
		st.BooksRatedCount = int(rated)
		st.TotalPages = int(pages)
		st.FinishedThisYear = int(finishedThisYear)
		return nil
	})

	genres := map[string]int{}
	g.Go(func() error {
		rows, err := r.db.Query(gctx, `
		SELECT genre, COUNT(*) FROM books
		WHERE user_id = $1 AND genre IS NOT NULL AND genre <> ''
		GROUP BY genre`, userID)
		if err != nil {
			return fmt.Errorf("books by genre: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var genre string
			var n int64
			if err := rows.Scan(&genre, &n); err != nil {
				return err
			}
			genres[genre] = int(n)
		}
		return rows.Err()
	})

	years := map[string]int{}
	g.Go(func() error {
		rows, err := r.db.Query(gctx, `
		SELECT EXTRACT(YEAR FROM reading_started AT TIME ZONE 'UTC')::int, COUNT(*) FROM books
		WHERE user_id = $1
		GROUP BY 1`, userID)
		if err != nil {
			return fmt.Errorf("books by year: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var y int32
			var n int64
			if err := rows.Scan(&y, &n); err != nil {
				return err
			}
			years[strconv.Itoa(int(y))] = int(n)
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	st.BooksByGenre = genres
	st.BooksByYear = years
	return st, nil
}

func (r *PostgresRepo) Identities(ctx context.Context, userID string) ([]Identity, error) {
	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	rows, err := r.db.Query(timeoutCtx, `
	SELECT COALESCE(isbn, ''), title, COALESCE(author, '') FROM books WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("book identities: %w", err)
	}
	defer rows.Close()

	out := []Identity{}
	for rows.Next() {
		var id Identity
		if err := rows.Scan(&id.ISBN, &id.Title, &id.Author); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// BulkInsert copies all books in one transaction; either every row lands or none.
func (r *PostgresRepo) BulkInsert(ctx context.Context, userID string, books []NewBook) (int64, error) {
	if len(books) == 0 {
		return 0, nil
	}
	owner, err := uuid.Parse(userID)
	if err != nil {
		return 0, fmt.Errorf("import owner: %w", err)
	}

	// A large import gets a wider deadline than a single statement.
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*r.timeout)
	defer cancel()

	tx, err := r.db.Begin(timeoutCtx)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback(timeoutCtx) }()

	n, err := tx.CopyFrom(timeoutCtx, pgx.Identifier{"books"}, copyColumns,
		pgx.CopyFromSlice(len(books), func(i int) ([]any, error) {
			b := books[i]
			return []any{
				owner, b.Title, b.Author, b.ISBN, b.Genre, b.Rating, b.Description, b.CoverImage,
				b.ReadingStarted, b.ReadingFinished, b.IsFavorite, b.PageCount, b.Publisher,
				b.PublicationYear, b.Language, b.Format,
			}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("copy books: %w", mapCheckViolation(err))
	}

	if err := tx.Commit(timeoutCtx); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return n, nil
}
