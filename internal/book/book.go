package book

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("book not found")
	ErrNoChanges        = errors.New("no data to update")
	ErrInvalidDates     = errors.New("reading_finished must not be before reading_started")
	ErrInvalidISBN      = errors.New("invalid isbn")
	ErrMetadataNotFound = errors.New("no metadata for isbn")
	ErrLookupFailed     = errors.New("metadata lookup failed")
)

// DefaultLanguage is stored when a book is created without a language.
const DefaultLanguage = "English"

// Book is a single entry in a user's reading journal.
type Book struct {
	ID              string     `json:"id"`
	UserID          string     `json:"-"`
	Title           string     `json:"title"`
	Author          *string    `json:"author"`
	ISBN            *string    `json:"isbn"`
	Genre           *string    `json:"genre"`
	Rating          float64    `json:"rating"`
	Description     *string    `json:"description"`
	CoverImage      *string    `json:"cover_image"`
	ReadingStarted  time.Time  `json:"reading_started"`
	ReadingFinished *time.Time `json:"reading_finished"`
	IsFavorite      bool       `json:"is_favorite"`
	PageCount       *int       `json:"page_count"`
	Publisher       *string    `json:"publisher"`
	PublicationYear *int       `json:"publication_year"`
	Language        string     `json:"language"`
	Format          *string    `json:"format"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// NewBook carries the fields of a book about to be stored.
type NewBook struct {
	Title           string
	Author          *string
	ISBN            *string
	Genre           *string
	Rating          float64
	Description     *string
	CoverImage      *string
	ReadingStarted  time.Time
	ReadingFinished *time.Time
	IsFavorite      bool
	PageCount       *int
	Publisher       *string
	PublicationYear *int
	Language        string
	Format          *string
}

// Update is a partial update; nil fields are left untouched.
type Update struct {
	Title           *string
	Author          *string
	ISBN            *string
	Genre           *string
	Rating          *float64
	Description     *string
	ReadingStarted  *time.Time
	ReadingFinished *time.Time
	IsFavorite      *bool
	PageCount       *int
	Publisher       *string
	PublicationYear *int
	Language        *string
	Format          *string
}

func (u Update) IsEmpty() bool {
	return u.Title == nil && u.Author == nil && u.ISBN == nil && u.Genre == nil &&
		u.Rating == nil && u.Description == nil && u.ReadingStarted == nil &&
		u.ReadingFinished == nil && u.IsFavorite == nil && u.PageCount == nil &&
		u.Publisher == nil && u.PublicationYear == nil && u.Language == nil && u.Format == nil
}

var formats = map[string]bool{
	"paperback": true, "hardcover": true, "ebook": true, "audiobook": true, "pdf": true,
}

// IsFormat reports whether f names a known edition format. Case is ignored.
func IsFormat(f string) bool {
	return formats[strings.ToLower(f)]
}

// Identity is what import deduplication compares against.
type Identity struct {
	ISBN   string
	Title  string
	Author string
}

func datesOrdered(started time.Time, finished *time.Time) bool {
	return finished == nil || !finished.Before(started)
}

// Sort orders accepted by List.
const (
	SortDateDesc   = "date_desc"
	SortDateAsc    = "date_asc"
	SortTitleAsc   = "title_asc"
	SortTitleDesc  = "title_desc"
	SortRatingDesc = "rating_desc"
	SortAuthorAsc  = "author_asc"
	SortAuthorDesc = "author_desc"
)

var sortClauses = map[string]string{
	SortDateDesc:   "reading_started DESC",
	SortDateAsc:    "reading_started ASC",
	SortTitleAsc:   "lower(title) ASC",
	SortTitleDesc:  "lower(title) DESC",
	SortRatingDesc: "rating DESC",
	SortAuthorAsc:  "lower(author) ASC NULLS LAST",
	SortAuthorDesc: "lower(author) DESC NULLS LAST",
}

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Query filters and paginates one user's books.
type Query struct {
	UserID    string
	Favorite  *bool
	Genre     string
	Author    string
	RatingMin *float64
	RatingMax *float64
	Year      *int
	Search    string
	Sort      string
	Page      int
	Limit     int
}

// Normalize applies defaults and replaces an unknown sort with date_desc.
func (q Query) Normalize() Query {
	if _, ok := sortClauses[q.Sort]; !ok {
		q.Sort = SortDateDesc
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 || q.Limit > MaxLimit {
		q.Limit = DefaultLimit
	}
	q.Genre = strings.TrimSpace(q.Genre)
	q.Author = strings.TrimSpace(q.Author)
	q.Search = strings.TrimSpace(q.Search)
	return q
}

func (q Query) Offset() int {
	return (q.Page - 1) * q.Limit
}

// Page is one page of List results.
type Page struct {
	Books   []Book `json:"books"`
	Total   int    `json:"total"`
	Page    int    `json:"page"`
	Pages   int    `json:"pages"`
	HasNext bool   `json:"has_next"`
	HasPrev bool   `json:"has_prev"`
}

func NewPage(books []Book, total, page, limit int) Page {
	if books == nil {
		books = []Book{}
	}
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Page{
		Books:   books,
		Total:   total,
		Page:    page,
		Pages:   pages,
		HasNext: page < pages,
		HasPrev: page > 1,
	}
}

// Stats summarises a user's library.
type Stats struct {
	TotalBooks       int            `json:"total_books"`
	BooksFinished    int            `json:"books_finished"`
	BooksReading     int            `json:"books_reading"`
	FavoriteBooks    int            `json:"favorite_books"`
	AverageRating    float64        `json:"average_rating"`
	BooksRatedCount  int            `json:"books_rated_count"`
	TotalPages       int            `json:"total_pages"`
	BooksByGenre     map[string]int `json:"books_by_genre"`
	BooksByYear      map[string]int `json:"books_by_year"`
	FinishedThisYear int            `json:"finished_this_year"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime accepts RFC 3339 timestamps, zone-less timestamps and bare
// dates. Values without a zone are read as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
