package dataio

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"readingjourney/internal/book"
	"readingjourney/internal/platform/isbn"
)

// BookStore is the slice of the book repository that import and export need.
type BookStore interface {
	Identities(ctx context.Context, userID string) ([]book.Identity, error)
	BulkInsert(ctx context.Context, userID string, books []book.NewBook) (int64, error)
	ListAll(ctx context.Context, userID string, favoritesOnly bool) ([]book.Book, error)
}

// ImageOwner recognises URLs of images kept by this deployment.
type ImageOwner interface {
	Owns(url string) bool
}

type Service struct {
	store    BookStore
	images   ImageOwner
	maxBytes int64
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithImageOwner makes Import drop cover_image values that point into the
// local image store. Deleting such a book would otherwise delete a file
// another account uploaded.
func WithImageOwner(o ImageOwner) Option {
	return func(s *Service) { s.images = o }
}

// NewService creates an import/export service. Uploads larger than maxBytes
// are rejected with ErrTooLarge.
func NewService(store BookStore, maxBytes int64, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{store: store, maxBytes: maxBytes, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Import parses r, drops entries already in the library and stores the rest
// in a single transaction.
func (s *Service) Import(ctx context.Context, userID string, f Format, r io.Reader) (ImportResult, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return ImportResult{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return ImportResult{}, ErrTooLarge
	}

	now := s.now()
	var entries []entry
	var entryErrs []EntryError
	switch f {
	case FormatJSON:
		entries, entryErrs, err = parseJSON(data, now)
	case FormatCSV:
		entries, entryErrs, err = parseCSV(data, now)
	default:
		return ImportResult{}, ErrUnknownFormat
	}
	if err != nil {
		return ImportResult{}, err
	}
	s.dropLocalCovers(userID, entries)

	existing, err := s.store.Identities(ctx, userID)
	if err != nil {
		return ImportResult{}, err
	}
	fresh, skipped := dedupe(entries, existing)

	imported, err := s.store.BulkInsert(ctx, userID, fresh)
	if err != nil {
		return ImportResult{}, err
	}

	stats := ImportStats{
		Total:    len(entries) + len(entryErrs),
		Imported: int(imported),
		Skipped:  skipped,
		Failed:   len(entryErrs),
		Errors:   firstErrors(entryErrs),
	}
	s.logger.Info("books imported",
		zap.String("user_id", userID),
		zap.String("format", string(f)),
		zap.Int("total", stats.Total),
		zap.Int("imported", stats.Imported),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed),
	)
	return ImportResult{Message: "Import completed", Stats: stats}, nil
}

func (s *Service) dropLocalCovers(userID string, entries []entry) {
	if s.images == nil {
		return
	}
	dropped := 0
	for i := range entries {
		if c := entries[i].book.CoverImage; c != nil && s.images.Owns(*c) {
			entries[i].book.CoverImage = nil
			dropped++
		}
	}
	if dropped > 0 {
		s.logger.Warn("dropped imported covers pointing at local uploads",
			zap.String("user_id", userID),
			zap.Int("count", dropped),
		)
	}
}

// Export renders the user's library, newest first as stored.
func (s *Service) Export(ctx context.Context, userID string, f Format, favoritesOnly bool) (Download, error) {
	books, err := s.store.ListAll(ctx, userID, favoritesOnly)
	if err != nil {
		return Download{}, err
	}
	if len(books) == 0 {
		return Download{}, ErrNothingToExport
	}

	var body []byte
	var contentType string
	switch f {
	case FormatJSON:
		body, err = encodeJSON(books)
		contentType = contentTypeJSON
	case FormatCSV:
		body, err = encodeCSV(books)
		contentType = contentTypeCSV
	default:
		return Download{}, ErrUnknownFormat
	}
	if err != nil {
		return Download{}, fmt.Errorf("encode %s export: %w", f, err)
	}
	return Download{Filename: exportFilename(f, s.now()), ContentType: contentType, Body: body}, nil
}

// Template returns a CSV with the import header and two sample rows.
func (s *Service) Template() (Download, error) {
	body, err := encodeCSV(templateBooks())
	if err != nil {
		return Download{}, err
	}
	return Download{Filename: TemplateFilename, ContentType: contentTypeCSV, Body: body}, nil
}

type identityIndex struct {
	isbns  map[string]bool
	titles map[string]bool
}

func titleKey(title, author string) string {
	return strings.ToLower(strings.TrimSpace(title)) + "\x00" + strings.ToLower(strings.TrimSpace(author))
}

func (ix identityIndex) seen(isbnRaw, title, author string) bool {
	if d := isbn.Digits(isbnRaw); d != "" && ix.isbns[d] {
		return true
	}
	return ix.titles[titleKey(title, author)]
}

func (ix identityIndex) add(isbnRaw, title, author string) {
	if d := isbn.Digits(isbnRaw); d != "" {
		ix.isbns[d] = true
	}
	ix.titles[titleKey(title, author)] = true
}

// dedupe drops entries whose ISBN digits or title and author match a stored
// book or an earlier entry of the same file.
func dedupe(entries []entry, existing []book.Identity) ([]book.NewBook, int) {
	ix := identityIndex{isbns: map[string]bool{}, titles: map[string]bool{}}
	for _, id := range existing {
		ix.add(id.ISBN, id.Title, id.Author)
	}

	fresh := make([]book.NewBook, 0, len(entries))
	skipped := 0
	for _, e := range entries {
		nb := e.book
		isbnRaw, author := str(nb.ISBN), str(nb.Author)
		if ix.seen(isbnRaw, nb.Title, author) {
			skipped++
			continue
		}
		ix.add(isbnRaw, nb.Title, author)
		fresh = append(fresh, nb)
	}
	return fresh, skipped
}

func firstErrors(errs []EntryError) []EntryError {
	if len(errs) > MaxReportedErrors {
		errs = errs[:MaxReportedErrors]
	}
	out := make([]EntryError, len(errs))
	copy(out, errs)
	return out
}
