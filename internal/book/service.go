package book

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"readingjourney/internal/platform/imagestore"
	"readingjourney/internal/platform/isbn"
	"readingjourney/internal/platform/openlibrary"
)

// Service provides book-related business logic.
type Service struct {
	repo   Repository
	images imagestore.Store
	lookup MetadataLookup
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new book service. lookup may be nil, in which case
// ISBN lookups fail with ErrLookupFailed.
func NewService(repo Repository, images imagestore.Store, lookup MetadataLookup, logger *zap.Logger) *Service {
	return &Service{repo: repo, images: images, lookup: lookup, logger: logger, now: time.Now}
}

func (s *Service) Create(ctx context.Context, userID string, nb NewBook) (Book, error) {
	nb.Title = strings.TrimSpace(nb.Title)
	if nb.Language == "" {
		nb.Language = DefaultLanguage
	}
	if nb.Format != nil {
		f := strings.ToLower(*nb.Format)
		nb.Format = &f
	}
	if !datesOrdered(nb.ReadingStarted, nb.ReadingFinished) {
		return Book{}, ErrInvalidDates
	}
	return s.repo.Create(ctx, userID, nb)
}

func (s *Service) Get(ctx context.Context, userID, id string) (Book, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, q Query) (Page, error) {
	q = q.Normalize()
	books, total, err := s.repo.List(ctx, q)
	if err != nil {
		return Page{}, err
	}
	return NewPage(books, total, q.Page, q.Limit), nil
}

// Favorites lists favorite books, newest reading_started first.
func (s *Service) Favorites(ctx context.Context, userID string, page, limit int) (Page, error) {
	fav := true
	return s.List(ctx, Query{UserID: userID, Favorite: &fav, Sort: SortDateDesc, Page: page, Limit: limit})
}

// Update applies a partial update. When either reading date changes, the
// merged pair must stay ordered.
func (s *Service) Update(ctx context.Context, userID, id string, u Update) (Book, error) {
	if u.IsEmpty() {
		return Book{}, ErrNoChanges
	}
	if u.Title != nil {
		t := strings.TrimSpace(*u.Title)
		u.Title = &t
	}
	if u.Format != nil {
		f := strings.ToLower(*u.Format)
		u.Format = &f
	}

	if u.ReadingStarted != nil || u.ReadingFinished != nil {
		current, err := s.repo.Get(ctx, userID, id)
		if err != nil {
			return Book{}, err
		}
		started, finished := current.ReadingStarted, current.ReadingFinished
		if u.ReadingStarted != nil {
			started = *u.ReadingStarted
		}
		if u.ReadingFinished != nil {
			finished = u.ReadingFinished
		}
		if !datesOrdered(started, finished) {
			return Book{}, ErrInvalidDates
		}
	}

	return s.repo.Update(ctx, userID, id, u)
}

// Delete removes the book, then its cover. A cover that cannot be removed
// is only logged.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	b, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	if b.CoverImage != nil {
		s.deleteImage(ctx, *b.CoverImage)
	}
	return nil
}

func (s *Service) ToggleFavorite(ctx context.Context, userID, id string) (Book, error) {
	return s.repo.ToggleFavorite(ctx, userID, id)
}

// UploadCover stores a new cover and replaces the old one.
func (s *Service) UploadCover(ctx context.Context, userID, id string, r io.Reader, maxBytes int64) (Book, error) {
	current, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return Book{}, err
	}

	url, err := s.images.Save(ctx, imagestore.FolderCovers, r, maxBytes)
	if err != nil {
		return Book{}, err
	}

	b, err := s.repo.SetCover(ctx, userID, id, &url)
	if err != nil {
		s.deleteImage(ctx, url)
		return Book{}, err
	}

	if current.CoverImage != nil && *current.CoverImage != url {
		s.deleteImage(ctx, *current.CoverImage)
	}
	return b, nil
}

func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	return s.repo.Stats(ctx, userID, s.now().UTC().Year())
}

// Lookup fetches catalogue metadata used to prefill a new book.
func (s *Service) Lookup(ctx context.Context, raw string) (openlibrary.Metadata, error) {
	if !isbn.Valid(raw) {
		return openlibrary.Metadata{}, ErrInvalidISBN
	}
	if s.lookup == nil {
		return openlibrary.Metadata{}, ErrLookupFailed
	}

	m, err := s.lookup.LookupISBN(ctx, isbn.Clean(raw))
	if err != nil {
		if errors.Is(err, openlibrary.ErrNotFound) {
			return openlibrary.Metadata{}, ErrMetadataNotFound
		}
		return openlibrary.Metadata{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	return m, nil
}

func (s *Service) deleteImage(ctx context.Context, url string) {
	err := s.images.Delete(ctx, url)
	if errors.Is(err, imagestore.ErrForeignURL) {
		// imported covers may point at other hosts
		return
	}
	if err != nil {
		s.logger.Warn("failed to delete image", zap.String("url", url), zap.Error(err))
	}
}
