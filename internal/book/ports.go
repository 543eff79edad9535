package book

import (
	"context"

	"readingjourney/internal/platform/openlibrary"
)

//go:generate mockgen -source=ports.go -destination=mock_repository_test.go -package=book

// Repository defines the contract for book data storage. Every method is
// scoped to the owning user.
type Repository interface {
	Create(ctx context.Context, userID string, nb NewBook) (Book, error)
	Get(ctx context.Context, userID, id string) (Book, error)
	List(ctx context.Context, q Query) ([]Book, int, error)
	ListAll(ctx context.Context, userID string, favoritesOnly bool) ([]Book, error)
	Update(ctx context.Context, userID, id string, u Update) (Book, error)
	Delete(ctx context.Context, userID, id string) error
	DeleteAllByUser(ctx context.Context, userID string) ([]string, error)
	ToggleFavorite(ctx context.Context, userID, id string) (Book, error)
	SetCover(ctx context.Context, userID, id string, url *string) (Book, error)
	Stats(ctx context.Context, userID string, year int) (Stats, error)
	Identities(ctx context.Context, userID string) ([]Identity, error)
	BulkInsert(ctx context.Context, userID string, books []NewBook) (int64, error)
}

// MetadataLookup resolves an ISBN to catalogue metadata.
type MetadataLookup interface {
	LookupISBN(ctx context.Context, isbn string) (openlibrary.Metadata, error)
}
