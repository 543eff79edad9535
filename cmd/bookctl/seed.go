package main

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"readingjourney/internal/book"
)

const seedBatchSize = 1000

var (
	seedGenres    = []string{"Fiction", "Science Fiction", "History", "Science", "Technology", "Romance", "Mystery", "Biography", "Philosophy", "Art"}
	seedLanguages = []string{"English", "Spanish", "French", "German", "Italian", "Portuguese"}
	seedFormats   = []string{"paperback", "hardcover", "ebook", "audiobook"}
	seedAuthors   = []string{"Ursula K. Le Guin", "Italo Calvino", "Toni Morrison", "Haruki Murakami", "Chinua Achebe", "Wisława Szymborska", "Jorge Luis Borges"}
	seedWords     = []string{
		"Adventure", "Mystery", "Journey", "Discovery", "Secrets", "Dreams", "Hope",
		"Love", "War", "Peace", "Science", "Nature", "Technology", "History", "Future",
		"Past", "Present", "Reality", "Imagination", "Wisdom", "Life", "Death",
		"Light", "Darkness", "World", "Universe", "Time", "Space", "Mind", "Soul",
	}
)

func newSeedCmd(a *app) *cobra.Command {
	var login string
	var count int
	var seed uint64

	cmd := &cobra.Command{
		Use:         "seed",
		Short:       "Fill a user's library with generated books",
		Annotations: map[string]string{needsDB: "true"},
		Args:        cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			u, err := a.resolveUser(cmd.Context(), login)
			if err != nil {
				return err
			}

			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			books := generateBooks(rand.New(rand.NewPCG(seed, seed>>1)), count, time.Now())

			var inserted int64
			for start := 0; start < len(books); start += seedBatchSize {
				end := min(start+seedBatchSize, len(books))
				n, err := a.books.BulkInsert(cmd.Context(), u.ID, books[start:end])
				if err != nil {
					return fmt.Errorf("insert books: %w", err)
				}
				inserted += n
				a.logger.Info("seeded batch", zap.Int("done", end), zap.Int("count", count))
			}
			fmt.Fprintf(a.out, "Inserted %d books for %s\n", inserted, u.UserName)
			return nil
		},
	}
	cmd.Flags().StringVar(&login, "user", "", "Email or username of the library owner")
	cmd.Flags().IntVar(&count, "count", 100, "Number of books to generate")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Random seed (default: current time)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func generateBooks(rng *rand.Rand, count int, now time.Time) []book.NewBook {
	pick := func(s []string) string { return s[rng.IntN(len(s))] }

	books := make([]book.NewBook, 0, count)
	for i := range count {
		author := pick(seedAuthors)
		genre := pick(seedGenres)
		format := pick(seedFormats)
		pages := 100 + rng.IntN(800)
		year := 1950 + rng.IntN(now.Year()-1950+1)
		description := fmt.Sprintf("A book about %s.", pick(seedWords))

		started := now.AddDate(0, 0, -rng.IntN(3*365)).Truncate(24 * time.Hour)
		nb := book.NewBook{
			Title:           fmt.Sprintf("%s of %s %d", pick(seedWords), pick(seedWords), i+1),
			Author:          &author,
			Genre:           &genre,
			Rating:          float64(rng.IntN(11)) / 2,
			Description:     &description,
			ReadingStarted:  started,
			IsFavorite:      rng.IntN(5) == 0,
			PageCount:       &pages,
			PublicationYear: &year,
			Language:        pick(seedLanguages),
			Format:          &format,
		}
		if rng.IntN(2) == 0 {
			finished := started.AddDate(0, 0, 1+rng.IntN(60))
			if finished.After(now) {
				finished = now
			}
			nb.ReadingFinished = &finished
		}
		books = append(books, nb)
	}
	return books
}
