// Command bookctl runs library maintenance tasks against the database
// without going through the HTTP API.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"readingjourney/internal/book"
	"readingjourney/internal/config"
	"readingjourney/internal/dataio"
	"readingjourney/internal/logging"
	"readingjourney/internal/platform/imagestore"
	"readingjourney/internal/user"
)

// needsDB marks commands that open a database connection before running.
const needsDB = "needs-db"

type userResolver interface {
	GetByLogin(ctx context.Context, login string) (user.User, error)
}

type bookInserter interface {
	BulkInsert(ctx context.Context, userID string, books []book.NewBook) (int64, error)
}

type app struct {
	logger *zap.Logger
	out    io.Writer

	users userResolver
	books bookInserter
	data  *dataio.Service

	close func()
}

func main() {
	a := &app{out: os.Stdout}
	defer func() {
		if a.close != nil {
			a.close()
		}
		if a.logger != nil {
			_ = a.logger.Sync()
		}
	}()

	if err := newRootCmd(a, connect).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app, connectFn func(ctx context.Context, a *app) error) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "bookctl",
		Short:         "Reading journey library maintenance",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			config.LoadEnvFiles()
			if a.logger == nil {
				logger, err := logging.New(logLevel, true)
				if err != nil {
					return err
				}
				a.logger = logger
			}
			if cmd.Annotations[needsDB] == "" || a.data != nil {
				return nil
			}
			return connectFn(cmd.Context(), a)
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(
		newImportCmd(a),
		newExportCmd(a),
		newTemplateCmd(a),
		newSeedCmd(a),
	)
	return root
}

// connect opens the database pool and builds the repositories the commands share.
func connect(ctx context.Context, a *app) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("ping database (%s): %w", config.RedactDSN(cfg.DatabaseDSN), err)
	}
	a.close = pool.Close

	bookRepo := book.NewPostgresRepo(pool, cfg.DBTimeout)
	a.users = user.NewService(user.NewPostgresRepo(pool, cfg.DBTimeout))
	a.books = bookRepo
	uploads := &imagestore.LocalStore{Root: cfg.UploadDir, BaseURL: strings.TrimRight(cfg.PublicBaseURL, "/")}
	a.data = dataio.NewService(bookRepo, cfg.MaxUploadBytes, a.logger, dataio.WithImageOwner(uploads))
	return nil
}

// loadConfig tolerates a missing JWT secret, which the operator tools never use.
func loadConfig() (config.Config, error) {
	if os.Getenv("JWT_SECRET") == "" {
		if err := os.Setenv("JWT_SECRET", "unused"); err != nil {
			return config.Config{}, err
		}
	}
	return config.Load()
}

func (a *app) resolveUser(ctx context.Context, login string) (user.User, error) {
	if login == "" {
		return user.User{}, fmt.Errorf("--user is required")
	}
	u, err := a.users.GetByLogin(ctx, login)
	if err != nil {
		return user.User{}, fmt.Errorf("resolve user %q: %w", login, err)
	}
	return u, nil
}
