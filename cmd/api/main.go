package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"readingjourney/internal/auth"
	"readingjourney/internal/book"
	"readingjourney/internal/config"
	"readingjourney/internal/dataio"
	"readingjourney/internal/httpx"
	"readingjourney/internal/logging"
	"readingjourney/internal/platform/imagestore"
	"readingjourney/internal/platform/mailer"
	"readingjourney/internal/platform/openlibrary"
	"readingjourney/internal/profile"
	"readingjourney/internal/session"
	"readingjourney/internal/user"
)

const (
	sessionCleanupInterval = time.Hour
	shutdownTimeout        = 15 * time.Second
	openLibraryRetries     = 2
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := openDB(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	images, err := imagestore.NewLocalStore(cfg.UploadDir, cfg.PublicBaseURL)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	limiter := httpx.NewRateLimitMiddleware(gctx, cfg.RateLimitRPS, cfg.RateLimitBurst)
	srv, sessions := newServer(cfg, logger, pool, images, limiter)

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g.Go(func() error {
		logger.Info("starting server",
			zap.String("addr", cfg.Addr),
			zap.String("env", cfg.Env),
			zap.String("version", cfg.AppVersion),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		sessions.RunCleanup(gctx, sessionCleanupInterval, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	<-limiter.Done()
	logger.Info("server stopped")
	return nil
}

func openDB(ctx context.Context, cfg config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("cannot create db pool: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cannot ping database (%s): %w", config.RedactDSN(cfg.DatabaseDSN), err)
	}
	logger.Info("database connection OK", zap.String("dsn", config.RedactDSN(cfg.DatabaseDSN)))
	return pool, nil
}

// newServer wires repositories, services and handlers.
func newServer(cfg config.Config, logger *zap.Logger, pool *pgxpool.Pool, images *imagestore.LocalStore, limiter *httpx.RateLimitMiddleware) (*server, *session.Service) {
	userRepo := user.NewPostgresRepo(pool, cfg.DBTimeout)
	sessionRepo := session.NewPostgresRepo(pool, cfg.DBTimeout)
	blacklistRepo := session.NewBlacklistPostgresRepo(pool, cfg.DBTimeout)
	bookRepo := book.NewPostgresRepo(pool, cfg.DBTimeout)

	userService := user.NewService(userRepo)
	sessionService := session.NewService(sessionRepo, blacklistRepo, cfg.RefreshTokenTTL)

	mail := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		AppName:  cfg.AppName,
	}, logger)

	authService := auth.NewService(auth.Config{
		Secret:        cfg.JWTSecret,
		AccessTTL:     cfg.AccessTokenTTL,
		EmailTokenTTL: cfg.EmailTokenTTL,
		FrontendURL:   cfg.FrontendURL,
	}, userService, sessionService, mail, logger)

	lookup := openlibrary.NewClient(cfg.AppName+"/"+cfg.AppVersion, float64(cfg.OpenLibraryRPS), openLibraryRetries)
	bookService := book.NewService(bookRepo, images, lookup, logger)
	dataService := dataio.NewService(bookRepo, cfg.MaxUploadBytes, logger, dataio.WithImageOwner(images))
	profileService := profile.NewService(userService, bookRepo, sessionService, images, logger)

	srv := &server{
		cfg:    cfg,
		logger: logger,
		db:     pool,
		h: handlers{
			auth:     auth.NewHTTPHandler(authService, auth.CookieConfig{RefreshTTL: cfg.RefreshTokenTTL, Secure: cfg.CookieSecure}),
			sessions: session.NewHTTPHandler(sessionService),
			profile:  profile.NewHTTPHandler(profileService, cfg.MaxAvatarBytes),
			books:    book.NewHTTPHandler(bookService, cfg.MaxImageBytes),
			data:     dataio.NewHTTPHandler(dataService, cfg.MaxUploadBytes),
		},
		requireAuth: httpx.AuthMiddleware(cfg.JWTSecret, blacklistRepo, userService),
		limiter:     limiter,
	}
	return srv, sessionService
}
