package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"readingjourney/internal/config"
	"readingjourney/internal/logging"
)

var errUsage = errors.New("usage")

func main() {
	var (
		command = flag.String("command", "up", "Migration command: up, down, status, version, create")
		name    = flag.String("name", "", "Name for 'create' command")
	)
	flag.Parse()

	config.LoadEnvFiles()
	logger, err := logging.New(os.Getenv("LOG_LEVEL"), true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(*command, *name, logger); err != nil {
		logger.Error("migration failed", zap.String("command", *command), zap.Error(err))
		os.Exit(1)
	}
}

func run(command, name string, logger *zap.Logger) error {
	fsys, dir := migrationSource()

	if command == "create" {
		return create(fsys, dir, name, logger)
	}

	dsn := databaseDSN()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database (%s): %w", config.RedactDSN(dsn), err)
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	return migrate(sqlDB, fsys, dir, command, logger)
}

func create(fsys fs.FS, dir, name string, logger *zap.Logger) error {
	if fsys != nil {
		return fmt.Errorf("%w: 'create' writes to disk, set MIGRATIONS_DIR=db/migrations", errUsage)
	}
	if name == "" {
		return fmt.Errorf("%w: -name is required for 'create'", errUsage)
	}
	if err := goose.Create(nil, dir, name, "sql"); err != nil {
		return fmt.Errorf("create migration: %w", err)
	}
	logger.Info("migration created", zap.String("name", name), zap.String("dir", dir))
	return nil
}

func migrate(sqlDB *sql.DB, fsys fs.FS, dir, command string, logger *zap.Logger) error {
	goose.SetBaseFS(fsys)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	switch command {
	case "up":
		if err := goose.Up(sqlDB, dir); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("migrations applied")
	case "down":
		if err := goose.Down(sqlDB, dir); err != nil {
			return fmt.Errorf("roll back migration: %w", err)
		}
		logger.Info("migration rolled back")
	case "status":
		if err := goose.Status(sqlDB, dir); err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
	case "version":
		v, err := goose.GetDBVersion(sqlDB)
		if err != nil {
			return fmt.Errorf("migration version: %w", err)
		}
		logger.Info("database version", zap.Int64("version", v))
	default:
		return fmt.Errorf("%w: unknown command %q, use up, down, status, version or create", errUsage, command)
	}
	return nil
}
