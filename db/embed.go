// Package db embeds the SQL migrations so binaries do not depend on the working directory.
package db

import "embed"

// Migrations holds db/migrations/*.sql with goose annotations.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations that goose reads.
const MigrationsDir = "migrations"
