package internal

import (
	"context"
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

// Schema migrations for the fleet database. Each file is additive; the
// server applies any pending ones on startup so a deploy never races a
// report against a missing table.
//
//go:embed migrations/*.sql
var migrations embed.FS

// RunMigrations brings the database schema up to the latest version.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	return goose.UpContext(ctx, db, "migrations")
}
