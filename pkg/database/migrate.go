package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies every pending goose migration found in dir.
// goose needs a database/sql handle, so a short-lived one is opened through
// the pgx stdlib driver and closed before returning.
func Migrate(ctx context.Context, connStr, dir string) error {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open sql db for migrations: %w", err)
	}
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	absPath, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve migrations dir: %w", err)
	}

	if err := goose.UpContext(ctx, db, absPath); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
