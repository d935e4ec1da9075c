package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsDir = "migrations"

// goose keeps its filesystem and dialect in package state.
var gooseMu sync.Mutex

func withGoose(dialect Dialect, fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationFiles)
	if err := goose.SetDialect(string(dialect)); err != nil {
		return fmt.Errorf("goose dialect %s: %w", dialect, err)
	}
	return fn()
}

// RunMigrations applies the embedded progress-store migrations. A nil
// database is a no-op.
func RunMigrations(ctx context.Context, database *sql.DB, dialect Dialect) error {
	if database == nil {
		return nil
	}
	return withGoose(dialect, func() error {
		return goose.UpContext(ctx, database, migrationsDir)
	})
}

// MigrationStatus logs the applied state of every embedded migration.
func MigrationStatus(ctx context.Context, database *sql.DB, dialect Dialect) error {
	return withGoose(dialect, func() error {
		return goose.StatusContext(ctx, database, migrationsDir)
	})
}

// MigrationVersion reports the latest applied migration.
func MigrationVersion(ctx context.Context, database *sql.DB, dialect Dialect) (int64, error) {
	var version int64
	err := withGoose(dialect, func() error {
		v, err := goose.GetDBVersionContext(ctx, database)
		version = v
		return err
	})
	return version, err
}
