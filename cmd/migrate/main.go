package main

// Run progress store migrations:
//   go run ./cmd/migrate
//   go run ./cmd/migrate -status

import (
	"context"
	"flag"
	"log"
	"os"
	"strings"

	"readiness-backend/internal/shared/config"
	"readiness-backend/internal/shared/storage/db"
)

func main() {
	status := flag.Bool("status", false, "print migration status instead of migrating")
	flag.Parse()

	cfg := config.Load()
	if strings.TrimSpace(cfg.ProgressDBURL) == "" {
		log.Printf("PROGRESS_DATABASE_URL is required")
		os.Exit(1)
	}
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.ProgressDBURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	dialect := db.DialectFor(cfg.ProgressDBURL)
	if *status {
		if err := db.MigrationStatus(ctx, sqlDB, dialect); err != nil {
			log.Printf("failed to read migration status: %v", err)
			os.Exit(1)
		}
		return
	}
	if err := db.RunMigrations(ctx, sqlDB, dialect); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}
	version, err := db.MigrationVersion(ctx, sqlDB, dialect)
	if err != nil {
		log.Printf("migrations applied (%s), version unknown: %v", dialect, err)
		return
	}
	log.Printf("migrations applied (%s), version %d", dialect, version)
}
