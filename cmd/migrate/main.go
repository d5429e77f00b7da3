// Package main applies the embedded schema migrations with goose.
package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"time"

	"stockflow/db"
	"stockflow/internal/infrastructure/storage/postgres"
	"stockflow/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{Level: "info", Development: true})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable is required")
	}

	migrations, err := fs.Sub(db.Migrations, "migrations")
	if err != nil {
		log.Fatalw("failed to open migrations", "error", err)
	}

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(dbURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	applied, err := postgres.Migrate(ctx, pool, migrations)
	if err != nil {
		log.Fatalw("migration failed", "applied", applied, "error", err)
	}
	log.Infow("migrations complete", "applied", applied)
}
