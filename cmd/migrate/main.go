package main

// Apply, inspect or roll back schema migrations:
//   go run ./cmd/migrate            # up
//   go run ./cmd/migrate -status
//   go run ./cmd/migrate -down

import (
	"context"
	"flag"
	"os"

	"jobtracker-backend/internal/shared/config"
	"jobtracker-backend/internal/shared/storage/db"
	"jobtracker-backend/internal/shared/telemetry"
)

func main() {
	status := flag.Bool("status", false, "print applied and pending migrations")
	down := flag.Bool("down", false, "roll back the latest migration")
	flag.Parse()

	cfg := config.Load()
	telemetry.Init(cfg.LogLevel)
	defer telemetry.Sync()
	ctx := context.Background()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.MigrateOptions(db.FromConfig(cfg.DB)))
	if err != nil {
		telemetry.Error("migrate.connect_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer sqlDB.Close()

	op, run := "up", db.RunMigrations
	switch {
	case *status:
		op, run = "status", db.MigrationStatus
	case *down:
		op, run = "down", db.RollbackMigration
	}
	if err := run(ctx, sqlDB); err != nil {
		telemetry.Error("migrate.failed", map[string]any{"op": op, "error": err})
		os.Exit(1)
	}
	telemetry.Info("migrate.done", map[string]any{"op": op})
}
