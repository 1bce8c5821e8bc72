package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vizbot/vizbot/internal/config"
	"github.com/vizbot/vizbot/internal/migrations"
	"github.com/vizbot/vizbot/internal/observability"
	schemapostgres "github.com/vizbot/vizbot/internal/schema/postgres"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	steps := flag.Int("steps", 0, "Number of migrations to run (0 = all for up, 1 for down)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("skipping .env file", slog.Any("error", err))
	}

	cfg, err := config.LoadFromEnv("vizbot-migrate")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := schemapostgres.Open(ctx, schemapostgres.DBConfig{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	runner := migrations.NewRunner()

	var applied int
	switch *direction {
	case "up":
		applied, err = runner.Up(ctx, db, *steps)
	case "down":
		applied, err = runner.Down(ctx, db, *steps)
	default:
		logger.Error("unknown direction", slog.String("direction", *direction))
		os.Exit(2)
	}
	if err != nil {
		logger.Error("migration failed",
			slog.String("direction", *direction),
			slog.Int("applied", applied),
			slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("migrations complete",
		slog.String("direction", *direction),
		slog.Int("applied", applied))
}
