package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/vizbot/vizbot/internal/config"
	"github.com/vizbot/vizbot/internal/demo/seeder"
	"github.com/vizbot/vizbot/internal/observability"
	schemapostgres "github.com/vizbot/vizbot/internal/schema/postgres"
)

func main() {
	seed := flag.Int64("seed", 1, "Random seed for deterministic sample data")
	rooms := flag.Int("rooms", 10, "Number of rooms to create")
	days := flag.Int("days", 7, "Days of readings to backfill")
	step := flag.Duration("step", time.Hour, "Interval between readings")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("skipping .env file", slog.Any("error", err))
	}

	cfg, err := config.LoadFromEnv("vizbot-seed")
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

	service, err := seeder.New(db, seeder.Config{
		Seed:      *seed,
		RoomCount: *rooms,
		Days:      *days,
		Step:      *step,
	}, logger)
	if err != nil {
		logger.Error("failed to initialize seeder", slog.Any("error", err))
		os.Exit(1)
	}

	if err := service.Run(ctx); err != nil {
		logger.Error("seeding failed", slog.Any("error", err))
		os.Exit(1)
	}
}
