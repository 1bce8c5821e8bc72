package seeder

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"time"
)

type Config struct {
	Seed      int64
	RoomCount int
	Days      int
	Step      time.Duration
}

type Service struct {
	db        *sql.DB
	log       *slog.Logger
	cfg       Config
	generator *Generator
	now       func() time.Time
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) (*Service, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	if cfg.Days <= 0 {
		cfg.Days = 7
	}
	if cfg.Step <= 0 {
		cfg.Step = time.Hour
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Service{
		db:        db,
		log:       logger,
		cfg:       cfg,
		generator: NewGenerator(cfg.Seed, cfg.RoomCount),
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run inserts the room metadata and a backfill of readings covering the
// configured number of days up to now.
func (s *Service) Run(ctx context.Context) error {
	rooms := s.generator.Rooms()
	if err := s.insertRooms(ctx, rooms); err != nil {
		return err
	}

	end := s.now().Truncate(s.cfg.Step)
	start := end.Add(-time.Duration(s.cfg.Days) * 24 * time.Hour)

	inserted := 0
	for at := start; !at.After(end); at = at.Add(s.cfg.Step) {
		readings := s.generator.ReadingsAt(at)
		if err := s.insertReadings(ctx, readings); err != nil {
			return err
		}
		inserted += len(readings)
	}

	s.log.Info("seeded sample building data",
		slog.Int("rooms", len(rooms)),
		slog.Int("readings", inserted),
		slog.Time("from", start),
		slog.Time("to", end))
	return nil
}

func (s *Service) insertRooms(ctx context.Context, rooms []Room) error {
	const query = `
INSERT INTO space_metadata (geometry_id, room_name, floor, area)
VALUES ($1, $2, $3, $4)
ON CONFLICT (geometry_id) DO NOTHING`

	for _, room := range rooms {
		if _, err := s.db.ExecContext(ctx, query, room.GeometryID, room.RoomName, room.Floor, room.Area); err != nil {
			return fmt.Errorf("insert room %s: %w", room.GeometryID, err)
		}
	}
	return nil
}

func (s *Service) insertReadings(ctx context.Context, readings []Reading) error {
	const query = `
INSERT INTO space_usage (geometry_id, metric_name, value, start_time)
VALUES ($1, $2, $3, $4)`

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, reading := range readings {
		if _, err := tx.ExecContext(ctx, query, reading.GeometryID, reading.MetricName, reading.Value, reading.StartTime); err != nil {
			return fmt.Errorf("insert reading for %s: %w", reading.GeometryID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit readings: %w", err)
	}
	return nil
}
