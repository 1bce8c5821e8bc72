// Package audit archives executed queries. Records accumulate in memory and
// are flushed as parquet batches to the object store on an interval.
package audit

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/vizbot/vizbot/internal/observability"
	"github.com/vizbot/vizbot/internal/storage"
)

type Record struct {
	SessionID  string
	Question   string
	SQL        string
	RowCount   int
	DurationMs int64
	ChartKind  string
	RecordedAt time.Time
}

type parquetRecord struct {
	SessionID        string `parquet:"session_id"`
	Question         string `parquet:"question"`
	SQL              string `parquet:"sql"`
	RowCount         int64  `parquet:"row_count"`
	DurationMs       int64  `parquet:"duration_ms"`
	ChartKind        string `parquet:"chart_kind"`
	RecordedAtUnixMs int64  `parquet:"recorded_at_unix_ms"`
}

type Recorder struct {
	store      storage.ObjectStore
	logger     *slog.Logger
	flushEvery time.Duration
	now        func() time.Time

	mu      sync.Mutex
	pending []Record
}

func NewRecorder(store storage.ObjectStore, flushEvery time.Duration, logger *slog.Logger) (*Recorder, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if flushEvery <= 0 {
		flushEvery = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger, flushEvery: flushEvery, now: time.Now}, nil
}

// Record buffers one executed query. Safe for concurrent use.
func (r *Recorder) Record(record Record) {
	if record.RecordedAt.IsZero() {
		record.RecordedAt = r.now().UTC()
	}
	r.mu.Lock()
	r.pending = append(r.pending, record)
	r.mu.Unlock()
}

// Flush uploads all buffered records as one parquet object. A failed upload
// puts the records back so the next flush retries them.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	data, err := encodeRecords(batch)
	if err != nil {
		return fmt.Errorf("encode audit batch: %w", err)
	}

	key, err := storage.BuildAuditKey(uuid.NewString(), r.now())
	if err != nil {
		return err
	}

	if _, err := r.store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: "application/octet-stream"}); err != nil {
		r.mu.Lock()
		r.pending = append(batch, r.pending...)
		r.mu.Unlock()
		return fmt.Errorf("upload audit batch: %w", err)
	}

	observability.IncrementAuditFlush()
	r.logger.InfoContext(ctx, "audit batch flushed",
		slog.String("key", key),
		slog.Int("records", len(batch)),
	)
	return nil
}

// Run flushes on the configured interval until the context is cancelled, then
// makes a final best-effort flush.
func (r *Recorder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.flushEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := r.Flush(flushCtx); err != nil {
				r.logger.Error("final audit flush failed", slog.String("error", err.Error()))
			}
			cancel()
			return
		case <-ticker.C:
			if err := r.Flush(ctx); err != nil {
				r.logger.Error("audit flush failed", slog.String("error", err.Error()))
			}
		}
	}
}

func encodeRecords(records []Record) ([]byte, error) {
	rows := make([]parquetRecord, 0, len(records))
	for _, record := range records {
		rows = append(rows, parquetRecord{
			SessionID:        record.SessionID,
			Question:         record.Question,
			SQL:              record.SQL,
			RowCount:         int64(record.RowCount),
			DurationMs:       record.DurationMs,
			ChartKind:        record.ChartKind,
			RecordedAtUnixMs: record.RecordedAt.UnixMilli(),
		})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[parquetRecord](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
