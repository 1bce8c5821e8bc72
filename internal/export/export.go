// Package export writes result sets as CSV artifacts to the object store so
// the presentation layer can offer downloads.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vizbot/vizbot/internal/executor"
	"github.com/vizbot/vizbot/internal/storage"
)

type Exporter struct {
	store  storage.ObjectStore
	logger *slog.Logger
	now    func() time.Time
}

func New(store storage.ObjectStore, logger *slog.Logger) (*Exporter, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{store: store, logger: logger, now: time.Now}, nil
}

// ExportCSV uploads the result as a CSV artifact and returns its object info.
func (e *Exporter) ExportCSV(ctx context.Context, result executor.ResultSet, sessionID string) (storage.ObjectInfo, error) {
	if len(result.Columns) == 0 {
		return storage.ObjectInfo{}, fmt.Errorf("result has no columns")
	}

	body, err := encodeCSV(result)
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	key, err := storage.BuildExportKey(sessionID, uuid.NewString(), e.now())
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	info, err := e.store.Put(ctx, key, bytes.NewReader(body), int64(len(body)), storage.PutOptions{ContentType: "text/csv"})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("upload csv export: %w", err)
	}

	e.logger.InfoContext(ctx, "result exported",
		slog.String("key", info.Key),
		slog.Int("rows", len(result.Rows)),
		slog.Int64("bytes", info.Size),
	)
	return info, nil
}

func encodeCSV(result executor.ResultSet) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := make([]string, len(result.Columns))
	for i, column := range result.Columns {
		header[i] = column.Name
	}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = formatValue(row[i])
			}
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case time.Time:
		return typed.UTC().Format(time.RFC3339)
	case []byte:
		return string(typed)
	default:
		return fmt.Sprint(typed)
	}
}
