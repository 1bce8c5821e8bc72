package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vizbot/vizbot/internal/history"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping history db: %w", err)
	}
	return nil
}

func (r *Repository) Record(ctx context.Context, in history.RecordInput) (history.Entry, error) {
	if in.SessionID == "" {
		return history.Entry{}, fmt.Errorf("session id is required")
	}

	query := `
INSERT INTO chat_history (session_id, question, sql_text, summary, chart_kind)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`

	entry := history.Entry{
		SessionID: in.SessionID,
		Question:  in.Question,
		SQL:       in.SQL,
		Summary:   in.Summary,
		ChartKind: in.ChartKind,
	}
	if err := r.db.QueryRowContext(ctx, query, in.SessionID, in.Question, in.SQL, in.Summary, in.ChartKind).Scan(&entry.ID, &entry.CreatedAt); err != nil {
		return history.Entry{}, fmt.Errorf("record chat turn: %w", err)
	}
	return entry, nil
}

func (r *Repository) Recent(ctx context.Context, sessionID string, limit int) ([]history.Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT id, session_id, question, sql_text, summary, chart_kind, created_at
FROM chat_history
WHERE session_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("list chat turns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]history.Entry, 0, limit)
	for rows.Next() {
		var entry history.Entry
		if err := rows.Scan(
			&entry.ID,
			&entry.SessionID,
			&entry.Question,
			&entry.SQL,
			&entry.Summary,
			&entry.ChartKind,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chat turn row: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat turn rows: %w", err)
	}

	// the query walks newest first; callers want prompt order
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}
