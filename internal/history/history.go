// Package history persists conversation turns so follow-up questions can be
// translated with prior context.
package history

import (
	"context"
	"time"
)

type Entry struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Question  string    `json:"question"`
	SQL       string    `json:"sql"`
	Summary   string    `json:"summary,omitempty"`
	ChartKind string    `json:"chart_kind,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type RecordInput struct {
	SessionID string
	Question  string
	SQL       string
	Summary   string
	ChartKind string
}

// Store records turns and returns the most recent ones for a session.
// Recent returns entries ordered oldest first, ready for prompt assembly.
type Store interface {
	Record(ctx context.Context, in RecordInput) (Entry, error)
	Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error)
}
