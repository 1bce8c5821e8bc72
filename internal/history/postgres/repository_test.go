package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/vizbot/vizbot/internal/history"
)

func newSQLMock(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewRepository(db), mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

func TestRecordInsertsTurn(t *testing.T) {
	repo, mock := newSQLMock(t)
	createdAt := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`
INSERT INTO chat_history (session_id, question, sql_text, summary, chart_kind)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`)).
		WithArgs("session-1", "how busy was the lobby?", "SELECT 1", "busy", "bar").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), createdAt))

	entry, err := repo.Record(context.Background(), history.RecordInput{
		SessionID: "session-1",
		Question:  "how busy was the lobby?",
		SQL:       "SELECT 1",
		Summary:   "busy",
		ChartKind: "bar",
	})
	if err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	if entry.ID != 7 || !entry.CreatedAt.Equal(createdAt) {
		t.Fatalf("entry = %+v", entry)
	}
	assertSQLMock(t, mock)
}

func TestRecordRequiresSessionID(t *testing.T) {
	repo, mock := newSQLMock(t)

	if _, err := repo.Record(context.Background(), history.RecordInput{Question: "anything"}); err == nil {
		t.Fatal("expected error for missing session id")
	}
	assertSQLMock(t, mock)
}

func TestRecentReturnsOldestFirst(t *testing.T) {
	repo, mock := newSQLMock(t)

	rows := sqlmock.NewRows([]string{"id", "session_id", "question", "sql_text", "summary", "chart_kind", "created_at"}).
		AddRow(int64(3), "session-1", "third", "SELECT 3", "", "table", time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)).
		AddRow(int64(2), "session-1", "second", "SELECT 2", "", "bar", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC))

	mock.ExpectQuery(regexp.QuoteMeta("FROM chat_history")).
		WithArgs("session-1", 2).
		WillReturnRows(rows)

	entries, err := repo.Recent(context.Background(), "session-1", 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d", len(entries))
	}
	if entries[0].Question != "second" || entries[1].Question != "third" {
		t.Fatalf("order = %q, %q", entries[0].Question, entries[1].Question)
	}
	assertSQLMock(t, mock)
}
