package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/vizbot/vizbot/internal/schema"
)

func newSQLMock(t *testing.T) (*Introspector, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock setup failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewIntrospector(db), mock
}

func assertSQLMock(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sqlmock expectations: %v", err)
	}
}

const tablesQuery = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'public'
  AND table_type = 'BASE TABLE'
ORDER BY table_name`

const columnsQuery = `
SELECT table_name, column_name, data_type, is_nullable = 'YES' AS nullable
FROM information_schema.columns
WHERE table_schema = 'public'
ORDER BY table_name, ordinal_position`

func TestFetchBuildsSnapshot(t *testing.T) {
	introspector, mock := newSQLMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(tablesQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("space_metadata").
			AddRow("space_usage"))
	mock.ExpectQuery(regexp.QuoteMeta(columnsQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name", "column_name", "data_type", "nullable"}).
			AddRow("space_metadata", "geometry_id", "text", false).
			AddRow("space_metadata", "room_name", "text", true).
			AddRow("space_usage", "geometry_id", "text", false).
			AddRow("space_usage", "start_time", "timestamp without time zone", true).
			AddRow("space_usage", "value", "double precision", true))

	snap, err := introspector.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(snap.Tables()) != 2 {
		t.Fatalf("tables = %d, want 2", len(snap.Tables()))
	}
	if !snap.HasColumn("space_usage", "start_time") {
		t.Fatal("expected space_usage.start_time in snapshot")
	}
	usage, ok := snap.Table("space_usage")
	if !ok || len(usage.Columns) != 3 {
		t.Fatalf("space_usage columns = %#v", usage.Columns)
	}
	if usage.Columns[1].Name != "start_time" {
		t.Fatalf("column order not preserved: %#v", usage.Columns)
	}
	assertSQLMock(t, mock)
}

func TestFetchEmptySchema(t *testing.T) {
	introspector, mock := newSQLMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(tablesQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}))

	_, err := introspector.Fetch(context.Background())
	if !errors.Is(err, schema.ErrEmptySchema) {
		t.Fatalf("error = %v, want ErrEmptySchema", err)
	}
	assertSQLMock(t, mock)
}

func TestFetchPropagatesConnectionError(t *testing.T) {
	introspector, mock := newSQLMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(tablesQuery)).
		WillReturnError(errors.New("connection refused"))

	_, err := introspector.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	assertSQLMock(t, mock)
}
