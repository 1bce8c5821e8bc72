package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vizbot/vizbot/internal/schema"
)

// Introspector reads table and column metadata from information_schema. It is
// stateless; snapshot caching is the caller's concern.
type Introspector struct {
	db *sql.DB
}

func NewIntrospector(db *sql.DB) *Introspector {
	return &Introspector{db: db}
}

func (i *Introspector) HealthCheck(ctx context.Context) error {
	if err := i.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// Fetch returns a snapshot of the public schema. Two batch queries, no N+1.
func (i *Introspector) Fetch(ctx context.Context) (*schema.Snapshot, error) {
	names, err := i.fetchTableNames(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, schema.ErrEmptySchema
	}

	columnsByTable, err := i.fetchColumns(ctx)
	if err != nil {
		return nil, err
	}

	tables := make([]schema.Table, 0, len(names))
	for _, name := range names {
		tables = append(tables, schema.Table{
			Name:    name,
			Columns: columnsByTable[name],
		})
	}
	return schema.NewSnapshot(tables, time.Now().UTC()), nil
}

func (i *Introspector) fetchTableNames(ctx context.Context) ([]string, error) {
	query := `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'public'
  AND table_type = 'BASE TABLE'
ORDER BY table_name`

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names := make([]string, 0, 32)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}
	return names, nil
}

func (i *Introspector) fetchColumns(ctx context.Context) (map[string][]schema.Column, error) {
	query := `
SELECT table_name, column_name, data_type, is_nullable = 'YES' AS nullable
FROM information_schema.columns
WHERE table_schema = 'public'
ORDER BY table_name, ordinal_position`

	rows, err := i.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	columnsByTable := make(map[string][]schema.Column)
	for rows.Next() {
		var tableName string
		var col schema.Column
		if err := rows.Scan(&tableName, &col.Name, &col.DataType, &col.Nullable); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		columnsByTable[tableName] = append(columnsByTable[tableName], col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate column rows: %w", err)
	}
	return columnsByTable, nil
}
