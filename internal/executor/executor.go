package executor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vizbot/vizbot/internal/nl2sql"
	"github.com/vizbot/vizbot/internal/observability"
)

var (
	// ErrNotValidated marks an attempt to execute a candidate that never
	// passed validation. Nothing is sent to the database in that case.
	ErrNotValidated = errors.New("candidate not validated")

	// ErrQueryTimeout marks a statement cancelled by the per-query timeout.
	ErrQueryTimeout = errors.New("query timed out")
)

// ColumnKind is the coarse value class the chart mapper works with.
type ColumnKind string

const (
	KindNumeric     ColumnKind = "numeric"
	KindTime        ColumnKind = "time"
	KindCategorical ColumnKind = "categorical"
)

type Column struct {
	Name     string
	TypeName string
	Kind     ColumnKind
}

type ResultSet struct {
	Columns  []Column
	Rows     [][]any
	Duration time.Duration
}

type Config struct {
	StatementTimeout time.Duration
}

// Executor runs validated statements inside a read-only transaction with a
// statement timeout scoped to that transaction.
type Executor struct {
	db               *sql.DB
	statementTimeout time.Duration
	logger           *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) (*Executor, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle is required")
	}
	timeout := cfg.StatementTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{db: db, statementTimeout: timeout, logger: logger}, nil
}

func (e *Executor) Execute(ctx context.Context, candidate nl2sql.CandidateSQL) (ResultSet, error) {
	if !candidate.Validated() {
		return ResultSet{}, ErrNotValidated
	}

	start := time.Now()
	tx, err := e.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return ResultSet{}, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", e.statementTimeout.Milliseconds())); err != nil {
		return ResultSet{}, fmt.Errorf("set statement timeout: %w", err)
	}

	rows, err := tx.QueryContext(ctx, candidate.SQL())
	if err != nil {
		return ResultSet{}, e.mapQueryError(ctx, err)
	}
	defer func() { _ = rows.Close() }()

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return ResultSet{}, fmt.Errorf("query column types: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columnTypes))
		scanTargets := make([]any, len(columnTypes))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return ResultSet{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return ResultSet{}, e.mapQueryError(ctx, err)
	}

	elapsed := time.Since(start)
	observability.ObserveQueryDuration(elapsed)
	e.logger.DebugContext(ctx, "query executed",
		slog.Int("rows", len(resultRows)),
		slog.Duration("duration", elapsed),
	)

	return ResultSet{
		Columns:  classifyColumns(columnTypes, resultRows),
		Rows:     resultRows,
		Duration: elapsed,
	}, nil
}

// mapQueryError folds the two ways a timeout surfaces, server-side
// cancellation (SQLSTATE 57014) and a context deadline, into ErrQueryTimeout.
func (e *Executor) mapQueryError(ctx context.Context, err error) error {
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == "57014",
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(ctx.Err(), context.DeadlineExceeded):
		observability.IncrementQueryTimeout()
		return fmt.Errorf("%w after %s", ErrQueryTimeout, e.statementTimeout)
	}
	return fmt.Errorf("execute query: %w", err)
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func classifyColumns(columnTypes []*sql.ColumnType, rows [][]any) []Column {
	columns := make([]Column, len(columnTypes))
	for i, columnType := range columnTypes {
		typeName := columnType.DatabaseTypeName()
		kind := kindForTypeName(typeName)
		if kind == "" {
			kind = kindForValues(rows, i)
		}
		columns[i] = Column{Name: columnType.Name(), TypeName: typeName, Kind: kind}
	}
	return columns
}

func kindForTypeName(typeName string) ColumnKind {
	switch strings.ToUpper(typeName) {
	case "INT2", "INT4", "INT8", "FLOAT4", "FLOAT8", "NUMERIC", "DECIMAL", "MONEY":
		return KindNumeric
	case "DATE", "TIME", "TIMETZ", "TIMESTAMP", "TIMESTAMPTZ":
		return KindTime
	case "BOOL", "TEXT", "VARCHAR", "BPCHAR", "CHAR", "NAME", "UUID", "JSON", "JSONB":
		return KindCategorical
	}
	return ""
}

// kindForValues infers a kind from scanned values when the driver reports no
// usable type name, as happens with computed expressions in some drivers.
func kindForValues(rows [][]any, index int) ColumnKind {
	for _, row := range rows {
		if index >= len(row) || row[index] == nil {
			continue
		}
		switch row[index].(type) {
		case time.Time:
			return KindTime
		case int, int32, int64, float32, float64:
			return KindNumeric
		default:
			return KindCategorical
		}
	}
	return KindCategorical
}
