package nl2sql

import (
	"errors"
	"fmt"

	"github.com/vizbot/vizbot/internal/schema"
)

var (
	// ErrTranslation marks an exhausted retry loop against the completion
	// service.
	ErrTranslation = errors.New("translation failed")

	// ErrUnsafeStatement marks a candidate containing a data-modifying
	// keyword. Never retried against the database.
	ErrUnsafeStatement = errors.New("unsafe statement")
)

// SchemaMismatchError reports an identifier the snapshot does not know.
type SchemaMismatchError struct {
	Identifier string
	Kind       string // "table" or "column"
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Identifier)
}

// Turn is one prior question/SQL pair from the conversation.
type Turn struct {
	Question string
	SQL      string
}

// Request is a single translation request. The snapshot is owned by the
// request for its duration; history is ordered oldest first.
type Request struct {
	Question string
	Snapshot *schema.Snapshot
	History  []Turn
}

// CandidateSQL is a generated statement with a one-way validated flag. Only
// Validate can mark a candidate validated; nothing clears the flag.
type CandidateSQL struct {
	sql       string
	validated bool
}

// NewCandidateSQL wraps a raw, unvalidated statement.
func NewCandidateSQL(sqlText string) CandidateSQL {
	return CandidateSQL{sql: sqlText}
}

func (c CandidateSQL) SQL() string {
	return c.sql
}

func (c CandidateSQL) Validated() bool {
	return c.validated
}
