package schema

import (
	"errors"
	"strings"
	"time"
)

// ErrEmptySchema is returned when the connected role sees no tables at all.
var ErrEmptySchema = errors.New("no tables visible to the connected role")

type Column struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}

type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

// Snapshot is a point-in-time read of table and column metadata. It is
// immutable once constructed; lookups fold identifiers to lower case the way
// PostgreSQL folds unquoted identifiers.
type Snapshot struct {
	tables    []Table
	fetchedAt time.Time

	tableIndex  map[string]int
	columnIndex map[string]map[string]struct{}
}

func NewSnapshot(tables []Table, fetchedAt time.Time) *Snapshot {
	snap := &Snapshot{
		tables:      tables,
		fetchedAt:   fetchedAt,
		tableIndex:  make(map[string]int, len(tables)),
		columnIndex: make(map[string]map[string]struct{}, len(tables)),
	}
	for i, table := range tables {
		key := strings.ToLower(table.Name)
		snap.tableIndex[key] = i
		cols := make(map[string]struct{}, len(table.Columns))
		for _, col := range table.Columns {
			cols[strings.ToLower(col.Name)] = struct{}{}
		}
		snap.columnIndex[key] = cols
	}
	return snap
}

func (s *Snapshot) Tables() []Table {
	return s.tables
}

func (s *Snapshot) FetchedAt() time.Time {
	return s.fetchedAt
}

func (s *Snapshot) HasTable(name string) bool {
	_, ok := s.tableIndex[strings.ToLower(name)]
	return ok
}

func (s *Snapshot) HasColumn(table, column string) bool {
	cols, ok := s.columnIndex[strings.ToLower(table)]
	if !ok {
		return false
	}
	_, ok = cols[strings.ToLower(column)]
	return ok
}

// HasAnyColumn reports whether any table in the snapshot has the column.
func (s *Snapshot) HasAnyColumn(column string) bool {
	key := strings.ToLower(column)
	for _, cols := range s.columnIndex {
		if _, ok := cols[key]; ok {
			return true
		}
	}
	return false
}

func (s *Snapshot) Table(name string) (Table, bool) {
	idx, ok := s.tableIndex[strings.ToLower(name)]
	if !ok {
		return Table{}, false
	}
	return s.tables[idx], true
}
