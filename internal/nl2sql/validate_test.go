package nl2sql

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/vizbot/vizbot/internal/schema"
)

func buildingSnapshot() *schema.Snapshot {
	return schema.NewSnapshot([]schema.Table{
		{
			Name: "space_metadata",
			Columns: []schema.Column{
				{Name: "geometry_id", DataType: "text"},
				{Name: "room_name", DataType: "text"},
				{Name: "floor", DataType: "integer"},
				{Name: "area", DataType: "text"},
			},
		},
		{
			Name: "space_usage",
			Columns: []schema.Column{
				{Name: "geometry_id", DataType: "text"},
				{Name: "metric_name", DataType: "text"},
				{Name: "value", DataType: "double precision"},
				{Name: "start_time", DataType: "timestamp without time zone"},
			},
		},
	}, time.Now())
}

func TestValidateAcceptsSelect(t *testing.T) {
	candidate, err := Validate(
		"SELECT room_name, value FROM space_usage u JOIN space_metadata m ON u.geometry_id = m.geometry_id LIMIT 10",
		buildingSnapshot(), 500,
	)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !candidate.Validated() {
		t.Fatal("candidate should be validated")
	}
	if !strings.Contains(candidate.SQL(), "LIMIT 10") {
		t.Fatalf("SQL = %q", candidate.SQL())
	}
}

func TestValidateRejectsDataModifyingKeywords(t *testing.T) {
	statements := []string{
		"DROP TABLE space_usage",
		"SELECT value FROM space_usage; DELETE FROM space_usage",
		"INSERT INTO space_usage (value) VALUES (1)",
		"SELECT value INTO backup FROM space_usage",
		"WITH x AS (SELECT 1) UPDATE space_usage SET value = 0",
	}
	for _, stmt := range statements {
		if _, err := Validate(stmt, buildingSnapshot(), 500); !errors.Is(err, ErrUnsafeStatement) {
			t.Fatalf("Validate(%q) error = %v, want ErrUnsafeStatement", stmt, err)
		}
	}
}

func TestValidateRejectsMultipleStatements(t *testing.T) {
	_, err := Validate("SELECT value FROM space_usage; SELECT 1", buildingSnapshot(), 500)
	if err == nil || errors.Is(err, ErrUnsafeStatement) {
		t.Fatalf("error = %v, want plain parse error", err)
	}
}

func TestValidateAllowsTrailingSemicolon(t *testing.T) {
	if _, err := Validate("SELECT value FROM space_usage;", buildingSnapshot(), 500); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateRejectsUnknownTable(t *testing.T) {
	_, err := Validate("SELECT value FROM sensor_readings", buildingSnapshot(), 500)
	var mismatch *SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error = %v, want SchemaMismatchError", err)
	}
	if mismatch.Identifier != "sensor_readings" || mismatch.Kind != "table" {
		t.Fatalf("mismatch = %+v", mismatch)
	}
}

func TestValidateRejectsUnknownColumn(t *testing.T) {
	cases := []string{
		"SELECT temperature FROM space_usage",
		"SELECT u.pressure FROM space_usage u",
	}
	for _, stmt := range cases {
		var mismatch *SchemaMismatchError
		if _, err := Validate(stmt, buildingSnapshot(), 500); !errors.As(err, &mismatch) {
			t.Fatalf("Validate(%q) error = %v, want SchemaMismatchError", stmt, err)
		}
	}
}

func TestValidateAcceptsAliasesAndFunctions(t *testing.T) {
	statements := []string{
		"SELECT avg(value) AS avg_value FROM space_usage GROUP BY metric_name ORDER BY avg_value DESC LIMIT 5",
		"SELECT m.room_name, max(u.value) AS peak FROM space_usage u JOIN space_metadata m ON u.geometry_id = m.geometry_id GROUP BY m.room_name",
		"WITH recent AS (SELECT value, start_time FROM space_usage) SELECT value FROM recent LIMIT 3",
		"SELECT extract(hour FROM start_time) AS hour_of_day, avg(value) AS avg_value FROM space_usage GROUP BY hour_of_day",
		"SELECT count(*) AS total FROM space_usage WHERE metric_name = 'co2'",
	}
	for _, stmt := range statements {
		if _, err := Validate(stmt, buildingSnapshot(), 500); err != nil {
			t.Fatalf("Validate(%q) error = %v", stmt, err)
		}
	}
}

func TestValidateIgnoresStringLiteralContents(t *testing.T) {
	stmt := "SELECT value FROM space_usage WHERE metric_name = 'drop table tricks'"
	if _, err := Validate(stmt, buildingSnapshot(), 500); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestValidateInjectsRowLimit(t *testing.T) {
	candidate, err := Validate("SELECT value FROM space_usage", buildingSnapshot(), 200)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.HasSuffix(candidate.SQL(), "LIMIT 200") {
		t.Fatalf("SQL = %q", candidate.SQL())
	}
}

func TestValidateWrapsExcessiveLimit(t *testing.T) {
	candidate, err := Validate("SELECT value FROM space_usage LIMIT 100000", buildingSnapshot(), 200)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !strings.HasPrefix(candidate.SQL(), "SELECT * FROM (") || !strings.HasSuffix(candidate.SQL(), "LIMIT 200") {
		t.Fatalf("SQL = %q", candidate.SQL())
	}
}

func TestValidateKeepsLimitInsideSubquery(t *testing.T) {
	stmt := "SELECT value FROM (SELECT value FROM space_usage LIMIT 10) AS sub"
	candidate, err := Validate(stmt, buildingSnapshot(), 200)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	// the inner LIMIT is not top level, so the ceiling is appended
	if !strings.HasSuffix(candidate.SQL(), "LIMIT 200") {
		t.Fatalf("SQL = %q", candidate.SQL())
	}
}

func TestValidateRejectsNonSelect(t *testing.T) {
	_, err := Validate("EXPLAIN SELECT value FROM space_usage", buildingSnapshot(), 500)
	if err == nil || errors.Is(err, ErrUnsafeStatement) {
		t.Fatalf("error = %v, want plain parse error", err)
	}
}

func TestValidatedFlagIsOneWay(t *testing.T) {
	unvalidated := NewCandidateSQL("SELECT value FROM space_usage")
	if unvalidated.Validated() {
		t.Fatal("NewCandidateSQL must not produce a validated candidate")
	}
	validated, err := Validate("SELECT value FROM space_usage", buildingSnapshot(), 500)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if !validated.Validated() {
		t.Fatal("Validate must produce a validated candidate")
	}
}
