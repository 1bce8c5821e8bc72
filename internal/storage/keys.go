package storage

import (
	"fmt"
	"path"
	"regexp"
	"time"
)

var keyComponentPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]{0,127}$`)

// BuildExportKey names a CSV export, partitioned by session and day so
// per-session artifacts stay browsable.
func BuildExportKey(sessionID, artifactID string, createdAt time.Time) (string, error) {
	if err := validateKeyComponent(sessionID, "session id"); err != nil {
		return "", err
	}
	if err := validateKeyComponent(artifactID, "artifact id"); err != nil {
		return "", err
	}
	ts := createdAt.UTC()
	return path.Join(
		"exports",
		sessionID,
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("results-%s.csv", artifactID),
	), nil
}

// BuildAuditKey names a parquet batch of query audit records, partitioned by
// day.
func BuildAuditKey(batchID string, flushedAt time.Time) (string, error) {
	if err := validateKeyComponent(batchID, "batch id"); err != nil {
		return "", err
	}
	ts := flushedAt.UTC()
	return path.Join(
		"audit",
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fmt.Sprintf("queries-%s.parquet", batchID),
	), nil
}

func validateKeyComponent(value, field string) error {
	if !keyComponentPattern.MatchString(value) {
		return fmt.Errorf("invalid %s: %q", field, value)
	}
	return nil
}
