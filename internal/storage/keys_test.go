package storage

import (
	"testing"
	"time"
)

func TestBuildExportKey(t *testing.T) {
	createdAt := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	key, err := BuildExportKey("session-1", "0f3a", createdAt)
	if err != nil {
		t.Fatalf("BuildExportKey() error = %v", err)
	}
	if key != "exports/session-1/date=2024-03-01/results-0f3a.csv" {
		t.Fatalf("key = %q", key)
	}
}

func TestBuildExportKeyRejectsBadComponents(t *testing.T) {
	createdAt := time.Now()
	if _, err := BuildExportKey("../escape", "0f3a", createdAt); err == nil {
		t.Fatal("expected error for traversal in session id")
	}
	if _, err := BuildExportKey("session-1", "", createdAt); err == nil {
		t.Fatal("expected error for empty artifact id")
	}
}

func TestBuildAuditKey(t *testing.T) {
	flushedAt := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	key, err := BuildAuditKey("batch-7", flushedAt)
	if err != nil {
		t.Fatalf("BuildAuditKey() error = %v", err)
	}
	if key != "audit/date=2024-03-01/queries-batch-7.parquet" {
		t.Fatalf("key = %q", key)
	}
}
