package schema

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeFetcher struct {
	calls     int
	snapshots []*Snapshot
	err       error
}

func (f *fakeFetcher) Fetch(_ context.Context) (*Snapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	snap := f.snapshots[0]
	if len(f.snapshots) > 1 {
		f.snapshots = f.snapshots[1:]
	}
	return snap, nil
}

func testSnapshot(table string) *Snapshot {
	return NewSnapshot([]Table{{
		Name: table,
		Columns: []Column{
			{Name: "id", DataType: "integer"},
			{Name: "value", DataType: "double precision", Nullable: true},
		},
	}}, time.Now())
}

func TestCacheReturnsCachedSnapshotWithinTTL(t *testing.T) {
	fetcher := &fakeFetcher{snapshots: []*Snapshot{testSnapshot("space_usage")}}
	cache := NewCache(fetcher, time.Minute)

	first, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	second, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if first != second {
		t.Fatal("expected cached snapshot to be reused")
	}
	if fetcher.calls != 1 {
		t.Fatalf("fetcher calls = %d, want 1", fetcher.calls)
	}
}

func TestCacheRefetchesAfterTTL(t *testing.T) {
	fetcher := &fakeFetcher{snapshots: []*Snapshot{testSnapshot("a"), testSnapshot("b")}}
	cache := NewCache(fetcher, time.Minute)

	current := time.Now()
	cache.now = func() time.Time { return current }

	if _, err := cache.Get(context.Background()); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	current = current.Add(2 * time.Minute)
	snap, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !snap.HasTable("b") {
		t.Fatal("expected refreshed snapshot")
	}
	if fetcher.calls != 2 {
		t.Fatalf("fetcher calls = %d, want 2", fetcher.calls)
	}
}

func TestRefreshKeepsOldSnapshotOnFailure(t *testing.T) {
	fetcher := &fakeFetcher{snapshots: []*Snapshot{testSnapshot("space_usage")}}
	cache := NewCache(fetcher, 0)

	if _, err := cache.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	fetcher.err = errors.New("connection refused")
	if _, err := cache.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	cache.mu.RLock()
	defer cache.mu.RUnlock()
	if cache.snapshot == nil || !cache.snapshot.HasTable("space_usage") {
		t.Fatal("previous snapshot should survive a failed refresh")
	}
}

func TestSnapshotLookupsFoldCase(t *testing.T) {
	snap := testSnapshot("Space_Usage")
	if !snap.HasTable("space_usage") {
		t.Fatal("HasTable should fold case")
	}
	if !snap.HasColumn("SPACE_USAGE", "Value") {
		t.Fatal("HasColumn should fold case")
	}
	if snap.HasColumn("space_usage", "missing") {
		t.Fatal("HasColumn should reject unknown column")
	}
	if !snap.HasAnyColumn("ID") {
		t.Fatal("HasAnyColumn should fold case")
	}
}
