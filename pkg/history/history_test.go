package history

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUpsertInsertsThenUpdatesByBatchUID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	ctx := context.Background()
	db, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	store := NewStore(db)
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	err = store.Upsert(ctx, RecordInput{
		BatchUID:    "2026-01-02_03-04-05_train",
		Cluster:     "Generic",
		Queue:       "qwork",
		SeededCount: 10,
		StartedAt:   started,
	})
	if err != nil {
		t.Fatalf("Upsert insert: %v", err)
	}

	got, ok, err := store.Get(ctx, "2026-01-02_03-04-05_train")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("Get: expected batch to exist")
	}
	if got.SeededCount != 10 || got.FinishedCount != 0 || got.FailedCount != 0 {
		t.Fatalf("Get after insert: got %+v", got)
	}
	if got.EndedAt != nil {
		t.Fatalf("Get after insert: expected EndedAt nil, got %v", got.EndedAt)
	}

	ended := started.Add(time.Hour)
	err = store.Upsert(ctx, RecordInput{
		BatchUID:      "2026-01-02_03-04-05_train",
		Cluster:       "Generic",
		Queue:         "qwork",
		SeededCount:   10,
		FinishedCount: 8,
		FailedCount:   2,
		StartedAt:     started,
		EndedAt:       &ended,
	})
	if err != nil {
		t.Fatalf("Upsert update: %v", err)
	}

	got, ok, err = store.Get(ctx, "2026-01-02_03-04-05_train")
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if !ok {
		t.Fatalf("Get after update: expected batch to exist")
	}
	if got.FinishedCount != 8 || got.FailedCount != 2 {
		t.Fatalf("Get after update: got %+v", got)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Fatalf("Get after update: expected EndedAt %v, got %v", ended, got.EndedAt)
	}
	if got.SeededCount != 10 {
		t.Fatalf("Get after update: expected seeded count to remain 10, got %d", got.SeededCount)
	}
}

func TestGetReturnsFalseForUnknownBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	ctx := context.Background()
	db, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	store := NewStore(db)
	_, ok, err := store.Get(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatalf("Get: expected ok=false for unknown batch")
	}
}

func TestListOrdersByStartedAtDescending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	ctx := context.Background()
	db, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	store := NewStore(db)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, uid := range []string{"batch-a", "batch-b", "batch-c"} {
		err := store.Upsert(ctx, RecordInput{
			BatchUID:  uid,
			Cluster:   "Generic",
			Queue:     "qwork",
			StartedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("Upsert %s: %v", uid, err)
		}
	}

	batches, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(batches) != 3 {
		t.Fatalf("List: expected 3 batches, got %d", len(batches))
	}
	want := []string{"batch-c", "batch-b", "batch-a"}
	for i, b := range batches {
		if b.BatchUID != want[i] {
			t.Fatalf("List[%d]: want %s, got %s", i, want[i], b.BatchUID)
		}
	}
}

func TestCleanerDeletesOnlyEndedBatchesBeforeCutoff(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	ctx := context.Background()
	db, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	store := NewStore(db)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	oldEnded := base.Add(time.Hour)
	recentEnded := base.Add(30 * 24 * time.Hour)

	if err := store.Upsert(ctx, RecordInput{
		BatchUID:  "old-finished",
		Cluster:   "Generic",
		Queue:     "qwork",
		StartedAt: base,
		EndedAt:   &oldEnded,
	}); err != nil {
		t.Fatalf("Upsert old-finished: %v", err)
	}
	if err := store.Upsert(ctx, RecordInput{
		BatchUID:  "recent-finished",
		Cluster:   "Generic",
		Queue:     "qwork",
		StartedAt: base,
		EndedAt:   &recentEnded,
	}); err != nil {
		t.Fatalf("Upsert recent-finished: %v", err)
	}
	if err := store.Upsert(ctx, RecordInput{
		BatchUID:  "still-running",
		Cluster:   "Generic",
		Queue:     "qwork",
		StartedAt: base,
	}); err != nil {
		t.Fatalf("Upsert still-running: %v", err)
	}

	cleaner := NewCleaner(db)
	cutoff := base.Add(24 * time.Hour)
	count, err := cleaner.Clean(ctx, cutoff)
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if count != 1 {
		t.Fatalf("Clean: expected 1 deleted row, got %d", count)
	}

	if _, ok, err := store.Get(ctx, "old-finished"); err != nil {
		t.Fatalf("Get old-finished: %v", err)
	} else if ok {
		t.Fatalf("Get old-finished: expected it to be pruned")
	}
	if _, ok, err := store.Get(ctx, "recent-finished"); err != nil {
		t.Fatalf("Get recent-finished: %v", err)
	} else if !ok {
		t.Fatalf("Get recent-finished: expected it to survive pruning")
	}
	if _, ok, err := store.Get(ctx, "still-running"); err != nil {
		t.Fatalf("Get still-running: %v", err)
	} else if !ok {
		t.Fatalf("Get still-running: expected unfinished batch to survive pruning")
	}
}

func TestCleanWorkerRunsImmediatelyOnStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.sqlite")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	store := NewStore(db)
	base := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	ended := base.Add(time.Hour)
	if err := store.Upsert(context.Background(), RecordInput{
		BatchUID:  "ancient",
		Cluster:   "Generic",
		Queue:     "qwork",
		StartedAt: base,
		EndedAt:   &ended,
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	cleaner := NewCleaner(db)
	worker := NewCleanWorker(cleaner, CleanConfig{
		Interval: time.Hour,
		Retain:   time.Minute,
	}, testLogger())

	if err := worker.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer worker.Stop(time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		_, ok, err := store.Get(context.Background(), "ancient")
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("CleanWorker did not prune the ancient batch within the deadline")
}
