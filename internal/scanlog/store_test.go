package scanlog_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/Lunedor/plex-parity/internal/scanlog"
)

func openStore(t *testing.T) *scanlog.Store {
	t.Helper()
	store, err := scanlog.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	started := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	run := scanlog.Run{ID: "run-1", Mode: "full", Status: "running", StartedAt: started, Total: 5}
	if err := store.RecordStart(ctx, run); err != nil {
		t.Fatalf("RecordStart: %v", err)
	}
	run.Status = "paused"
	run.Processed = 2
	if err := store.RecordProgress(ctx, run); err != nil {
		t.Fatalf("RecordProgress: %v", err)
	}

	finished := started.Add(time.Minute)
	run.Status = "failed"
	run.Processed = 3
	run.Unmatched = 1
	run.Error = "library unavailable"
	run.FinishedAt = &finished
	if err := store.RecordFinish(ctx, run); err != nil {
		t.Fatalf("RecordFinish: %v", err)
	}

	got, err := store.Get(ctx, "run-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != "failed" || got.Processed != 3 || got.Unmatched != 1 || got.Error != "library unavailable" {
		t.Fatalf("unexpected run %+v", got)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) || !got.StartedAt.Equal(started) {
		t.Fatalf("timestamps = %v / %v", got.StartedAt, got.FinishedAt)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, scanlog.ErrRunNotFound) {
		t.Fatalf("Get(missing) err = %v", err)
	}
	if err := store.RecordFinish(ctx, scanlog.Run{ID: "missing"}); !errors.Is(err, scanlog.ErrRunNotFound) {
		t.Fatalf("RecordFinish(missing) err = %v", err)
	}
}

func TestHistoryNewestFirstWithLimit(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		run := scanlog.Run{ID: id, Mode: "incremental", Status: "completed", StartedAt: base.Add(time.Duration(i) * 500 * time.Millisecond)}
		if err := store.RecordStart(ctx, run); err != nil {
			t.Fatalf("RecordStart %s: %v", id, err)
		}
	}

	runs, err := store.History(ctx, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "c" || runs[1].ID != "b" {
		t.Fatalf("History = %+v", runs)
	}
	all, err := store.History(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("History(0) = %d runs, err %v", len(all), err)
	}
}

func TestFullScanMarker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := scanlog.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	done, err := store.FullScanCompleted(ctx)
	if err != nil || done {
		t.Fatalf("FullScanCompleted = %v, %v; want false", done, err)
	}
	if err := store.MarkFullScan(ctx, time.Now()); err != nil {
		t.Fatalf("MarkFullScan: %v", err)
	}
	if err := store.MarkFullScan(ctx, time.Now()); err != nil {
		t.Fatalf("MarkFullScan again: %v", err)
	}
	_ = store.Close()

	reopened, err := scanlog.Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	done, err = reopened.FullScanCompleted(ctx)
	if err != nil || !done {
		t.Fatalf("FullScanCompleted after reopen = %v, %v; want true", done, err)
	}
}

func TestAbandonOpen(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	_ = store.RecordStart(ctx, scanlog.Run{ID: "open", Mode: "full", Status: "running", StartedAt: time.Now()})
	_ = store.RecordStart(ctx, scanlog.Run{ID: "closed", Mode: "full", Status: "running", StartedAt: time.Now()})
	_ = store.RecordFinish(ctx, scanlog.Run{ID: "closed", Status: "completed"})

	n, err := store.AbandonOpen(ctx, time.Now())
	if err != nil || n != 1 {
		t.Fatalf("AbandonOpen = %d, %v; want 1", n, err)
	}
	run, _ := store.Get(ctx, "open")
	if run.Status != scanlog.StatusInterrupted || run.FinishedAt == nil {
		t.Fatalf("open run = %+v", run)
	}
}
