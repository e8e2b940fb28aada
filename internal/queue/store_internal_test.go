package queue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"loom/internal/config"
)

func newInternalStore(t *testing.T) *Store {
	t.Helper()
	base := t.TempDir()
	cfg := &config.Config{}
	cfg.Paths.SessionsDir = filepath.Join(base, "sessions")
	cfg.Paths.EnrichmentDir = filepath.Join(base, "enrichment")
	cfg.Paths.LogDir = filepath.Join(base, "logs")

	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// Dequeue ordering compares created_at as strings in SQL, so the stored
// layout must keep byte-wise and chronological order in agreement even when
// two jobs land in the same second with different fractional values.
func TestDequeueOrderIsChronologicalWithinSameSecond(t *testing.T) {
	store := newInternalStore(t)
	ctx := context.Background()

	first, _, err := store.Enqueue(ctx, "fifo-a", "A", DefaultOptions(), PriorityNormal)
	if err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	second, _, err := store.Enqueue(ctx, "fifo-b", "B", DefaultOptions(), PriorityNormal)
	if err != nil {
		t.Fatalf("enqueue b: %v", err)
	}

	// 100ms renders as a fraction that is a string prefix of 150ms's.
	// A variable-width layout would rank the older stamp after the newer
	// one, because 'Z' compares greater than any digit.
	base := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	older := base.Add(100 * time.Millisecond)
	newer := base.Add(150 * time.Millisecond)

	for _, update := range []struct {
		id string
		at time.Time
	}{
		{second.ID, older},
		{first.ID, newer},
	} {
		if _, err := store.db.ExecContext(ctx,
			`UPDATE enrichment_jobs SET created_at = ? WHERE id = ?`,
			update.at.Format(timeLayout), update.id,
		); err != nil {
			t.Fatalf("rewrite created_at: %v", err)
		}
	}

	next, err := store.DequeueNext(ctx)
	if err != nil {
		t.Fatalf("DequeueNext: %v", err)
	}
	if next == nil || next.ID != second.ID {
		t.Fatalf("expected chronologically older job %s first, got %+v", second.ID, next)
	}
}

// A retry backoff stamp in the past must make the job eligible immediately
// regardless of how its fractional seconds render.
func TestBackoffEligibilityWithShortFraction(t *testing.T) {
	store := newInternalStore(t)
	ctx := context.Background()

	job, _, err := store.Enqueue(ctx, "backoff-fraction", "", DefaultOptions(), PriorityNormal)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	notBefore := time.Now().UTC().Add(-time.Minute).Truncate(time.Second).Add(100 * time.Millisecond)
	if _, err := store.db.ExecContext(ctx,
		`UPDATE enrichment_jobs SET not_before = ? WHERE id = ?`,
		notBefore.Format(timeLayout), job.ID,
	); err != nil {
		t.Fatalf("rewrite not_before: %v", err)
	}

	next, err := store.DequeueNext(ctx)
	if err != nil {
		t.Fatalf("DequeueNext: %v", err)
	}
	if next == nil || next.ID != job.ID {
		t.Fatalf("expected job %s eligible, got %+v", job.ID, next)
	}
}
