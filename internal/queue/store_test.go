package queue_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"loom/internal/queue"
	"loom/internal/testsupport"
)

func TestOpenAppliesMigrations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, created, err := store.Enqueue(ctx, "sess-1", "Sample Session", queue.DefaultOptions(), queue.PriorityNormal)
	if err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if !created || job.ID == "" {
		t.Fatalf("expected new job with an assigned ID, got created=%v id=%q", created, job.ID)
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", job.Status)
	}

	fetched, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob failed: %v", err)
	}
	if fetched == nil || fetched.SessionName != "Sample Session" {
		t.Fatalf("unexpected fetched job: %#v", fetched)
	}
}

func TestEnqueueRequiresSessionID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, _, err := store.Enqueue(context.Background(), "", "No Session", queue.DefaultOptions(), queue.PriorityNormal); err == nil {
		t.Fatal("expected error when session id missing")
	}
}

func TestEnqueueDeduplicatesActiveSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	first, created, err := store.Enqueue(ctx, "sess-dup", "Session", queue.DefaultOptions(), queue.PriorityNormal)
	if err != nil || !created {
		t.Fatalf("first enqueue: created=%v err=%v", created, err)
	}

	second, created, err := store.Enqueue(ctx, "sess-dup", "Session", queue.DefaultOptions(), queue.PriorityHigh)
	if err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	if created || second.ID != first.ID {
		t.Fatalf("expected existing active job back, got created=%v id=%s", created, second.ID)
	}

	// A terminal job frees the session for a fresh enqueue.
	if _, err := store.MarkProcessing(ctx, first.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if _, err := store.MarkCompleted(ctx, first.ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	third, created, err := store.Enqueue(ctx, "sess-dup", "Session", queue.DefaultOptions(), queue.PriorityNormal)
	if err != nil || !created {
		t.Fatalf("enqueue after completion: created=%v err=%v", created, err)
	}
	if third.ID == first.ID {
		t.Fatal("expected a new job after the previous one completed")
	}
}

func TestDequeueOrdersByPriorityThenAge(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	jobs := make(map[string]*queue.Job)
	for i, spec := range []struct {
		session  string
		priority queue.Priority
	}{
		{"low-old", queue.PriorityLow},
		{"normal-old", queue.PriorityNormal},
		{"normal-new", queue.PriorityNormal},
		{"high-late", queue.PriorityHigh},
	} {
		job, _, err := store.Enqueue(ctx, spec.session, fmt.Sprintf("Session %d", i), queue.DefaultOptions(), spec.priority)
		if err != nil {
			t.Fatalf("enqueue %s: %v", spec.session, err)
		}
		jobs[spec.session] = job
		// Keep created_at strictly ordered.
		time.Sleep(5 * time.Millisecond)
	}

	expect := []string{"high-late", "normal-old", "normal-new", "low-old"}
	for _, session := range expect {
		next, err := store.DequeueNext(ctx)
		if err != nil {
			t.Fatalf("DequeueNext: %v", err)
		}
		if next == nil || next.ID != jobs[session].ID {
			t.Fatalf("expected %s next, got %#v", session, next)
		}
		if _, err := store.MarkProcessing(ctx, next.ID); err != nil {
			t.Fatalf("MarkProcessing: %v", err)
		}
	}

	next, err := store.DequeueNext(ctx)
	if err != nil {
		t.Fatalf("DequeueNext on busy queue: %v", err)
	}
	if next != nil {
		t.Fatalf("expected empty dequeue, got %#v", next)
	}
}

func TestDequeueHonorsBackoffWindow(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, _, err := store.Enqueue(ctx, "sess-backoff", "Session", queue.DefaultOptions(), queue.PriorityNormal)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := store.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if _, err := store.RequeueForRetry(ctx, job.ID, 1, "transient failure", time.Hour); err != nil {
		t.Fatalf("RequeueForRetry: %v", err)
	}

	next, err := store.DequeueNext(ctx)
	if err != nil {
		t.Fatalf("DequeueNext: %v", err)
	}
	if next != nil {
		t.Fatalf("job inside backoff window should not dequeue, got %#v", next)
	}
}

func TestJobPersistsAcrossReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	opts := queue.Options{Summary: true, ForceRegenerate: true}
	job, _, err := store.Enqueue(ctx, "sess-persist", "Durable Session", opts, queue.PriorityHigh)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })

	fetched, err := reopened.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob after reopen: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected job to survive reopen")
	}
	if fetched.Priority != queue.PriorityHigh || fetched.Options != opts {
		t.Fatalf("job fields did not round-trip: %#v", fetched)
	}
}

func TestOpenResetsOrphanedProcessing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job, _, err := store.Enqueue(ctx, "sess-orphan", "Interrupted Session", queue.DefaultOptions(), queue.PriorityNormal)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, err := store.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if _, err := store.MarkProgress(ctx, job.ID, 40, queue.StageVideo); err != nil {
		t.Fatalf("MarkProgress: %v", err)
	}
	// Simulate a crash: close without finishing the job.
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { reopened.Close() })

	fetched, err := reopened.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if fetched.Status != queue.StatusPending {
		t.Fatalf("expected orphaned job reset to pending, got %s", fetched.Status)
	}
	if fetched.Progress != 0 {
		t.Fatalf("expected progress reset, got %d", fetched.Progress)
	}
}

func TestQueueStatusCounts(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a, _, _ := store.Enqueue(ctx, "sess-a", "A", queue.DefaultOptions(), queue.PriorityNormal)
	b, _, _ := store.Enqueue(ctx, "sess-b", "B", queue.DefaultOptions(), queue.PriorityHigh)
	if _, _, err := store.Enqueue(ctx, "sess-c", "C", queue.DefaultOptions(), queue.PriorityLow); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if _, err := store.MarkProcessing(ctx, a.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if _, err := store.MarkCompleted(ctx, a.ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if _, err := store.MarkProcessing(ctx, b.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	status, err := store.QueueStatus(ctx)
	if err != nil {
		t.Fatalf("QueueStatus: %v", err)
	}
	if status.Pending != 1 || status.Processing != 1 || status.Completed != 1 {
		t.Fatalf("unexpected counts: %#v", status)
	}
	if status.Total != 3 {
		t.Fatalf("expected total 3, got %d", status.Total)
	}
	if status.ByPriority[queue.PriorityLow] != 1 {
		t.Fatalf("expected one pending low-priority job, got %#v", status.ByPriority)
	}
}

func TestRemoveAndClearTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	a, _, _ := store.Enqueue(ctx, "sess-r1", "A", queue.DefaultOptions(), queue.PriorityNormal)
	b, _, _ := store.Enqueue(ctx, "sess-r2", "B", queue.DefaultOptions(), queue.PriorityNormal)

	removed, err := store.Remove(ctx, a.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Fatal("expected pending job to be removable")
	}

	if _, err := store.MarkProcessing(ctx, b.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if _, err := store.MarkCompleted(ctx, b.ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	cleared, err := store.ClearTerminal(ctx)
	if err != nil {
		t.Fatalf("ClearTerminal: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected one terminal job cleared, got %d", cleared)
	}
}
