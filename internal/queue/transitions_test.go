package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"loom/internal/queue"
	"loom/internal/testsupport"
)

func TestLifecycleHappyPath(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.EnqueueSession(t, store, "sess-life", "Session")

	processing, err := store.MarkProcessing(ctx, job.ID)
	if err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if processing.Status != queue.StatusProcessing {
		t.Fatalf("expected processing, got %s", processing.Status)
	}

	progressed, err := store.MarkProgress(ctx, job.ID, 55, queue.StageVideo)
	if err != nil {
		t.Fatalf("MarkProgress: %v", err)
	}
	if progressed.Progress != 55 || progressed.Stage != queue.StageVideo {
		t.Fatalf("unexpected progress state: %#v", progressed)
	}

	completed, err := store.MarkCompleted(ctx, job.ID)
	if err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if completed.Status != queue.StatusCompleted || completed.Progress != 100 {
		t.Fatalf("unexpected completion state: %#v", completed)
	}
	if completed.CompletedAt == nil {
		t.Fatal("expected completion timestamp")
	}
}

func TestInvalidTransitionsLeaveStateUntouched(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.EnqueueSession(t, store, "sess-guard", "Session")

	// pending -> completed skips processing and must be rejected.
	if _, err := store.MarkCompleted(ctx, job.ID); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	// pending -> failed likewise.
	if _, err := store.MarkFailed(ctx, job.ID, 1, "boom"); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	// Retry only applies to failed jobs.
	if _, err := store.Retry(ctx, job.ID); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	fetched, err := store.GetJob(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if fetched.Status != queue.StatusPending || fetched.ErrorMessage != "" {
		t.Fatalf("rejected transition mutated the job: %#v", fetched)
	}

	// Terminal states accept nothing further.
	if _, err := store.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if _, err := store.MarkCompleted(ctx, job.ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if _, err := store.MarkProcessing(ctx, job.ID); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition from completed, got %v", err)
	}
}

func TestTransitionUnknownJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.MarkProcessing(context.Background(), "no-such-job"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProgressIsMonotonicWithinAttempt(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.EnqueueSession(t, store, "sess-prog", "Session")
	if _, err := store.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	if _, err := store.MarkProgress(ctx, job.ID, 60, queue.StageSummary); err != nil {
		t.Fatalf("MarkProgress: %v", err)
	}
	// A stale lower report must not move progress backwards.
	regressed, err := store.MarkProgress(ctx, job.ID, 30, queue.StageAudio)
	if err != nil {
		t.Fatalf("MarkProgress: %v", err)
	}
	if regressed.Progress != 60 {
		t.Fatalf("progress regressed to %d", regressed.Progress)
	}

	// Out-of-range values clamp.
	clamped, err := store.MarkProgress(ctx, job.ID, 250, queue.StageCanvas)
	if err != nil {
		t.Fatalf("MarkProgress: %v", err)
	}
	if clamped.Progress != 100 {
		t.Fatalf("expected clamp to 100, got %d", clamped.Progress)
	}
}

func TestRequeueForRetryResetsProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.EnqueueSession(t, store, "sess-retry", "Session")
	if _, err := store.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if _, err := store.MarkProgress(ctx, job.ID, 70, queue.StageSummary); err != nil {
		t.Fatalf("MarkProgress: %v", err)
	}

	requeued, err := store.RequeueForRetry(ctx, job.ID, 1, "insight timeout", 30*time.Second)
	if err != nil {
		t.Fatalf("RequeueForRetry: %v", err)
	}
	if requeued.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", requeued.Status)
	}
	if requeued.Progress != 0 {
		t.Fatalf("expected progress reset for new attempt, got %d", requeued.Progress)
	}
	if requeued.Attempts != 1 {
		t.Fatalf("expected attempts recorded, got %d", requeued.Attempts)
	}
	if requeued.NotBefore == nil || !requeued.NotBefore.After(time.Now()) {
		t.Fatalf("expected a future backoff window, got %v", requeued.NotBefore)
	}
}

func TestMarkFailedRecordsAttemptsAndMessage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.EnqueueSession(t, store, "sess-fail", "Session")
	if _, err := store.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	failed, err := store.MarkFailed(ctx, job.ID, 3, "insight unavailable")
	if err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if failed.Status != queue.StatusFailed || failed.Attempts != 3 {
		t.Fatalf("unexpected failure state: %#v", failed)
	}
	if failed.ErrorMessage != "insight unavailable" {
		t.Fatalf("unexpected error message %q", failed.ErrorMessage)
	}
}

func TestRetryClearsFailureState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.EnqueueSession(t, store, "sess-retry2", "Session")
	if _, err := store.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if _, err := store.MarkFailed(ctx, job.ID, 3, "exhausted"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	retried, err := store.Retry(ctx, job.ID)
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if retried.Status != queue.StatusPending {
		t.Fatalf("expected pending, got %s", retried.Status)
	}
	if retried.ErrorMessage != "" || retried.Progress != 0 {
		t.Fatalf("expected cleared failure state: %#v", retried)
	}

	// The retried job dequeues immediately.
	next, err := store.DequeueNext(ctx)
	if err != nil {
		t.Fatalf("DequeueNext: %v", err)
	}
	if next == nil || next.ID != job.ID {
		t.Fatalf("expected retried job to be eligible, got %#v", next)
	}
}

func TestCancelPendingJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.EnqueueSession(t, store, "sess-cancel1", "Session")

	cancelled, requested, err := store.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if requested {
		t.Fatal("pending cancel should finalize immediately")
	}
	if cancelled.Status != queue.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
}

func TestCancelProcessingJobIsCooperative(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.EnqueueSession(t, store, "sess-cancel2", "Session")
	if _, err := store.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}

	updated, requested, err := store.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !requested {
		t.Fatal("processing cancel should be deferred to the worker")
	}
	if updated.Status != queue.StatusProcessing {
		t.Fatalf("job should remain processing, got %s", updated.Status)
	}

	wants, err := store.WantsCancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("WantsCancel: %v", err)
	}
	if !wants {
		t.Fatal("expected cancel flag to be set")
	}

	// The worker observes the flag at a stage boundary and finalizes.
	final, err := store.MarkCancelled(ctx, job.ID)
	if err != nil {
		t.Fatalf("MarkCancelled: %v", err)
	}
	if final.Status != queue.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", final.Status)
	}
}

func TestCancelTerminalJobFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.EnqueueSession(t, store, "sess-cancel3", "Session")
	if _, err := store.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if _, err := store.MarkCompleted(ctx, job.ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	if _, _, err := store.Cancel(ctx, job.ID); !errors.Is(err, queue.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestAttemptExhaustionSequence(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	job := testsupport.EnqueueSession(t, store, "sess-exhaust", "Session")

	// Attempts 1 and 2 requeue with backoff, attempt 3 exhausts the budget.
	for attempt := 1; attempt < 3; attempt++ {
		if _, err := store.MarkProcessing(ctx, job.ID); err != nil {
			t.Fatalf("attempt %d MarkProcessing: %v", attempt, err)
		}
		requeued, err := store.RequeueForRetry(ctx, job.ID, attempt, "stage failed", 0)
		if err != nil {
			t.Fatalf("attempt %d RequeueForRetry: %v", attempt, err)
		}
		if requeued.Attempts != attempt {
			t.Fatalf("attempt %d recorded as %d", attempt, requeued.Attempts)
		}
	}

	if _, err := store.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("final MarkProcessing: %v", err)
	}
	failed, err := store.MarkFailed(ctx, job.ID, 3, "stage failed")
	if err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	if failed.Attempts != 3 || failed.Status != queue.StatusFailed {
		t.Fatalf("unexpected terminal state: %#v", failed)
	}
}
