package main

import (
	"context"
	"strings"
	"testing"

	"loom/internal/queue"
	"loom/internal/testsupport"
)

func TestEnqueueAndQueueList(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "enqueue", "session-alpha", "--name", "Alpha Session", "--priority", "high")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	requireContains(t, out, "Queued session session-alpha")
	requireContains(t, out, "audio, video, summary, canvas")

	out, _, err = runCLI(t, env, "enqueue", "session-alpha")
	if err != nil {
		t.Fatalf("duplicate enqueue: %v", err)
	}
	requireContains(t, out, "already queued")

	out, _, err = runCLI(t, env, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Alpha Session")
	requireContains(t, out, "pending")
	requireContains(t, out, "high")

	out, _, err = runCLI(t, env, "queue", "status")
	if err != nil {
		t.Fatalf("queue status: %v", err)
	}
	requireContains(t, out, "pending")
	requireContains(t, out, "total")
}

func TestEnqueueRejectsAllSkipped(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "enqueue", "session-skip",
		"--skip-audio", "--skip-video", "--skip-summary", "--skip-canvas")
	if err == nil || !strings.Contains(err.Error(), "at least one") {
		t.Fatalf("expected all-skipped error, got %v", err)
	}
}

func TestQueueListRejectsUnknownStatus(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "queue", "list", "--status", "bogus")
	if err == nil || !strings.Contains(err.Error(), `unknown status "bogus"`) {
		t.Fatalf("expected unknown status error, got %v", err)
	}
}

func TestCancelAndRetryCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	job := testsupport.EnqueueSession(t, env.store, "session-beta", "Beta")
	out, _, err := runCLI(t, env, "cancel", job.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	requireContains(t, out, "Job cancelled")

	failing := testsupport.EnqueueSession(t, env.store, "session-gamma", "Gamma")
	if _, err := env.store.MarkProcessing(ctx, failing.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if _, err := env.store.MarkFailed(ctx, failing.ID, 3, "insight unavailable"); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}

	out, _, err = runCLI(t, env, "queue", "show", failing.ID)
	if err != nil {
		t.Fatalf("queue show: %v", err)
	}
	requireContains(t, out, "insight unavailable")
	requireContains(t, out, "failed")

	out, _, err = runCLI(t, env, "retry", failing.ID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	requireContains(t, out, "returned to queue")

	refreshed, err := env.store.GetJob(ctx, failing.ID)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if refreshed.Status != queue.StatusPending {
		t.Fatalf("expected pending after retry, got %s", refreshed.Status)
	}
}

func TestQueueClearAndRemoveCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	keep := testsupport.EnqueueSession(t, env.store, "session-keep", "Keep")
	done := testsupport.EnqueueSession(t, env.store, "session-done", "Done")
	if _, err := env.store.MarkProcessing(ctx, done.ID); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if _, err := env.store.MarkCompleted(ctx, done.ID); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}

	out, _, err := runCLI(t, env, "queue", "clear")
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Removed 1 jobs")

	out, _, err = runCLI(t, env, "queue", "remove", keep.ID)
	if err != nil {
		t.Fatalf("queue remove: %v", err)
	}
	requireContains(t, out, "Job removed")

	out, _, err = runCLI(t, env, "queue", "list")
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "Queue is empty")
}

func TestStatusCommandRendersSections(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "== Stages ==")
	requireContains(t, out, "Queue is empty")
}

func TestTestNotifyWithoutTopic(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "test-notify")
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
}
