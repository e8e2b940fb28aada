package api

import (
	"testing"
	"time"

	"loom/internal/queue"
)

func TestFromJob(t *testing.T) {
	created := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	completed := created.Add(5 * time.Minute)
	job := &queue.Job{
		ID:          "job-1",
		SessionID:   "sess-1",
		SessionName: "Sprint review",
		Status:      queue.StatusCompleted,
		Priority:    queue.PriorityHigh,
		Progress:    100,
		Options:     queue.DefaultOptions(),
		Attempts:    1,
		MaxAttempts: 3,
		CreatedAt:   created,
		UpdatedAt:   completed,
		CompletedAt: &completed,
	}

	view := FromJob(job)
	if view.Status != "completed" || view.Priority != "high" {
		t.Fatalf("unexpected view: %#v", view)
	}
	if view.CreatedAt != "2026-03-14T09:30:00Z" {
		t.Fatalf("unexpected created_at %q", view.CreatedAt)
	}
	if view.CompletedAt == "" {
		t.Fatal("expected completed_at to be set")
	}
	if !view.Options.AudioReview || !view.Options.Canvas {
		t.Fatalf("options did not convert: %#v", view.Options)
	}
}

func TestFromJobNil(t *testing.T) {
	if view := FromJob(nil); view.ID != "" {
		t.Fatalf("expected zero view for nil job, got %#v", view)
	}
}

func TestOptionsRoundTrip(t *testing.T) {
	opts := queue.Options{Summary: true, ForceRegenerate: true}
	view := FromJob(&queue.Job{Options: opts}).Options
	if got := ToOptions(view); got != opts {
		t.Fatalf("options round trip mismatch: %#v", got)
	}
}
