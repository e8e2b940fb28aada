package testsupport

import (
	"context"
	"testing"

	"loom/internal/config"
	"loom/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// EnqueueSession adds a new enrichment job for tests using the provided store.
func EnqueueSession(t testing.TB, store *queue.Store, sessionID, sessionName string) *queue.Job {
	t.Helper()

	job, created, err := store.Enqueue(context.Background(), sessionID, sessionName, queue.DefaultOptions(), queue.PriorityNormal)
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	if !created {
		t.Fatalf("expected a new job for session %s", sessionID)
	}
	return job
}
