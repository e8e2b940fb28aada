package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"loom/internal/daemon"
	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/testsupport"
	"loom/internal/workflow"
)

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonQueueOperations(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	logger := logging.NewNop()
	mgr := workflow.NewManager(cfg, store, logger)
	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx := context.Background()
	job, created, err := d.Enqueue(ctx, "sess-1", "Session", queue.DefaultOptions(), queue.PriorityNormal)
	if err != nil || !created {
		t.Fatalf("Enqueue: created=%v err=%v", created, err)
	}

	jobs, err := d.ListQueue(ctx, nil)
	if err != nil {
		t.Fatalf("ListQueue: %v", err)
	}
	if len(jobs) != 1 || jobs[0].ID != job.ID {
		t.Fatalf("unexpected listing: %#v", jobs)
	}

	cancelled, requested, err := d.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if requested || cancelled.Status != queue.StatusCancelled {
		t.Fatalf("expected immediate cancel of pending job, got requested=%v status=%s", requested, cancelled.Status)
	}

	cleared, err := d.ClearTerminal(ctx)
	if err != nil {
		t.Fatalf("ClearTerminal: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected one cleared job, got %d", cleared)
	}
}

func TestDaemonLogsQueueEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	logPath := filepath.Join(cfg.Paths.LogDir, "events.log")
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}

	mgr := workflow.NewManager(cfg, store, logger)
	d, err := daemon.New(cfg, store, logger, mgr)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	// Let the worker's first empty poll pass so the enqueue and cancel
	// below both land inside the same poll window.
	time.Sleep(50 * time.Millisecond)

	job, _, err := d.Enqueue(ctx, "sess-events", "Session", queue.DefaultOptions(), queue.PriorityNormal)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if _, _, err := d.Cancel(ctx, job.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	d.Stop()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	for _, want := range []string{"queue event", "job-enqueued", "job-cancelled", "job_id=" + job.ID} {
		if !strings.Contains(out, want) {
			t.Fatalf("log missing %q:\n%s", want, out)
		}
	}

	// After Stop the subscription is detached and mutations log nothing new.
	before := len(out)
	if _, _, err := d.Enqueue(ctx, "sess-after-stop", "Session", queue.DefaultOptions(), queue.PriorityNormal); err != nil {
		t.Fatalf("Enqueue after stop: %v", err)
	}
	data, err = os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("re-read log: %v", err)
	}
	if strings.Contains(string(data[before:]), "job-enqueued") {
		t.Fatal("expected no queue events after Stop")
	}
}
