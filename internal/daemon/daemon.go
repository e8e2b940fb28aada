package daemon

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"log/slog"

	"github.com/gofrs/flock"

	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/notifications"
	"loom/internal/queue"
	"loom/internal/workflow"
)

// Daemon coordinates the background enrichment services and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	workflow *workflow.Manager
	logPath  string

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	events  *queue.Subscription
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool
	Workflow     workflow.StatusSummary
	QueueDBPath  string
	LockFilePath string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, wf *workflow.Manager) (*Daemon, error) {
	if cfg == nil || store == nil || logger == nil || wf == nil {
		return nil, errors.New("daemon requires config, store, logger, and workflow manager")
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "loomd.lock")
	return &Daemon{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "daemon"),
		store:    store,
		workflow: wf,
		logPath:  filepath.Join(cfg.Paths.LogDir, "loom.log"),
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start launches the workflow manager and acquires the daemon lock.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another loom daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	if err := d.workflow.Start(d.ctx); err != nil {
		_ = d.lock.Unlock()
		d.cancel()
		d.ctx = nil
		d.cancel = nil
		return fmt.Errorf("start workflow: %w", err)
	}

	d.events = d.store.Subscribe(d.logQueueEvent)
	d.running.Store(true)
	d.logger.Info("loom daemon started", logging.String("lock", d.lockPath))
	return nil
}

// logQueueEvent records every job lifecycle change in the daemon log,
// including mutations made through the control surface while the worker
// is between polls.
func (d *Daemon) logQueueEvent(evt queue.Event) {
	attrs := logging.Args(
		logging.String(logging.FieldEventType, string(evt.Kind)),
		logging.String(logging.FieldJobID, evt.Job.ID),
		logging.String(logging.FieldSessionID, evt.Job.SessionID),
		logging.String("status", string(evt.Job.Status)),
	)
	if evt.Kind == queue.EventProgress {
		d.logger.Debug("queue event", append(attrs, logging.Int("progress", evt.Job.Progress))...)
		return
	}
	d.logger.Info("queue event", attrs...)
}

// Stop stops background processing and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.events != nil {
		d.events.Close()
		d.events = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.workflow.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("loom daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Enqueue adds a session to the enrichment queue via the workflow manager.
func (d *Daemon) Enqueue(ctx context.Context, sessionID, sessionName string, opts queue.Options, priority queue.Priority) (*queue.Job, bool, error) {
	return d.workflow.EnqueueEnrichment(ctx, sessionID, sessionName, opts, priority)
}

// Cancel requests cancellation of a job.
func (d *Daemon) Cancel(ctx context.Context, id string) (*queue.Job, bool, error) {
	return d.workflow.CancelEnrichment(ctx, id)
}

// Retry returns a failed job to the queue.
func (d *Daemon) Retry(ctx context.Context, id string) (*queue.Job, error) {
	return d.workflow.RetryEnrichment(ctx, id)
}

// ListQueue returns jobs filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses []queue.Status) ([]*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	if len(statuses) == 0 {
		return d.store.List(ctx)
	}
	return d.store.List(ctx, statuses...)
}

// GetJob fetches a single job.
func (d *Daemon) GetJob(ctx context.Context, id string) (*queue.Job, error) {
	if d.store == nil {
		return nil, errors.New("queue store unavailable")
	}
	return d.store.GetJob(ctx, id)
}

// RemoveJob deletes a job from the queue.
func (d *Daemon) RemoveJob(ctx context.Context, id string) (bool, error) {
	if d.store == nil {
		return false, errors.New("queue store unavailable")
	}
	return d.store.Remove(ctx, id)
}

// ClearTerminal removes completed, failed, and cancelled jobs.
func (d *Daemon) ClearTerminal(ctx context.Context) (int64, error) {
	if d.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return d.store.ClearTerminal(ctx)
}

// QueueStatus returns aggregate queue counts.
func (d *Daemon) QueueStatus(ctx context.Context) (queue.QueueStatus, error) {
	if d.store == nil {
		return queue.QueueStatus{}, errors.New("queue store unavailable")
	}
	return d.store.QueueStatus(ctx)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg == nil {
		return false, "configuration unavailable", errors.New("configuration unavailable")
	}
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	notifier := notifications.NewService(d.cfg)
	if err := notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// LogPath returns the path to the daemon log file.
func (d *Daemon) LogPath() string {
	return d.logPath
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	summary := d.workflow.Status(ctx)
	return Status{
		Running:      d.running.Load(),
		Workflow:     summary,
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
	}
}
