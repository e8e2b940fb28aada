package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"loom/internal/enrich"
	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/services"
)

func (m *Manager) processJob(ctx context.Context, job *queue.Job) error {
	jobCtx := services.WithJobID(ctx, job.ID)
	jobCtx = services.WithSessionID(jobCtx, job.SessionID)
	jobCtx = services.WithRequestID(jobCtx, uuid.NewString())
	logger := logging.WithContext(jobCtx, m.logger)

	started, err := m.store.MarkProcessing(jobCtx, job.ID)
	if err != nil {
		// A cancel can land between dequeue and start; that job is no
		// longer ours to run.
		if errors.Is(err, queue.ErrInvalidTransition) || errors.Is(err, queue.ErrNotFound) {
			logger.Debug("job left pending state before start", logging.Error(err))
			return nil
		}
		m.setLastError(err)
		logger.Error("failed to transition job to processing", logging.Error(err))
		return err
	}
	m.setLastJob(started)

	start := time.Now()
	logger.Info("enrichment started",
		logging.String(logging.FieldEventType, "job_start"),
		logging.String("session_name", strings.TrimSpace(started.SessionName)),
		logging.Int(logging.FieldAttempt, started.Attempts+1),
	)
	if m.notifier != nil {
		if err := m.notifier.NotifyEnrichmentStarted(jobCtx, started.SessionName); err != nil {
			logger.Warn("start notification failed", logging.Error(err))
		}
	}

	report := m.progressReporter(logger, started.ID)
	cancelled := func(ctx context.Context) (bool, error) {
		return m.store.WantsCancel(ctx, started.ID)
	}

	runErr := m.pipeline.Run(jobCtx, started, report, cancelled)
	switch {
	case runErr == nil:
		return m.finishJob(jobCtx, logger, started, start)
	case errors.Is(runErr, enrich.ErrCancelled):
		return m.cancelJob(jobCtx, logger, started)
	case errors.Is(runErr, context.Canceled):
		// Shutdown mid-job. The row stays processing and is reset to
		// pending when the store reopens.
		logger.Debug("enrichment interrupted by shutdown")
		return runErr
	default:
		m.handleJobFailure(jobCtx, logger, started, runErr)
		return runErr
	}
}

// progressReporter persists stage progress for a running job. Progress
// writes are best effort: a failed write is logged and the pipeline keeps
// running, so a transient database error never aborts enrichment or
// consumes the retry budget. Cancellation still propagates.
func (m *Manager) progressReporter(logger *slog.Logger, jobID string) enrich.ProgressFunc {
	return func(ctx context.Context, percent int, stageName string) error {
		updated, err := m.store.MarkProgress(ctx, jobID, percent, stageName)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			logger.Warn("failed to persist progress",
				logging.Error(err),
				logging.String(logging.FieldStage, stageName),
			)
			return nil
		}
		m.setLastJob(updated)
		return nil
	}
}

func (m *Manager) finishJob(ctx context.Context, logger *slog.Logger, job *queue.Job, start time.Time) error {
	completed, err := m.store.MarkCompleted(ctx, job.ID)
	if err != nil {
		m.setLastError(err)
		logger.Error("failed to persist completion", logging.Error(err))
		return err
	}
	m.setLastJob(completed)
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()

	logger.Info("enrichment completed",
		logging.String(logging.FieldEventType, "job_complete"),
		logging.Duration("job_duration", time.Since(start)),
	)
	if m.notifier != nil {
		if err := m.notifier.NotifyEnrichmentCompleted(ctx, job.SessionName); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
	}
	return nil
}

func (m *Manager) cancelJob(ctx context.Context, logger *slog.Logger, job *queue.Job) error {
	cancelled, err := m.store.MarkCancelled(ctx, job.ID)
	if err != nil {
		m.setLastError(err)
		logger.Error("failed to persist cancellation", logging.Error(err))
		return err
	}
	m.setLastJob(cancelled)

	logger.Info("enrichment cancelled",
		logging.String(logging.FieldEventType, "job_cancelled"),
	)
	if m.notifier != nil {
		if err := m.notifier.NotifyEnrichmentCancelled(ctx, job.SessionName); err != nil {
			logger.Warn("cancel notification failed", logging.Error(err))
		}
	}
	return nil
}

// handleJobFailure either schedules a retry with linear backoff or marks the
// job failed once its attempt budget is spent.
func (m *Manager) handleJobFailure(ctx context.Context, logger *slog.Logger, job *queue.Job, jobErr error) {
	m.setLastError(jobErr)
	attempts := job.Attempts + 1
	message := strings.TrimSpace(jobErr.Error())

	if attempts < job.MaxAttempts {
		delay := time.Duration(m.cfg.Enrichment.RetryBackoff) * time.Second * time.Duration(attempts)
		requeued, err := m.store.RequeueForRetry(ctx, job.ID, attempts, message, delay)
		if err != nil {
			logger.Error("failed to requeue job for retry", logging.Error(err))
			return
		}
		m.setLastJob(requeued)
		logger.Warn("enrichment failed, retry scheduled",
			logging.Error(jobErr),
			logging.String(logging.FieldEventType, "job_retry"),
			logging.String("error_kind", services.Kind(jobErr)),
			logging.Int(logging.FieldAttempt, attempts),
			logging.Int("max_attempts", job.MaxAttempts),
			logging.Duration("retry_delay", delay),
		)
		return
	}

	failed, err := m.store.MarkFailed(ctx, job.ID, attempts, message)
	if err != nil {
		logger.Error("failed to persist job failure", logging.Error(err))
		return
	}
	m.setLastJob(failed)
	m.mu.Lock()
	m.failed++
	m.mu.Unlock()

	logger.Error("enrichment failed permanently",
		logging.Error(jobErr),
		logging.String(logging.FieldEventType, "job_failed"),
		logging.String("error_kind", services.Kind(jobErr)),
		logging.Int(logging.FieldAttempt, attempts),
	)
	if m.notifier != nil {
		if err := m.notifier.NotifyEnrichmentFailed(ctx, job.SessionName, message); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
	}
}
