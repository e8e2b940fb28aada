package workflow

import (
	"context"
	"fmt"

	"loom/internal/logging"
	"loom/internal/queue"
)

// EnqueueEnrichment adds a session to the queue. When the session already has
// an active job that job is returned unchanged and created is false.
func (m *Manager) EnqueueEnrichment(ctx context.Context, sessionID, sessionName string, opts queue.Options, priority queue.Priority) (*queue.Job, bool, error) {
	job, created, err := m.store.Enqueue(ctx, sessionID, sessionName, opts, priority)
	if err != nil {
		return nil, false, err
	}
	if created {
		m.logger.Info("session enqueued",
			logging.String(logging.FieldJobID, job.ID),
			logging.String(logging.FieldSessionID, job.SessionID),
			logging.String("priority", string(job.Priority)),
		)
	}
	return job, created, nil
}

// CancelEnrichment cancels a job identified by job id or session id. Pending
// jobs finalize immediately; for a processing job the request is recorded and
// honored at the next stage boundary, reported through requested.
func (m *Manager) CancelEnrichment(ctx context.Context, ref string) (job *queue.Job, requested bool, err error) {
	target, err := m.store.GetJob(ctx, ref)
	if err != nil {
		return nil, false, err
	}
	if target == nil {
		if target, err = m.store.ActiveJobForSession(ctx, ref); err != nil {
			return nil, false, err
		}
	}
	if target == nil {
		return nil, false, fmt.Errorf("%w: no cancellable job for %q", queue.ErrNotFound, ref)
	}

	job, requested, err = m.store.Cancel(ctx, target.ID)
	if err != nil {
		return nil, false, err
	}
	if requested {
		m.logger.Info("cancellation requested for running job", logging.String(logging.FieldJobID, job.ID))
	} else {
		m.logger.Info("pending job cancelled", logging.String(logging.FieldJobID, job.ID))
	}
	return job, requested, nil
}

// RetryEnrichment returns a failed job to the queue with its error cleared.
// Accepts a job id or a session id; session references resolve to the most
// recently failed job for that session.
func (m *Manager) RetryEnrichment(ctx context.Context, ref string) (*queue.Job, error) {
	target, err := m.store.GetJob(ctx, ref)
	if err != nil {
		return nil, err
	}
	if target == nil {
		if target, err = m.store.LatestFailedForSession(ctx, ref); err != nil {
			return nil, err
		}
	}
	if target == nil {
		return nil, fmt.Errorf("%w: no failed job for %q", queue.ErrNotFound, ref)
	}

	job, err := m.store.Retry(ctx, target.ID)
	if err != nil {
		return nil, err
	}
	m.logger.Info("failed job returned to queue", logging.String(logging.FieldJobID, job.ID))
	return job, nil
}

// QueueStatus reports aggregate queue counts.
func (m *Manager) QueueStatus(ctx context.Context) (queue.QueueStatus, error) {
	return m.store.QueueStatus(ctx)
}
