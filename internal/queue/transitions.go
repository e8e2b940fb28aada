package queue

import (
	"context"
	"fmt"
	"time"
)

// Guarded transition methods. Each validates the current status inside the
// UPDATE itself, persists, and only then emits the matching lifecycle event.
// A transition requested from an invalid source status returns an
// ErrInvalidTransition-wrapped error and leaves the queue unchanged.

// MarkProcessing moves a pending job into processing.
func (s *Store) MarkProcessing(ctx context.Context, id string) (*Job, error) {
	job, err := s.transition(ctx, id, "start", []Status{StatusPending},
		`UPDATE enrichment_jobs
         SET status = ?, progress = 0, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusProcessing, timestamp(), id, StatusPending,
	)
	if err != nil {
		return nil, err
	}
	s.emitter.emit(Event{Kind: EventStarted, Job: *job})
	return job, nil
}

// MarkProgress records pipeline progress for a processing job. Progress is
// clamped to 0-100 and never decreases while the job remains processing.
func (s *Store) MarkProgress(ctx context.Context, id string, progress int, stage string) (*Job, error) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	job, err := s.transition(ctx, id, "report progress on", []Status{StatusProcessing},
		`UPDATE enrichment_jobs
         SET progress = MAX(progress, ?), stage = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		progress, nullableString(stage), timestamp(), id, StatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	s.emitter.emit(Event{Kind: EventProgress, Job: *job})
	return job, nil
}

// MarkCompleted finishes a processing job successfully.
func (s *Store) MarkCompleted(ctx context.Context, id string) (*Job, error) {
	now := timestamp()
	job, err := s.transition(ctx, id, "complete", []Status{StatusProcessing},
		`UPDATE enrichment_jobs
         SET status = ?, progress = 100, stage = NULL, error_message = NULL,
             wants_cancel = 0, completed_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted, now, now, id, StatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	s.emitter.emit(Event{Kind: EventCompleted, Job: *job})
	return job, nil
}

// MarkFailed finalizes a processing job whose retry budget is exhausted.
// The caller supplies the incremented attempt count.
func (s *Store) MarkFailed(ctx context.Context, id string, attempts int, message string) (*Job, error) {
	job, err := s.transition(ctx, id, "fail", []Status{StatusProcessing},
		`UPDATE enrichment_jobs
         SET status = ?, attempts = ?, error_message = ?, stage = NULL,
             wants_cancel = 0, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusFailed, attempts, nullableString(message), timestamp(), id, StatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	s.emitter.emit(Event{Kind: EventFailed, Job: *job})
	return job, nil
}

// RequeueForRetry returns a failed execution to pending while attempts
// remain. The job becomes eligible for dequeue again only after the backoff
// delay has passed.
func (s *Store) RequeueForRetry(ctx context.Context, id string, attempts int, message string, delay time.Duration) (*Job, error) {
	var notBefore any
	if delay > 0 {
		notBefore = time.Now().UTC().Add(delay).Format(timeLayout)
	}
	job, err := s.transition(ctx, id, "requeue", []Status{StatusProcessing},
		`UPDATE enrichment_jobs
         SET status = ?, attempts = ?, error_message = ?, progress = 0,
             stage = NULL, not_before = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending, attempts, nullableString(message), notBefore, timestamp(), id, StatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	s.emitter.emit(Event{Kind: EventRetry, Job: *job})
	return job, nil
}

// MarkCancelled finalizes a processing job after the pipeline honored a
// cooperative cancellation request.
func (s *Store) MarkCancelled(ctx context.Context, id string) (*Job, error) {
	now := timestamp()
	job, err := s.transition(ctx, id, "cancel", []Status{StatusProcessing},
		`UPDATE enrichment_jobs
         SET status = ?, stage = NULL, wants_cancel = 0, completed_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCancelled, now, now, id, StatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	s.emitter.emit(Event{Kind: EventCancelled, Job: *job})
	return job, nil
}

// Cancel cancels a pending job immediately. For a processing job it only
// requests cooperative cancellation: the wants-cancel flag is set and the
// pipeline aborts at its next checkpoint. The boolean result reports whether
// cancellation was deferred to the running pipeline.
func (s *Store) Cancel(ctx context.Context, id string) (*Job, bool, error) {
	current, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if current == nil {
		return nil, false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	switch current.Status {
	case StatusPending:
		now := timestamp()
		job, err := s.transition(ctx, id, "cancel", []Status{StatusPending},
			`UPDATE enrichment_jobs
             SET status = ?, completed_at = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusCancelled, now, now, id, StatusPending,
		)
		if err != nil {
			return nil, false, err
		}
		s.emitter.emit(Event{Kind: EventCancelled, Job: *job})
		return job, false, nil
	case StatusProcessing:
		job, err := s.transition(ctx, id, "request cancel of", []Status{StatusProcessing},
			`UPDATE enrichment_jobs SET wants_cancel = 1, updated_at = ? WHERE id = ? AND status = ?`,
			timestamp(), id, StatusProcessing,
		)
		if err != nil {
			return nil, false, err
		}
		return job, true, nil
	default:
		return nil, false, invalidTransition(id, current.Status, "cancel")
	}
}

// Retry returns a failed job to pending with its progress and error cleared.
// Attempt counts are preserved; the manager increments them on failure only.
func (s *Store) Retry(ctx context.Context, id string) (*Job, error) {
	job, err := s.transition(ctx, id, "retry", []Status{StatusFailed},
		`UPDATE enrichment_jobs
         SET status = ?, progress = 0, stage = NULL, error_message = NULL,
             not_before = NULL, wants_cancel = 0, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusPending, timestamp(), id, StatusFailed,
	)
	if err != nil {
		return nil, err
	}
	s.emitter.emit(Event{Kind: EventRetry, Job: *job})
	return job, nil
}

// transition runs a guarded UPDATE and reloads the job on success. When no
// row was updated it distinguishes a missing job from an invalid source
// status so callers get an actionable error either way.
func (s *Store) transition(ctx context.Context, id, op string, validFrom []Status, query string, args ...any) (*Job, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s job: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		current, getErr := s.GetJob(ctx, id)
		if getErr != nil {
			return nil, getErr
		}
		if current == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		if !statusIn(current.Status, validFrom) {
			return nil, invalidTransition(id, current.Status, op)
		}
		// Raced with a concurrent identical transition; reload below.
	}

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return job, nil
}

func statusIn(status Status, set []Status) bool {
	for _, candidate := range set {
		if status == candidate {
			return true
		}
	}
	return false
}

func timestamp() string {
	return time.Now().UTC().Format(timeLayout)
}
