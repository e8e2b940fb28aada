package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"loom/internal/config"
)

// timeLayout pads fractional seconds to a fixed width. Timestamps are
// compared as strings in SQL (dequeue ordering, not_before eligibility),
// and RFC3339Nano trims trailing zeros, which makes byte-wise comparison
// diverge from chronological order within the same second.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is the single source of truth for enrichment job records, backed by
// SQLite. All mutations go through its guarded transition methods; every
// mutation is durably written before the matching lifecycle event fires.
type Store struct {
	db          *sql.DB
	path        string
	emitter     *emitter
	maxAttempts int
}

// Open initializes or connects to the queue database, applies migrations,
// and resets jobs orphaned in processing state by a previous run.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "queue.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	maxAttempts := cfg.Enrichment.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = defaultMaxAttempts
	}

	store := &Store{db: db, path: dbPath, emitter: newEmitter(), maxAttempts: maxAttempts}
	ctx := context.Background()
	if err := store.applyMigrations(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := store.resetOrphanedProcessing(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location for diagnostics.
func (s *Store) Path() string {
	return s.path
}

// Subscribe attaches a handler for lifecycle events. With no kinds the
// handler receives every event. The returned subscription detaches only this
// handler when closed.
func (s *Store) Subscribe(handler EventHandler, kinds ...EventKind) *Subscription {
	return s.emitter.subscribe(handler, kinds...)
}

// Enqueue creates a pending job for a session, or returns the session's
// existing active job when one is already pending or processing. The boolean
// result reports whether a new job was created.
func (s *Store) Enqueue(ctx context.Context, sessionID, sessionName string, opts Options, priority Priority) (*Job, bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, false, errors.New("session id is required")
	}
	if _, ok := ParsePriority(string(priority)); !ok {
		return nil, false, fmt.Errorf("unknown priority %q", priority)
	}

	optionsJSON, err := json.Marshal(opts)
	if err != nil {
		return nil, false, fmt.Errorf("marshal options: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin enqueue tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM enrichment_jobs
         WHERE session_id = ? AND status IN (?, ?) ORDER BY created_at LIMIT 1`,
		sessionID, StatusPending, StatusProcessing,
	)
	existing, err := scanJob(row)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("check active job: %w", err)
	}
	if existing != nil {
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit enqueue: %w", err)
		}
		return existing, false, nil
	}

	now := time.Now().UTC()
	timestamp := now.Format(timeLayout)
	id := uuid.NewString()
	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO enrichment_jobs (
            id, session_id, session_name, status, priority, progress,
            options_json, attempts, max_attempts, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, 0, ?, 0, ?, ?, ?)`,
		id,
		sessionID,
		nullableString(sessionName),
		StatusPending,
		priority,
		string(optionsJSON),
		s.maxAttempts,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit enqueue: %w", err)
	}

	job, err := s.GetJob(ctx, id)
	if err != nil {
		return nil, false, err
	}
	s.emitter.emit(Event{Kind: EventEnqueued, Job: *job})
	return job, true, nil
}

// defaultMaxAttempts seeds new jobs when no retry budget is configured.
const defaultMaxAttempts = 3

// GetJob fetches a job by identifier. Returns nil when the job is missing.
func (s *Store) GetJob(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM enrichment_jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ActiveJobForSession returns the pending or processing job for a session,
// or nil when the session has no active job.
func (s *Store) ActiveJobForSession(ctx context.Context, sessionID string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM enrichment_jobs
         WHERE session_id = ? AND status IN (?, ?) ORDER BY created_at LIMIT 1`,
		sessionID, StatusPending, StatusProcessing,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active job for session: %w", err)
	}
	return job, nil
}

// LatestFailedForSession returns the most recent failed job for a session,
// or nil when none exists.
func (s *Store) LatestFailedForSession(ctx context.Context, sessionID string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM enrichment_jobs
         WHERE session_id = ? AND status = ? ORDER BY updated_at DESC LIMIT 1`,
		sessionID, StatusFailed,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed job for session: %w", err)
	}
	return job, nil
}

// DequeueNext returns the next job eligible for processing without mutating
// state: the oldest pending job in the highest priority tier whose retry
// backoff window has passed. Returns nil when nothing is eligible.
func (s *Store) DequeueNext(ctx context.Context) (*Job, error) {
	now := time.Now().UTC().Format(timeLayout)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM enrichment_jobs
         WHERE status = ? AND (not_before IS NULL OR not_before <= ?)
         ORDER BY CASE priority WHEN ? THEN 0 WHEN ? THEN 1 ELSE 2 END, created_at, id
         LIMIT 1`,
		StatusPending,
		now,
		PriorityHigh,
		PriorityNormal,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dequeue next: %w", err)
	}
	return job, nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), ordered by creation time.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM enrichment_jobs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// WantsCancel reports whether cooperative cancellation has been requested
// for a job.
func (s *Store) WantsCancel(ctx context.Context, id string) (bool, error) {
	var flag int
	row := s.db.QueryRowContext(ctx, `SELECT wants_cancel FROM enrichment_jobs WHERE id = ?`, id)
	if err := row.Scan(&flag); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return false, fmt.Errorf("read cancel flag: %w", err)
	}
	return flag != 0, nil
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM enrichment_jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// QueueStatus aggregates job counts by status and priority.
func (s *Store) QueueStatus(ctx context.Context) (QueueStatus, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return QueueStatus{}, err
	}
	status := QueueStatus{ByPriority: make(map[Priority]int)}
	for st, count := range stats {
		status.Total += count
		switch st {
		case StatusPending:
			status.Pending += count
		case StatusProcessing:
			status.Processing += count
		case StatusCompleted:
			status.Completed += count
		case StatusFailed:
			status.Failed += count
		case StatusCancelled:
			status.Cancelled += count
		}
	}

	rows, err := s.db.QueryContext(ctx, `SELECT priority, COUNT(1) FROM enrichment_jobs GROUP BY priority`)
	if err != nil {
		return QueueStatus{}, fmt.Errorf("priority stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var priority Priority
		var count int
		if err := rows.Scan(&priority, &count); err != nil {
			return QueueStatus{}, err
		}
		status.ByPriority[priority] = count
	}
	return status, rows.Err()
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM enrichment_jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearTerminal removes completed, failed, and cancelled jobs from the queue.
func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`DELETE FROM enrichment_jobs WHERE status IN (?, ?, ?)`,
		StatusCompleted, StatusFailed, StatusCancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("clear terminal jobs: %w", err)
	}
	return res.RowsAffected()
}

// resetOrphanedProcessing returns jobs stranded in processing by a previous
// process back to pending. The worker that was running them no longer exists,
// so this is load-time self-healing rather than an error.
func (s *Store) resetOrphanedProcessing(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE enrichment_jobs
         SET status = ?, progress = 0, stage = NULL, wants_cancel = 0, updated_at = ?
         WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(timeLayout),
		StatusProcessing,
	)
	if err != nil {
		return 0, fmt.Errorf("reset orphaned jobs: %w", err)
	}
	return res.RowsAffected()
}

const jobColumns = "id, session_id, session_name, status, priority, progress, stage, options_json, attempts, max_attempts, error_message, wants_cancel, not_before, created_at, updated_at, completed_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		sessionID    string
		sessionName  sql.NullString
		statusStr    string
		priorityStr  sql.NullString
		progress     sql.NullInt64
		stage        sql.NullString
		optionsJSON  sql.NullString
		attempts     sql.NullInt64
		maxAttempts  sql.NullInt64
		errorMessage sql.NullString
		wantsCancel  sql.NullInt64
		notBeforeRaw sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		completedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&sessionID,
		&sessionName,
		&statusStr,
		&priorityStr,
		&progress,
		&stage,
		&optionsJSON,
		&attempts,
		&maxAttempts,
		&errorMessage,
		&wantsCancel,
		&notBeforeRaw,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	// Older rows may predate some columns; default anything missing rather
	// than failing the load.
	job := &Job{
		ID:           id,
		SessionID:    sessionID,
		SessionName:  sessionName.String,
		Status:       Status(statusStr),
		Priority:     PriorityNormal,
		Progress:     int(progress.Int64),
		Stage:        stage.String,
		Attempts:     int(attempts.Int64),
		MaxAttempts:  defaultMaxAttempts,
		ErrorMessage: errorMessage.String,
		WantsCancel:  wantsCancel.Valid && wantsCancel.Int64 != 0,
	}
	if priorityStr.Valid {
		if parsed, ok := ParsePriority(priorityStr.String); ok {
			job.Priority = parsed
		}
	}
	if maxAttempts.Valid && maxAttempts.Int64 > 0 {
		job.MaxAttempts = int(maxAttempts.Int64)
	}
	if optionsJSON.Valid && strings.TrimSpace(optionsJSON.String) != "" {
		if err := json.Unmarshal([]byte(optionsJSON.String), &job.Options); err != nil {
			job.Options = DefaultOptions()
		}
	} else {
		job.Options = DefaultOptions()
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if notBeforeRaw.Valid {
		if notBefore, err := parseTimeString(notBeforeRaw.String); err == nil {
			job.NotBefore = &notBefore
		}
	}
	if completedRaw.Valid {
		if completed, err := parseTimeString(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
