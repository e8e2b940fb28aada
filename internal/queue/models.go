package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of an enrichment job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
	StatusCancelled,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether a status permits no further transitions except
// retry from failed.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Active reports whether a status counts toward the one-active-job-per-session
// constraint.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusProcessing
}

// Priority affects dequeue order only; it never preempts an in-flight job.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// ParsePriority converts a string into a known Priority, defaulting to normal.
func ParsePriority(value string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(value))) {
	case PriorityHigh:
		return PriorityHigh, true
	case PriorityNormal, "":
		return PriorityNormal, true
	case PriorityLow:
		return PriorityLow, true
	default:
		return PriorityNormal, false
	}
}

// Rank orders priorities for dequeue; lower sorts first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

// Stage labels reported while a job is processing. Informational only.
const (
	StageAudio   = "audio"
	StageVideo   = "video"
	StageSummary = "summary"
	StageCanvas  = "canvas"
)

// Options carries job-specific pipeline configuration. The queue stores it
// verbatim and passes it through to the stage pipeline.
type Options struct {
	AudioReview     bool `json:"audio_review"`
	VideoChapters   bool `json:"video_chapters"`
	Summary         bool `json:"summary"`
	Canvas          bool `json:"canvas"`
	ForceRegenerate bool `json:"force_regenerate,omitempty"`
}

// DefaultOptions enables every stage without forced regeneration.
func DefaultOptions() Options {
	return Options{AudioReview: true, VideoChapters: true, Summary: true, Canvas: true}
}

// Job is the unit of schedulable enrichment work, persisted in SQLite.
type Job struct {
	ID           string
	SessionID    string
	SessionName  string
	Status       Status
	Priority     Priority
	Progress     int
	Stage        string
	Options      Options
	Attempts     int
	MaxAttempts  int
	ErrorMessage string
	WantsCancel  bool
	NotBefore    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

// Eligible reports whether a pending job may be dequeued at the given time,
// honoring the retry backoff window.
func (j *Job) Eligible(now time.Time) bool {
	if j.Status != StatusPending {
		return false
	}
	return j.NotBefore == nil || !now.Before(*j.NotBefore)
}

// QueueStatus aggregates job counts for status summaries.
type QueueStatus struct {
	Pending    int
	Processing int
	Completed  int
	Failed     int
	Cancelled  int
	Total      int
	ByPriority map[Priority]int
}
