package ipc

import "loom/internal/api"

// JobView mirrors the shared queue DTO for IPC callers.
type JobView = api.JobView

// StageHealth describes readiness of an enrichment stage.
type StageHealth = api.StageHealth

// QueueSummary aggregates queue counts.
type QueueSummary = api.QueueSummary

// StartRequest triggers daemon workflow startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon workflow.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents combined daemon/workflow status information.
type StatusResponse struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queue_stats"`
	LastError   string         `json:"last_error"`
	LastJob     *JobView       `json:"last_job"`
	LockPath    string         `json:"lock_path"`
	QueueDBPath string         `json:"queue_db_path"`
	StageHealth []StageHealth  `json:"stage_health"`
	PID         int            `json:"pid"`
}

// EnqueueRequest adds a session to the enrichment queue.
type EnqueueRequest struct {
	SessionID   string          `json:"session_id"`
	SessionName string          `json:"session_name"`
	Priority    string          `json:"priority"`
	Options     api.OptionsView `json:"options"`
}

// EnqueueResponse reports the resulting job and whether it is new.
type EnqueueResponse struct {
	Job     JobView `json:"job"`
	Created bool    `json:"created"`
}

// CancelRequest cancels a job by job id or session id.
type CancelRequest struct {
	ID string `json:"id"`
}

// CancelResponse reports the cancel outcome. Requested means the job was
// processing and will stop at the next stage boundary.
type CancelResponse struct {
	Job       JobView `json:"job"`
	Requested bool    `json:"requested"`
}

// RetryRequest returns a failed job to the queue, referenced by job id or
// session id.
type RetryRequest struct {
	ID string `json:"id"`
}

// RetryResponse contains the requeued job.
type RetryResponse struct {
	Job JobView `json:"job"`
}

// QueueListRequest filters queue listing by status.
type QueueListRequest struct {
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Jobs []JobView `json:"jobs"`
}

// QueueDescribeRequest fetches a single job by id.
type QueueDescribeRequest struct {
	ID string `json:"id"`
}

// QueueDescribeResponse contains a single job.
type QueueDescribeResponse struct {
	Job JobView `json:"job"`
}

// QueueStatusRequest fetches aggregate queue counts.
type QueueStatusRequest struct{}

// QueueStatusResponse reports aggregate queue counts.
type QueueStatusResponse struct {
	Summary QueueSummary `json:"summary"`
}

// QueueRemoveRequest removes a job by id.
type QueueRemoveRequest struct {
	ID string `json:"id"`
}

// QueueRemoveResponse reports whether a job was removed.
type QueueRemoveResponse struct {
	Removed bool `json:"removed"`
}

// QueueClearRequest removes terminal jobs.
type QueueClearRequest struct{}

// QueueClearResponse reports number of removed entries.
type QueueClearResponse struct {
	Removed int64 `json:"removed"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
