package api

import (
	"time"

	"loom/internal/queue"
)

// FromJob converts a queue job into its wire representation.
func FromJob(job *queue.Job) JobView {
	if job == nil {
		return JobView{}
	}
	view := JobView{
		ID:          job.ID,
		SessionID:   job.SessionID,
		SessionName: job.SessionName,
		Status:      string(job.Status),
		Priority:    string(job.Priority),
		Progress:    job.Progress,
		Stage:       job.Stage,
		Options: OptionsView{
			AudioReview:     job.Options.AudioReview,
			VideoChapters:   job.Options.VideoChapters,
			Summary:         job.Options.Summary,
			Canvas:          job.Options.Canvas,
			ForceRegenerate: job.Options.ForceRegenerate,
		},
		Attempts:     job.Attempts,
		MaxAttempts:  job.MaxAttempts,
		ErrorMessage: job.ErrorMessage,
		WantsCancel:  job.WantsCancel,
		CreatedAt:    formatTime(job.CreatedAt),
		UpdatedAt:    formatTime(job.UpdatedAt),
	}
	if job.NotBefore != nil {
		view.NotBefore = formatTime(*job.NotBefore)
	}
	if job.CompletedAt != nil {
		view.CompletedAt = formatTime(*job.CompletedAt)
	}
	return view
}

// FromJobs converts a batch of jobs, skipping nil entries.
func FromJobs(jobs []*queue.Job) []JobView {
	views := make([]JobView, 0, len(jobs))
	for _, job := range jobs {
		if job == nil {
			continue
		}
		views = append(views, FromJob(job))
	}
	return views
}

// FromQueueStatus converts queue aggregates into the wire summary.
func FromQueueStatus(status queue.QueueStatus) QueueSummary {
	summary := QueueSummary{
		Pending:    status.Pending,
		Processing: status.Processing,
		Completed:  status.Completed,
		Failed:     status.Failed,
		Cancelled:  status.Cancelled,
		Total:      status.Total,
	}
	if len(status.ByPriority) > 0 {
		summary.ByPriority = make(map[string]int, len(status.ByPriority))
		for priority, count := range status.ByPriority {
			summary.ByPriority[string(priority)] = count
		}
	}
	return summary
}

// ToOptions converts the wire options back to queue options.
func ToOptions(view OptionsView) queue.Options {
	return queue.Options{
		AudioReview:     view.AudioReview,
		VideoChapters:   view.VideoChapters,
		Summary:         view.Summary,
		Canvas:          view.Canvas,
		ForceRegenerate: view.ForceRegenerate,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
