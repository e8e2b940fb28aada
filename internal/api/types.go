package api

// JobView is the wire-friendly representation of an enrichment job shared by
// the IPC surface and CLI rendering.
type JobView struct {
	ID           string      `json:"id"`
	SessionID    string      `json:"session_id"`
	SessionName  string      `json:"session_name"`
	Status       string      `json:"status"`
	Priority     string      `json:"priority"`
	Progress     int         `json:"progress"`
	Stage        string      `json:"stage,omitempty"`
	Options      OptionsView `json:"options"`
	Attempts     int         `json:"attempts"`
	MaxAttempts  int         `json:"max_attempts"`
	ErrorMessage string      `json:"error_message,omitempty"`
	WantsCancel  bool        `json:"wants_cancel,omitempty"`
	NotBefore    string      `json:"not_before,omitempty"`
	CreatedAt    string      `json:"created_at"`
	UpdatedAt    string      `json:"updated_at"`
	CompletedAt  string      `json:"completed_at,omitempty"`
}

// OptionsView mirrors the per-job stage toggles.
type OptionsView struct {
	AudioReview     bool `json:"audio_review"`
	VideoChapters   bool `json:"video_chapters"`
	Summary         bool `json:"summary"`
	Canvas          bool `json:"canvas"`
	ForceRegenerate bool `json:"force_regenerate,omitempty"`
}

// StageHealth describes readiness of an enrichment stage.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// QueueSummary aggregates queue counts for status output.
type QueueSummary struct {
	Pending    int            `json:"pending"`
	Processing int            `json:"processing"`
	Completed  int            `json:"completed"`
	Failed     int            `json:"failed"`
	Cancelled  int            `json:"cancelled"`
	Total      int            `json:"total"`
	ByPriority map[string]int `json:"by_priority,omitempty"`
}
