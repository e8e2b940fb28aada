package config

const (
	defaultSessionsDir        = "~/.local/share/loom/sessions"
	defaultEnrichmentDir      = "~/.local/share/loom/enrichment"
	defaultLogDir             = "~/.local/share/loom/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultMaxAttempts        = 3
	defaultRetryBackoff       = 30
	defaultQueuePollInterval  = 5
	defaultErrorRetryInterval = 10
	defaultInsightBaseURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultInsightModel       = "google/gemini-3-flash-preview"
	defaultInsightReferer     = "https://github.com/loom-sh/loom"
	defaultInsightTitle       = "Loom Session Enrichment"
	defaultInsightTimeout     = 120
	defaultNtfyTimeout        = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			SessionsDir:   defaultSessionsDir,
			EnrichmentDir: defaultEnrichmentDir,
			LogDir:        defaultLogDir,
		},
		Enrichment: Enrichment{
			MaxAttempts:        defaultMaxAttempts,
			RetryBackoff:       defaultRetryBackoff,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			AudioReview:        true,
			VideoChapters:      true,
			Summary:            true,
			Canvas:             true,
		},
		Insight: Insight{
			BaseURL:        defaultInsightBaseURL,
			Model:          defaultInsightModel,
			Referer:        defaultInsightReferer,
			Title:          defaultInsightTitle,
			TimeoutSeconds: defaultInsightTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			Enrichment:     true,
			Queue:          true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
