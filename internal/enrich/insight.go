package enrich

import (
	"context"
	"time"

	"loom/internal/config"
	"loom/internal/services/insight"
)

// InsightClient is the slice of the insight API the stages depend on.
// Tests substitute a stub; production wires *insight.Client.
type InsightClient interface {
	ReviewAudio(ctx context.Context, transcript string) (insight.AudioReview, error)
	ChapterVideo(ctx context.Context, timeline string) (insight.VideoChapters, error)
	Summarize(ctx context.Context, material string) (insight.Summary, error)
	ComposeCanvas(ctx context.Context, material string) (insight.Canvas, error)
	HealthCheck(ctx context.Context) error
}

// NewConfiguredClient builds the production insight client from configuration.
func NewConfiguredClient(cfg *config.Config) InsightClient {
	ic := cfg.GetInsight()
	return insight.NewClient(insight.Config{
		APIKey:  ic.APIKey,
		BaseURL: ic.BaseURL,
		Model:   ic.Model,
		Referer: ic.Referer,
		Title:   ic.Title,
		Timeout: time.Duration(ic.TimeoutSeconds) * time.Second,
	})
}
