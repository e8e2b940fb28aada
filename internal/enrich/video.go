package enrich

import (
	"context"
	"log/slog"
	"path/filepath"

	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/services"
	"loom/internal/stage"
)

// VideoChapterer segments the session's activity timeline into chapters.
type VideoChapterer struct {
	client InsightClient
	logger *slog.Logger
}

// NewVideoChapterer constructs the video chaptering stage handler.
func NewVideoChapterer(client InsightClient, logger *slog.Logger) *VideoChapterer {
	return &VideoChapterer{client: client, logger: logging.NewComponentLogger(logger, "video-chapters")}
}

func (v *VideoChapterer) Name() string { return queue.StageVideo }

func (v *VideoChapterer) Weight() int { return 30 }

func (v *VideoChapterer) Enabled(opts queue.Options) bool { return opts.VideoChapters }

func (v *VideoChapterer) Artifact(req stage.Request) string {
	return filepath.Join(req.OutputDir, chaptersArtifact)
}

func (v *VideoChapterer) Prepare(ctx context.Context, req stage.Request) error {
	if !inputExists(filepath.Join(req.SessionDir, timelineFile)) {
		return services.Wrap(
			services.ErrValidation, queue.StageVideo, "validate inputs",
			"Session has no activity timeline; disable the chapter stage or re-record", nil)
	}
	return nil
}

func (v *VideoChapterer) Execute(ctx context.Context, req stage.Request) error {
	logger := logging.WithContext(ctx, v.logger)
	timeline, err := readTimeline(req.SessionDir)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, queue.StageVideo, "read timeline",
			"Could not read the session activity timeline", err)
	}
	chapters, err := v.client.ChapterVideo(ctx, timeline)
	if err != nil {
		return services.Wrap(
			services.ErrTransient, queue.StageVideo, "chapter video",
			"Insight request for video chapters failed", err)
	}
	target := v.Artifact(req)
	if err := writeArtifact(target, chapters); err != nil {
		return services.Wrap(
			services.ErrTransient, queue.StageVideo, "write artifact",
			"Could not persist the chapters artifact", err)
	}
	logger.Info("video chapters complete",
		logging.String("artifact", target),
		logging.Int("chapters", len(chapters.Chapters)),
	)
	return nil
}

func (v *VideoChapterer) HealthCheck(ctx context.Context) stage.Health {
	if v.client == nil {
		return stage.Unhealthy(queue.StageVideo, "insight client not configured")
	}
	return stage.Healthy(queue.StageVideo)
}
