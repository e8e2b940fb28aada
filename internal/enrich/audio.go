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

// AudioReviewer produces the spoken-content review artifact for a session.
type AudioReviewer struct {
	client InsightClient
	logger *slog.Logger
}

// NewAudioReviewer constructs the audio review stage handler.
func NewAudioReviewer(client InsightClient, logger *slog.Logger) *AudioReviewer {
	return &AudioReviewer{client: client, logger: logging.NewComponentLogger(logger, "audio-review")}
}

func (a *AudioReviewer) Name() string { return queue.StageAudio }

func (a *AudioReviewer) Weight() int { return 25 }

func (a *AudioReviewer) Enabled(opts queue.Options) bool { return opts.AudioReview }

func (a *AudioReviewer) Artifact(req stage.Request) string {
	return filepath.Join(req.OutputDir, audioArtifact)
}

func (a *AudioReviewer) Prepare(ctx context.Context, req stage.Request) error {
	if !inputExists(filepath.Join(req.SessionDir, transcriptFile)) {
		return services.Wrap(
			services.ErrValidation, queue.StageAudio, "validate inputs",
			"Session has no transcript; record audio or disable the audio review stage", nil)
	}
	return nil
}

func (a *AudioReviewer) Execute(ctx context.Context, req stage.Request) error {
	logger := logging.WithContext(ctx, a.logger)
	transcript, err := readTranscript(req.SessionDir)
	if err != nil {
		return services.Wrap(
			services.ErrValidation, queue.StageAudio, "read transcript",
			"Could not read the session transcript", err)
	}
	review, err := a.client.ReviewAudio(ctx, transcript)
	if err != nil {
		return services.Wrap(
			services.ErrTransient, queue.StageAudio, "review audio",
			"Insight request for the audio review failed", err)
	}
	target := a.Artifact(req)
	if err := writeArtifact(target, review); err != nil {
		return services.Wrap(
			services.ErrTransient, queue.StageAudio, "write artifact",
			"Could not persist the audio review artifact", err)
	}
	logger.Info("audio review complete",
		logging.String("artifact", target),
		logging.Int("highlights", len(review.Highlights)),
	)
	return nil
}

func (a *AudioReviewer) HealthCheck(ctx context.Context) stage.Health {
	if a.client == nil {
		return stage.Unhealthy(queue.StageAudio, "insight client not configured")
	}
	return stage.Healthy(queue.StageAudio)
}
