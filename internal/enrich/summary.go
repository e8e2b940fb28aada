package enrich

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/services"
	"loom/internal/stage"
)

// Summarizer writes the narrative summary artifact for a session.
type Summarizer struct {
	client InsightClient
	logger *slog.Logger
}

// NewSummarizer constructs the summary stage handler.
func NewSummarizer(client InsightClient, logger *slog.Logger) *Summarizer {
	return &Summarizer{client: client, logger: logging.NewComponentLogger(logger, "summary")}
}

func (s *Summarizer) Name() string { return queue.StageSummary }

func (s *Summarizer) Weight() int { return 25 }

func (s *Summarizer) Enabled(opts queue.Options) bool { return opts.Summary }

func (s *Summarizer) Artifact(req stage.Request) string {
	return filepath.Join(req.OutputDir, summaryArtifact)
}

func (s *Summarizer) Prepare(ctx context.Context, req stage.Request) error {
	if !inputExists(filepath.Join(req.SessionDir, transcriptFile)) &&
		!inputExists(filepath.Join(req.SessionDir, timelineFile)) {
		return services.Wrap(
			services.ErrValidation, queue.StageSummary, "validate inputs",
			"Session has neither a transcript nor a timeline to summarize", nil)
	}
	return nil
}

func (s *Summarizer) Execute(ctx context.Context, req stage.Request) error {
	logger := logging.WithContext(ctx, s.logger)
	material, err := s.collectMaterial(req)
	if err != nil {
		return err
	}
	summary, err := s.client.Summarize(ctx, material)
	if err != nil {
		return services.Wrap(
			services.ErrTransient, queue.StageSummary, "summarize",
			"Insight request for the session summary failed", err)
	}
	target := s.Artifact(req)
	if err := writeArtifact(target, summary); err != nil {
		return services.Wrap(
			services.ErrTransient, queue.StageSummary, "write artifact",
			"Could not persist the summary artifact", err)
	}
	logger.Info("summary complete",
		logging.String("artifact", target),
		logging.String("title", summary.Title),
	)
	return nil
}

// collectMaterial combines whatever session inputs exist. At least one must be
// readable or Prepare would have rejected the job already.
func (s *Summarizer) collectMaterial(req stage.Request) (string, error) {
	var parts []string
	if transcript, err := readTranscript(req.SessionDir); err == nil {
		parts = append(parts, "## Transcript\n\n"+transcript)
	}
	if timeline, err := readTimeline(req.SessionDir); err == nil {
		parts = append(parts, "## Activity timeline\n\n"+timeline)
	}
	if len(parts) == 0 {
		return "", services.Wrap(
			services.ErrValidation, queue.StageSummary, "collect material",
			"Session inputs disappeared before summarization", nil)
	}
	return strings.Join(parts, "\n\n"), nil
}

func (s *Summarizer) HealthCheck(ctx context.Context) stage.Health {
	if s.client == nil {
		return stage.Unhealthy(queue.StageSummary, "insight client not configured")
	}
	return stage.Healthy(queue.StageSummary)
}
