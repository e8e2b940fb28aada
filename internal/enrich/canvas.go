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

// CanvasComposer lays out the prior stage artifacts as a review canvas.
type CanvasComposer struct {
	client InsightClient
	logger *slog.Logger
}

// NewCanvasComposer constructs the canvas stage handler.
func NewCanvasComposer(client InsightClient, logger *slog.Logger) *CanvasComposer {
	return &CanvasComposer{client: client, logger: logging.NewComponentLogger(logger, "canvas")}
}

func (c *CanvasComposer) Name() string { return queue.StageCanvas }

func (c *CanvasComposer) Weight() int { return 20 }

func (c *CanvasComposer) Enabled(opts queue.Options) bool { return opts.Canvas }

func (c *CanvasComposer) Artifact(req stage.Request) string {
	return filepath.Join(req.OutputDir, canvasArtifact)
}

// Prepare is a no-op: the canvas composes whatever earlier stages produced,
// and Execute validates that at least one artifact exists.
func (c *CanvasComposer) Prepare(ctx context.Context, req stage.Request) error {
	return nil
}

func (c *CanvasComposer) Execute(ctx context.Context, req stage.Request) error {
	logger := logging.WithContext(ctx, c.logger)
	material, err := c.collectMaterial(req)
	if err != nil {
		return err
	}
	canvas, err := c.client.ComposeCanvas(ctx, material)
	if err != nil {
		return services.Wrap(
			services.ErrTransient, queue.StageCanvas, "compose canvas",
			"Insight request for the review canvas failed", err)
	}
	target := c.Artifact(req)
	if err := writeArtifact(target, canvas); err != nil {
		return services.Wrap(
			services.ErrTransient, queue.StageCanvas, "write artifact",
			"Could not persist the canvas artifact", err)
	}
	logger.Info("canvas complete",
		logging.String("artifact", target),
		logging.Int("sections", len(canvas.Sections)),
	)
	return nil
}

func (c *CanvasComposer) collectMaterial(req stage.Request) (string, error) {
	sources := []struct {
		heading string
		file    string
	}{
		{"Summary", summaryArtifact},
		{"Audio review", audioArtifact},
		{"Chapters", chaptersArtifact},
	}
	var parts []string
	for _, src := range sources {
		content, err := readArtifact(filepath.Join(req.OutputDir, src.file))
		if err != nil {
			return "", services.Wrap(
				services.ErrTransient, queue.StageCanvas, "read artifacts",
				"Could not read prior stage artifacts", err)
		}
		if content != "" {
			parts = append(parts, "## "+src.heading+"\n\n"+content)
		}
	}
	if len(parts) == 0 {
		return "", services.Wrap(
			services.ErrValidation, queue.StageCanvas, "collect material",
			"No prior stage artifacts to compose; enable at least one other stage", nil)
	}
	return strings.Join(parts, "\n\n"), nil
}

func (c *CanvasComposer) HealthCheck(ctx context.Context) stage.Health {
	if c.client == nil {
		return stage.Unhealthy(queue.StageCanvas, "insight client not configured")
	}
	return stage.Healthy(queue.StageCanvas)
}
