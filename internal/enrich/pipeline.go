package enrich

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/queue"
	"loom/internal/services"
	"loom/internal/stage"
)

// ErrCancelled reports that a job's cancellation request was honored between
// stages. The worker translates it into a cancelled job rather than a failure.
var ErrCancelled = errors.New("enrichment cancelled")

// ProgressFunc receives cumulative job progress after each stage boundary.
type ProgressFunc func(ctx context.Context, percent int, stageName string) error

// CancelCheck reports whether the job has a pending cancellation request.
type CancelCheck func(ctx context.Context) (bool, error)

// Pipeline runs the enabled enrichment stages for one job in a fixed order.
type Pipeline struct {
	cfg    *config.Config
	logger *slog.Logger
	stages []stage.Handler
}

// NewPipeline constructs the standard four-stage pipeline.
func NewPipeline(cfg *config.Config, client InsightClient, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "enrich"),
		stages: []stage.Handler{
			NewAudioReviewer(client, logger),
			NewVideoChapterer(client, logger),
			NewSummarizer(client, logger),
			NewCanvasComposer(client, logger),
		},
	}
}

// Stages exposes the ordered handlers, mainly for health reporting.
func (p *Pipeline) Stages() []stage.Handler {
	return p.stages
}

// HealthCheck collects readiness from every stage handler.
func (p *Pipeline) HealthCheck(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, len(p.stages))
	for _, h := range p.stages {
		checks = append(checks, h.HealthCheck(ctx))
	}
	return checks
}

// RequestFor resolves the filesystem locations for a job's session.
func (p *Pipeline) RequestFor(job *queue.Job) stage.Request {
	return stage.Request{
		SessionID:   job.SessionID,
		SessionName: job.SessionName,
		SessionDir:  filepath.Join(p.cfg.Paths.SessionsDir, job.SessionID),
		OutputDir:   filepath.Join(p.cfg.Paths.EnrichmentDir, job.SessionID),
		Options:     job.Options,
	}
}

// Run executes the job's enabled stages in order. Between stages it consults
// cancelled and stops with ErrCancelled when a request is pending, and calls
// report with the cumulative progress after each completed stage.
func (p *Pipeline) Run(ctx context.Context, job *queue.Job, report ProgressFunc, cancelled CancelCheck) error {
	req := p.RequestFor(job)
	enabled := make([]stage.Handler, 0, len(p.stages))
	total := 0
	for _, h := range p.stages {
		if h.Enabled(job.Options) {
			enabled = append(enabled, h)
			total += h.Weight()
		}
	}
	if len(enabled) == 0 {
		return services.Wrap(
			services.ErrValidation, "enrich", "plan stages",
			"Job has no enrichment stages enabled", nil)
	}
	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrTransient, "enrich", "create output dir",
			"Could not create the session enrichment directory", err)
	}

	done := 0
	for _, h := range enabled {
		if cancelled != nil {
			wants, err := cancelled(ctx)
			if err != nil {
				return err
			}
			if wants {
				return ErrCancelled
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		stageCtx := services.WithStage(ctx, h.Name())
		logger := logging.WithContext(stageCtx, p.logger)
		if artifactExists(h.Artifact(req)) && !job.Options.ForceRegenerate {
			logger.Info("stage artifact present, skipping", logging.String("artifact", h.Artifact(req)))
		} else {
			if err := h.Prepare(stageCtx, req); err != nil {
				return err
			}
			if err := h.Execute(stageCtx, req); err != nil {
				return err
			}
		}
		done += h.Weight()
		if report != nil {
			if err := report(stageCtx, done*100/total, h.Name()); err != nil {
				return err
			}
		}
	}
	return nil
}
