package stage

import (
	"context"

	"loom/internal/queue"
)

// Request carries per-job inputs into a stage.
type Request struct {
	SessionID   string
	SessionName string
	// SessionDir holds the capture application's recordings for the session.
	SessionDir string
	// OutputDir is where the stage writes its artifact for the session.
	OutputDir string
	Options   queue.Options
}

// Handler describes the contract the enrichment pipeline needs from each stage.
type Handler interface {
	// Name is the stage label recorded on the job while the stage runs.
	Name() string
	// Weight is the stage's share of overall job progress.
	Weight() int
	// Enabled reports whether the job's options request this stage.
	Enabled(opts queue.Options) bool
	// Artifact returns the output path whose existence marks the stage done.
	Artifact(req Request) string
	Prepare(ctx context.Context, req Request) error
	Execute(ctx context.Context, req Request) error
	HealthCheck(ctx context.Context) Health
}
