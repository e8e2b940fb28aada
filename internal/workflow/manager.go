package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"loom/internal/config"
	"loom/internal/enrich"
	"loom/internal/logging"
	"loom/internal/notifications"
	"loom/internal/queue"
)

// Manager runs the background enrichment worker over the persistent queue.
type Manager struct {
	cfg                *config.Config
	store              *queue.Store
	pipeline           *enrich.Pipeline
	logger             *slog.Logger
	notifier           notifications.Service
	pollInterval       time.Duration
	errorRetryInterval time.Duration

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	lastErr error
	lastJob *queue.Job

	queueActive bool
	queueStart  time.Time
	processed   int
	failed      int
}

// NewManager constructs a manager with production dependencies.
func NewManager(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Manager {
	pipeline := enrich.NewPipeline(cfg, enrich.NewConfiguredClient(cfg), logger)
	return NewManagerWithDependencies(cfg, store, logger, pipeline, notifications.NewService(cfg))
}

// NewManagerWithDependencies allows injecting collaborators (used in tests).
func NewManagerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, pipeline *enrich.Pipeline, notifier notifications.Service) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		cfg:                cfg,
		store:              store,
		pipeline:           pipeline,
		logger:             logging.NewComponentLogger(logger, "workflow-manager"),
		notifier:           notifier,
		pollInterval:       time.Duration(cfg.Enrichment.QueuePollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Enrichment.ErrorRetryInterval) * time.Second,
	}
}

// Queue exposes the underlying store for subscribers and the IPC surface.
func (m *Manager) Queue() *queue.Store {
	return m.store
}
