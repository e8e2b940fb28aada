package workflow

import (
	"context"
	"errors"
	"time"

	"loom/internal/logging"
)

// Start begins background processing.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("workflow already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(runCtx)
	return nil
}

// Stop terminates background processing and waits for the worker to exit.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether the worker loop is active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// run is the single worker loop. One job processes at a time; processing
// errors are recorded and never terminate the loop.
func (m *Manager) run(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, err := m.store.DequeueNext(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.handleDequeueError(ctx, err)
			continue
		}
		if job == nil {
			m.markQueueDrained(ctx)
			m.waitForJobOrShutdown(ctx)
			continue
		}

		m.markQueueActive()
		if err := m.processJob(ctx, job); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
		}
	}
}

func (m *Manager) handleDequeueError(ctx context.Context, err error) {
	m.setLastError(err)
	m.logger.Error("failed to fetch next job",
		logging.Error(err),
		logging.String(logging.FieldEventType, "queue_fetch_failed"),
		logging.String(logging.FieldErrorHint, "check queue database access"),
	)
	select {
	case <-ctx.Done():
	case <-time.After(m.errorRetryInterval):
	}
}

func (m *Manager) waitForJobOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(m.pollInterval):
	}
}

func (m *Manager) markQueueActive() {
	m.mu.Lock()
	if !m.queueActive {
		m.queueActive = true
		m.queueStart = time.Now()
		m.processed = 0
		m.failed = 0
	}
	m.mu.Unlock()
}

// markQueueDrained fires the drained notification once per busy period.
func (m *Manager) markQueueDrained(ctx context.Context) {
	m.mu.Lock()
	if !m.queueActive {
		m.mu.Unlock()
		return
	}
	m.queueActive = false
	processed := m.processed
	failed := m.failed
	duration := time.Since(m.queueStart)
	m.mu.Unlock()

	if m.notifier == nil {
		return
	}
	if err := m.notifier.NotifyQueueDrained(ctx, processed, failed, duration); err != nil {
		m.logger.Warn("queue drained notification failed", logging.Error(err))
	}
}
