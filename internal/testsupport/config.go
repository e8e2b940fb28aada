package testsupport

import (
	"path/filepath"
	"testing"

	"loom/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SessionsDir = filepath.Join(base, "sessions")
	cfgVal.Paths.EnrichmentDir = filepath.Join(base, "enrichment")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Insight.APIKey = "test"
	// Keep test loops fast.
	cfgVal.Enrichment.QueuePollInterval = 1
	cfgVal.Enrichment.ErrorRetryInterval = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMaxAttempts sets the retry budget on the test config.
func WithMaxAttempts(attempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Enrichment.MaxAttempts = attempts
	}
}

// WithRetryBackoff sets the retry backoff seconds on the test config.
func WithRetryBackoff(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Enrichment.RetryBackoff = seconds
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.SessionsDir)
}
