package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeInsight()
	c.normalizeEnrichment()
	c.normalizeLogging()
	c.normalizeNotifications()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.SessionsDir, err = expandPath(c.Paths.SessionsDir); err != nil {
		return fmt.Errorf("paths.sessions_dir: %w", err)
	}
	if c.Paths.EnrichmentDir, err = expandPath(c.Paths.EnrichmentDir); err != nil {
		return fmt.Errorf("paths.enrichment_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.SocketPath) != "" {
		if c.Paths.SocketPath, err = expandPath(c.Paths.SocketPath); err != nil {
			return fmt.Errorf("paths.socket_path: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeInsight() {
	if key, ok := os.LookupEnv("LOOM_INSIGHT_API_KEY"); ok && strings.TrimSpace(key) != "" {
		c.Insight.APIKey = strings.TrimSpace(key)
	}
	if strings.TrimSpace(c.Insight.BaseURL) == "" {
		c.Insight.BaseURL = defaultInsightBaseURL
	}
	if strings.TrimSpace(c.Insight.Model) == "" {
		c.Insight.Model = defaultInsightModel
	}
	if c.Insight.TimeoutSeconds <= 0 {
		c.Insight.TimeoutSeconds = defaultInsightTimeout
	}
}

func (c *Config) normalizeEnrichment() {
	if c.Enrichment.MaxAttempts <= 0 {
		c.Enrichment.MaxAttempts = defaultMaxAttempts
	}
	if c.Enrichment.RetryBackoff < 0 {
		c.Enrichment.RetryBackoff = defaultRetryBackoff
	}
	if c.Enrichment.QueuePollInterval <= 0 {
		c.Enrichment.QueuePollInterval = defaultQueuePollInterval
	}
	if c.Enrichment.ErrorRetryInterval <= 0 {
		c.Enrichment.ErrorRetryInterval = defaultErrorRetryInterval
	}
}

func (c *Config) normalizeLogging() {
	if strings.TrimSpace(c.Logging.Format) == "" {
		c.Logging.Format = defaultLogFormat
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = defaultLogLevel
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}
