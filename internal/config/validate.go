package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateEnrichment(); err != nil {
		return err
	}
	if err := c.validateInsight(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.SessionsDir) == "" {
		return errors.New("paths.sessions_dir must be set")
	}
	if strings.TrimSpace(c.Paths.EnrichmentDir) == "" {
		return errors.New("paths.enrichment_dir must be set")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return errors.New("paths.log_dir must be set")
	}
	return nil
}

func (c *Config) validateEnrichment() error {
	if c.Enrichment.MaxAttempts < 1 {
		return errors.New("enrichment.max_attempts must be at least 1")
	}
	if !c.Enrichment.AudioReview && !c.Enrichment.VideoChapters && !c.Enrichment.Summary && !c.Enrichment.Canvas {
		return errors.New("enrichment: at least one stage must be enabled")
	}
	return nil
}

func (c *Config) validateInsight() error {
	if c.Insight.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/loom/config.toml"
		}
		return fmt.Errorf("insight.api_key is required. Set LOOM_INSIGHT_API_KEY env var or edit %s (create with 'loom config init')", defaultPath)
	}
	if !strings.HasPrefix(c.Insight.BaseURL, "http://") && !strings.HasPrefix(c.Insight.BaseURL, "https://") {
		return fmt.Errorf("insight.base_url must be an http(s) URL, got %q", c.Insight.BaseURL)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}
