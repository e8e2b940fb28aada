package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"loom/internal/config"
	"loom/internal/logging"
	"loom/internal/services"
)

func TestNewFromConfigTeesIntoLogDir(t *testing.T) {
	cfg := config.Default()
	cfg.Insight.APIKey = "test"
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("startup message")

	content, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "loom.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), "startup message") {
		t.Fatalf("expected message in log file, got %q", content)
	}
}

func TestConsoleHandlerFiltersBelowLevel(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "warn",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("quiet message")
	logger.Warn("loud message", logging.String("component", "test"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if strings.Contains(string(content), "quiet message") {
		t.Fatalf("expected info to be filtered, got %q", content)
	}
	if !strings.Contains(string(content), "loud message") {
		t.Fatalf("expected warn message, got %q", content)
	}
	if !strings.Contains(string(content), "component=test") {
		t.Fatalf("expected attribute pair, got %q", content)
	}
}

func TestJSONHandlerEmitsStructuredRecords(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "json.log")

	logger, err := logging.New(logging.Options{
		Format:      "json",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("structured", logging.String(logging.FieldEventType, "test_event"))

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(content))), &record); err != nil {
		t.Fatalf("parse json record: %v (content %q)", err, content)
	}
	if record["msg"] != "structured" {
		t.Fatalf("unexpected message: %v", record["msg"])
	}
	if record[logging.FieldEventType] != "test_event" {
		t.Fatalf("unexpected event type: %v", record[logging.FieldEventType])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "context.log")

	logger, err := logging.New(logging.Options{
		Format:      "console",
		Level:       "info",
		OutputPaths: []string{logPath},
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	ctx := services.WithJobID(context.Background(), "job-1")
	ctx = services.WithSessionID(ctx, "session-1")
	ctx = services.WithStage(ctx, "summary")

	logging.WithContext(ctx, logger).Info("stage update")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for _, want := range []string{"job_id=job-1", "session_id=session-1", "stage=summary"} {
		if !strings.Contains(string(content), want) {
			t.Fatalf("expected %q in output, got %q", want, content)
		}
	}
}
