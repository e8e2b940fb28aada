package enrich

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Capture-side input files expected inside a session directory.
const (
	transcriptFile = "transcript.txt"
	timelineFile   = "timeline.log"
)

// Artifact files written into the session's enrichment directory.
const (
	audioArtifact    = "audio_review.json"
	chaptersArtifact = "chapters.json"
	summaryArtifact  = "summary.json"
	canvasArtifact   = "canvas.json"
)

func readTranscript(sessionDir string) (string, error) {
	return readInput(filepath.Join(sessionDir, transcriptFile))
}

func readTimeline(sessionDir string) (string, error) {
	return readInput(filepath.Join(sessionDir, timelineFile))
}

func readInput(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", fmt.Errorf("%s is empty", filepath.Base(path))
	}
	return content, nil
}

func inputExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func artifactExists(path string) bool {
	return inputExists(path)
}

// writeArtifact persists a stage result atomically so a crash mid-write never
// leaves a truncated artifact that would be skipped on retry.
func writeArtifact(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("finalize artifact: %w", err)
	}
	return nil
}

func readArtifact(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
