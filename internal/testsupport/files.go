package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"loom/internal/config"
)

// WriteSessionInputs creates a session directory with a transcript and
// activity timeline so every pipeline stage has material to work with.
func WriteSessionInputs(t testing.TB, cfg *config.Config, sessionID string) string {
	t.Helper()

	dir := filepath.Join(cfg.Paths.SessionsDir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir session dir: %v", err)
	}
	writeTestFile(t, filepath.Join(dir, "transcript.txt"), "we walked through the release checklist")
	writeTestFile(t, filepath.Join(dir, "timeline.log"), "00:00 opened editor\n00:04 ran test suite\n00:09 reviewed diff")
	return dir
}

func writeTestFile(t testing.TB, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
