package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteAudio creates <dir>/<videoID>.mp3 holding size bytes of a non-repeating
// pattern, large enough to push uploads past inline limits when needed.
func WriteAudio(t testing.TB, dir, videoID string, size int) string {
	t.Helper()
	if size <= 0 {
		size = 1
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i % 251)
	}
	path := filepath.Join(dir, videoID+".mp3")
	writeBytes(t, path, data)
	return path
}

// WriteText writes content to path, creating parent directories.
func WriteText(t testing.TB, path, content string) {
	t.Helper()
	writeBytes(t, path, []byte(content))
}

func writeBytes(t testing.TB, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
