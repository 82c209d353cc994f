package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"ytscribe/internal/testsupport"
)

const ytdlpStub = `#!/bin/sh
if [ "$1" = "--version" ]; then echo 2026.01.01; exit 0; fi
url=""
out=""
json=0
prev=""
for a in "$@"; do
  if [ "$a" = "-J" ]; then json=1; fi
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
  url="$a"
done
id="${url##*v=}"
if [ "$json" = 1 ]; then
  printf '{"_type":"video","id":"%s","title":"Talk %s","duration":61,"webpage_url":"%s"}\n' "$id" "$id" "$url"
  exit 0
fi
target=$(printf '%s' "$out" | sed 's/%(ext)s/mp3/')
printf 'audio' > "$target"
`

type cliTestEnv struct {
	baseDir    string
	configPath string
	outputDir  string
	archiveDir string
	geminiHits *atomic.Int64
	geminiFail *atomic.Bool
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("ffmpeg"))
	base := testsupport.BaseDir(cfg)
	testsupport.WriteText(t, filepath.Join(base, "bin", "yt-dlp"), ytdlpStub)
	if err := os.Chmod(filepath.Join(base, "bin", "yt-dlp"), 0o755); err != nil {
		t.Fatalf("chmod stub: %v", err)
	}

	env := &cliTestEnv{
		baseDir:    base,
		configPath: filepath.Join(base, "config.toml"),
		outputDir:  cfg.Paths.OutputDir,
		archiveDir: cfg.Paths.ArchiveDir,
		geminiHits: new(atomic.Int64),
		geminiFail: new(atomic.Bool),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, ":generateContent") {
			w.WriteHeader(http.StatusOK)
			return
		}
		env.geminiHits.Add(1)
		if env.geminiFail.Load() {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":{"message":"API key not valid"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content":      map[string]any{"parts": []any{map[string]any{"text": "Spoken words."}}},
				"finishReason": "STOP",
			}},
		})
	}))
	t.Cleanup(srv.Close)

	content := fmt.Sprintf(`[paths]
output_dir = %q
archive_dir = %q
state_dir = %q
audio_cache_dir = %q
cache_index = %q
log_dir = %q

[transcription]
provider = "gemini"
prompt_file = %q
prompt_name = %q

[gemini]
api_key = "test-key"
base_url = %q
retry_attempts = 1

[download]
attempts = 1
retry_delay_seconds = 0
min_free_gib = 0
`,
		cfg.Paths.OutputDir, cfg.Paths.ArchiveDir, cfg.Paths.StateDir, cfg.Paths.AudioCacheDir,
		cfg.Paths.CacheIndex, cfg.Paths.LogDir, cfg.Transcription.PromptFile, cfg.Transcription.PromptName,
		srv.URL)
	testsupport.WriteText(t, env.configPath, content)
	return env
}

func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
