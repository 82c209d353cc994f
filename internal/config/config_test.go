package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ytscribe/internal/config"
)

func isolateEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", "")
	for _, key := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "PROMPT_FILE", "PROMPT_NAME", "GOOGLE_CLOUD_PROJECT"} {
		t.Setenv(key, "")
	}
	return home
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	home := isolateEnv(t)
	t.Setenv("GEMINI_API_KEY", "env-key")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(home, ".local", "share", "ytscribe")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.CacheIndex != filepath.Join(wantState, "cache_index.json") {
		t.Fatalf("unexpected cache index path: %q", cfg.Paths.CacheIndex)
	}
	if cfg.Paths.AudioCacheDir != filepath.Join(home, ".cache", "ytscribe", "audio") {
		t.Fatalf("unexpected audio cache dir: %q", cfg.Paths.AudioCacheDir)
	}
	if !filepath.IsAbs(cfg.Paths.OutputDir) || filepath.Base(cfg.Paths.OutputDir) != "transcripts" {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if filepath.Base(cfg.Paths.ArchiveDir) != "archived_transcripts" {
		t.Fatalf("unexpected archive dir: %q", cfg.Paths.ArchiveDir)
	}
	if cfg.Gemini.APIKey != "env-key" {
		t.Fatalf("expected Gemini key from env, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Transcription.Provider != config.ProviderGemini {
		t.Fatalf("unexpected provider: %q", cfg.Transcription.Provider)
	}
	if cfg.Transcription.Temperature != 0.1 {
		t.Fatalf("unexpected temperature: %v", cfg.Transcription.Temperature)
	}
	if cfg.Download.Attempts != 3 || cfg.Download.RetryDelaySeconds != 5 {
		t.Fatalf("unexpected download retry defaults: %+v", cfg.Download)
	}
	if cfg.Output.Format != config.OutputFormatText {
		t.Fatalf("unexpected output format: %q", cfg.Output.Format)
	}
	if cfg.HistoryPath() != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	isolateEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "ytscribe.toml")

	type payload struct {
		Paths struct {
			OutputDir  string `toml:"output_dir"`
			ArchiveDir string `toml:"archive_dir"`
		} `toml:"paths"`
		Transcription struct {
			Provider   string `toml:"provider"`
			PromptFile string `toml:"prompt_file"`
			PromptName string `toml:"prompt_name"`
		} `toml:"transcription"`
		Vertex struct {
			Project       string `toml:"project"`
			StagingBucket string `toml:"staging_bucket"`
		} `toml:"vertex"`
		Output struct {
			Format string `toml:"format"`
		} `toml:"output"`
	}
	custom := payload{}
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Paths.ArchiveDir = filepath.Join(tempDir, "archive")
	custom.Transcription.Provider = " Vertex "
	custom.Transcription.PromptFile = filepath.Join(tempDir, "prompts.txt")
	custom.Transcription.PromptName = "verbatim"
	custom.Vertex.Project = "proj-1"
	custom.Vertex.StagingBucket = "gs://audio-bucket"
	custom.Output.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Transcription.Provider != config.ProviderVertex {
		t.Fatalf("expected provider normalized to vertex, got %q", cfg.Transcription.Provider)
	}
	if cfg.Vertex.StagingBucket != "audio-bucket" {
		t.Fatalf("expected gs:// prefix stripped, got %q", cfg.Vertex.StagingBucket)
	}
	if cfg.Output.Format != config.OutputFormatJSON {
		t.Fatalf("expected json output format, got %q", cfg.Output.Format)
	}
	if err := cfg.ValidateForRun(); err != nil {
		t.Fatalf("ValidateForRun returned error: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if info, err := os.Stat(cfg.Paths.OutputDir); err != nil || !info.IsDir() {
		t.Fatalf("expected output dir to exist: %v", err)
	}
}

func TestLoadReadsDotEnvNextToConfig(t *testing.T) {
	isolateEnv(t)
	os.Unsetenv("GEMINI_API_KEY")
	os.Unsetenv("PROMPT_NAME")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "ytscribe.toml")
	if err := os.WriteFile(configPath, []byte("[output]\nformat = \"text\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	env := "GEMINI_API_KEY=dotenv-key\nPROMPT_NAME=from_env\n"
	if err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte(env), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("GEMINI_API_KEY")
		os.Unsetenv("PROMPT_NAME")
	})

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Gemini.APIKey != "dotenv-key" {
		t.Fatalf("expected api key from .env, got %q", cfg.Gemini.APIKey)
	}
	if cfg.Transcription.PromptName != "from_env" {
		t.Fatalf("expected prompt name from .env, got %q", cfg.Transcription.PromptName)
	}
}

func TestValidateRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"provider", func(c *config.Config) { c.Transcription.Provider = "whisper" }, "transcription.provider"},
		{"temperature", func(c *config.Config) { c.Transcription.Temperature = 3 }, "temperature"},
		{"attempts", func(c *config.Config) { c.Download.Attempts = 0 }, "download.attempts"},
		{"format", func(c *config.Config) { c.Output.Format = "xml" }, "output.format"},
		{"audio", func(c *config.Config) { c.Download.AudioFormat = "aac" }, "download.audio_format"},
		{"archive inside output", func(c *config.Config) {
			c.Paths.OutputDir = "/data/out"
			c.Paths.ArchiveDir = "/data/out/archive"
		}, "archive_dir"},
		{"archive equals output", func(c *config.Config) {
			c.Paths.OutputDir = "/data/out"
			c.Paths.ArchiveDir = "/data/out"
		}, "archive_dir"},
		{"archive dotted name inside output", func(c *config.Config) {
			c.Paths.ArchiveDir = "/data/out/..old"
		}, "archive_dir"},
		{"state inside output", func(c *config.Config) {
			c.Paths.StateDir = "/data/out/state"
		}, "state_dir"},
		{"cache index inside output", func(c *config.Config) {
			c.Paths.CacheIndex = "/data/out/cache_index.json"
		}, "cache_index"},
		{"log dir equals output", func(c *config.Config) {
			c.Paths.LogDir = "/data/out"
		}, "log_dir"},
		{"audio cache inside output", func(c *config.Config) {
			c.Paths.AudioCacheDir = "/data/out/audio"
		}, "audio_cache_dir"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.OutputDir = "/data/out"
			cfg.Paths.ArchiveDir = "/data/archive"
			cfg.Paths.StateDir = "/data/state"
			cfg.Paths.CacheIndex = "/data/state/cache_index.json"
			cfg.Paths.LogDir = "/data/logs"
			cfg.Paths.AudioCacheDir = "/data/audio"
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestValidateAcceptsSiblingsOfOutput(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.OutputDir = "/data/out"
	cfg.Paths.ArchiveDir = "/data/out-archive"
	cfg.Paths.StateDir = "/data/..state"
	cfg.Paths.CacheIndex = "/data/..state/cache_index.json"
	cfg.Paths.LogDir = "/data/logs"
	cfg.Paths.AudioCacheDir = "/data/audio"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected sibling paths to validate, got %v", err)
	}
}

func TestValidateForRunRequiresCredentials(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.OutputDir = "/data/out"
	cfg.Paths.ArchiveDir = "/data/archive"
	cfg.Transcription.PromptFile = "/data/prompts.txt"
	cfg.Transcription.PromptName = "verbatim"

	if err := cfg.ValidateForRun(); err == nil || !strings.Contains(err.Error(), "gemini.api_key") {
		t.Fatalf("expected gemini api key error, got %v", err)
	}

	cfg.Transcription.Provider = config.ProviderVertex
	if err := cfg.ValidateForRun(); err == nil || !strings.Contains(err.Error(), "vertex.project") {
		t.Fatalf("expected vertex project error, got %v", err)
	}

	cfg.Transcription.PromptName = ""
	if err := cfg.ValidateForRun(); err == nil || !strings.Contains(err.Error(), "prompt_name") {
		t.Fatalf("expected prompt error, got %v", err)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	isolateEnv(t)
	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(target); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(target)
	if err != nil {
		t.Fatalf("Load sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if cfg.Transcription.PromptName != "hindi_verbatim" {
		t.Fatalf("unexpected sample prompt name: %q", cfg.Transcription.PromptName)
	}
}
