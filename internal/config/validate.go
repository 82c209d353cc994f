package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is structurally usable. Credentials and
// prompt selection are checked separately by ValidateForRun so inspection
// commands work without them.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateDownload(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	return nil
}

// ValidateForRun checks the settings a transcription run needs on top of Validate.
func (c *Config) ValidateForRun() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Transcription.PromptFile == "" || c.Transcription.PromptName == "" {
		return errors.New("transcription.prompt_file and transcription.prompt_name are required (or set PROMPT_FILE and PROMPT_NAME)")
	}
	switch c.Transcription.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			defaultPath, err := DefaultConfigPath()
			if err != nil {
				defaultPath = defaultConfigPath
			}
			return fmt.Errorf("gemini.api_key is required. Set GEMINI_API_KEY env var or edit %s (create with 'ytscribe config init')", defaultPath)
		}
	case ProviderVertex:
		if c.Vertex.Project == "" {
			return errors.New("vertex.project is required when transcription.provider is vertex (or set GOOGLE_CLOUD_PROJECT)")
		}
	}
	return nil
}

func (c *Config) validatePaths() error {
	// Everything under output_dir is moved into the archive at the start of a
	// run, so nothing that must stay in place may live there.
	pinned := []struct{ key, path string }{
		{"paths.archive_dir", c.Paths.ArchiveDir},
		{"paths.state_dir", c.Paths.StateDir},
		{"paths.cache_index", c.Paths.CacheIndex},
		{"paths.log_dir", c.Paths.LogDir},
		{"paths.audio_cache_dir", c.Paths.AudioCacheDir},
	}
	for _, p := range pinned {
		if strings.TrimSpace(p.path) == "" {
			continue
		}
		if withinDir(c.Paths.OutputDir, p.path) {
			return fmt.Errorf("%s must not be paths.output_dir or inside it", p.key)
		}
	}
	return nil
}

// withinDir reports whether path equals dir or lies below it.
func withinDir(dir, path string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Provider {
	case ProviderGemini, ProviderVertex:
	default:
		return fmt.Errorf("transcription.provider: unsupported value %q (expected gemini or vertex)", c.Transcription.Provider)
	}
	if c.Transcription.Temperature < 0 || c.Transcription.Temperature > 2 {
		return errors.New("transcription.temperature must be between 0 and 2")
	}
	return nil
}

func (c *Config) validateDownload() error {
	if err := ensurePositiveMap(map[string]int{
		"download.attempts":        c.Download.Attempts,
		"download.timeout_seconds": c.Download.TimeoutSeconds,
		"gemini.timeout_seconds":   c.Gemini.TimeoutSeconds,
		"gemini.inline_limit_mib":  c.Gemini.InlineLimitMiB,
	}); err != nil {
		return err
	}
	switch c.Download.AudioFormat {
	case "mp3", "m4a", "opus", "wav", "flac":
	default:
		return fmt.Errorf("download.audio_format: unsupported value %q", c.Download.AudioFormat)
	}
	return nil
}

func (c *Config) validateOutput() error {
	switch c.Output.Format {
	case OutputFormatText, OutputFormatJSON:
		return nil
	default:
		return fmt.Errorf("output.format: unsupported value %q (expected text or json)", c.Output.Format)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
