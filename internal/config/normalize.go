package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTranscription(); err != nil {
		return err
	}
	c.normalizeGemini()
	c.normalizeVertex()
	c.normalizeDownload()
	c.normalizeOutput()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ArchiveDir) == "" {
		c.Paths.ArchiveDir = defaultArchiveDir
	}
	if c.Paths.ArchiveDir, err = expandPath(c.Paths.ArchiveDir); err != nil {
		return fmt.Errorf("paths.archive_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.AudioCacheDir) == "" {
		c.Paths.AudioCacheDir = defaultAudioCacheDir()
	}
	if c.Paths.AudioCacheDir, err = expandPath(c.Paths.AudioCacheDir); err != nil {
		return fmt.Errorf("paths.audio_cache_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CacheIndex) == "" {
		c.Paths.CacheIndex = filepath.Join(c.Paths.StateDir, defaultCacheIndexName)
	}
	if c.Paths.CacheIndex, err = expandPath(c.Paths.CacheIndex); err != nil {
		return fmt.Errorf("paths.cache_index: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscription() error {
	c.Transcription.Provider = strings.ToLower(strings.TrimSpace(c.Transcription.Provider))
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = defaultProvider
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultModel
	}
	c.Transcription.PromptFile = strings.TrimSpace(c.Transcription.PromptFile)
	if c.Transcription.PromptFile == "" {
		if value, ok := os.LookupEnv("PROMPT_FILE"); ok {
			c.Transcription.PromptFile = strings.TrimSpace(value)
		}
	}
	if c.Transcription.PromptFile != "" {
		var err error
		if c.Transcription.PromptFile, err = expandPath(c.Transcription.PromptFile); err != nil {
			return fmt.Errorf("transcription.prompt_file: %w", err)
		}
	}
	c.Transcription.PromptName = strings.TrimSpace(c.Transcription.PromptName)
	if c.Transcription.PromptName == "" {
		if value, ok := os.LookupEnv("PROMPT_NAME"); ok {
			c.Transcription.PromptName = strings.TrimSpace(value)
		}
	}
	return nil
}

func (c *Config) normalizeGemini() {
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	if c.Gemini.APIKey == "" {
		if value, ok := os.LookupEnv("GEMINI_API_KEY"); ok {
			c.Gemini.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("GOOGLE_API_KEY"); ok {
			c.Gemini.APIKey = strings.TrimSpace(value)
		}
	}
	c.Gemini.BaseURL = strings.TrimRight(strings.TrimSpace(c.Gemini.BaseURL), "/")
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = defaultGeminiBaseURL
	}
	if c.Gemini.TimeoutSeconds <= 0 {
		c.Gemini.TimeoutSeconds = defaultGeminiTimeout
	}
	if c.Gemini.InlineLimitMiB <= 0 {
		c.Gemini.InlineLimitMiB = defaultGeminiInlineMiB
	}
	if c.Gemini.RetryAttempts <= 0 {
		c.Gemini.RetryAttempts = defaultGeminiRetryAttempts
	}
}

func (c *Config) normalizeVertex() {
	c.Vertex.Project = strings.TrimSpace(c.Vertex.Project)
	if c.Vertex.Project == "" {
		if value, ok := os.LookupEnv("GOOGLE_CLOUD_PROJECT"); ok {
			c.Vertex.Project = strings.TrimSpace(value)
		}
	}
	c.Vertex.Region = strings.TrimSpace(c.Vertex.Region)
	if c.Vertex.Region == "" {
		c.Vertex.Region = defaultVertexRegion
	}
	c.Vertex.StagingBucket = strings.TrimPrefix(strings.TrimSpace(c.Vertex.StagingBucket), "gs://")
	c.Vertex.StagingPrefix = strings.Trim(strings.TrimSpace(c.Vertex.StagingPrefix), "/")
	if c.Vertex.StagingPrefix == "" {
		c.Vertex.StagingPrefix = defaultVertexStagingPrefix
	}
}

func (c *Config) normalizeDownload() {
	c.Download.YTDLPBinary = strings.TrimSpace(c.Download.YTDLPBinary)
	if c.Download.YTDLPBinary == "" {
		c.Download.YTDLPBinary = defaultYTDLPBinary
	}
	c.Download.FFmpegBinary = strings.TrimSpace(c.Download.FFmpegBinary)
	if c.Download.FFmpegBinary == "" {
		c.Download.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Download.Attempts <= 0 {
		c.Download.Attempts = defaultDownloadAttempts
	}
	if c.Download.RetryDelaySeconds < 0 {
		c.Download.RetryDelaySeconds = 0
	}
	if c.Download.TimeoutSeconds <= 0 {
		c.Download.TimeoutSeconds = defaultDownloadTimeout
	}
	c.Download.AudioFormat = strings.ToLower(strings.TrimSpace(c.Download.AudioFormat))
	if c.Download.AudioFormat == "" {
		c.Download.AudioFormat = defaultAudioFormat
	}
	c.Download.AudioQuality = strings.TrimSpace(c.Download.AudioQuality)
	if c.Download.AudioQuality == "" {
		c.Download.AudioQuality = defaultAudioQuality
	}
	if c.Download.MinFreeGiB < 0 {
		c.Download.MinFreeGiB = 0
	}
}

func (c *Config) normalizeOutput() {
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Format == "" {
		c.Output.Format = defaultOutputFormat
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
