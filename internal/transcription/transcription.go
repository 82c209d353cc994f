// Package transcription selects and drives the speech-to-text provider.
//
// Providers live under internal/services (gemini, vertex) and speak in file
// paths and prompt strings; this package adapts them to the Transcriber
// interface the pipeline depends on and tags every failure with
// services.ErrTranscription.
package transcription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"ytscribe/internal/config"
	"ytscribe/internal/logging"
	"ytscribe/internal/services"
	"ytscribe/internal/services/gemini"
	"ytscribe/internal/services/vertex"
)

const stageTranscribe = "transcribe"

// Request describes one audio file to transcribe.
type Request struct {
	AudioPath   string
	PromptName  string
	Prompt      string
	Temperature float64
}

// Transcriber turns audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, req Request) (string, error)
}

// Provider is a Transcriber backed by a remote API.
type Provider interface {
	Transcriber
	Name() string
	Model() string
	Close() error
}

// Backend is the call shape shared by the provider clients.
type Backend interface {
	Transcribe(ctx context.Context, audioPath, mimeType, prompt string, temperature float64) (string, error)
	Model() string
}

// Service adapts a Backend to Provider.
type Service struct {
	name    string
	backend Backend
	closer  func() error
	logger  *slog.Logger
}

// NewService wraps backend under the given provider name.
func NewService(name string, backend Backend, closer func() error, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		name:    name,
		backend: backend,
		closer:  closer,
		logger:  logging.NewComponentLogger(logger, "transcription"),
	}
}

// New builds the provider selected by cfg.Transcription.Provider.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Provider, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, stageTranscribe, "init", "config required", nil)
	}
	switch cfg.Transcription.Provider {
	case config.ProviderGemini:
		client := gemini.NewClient(gemini.Config{
			APIKey:         cfg.Gemini.APIKey,
			BaseURL:        cfg.Gemini.BaseURL,
			Model:          cfg.Transcription.Model,
			TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
			InlineLimitMiB: cfg.Gemini.InlineLimitMiB,
			RetryAttempts:  cfg.Gemini.RetryAttempts,
		}, gemini.WithLogger(logger))
		return NewService(config.ProviderGemini, client, nil, logger), nil
	case config.ProviderVertex:
		client, err := vertex.NewClient(ctx, vertex.Config{
			Project:       cfg.Vertex.Project,
			Region:        cfg.Vertex.Region,
			Model:         cfg.Transcription.Model,
			StagingBucket: cfg.Vertex.StagingBucket,
			StagingPrefix: cfg.Vertex.StagingPrefix,
		}, vertex.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return NewService(config.ProviderVertex, client, client.Close, logger), nil
	default:
		return nil, services.Wrap(services.ErrConfiguration, stageTranscribe, "init",
			fmt.Sprintf("unsupported provider %q", cfg.Transcription.Provider), nil)
	}
}

// Name returns the provider name.
func (s *Service) Name() string { return s.name }

// Model returns the model the provider calls.
func (s *Service) Model() string { return s.backend.Model() }

// Close releases provider resources.
func (s *Service) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// Transcribe sends req to the provider.
func (s *Service) Transcribe(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.AudioPath) == "" {
		return "", services.Wrap(services.ErrTranscription, stageTranscribe, s.name, "audio path required", nil)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return "", services.Wrap(services.ErrTranscription, stageTranscribe, s.name,
			fmt.Sprintf("prompt %q is empty", req.PromptName), nil)
	}

	logger := logging.WithContext(ctx, s.logger)
	start := time.Now()
	text, err := s.backend.Transcribe(ctx, req.AudioPath, MIMEType(req.AudioPath), req.Prompt, req.Temperature)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !errors.Is(err, services.ErrTranscription) {
			err = services.Wrap(services.ErrTranscription, stageTranscribe, s.name, "", err)
		}
		return "", err
	}
	logger.Info("transcription received",
		logging.String("provider", s.name),
		logging.String("model", s.backend.Model()),
		logging.String("prompt", req.PromptName),
		logging.Int("chars", len([]rune(text))),
		logging.Duration("elapsed", time.Since(start)),
		logging.String(logging.FieldEventType, "transcription_complete"))
	return text, nil
}

var mimeTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
	".opus": "audio/ogg",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
	".flac": "audio/flac",
	".webm": "audio/webm",
}

// MIMEType maps an audio file extension to the MIME type the APIs expect.
func MIMEType(path string) string {
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return "audio/mpeg"
}
