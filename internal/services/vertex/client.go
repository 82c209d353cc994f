package vertex

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/googleapi"

	"ytscribe/internal/logging"
	"ytscribe/internal/services"
)

const (
	stageTranscribe = "transcribe"
	cleanupTimeout  = 30 * time.Second
)

// maxInlineBytes is the request size Vertex accepts for inline media.
const maxInlineBytes = 20 << 20

// Config holds the Vertex AI settings.
type Config struct {
	Project       string
	Region        string
	Model         string
	StagingBucket string
	StagingPrefix string
}

// Generator issues a single generateContent call.
type Generator interface {
	Generate(ctx context.Context, temperature float32, parts ...genai.Part) (*genai.GenerateContentResponse, error)
	Close() error
}

// Stager copies local audio to Cloud Storage.
type Stager interface {
	Upload(ctx context.Context, bucket, object, localPath, mimeType string) error
	Delete(ctx context.Context, bucket, object string) error
	Close() error
}

// Option customizes the client.
type Option func(*Client)

// WithGenerator replaces the Vertex AI model (primarily for tests).
func WithGenerator(g Generator) Option {
	return func(c *Client) {
		if g != nil {
			c.generator = g
		}
	}
}

// WithStager replaces the Cloud Storage uploader (primarily for tests).
func WithStager(s Stager) Option {
	return func(c *Client) {
		if s != nil {
			c.stager = s
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "vertex")
		}
	}
}

// Client transcribes audio through Vertex AI.
type Client struct {
	cfg       Config
	generator Generator
	stager    Stager
	logger    *slog.Logger
}

// NewClient connects to Vertex AI (and Cloud Storage when staging is
// configured) unless replacements are supplied through options.
func NewClient(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	cfg.Project = strings.TrimSpace(cfg.Project)
	cfg.Region = strings.TrimSpace(cfg.Region)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.StagingBucket = strings.TrimPrefix(strings.TrimSpace(cfg.StagingBucket), "gs://")
	cfg.StagingPrefix = strings.Trim(strings.TrimSpace(cfg.StagingPrefix), "/")

	client := &Client{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(client)
	}

	if client.generator == nil {
		if cfg.Project == "" || cfg.Region == "" {
			return nil, services.Wrap(services.ErrConfiguration, stageTranscribe, "vertex init",
				"project and region are required", nil)
		}
		gen, err := newModelGenerator(ctx, cfg.Project, cfg.Region, cfg.Model)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, stageTranscribe, "vertex init", "create genai client", err)
		}
		client.generator = gen
	}
	if client.stager == nil && cfg.StagingBucket != "" {
		st, err := newStorageStager(ctx)
		if err != nil {
			_ = client.generator.Close()
			return nil, services.Wrap(services.ErrConfiguration, stageTranscribe, "vertex init", "create storage client", err)
		}
		client.stager = st
	}
	return client, nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Close releases the underlying API clients.
func (c *Client) Close() error {
	var errs []error
	if c.generator != nil {
		errs = append(errs, c.generator.Close())
	}
	if c.stager != nil {
		errs = append(errs, c.stager.Close())
	}
	return errors.Join(errs...)
}

// Transcribe sends audioPath with prompt and returns the model's text.
func (c *Client) Transcribe(ctx context.Context, audioPath, mimeType, prompt string, temperature float64) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", services.Wrap(services.ErrTranscription, stageTranscribe, "vertex", "prompt required", nil)
	}
	info, err := os.Stat(audioPath)
	if err != nil {
		return "", services.Wrap(services.ErrTranscription, stageTranscribe, "vertex", "stat audio", err)
	}
	if info.Size() == 0 {
		return "", services.Wrap(services.ErrTranscription, stageTranscribe, "vertex",
			fmt.Sprintf("audio file %s is empty", audioPath), nil)
	}

	var media genai.Part
	if c.stager != nil && c.cfg.StagingBucket != "" {
		object := c.objectName(audioPath)
		if err := c.stager.Upload(ctx, c.cfg.StagingBucket, object, audioPath, mimeType); err != nil {
			return "", services.Wrap(services.ErrTranscription, stageTranscribe, "vertex stage",
				fmt.Sprintf("upload gs://%s/%s", c.cfg.StagingBucket, object), err)
		}
		defer c.removeStaged(object)
		media = genai.FileData{MIMEType: mimeType, FileURI: fmt.Sprintf("gs://%s/%s", c.cfg.StagingBucket, object)}
	} else {
		if info.Size() > maxInlineBytes {
			return "", services.Wrap(services.ErrTranscription, stageTranscribe, "vertex",
				fmt.Sprintf("audio is %d bytes; configure vertex.staging_bucket for files over %d bytes", info.Size(), maxInlineBytes), nil)
		}
		data, err := os.ReadFile(audioPath)
		if err != nil {
			return "", services.Wrap(services.ErrTranscription, stageTranscribe, "vertex", "read audio", err)
		}
		media = genai.Blob{MIMEType: mimeType, Data: data}
	}

	resp, err := c.generator.Generate(ctx, float32(temperature), media, genai.Text(prompt))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", services.Wrap(services.ErrTranscription, stageTranscribe, "vertex generate", "", err)
	}
	text, reason := extractText(resp)
	if text == "" {
		return "", services.Wrap(services.ErrTranscription, stageTranscribe, "vertex generate",
			fmt.Sprintf("empty response (%s)", reason), nil)
	}
	return text, nil
}

func (c *Client) objectName(audioPath string) string {
	name := filepath.Base(audioPath)
	if c.cfg.StagingPrefix == "" {
		return name
	}
	return path.Join(c.cfg.StagingPrefix, name)
}

func (c *Client) removeStaged(object string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := c.stager.Delete(ctx, c.cfg.StagingBucket, object); err != nil {
		logging.WarnWithContext(c.logger, "staged audio cleanup failed", "vertex_stage_cleanup_failed",
			logging.String("object", object),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "delete the object manually or add a bucket lifecycle rule"),
			logging.String(logging.FieldImpact, "staged audio remains in the bucket"))
	}
}

func extractText(resp *genai.GenerateContentResponse) (string, string) {
	if resp == nil {
		return "", "nil response"
	}
	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil {
			return "", "blocked: " + resp.PromptFeedback.BlockReason.String()
		}
		return "", "no candidates"
	}
	var b strings.Builder
	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				b.WriteString(string(txt))
			}
		}
	}
	return strings.TrimSpace(b.String()), "finish_reason=" + candidate.FinishReason.String()
}

type modelGenerator struct {
	client *genai.Client
	model  string
}

func newModelGenerator(ctx context.Context, project, region, model string) (*modelGenerator, error) {
	client, err := genai.NewClient(ctx, project, region)
	if err != nil {
		return nil, err
	}
	return &modelGenerator{client: client, model: model}, nil
}

func (g *modelGenerator) Generate(ctx context.Context, temperature float32, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(temperature)
	return model.GenerateContent(ctx, parts...)
}

func (g *modelGenerator) Close() error {
	return g.client.Close()
}

type storageStager struct {
	client *storage.Client
}

func newStorageStager(ctx context.Context) (*storageStager, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}
	return &storageStager{client: client}, nil
}

// Upload writes the object only if it does not exist yet; an object left by an
// earlier interrupted run is reused.
func (s *storageStager) Upload(ctx context.Context, bucket, object, localPath, mimeType string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := s.client.Bucket(bucket).Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = mimeType
	if _, err := io.Copy(writer, file); err != nil {
		_ = writer.Close()
		if preconditionFailed(err) {
			return nil
		}
		return err
	}
	if err := writer.Close(); err != nil {
		if preconditionFailed(err) {
			return nil
		}
		return err
	}
	return nil
}

func (s *storageStager) Delete(ctx context.Context, bucket, object string) error {
	err := s.client.Bucket(bucket).Object(object).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (s *storageStager) Close() error {
	return s.client.Close()
}

func preconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
