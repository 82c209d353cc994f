package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ytscribe/internal/logging"
	"ytscribe/internal/services"
)

const (
	stageTranscribe       = "transcribe"
	defaultBaseURL        = "https://generativelanguage.googleapis.com"
	defaultModel          = "gemini-2.5-flash"
	defaultHTTPTimeout    = 10 * time.Minute
	defaultInlineLimit    = 15 << 20
	defaultRetryAttempts  = 5
	defaultRetryBaseDelay = 2 * time.Second
	defaultRetryMaxDelay  = 60 * time.Second
	defaultPollInterval   = 2 * time.Second
	defaultPollTimeout    = 5 * time.Minute
	apiVersion            = "v1beta"
)

// Config captures the runtime settings required to talk to the Gemini API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	InlineLimitMiB int
	RetryAttempts  int
}

// Client wraps the generateContent and Files endpoints.
type Client struct {
	cfg         Config
	inlineLimit int64
	httpClient  *http.Client
	logger      *slog.Logger

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	pollInterval     time.Duration
	pollTimeout      time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithPolling overrides how uploaded files are polled until ACTIVE.
func WithPolling(interval, timeout time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = interval
		c.pollTimeout = timeout
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLogger attaches a logger for upload and retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "gemini")
		}
	}
}

// NewClient constructs a Gemini client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
			InlineLimitMiB: cfg.InlineLimitMiB,
			RetryAttempts:  cfg.RetryAttempts,
		},
		inlineLimit:      defaultInlineLimit,
		httpClient:       &http.Client{Timeout: timeout},
		logger:           logging.NewNop(),
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
		pollInterval:     defaultPollInterval,
		pollTimeout:      defaultPollTimeout,
	}
	if cfg.InlineLimitMiB > 0 {
		client.inlineLimit = int64(cfg.InlineLimitMiB) << 20
	}
	if cfg.RetryAttempts > 0 {
		client.retryMaxAttempts = cfg.RetryAttempts
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	return client
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Transcribe sends the audio at audioPath together with prompt and returns
// the model's text response.
func (c *Client) Transcribe(ctx context.Context, audioPath, mimeType, prompt string, temperature float64) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", services.Wrap(services.ErrTranscription, stageTranscribe, "gemini", "prompt required", nil)
	}
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrTranscription, stageTranscribe, "gemini", "api key required", nil)
	}
	info, err := os.Stat(audioPath)
	if err != nil {
		return "", services.Wrap(services.ErrTranscription, stageTranscribe, "gemini", "stat audio", err)
	}
	if info.Size() == 0 {
		return "", services.Wrap(services.ErrTranscription, stageTranscribe, "gemini",
			fmt.Sprintf("audio file %s is empty", audioPath), nil)
	}

	var media part
	if info.Size() <= c.inlineLimit {
		data, err := os.ReadFile(audioPath)
		if err != nil {
			return "", services.Wrap(services.ErrTranscription, stageTranscribe, "gemini", "read audio", err)
		}
		media = part{InlineData: &inlineData{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(data)}}
	} else {
		uploaded, err := c.uploadFile(ctx, audioPath, mimeType, info.Size())
		if err != nil {
			return "", services.Wrap(services.ErrTranscription, stageTranscribe, "gemini upload", "", err)
		}
		defer c.deleteFile(uploaded.Name)
		media = part{FileData: &fileData{MIMEType: mimeType, FileURI: uploaded.URI}}
	}

	temp := temperature
	payload := generateRequest{
		Contents: []content{{
			Role:  "user",
			Parts: []part{media, {Text: prompt}},
		}},
		GenerationConfig: &generationConfig{Temperature: &temp},
	}
	text, err := c.generate(ctx, payload)
	if err != nil {
		return "", services.Wrap(services.ErrTranscription, stageTranscribe, "gemini generate", "", err)
	}
	return text, nil
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
	FileData   *fileData   `json:"file_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type fileData struct {
	MIMEType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text    string `json:"text"`
				Thought bool   `json:"thought"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

type fileResource struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MIMEType string `json:"mimeType"`
	State    string `json:"state"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("gemini request: http %d: %s", e.StatusCode, summarize(e.Body))
}

type emptyResponseError struct {
	FinishReason string
	BlockReason  string
}

func (e *emptyResponseError) Error() string {
	return fmt.Sprintf("empty response (finish_reason=%q, block_reason=%q)", e.FinishReason, e.BlockReason)
}

func (c *Client) generate(ctx context.Context, payload generateRequest) (string, error) {
	endpoint := fmt.Sprintf("%s/%s/models/%s:generateContent", c.cfg.BaseURL, apiVersion, url.PathEscape(c.cfg.Model))
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode body: %w", err)
	}

	var text string
	err = c.withRetry(ctx, "generate", func() error {
		body, _, err := c.do(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded), map[string]string{
			"Content-Type": "application/json",
		})
		if err != nil {
			return err
		}
		var resp generateResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		text = extractText(resp)
		if text == "" {
			empty := &emptyResponseError{}
			if len(resp.Candidates) > 0 {
				empty.FinishReason = resp.Candidates[0].FinishReason
			}
			if resp.PromptFeedback != nil {
				empty.BlockReason = resp.PromptFeedback.BlockReason
			}
			return empty
		}
		return nil
	})
	return text, err
}

func extractText(resp generateResponse) string {
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.Thought {
				continue
			}
			b.WriteString(p.Text)
		}
		if b.Len() > 0 {
			break
		}
	}
	return strings.TrimSpace(b.String())
}

func (c *Client) uploadFile(ctx context.Context, audioPath, mimeType string, size int64) (fileResource, error) {
	start := time.Now()
	startURL := fmt.Sprintf("%s/upload/%s/files", c.cfg.BaseURL, apiVersion)
	meta, err := json.Marshal(map[string]any{"file": map[string]string{"display_name": filepath.Base(audioPath)}})
	if err != nil {
		return fileResource{}, fmt.Errorf("encode upload metadata: %w", err)
	}

	var uploadURL string
	err = c.withRetry(ctx, "upload start", func() error {
		_, header, err := c.do(ctx, http.MethodPost, startURL, bytes.NewReader(meta), map[string]string{
			"Content-Type":                        "application/json",
			"X-Goog-Upload-Protocol":              "resumable",
			"X-Goog-Upload-Command":               "start",
			"X-Goog-Upload-Header-Content-Length": strconv.FormatInt(size, 10),
			"X-Goog-Upload-Header-Content-Type":   mimeType,
		})
		if err != nil {
			return err
		}
		uploadURL = strings.TrimSpace(header.Get("X-Goog-Upload-URL"))
		if uploadURL == "" {
			return errors.New("upload session url missing from response")
		}
		return nil
	})
	if err != nil {
		return fileResource{}, err
	}

	var uploaded fileResource
	err = c.withRetry(ctx, "upload bytes", func() error {
		file, err := os.Open(audioPath)
		if err != nil {
			return fmt.Errorf("open audio: %w", err)
		}
		defer file.Close()
		body, _, err := c.do(ctx, http.MethodPost, uploadURL, file, map[string]string{
			"Content-Length":        strconv.FormatInt(size, 10),
			"X-Goog-Upload-Offset":  "0",
			"X-Goog-Upload-Command": "upload, finalize",
		})
		if err != nil {
			return err
		}
		var resp struct {
			File fileResource `json:"file"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("decode upload response: %w", err)
		}
		if resp.File.Name == "" || resp.File.URI == "" {
			return errors.New("upload response missing file name or uri")
		}
		uploaded = resp.File
		return nil
	})
	if err != nil {
		return fileResource{}, err
	}

	active, err := c.waitActive(ctx, uploaded)
	if err != nil {
		c.deleteFile(uploaded.Name)
		return fileResource{}, err
	}
	logging.WithContext(ctx, c.logger).Info("audio uploaded",
		logging.String("file", active.Name),
		logging.Int64("bytes", size),
		logging.Duration("elapsed", time.Since(start)),
		logging.String(logging.FieldEventType, "gemini_upload_complete"))
	return active, nil
}

func (c *Client) waitActive(ctx context.Context, file fileResource) (fileResource, error) {
	deadline := time.Now().Add(c.pollTimeout)
	endpoint := fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, apiVersion, file.Name)
	for {
		switch strings.ToUpper(file.State) {
		case "", "ACTIVE":
			return file, nil
		case "FAILED":
			msg := "file processing failed"
			if file.Error != nil && file.Error.Message != "" {
				msg = file.Error.Message
			}
			return file, errors.New(msg)
		}
		if time.Now().After(deadline) {
			return file, fmt.Errorf("file %s still %s after %s", file.Name, file.State, c.pollTimeout)
		}
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return file, err
		}
		body, _, err := c.do(ctx, http.MethodGet, endpoint, nil, nil)
		if err != nil {
			return file, err
		}
		var next fileResource
		if err := json.Unmarshal(body, &next); err != nil {
			return file, fmt.Errorf("decode file status: %w", err)
		}
		if next.URI == "" {
			next.URI = file.URI
		}
		if next.Name == "" {
			next.Name = file.Name
		}
		file = next
	}
}

func (c *Client) deleteFile(name string) {
	if name == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	endpoint := fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, apiVersion, name)
	if _, _, err := c.do(ctx, http.MethodDelete, endpoint, nil, nil); err != nil {
		c.logger.Debug("uploaded file cleanup failed",
			logging.String("file", name),
			logging.Error(err))
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, body io.Reader, headers map[string]string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, nil, fmt.Errorf("gemini request: new request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	for key, value := range headers {
		if key == "Content-Length" {
			if n, err := strconv.ParseInt(value, 10, 64); err == nil {
				req.ContentLength = n
			}
			continue
		}
		req.Header.Set(key, value)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("gemini request: http error (timeout=%s): %w", c.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("gemini request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, nil, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
			RetryAfter: retryAfter,
		}
	}
	return data, resp.Header, nil
}

func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	attempts := c.retryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return err
		}
		logging.WithContext(ctx, c.logger).Debug("retrying gemini request",
			logging.String("op", op),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
			logging.Error(err))
		if err := c.sleep(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var emptyErr *emptyResponseError
	if errors.As(err, &emptyErr) {
		if emptyErr.BlockReason != "" {
			return 0, false
		}
		return c.backoffDelay(attempt), true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	if isTransportError(err) {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

// isTransportError reports connection-level failures: resets, refused
// connections, timeouts, and bodies cut short.
func isTransportError(err error) bool {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < attempt; i++ {
		if c.retryMaxDelay > 0 && delay > c.retryMaxDelay/2 {
			delay = c.retryMaxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}

func summarize(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 200
	runes := []rune(clean)
	if len(runes) > limit {
		clean = string(runes[:limit]) + "..."
	}
	return clean
}
