package ytdlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ytscribe/internal/config"
	"ytscribe/internal/contentid"
	"ytscribe/internal/logging"
	"ytscribe/internal/services"
)

const stageDownload = "download"

// Entry is one video produced by input expansion.
type Entry struct {
	VideoID         string
	URL             string
	Title           string
	DurationSeconds float64
	Input           string
	Playlist        string
}

// InputFailure is an input URL that could not be expanded.
type InputFailure struct {
	Input string
	Err   error
}

// Expansion is the ordered, de-duplicated work list for a run.
type Expansion struct {
	Entries []Entry
	Failed  []InputFailure
}

// Metadata is the subset of yt-dlp's info JSON ytscribe uses.
type Metadata struct {
	VideoID         string
	Title           string
	DurationSeconds float64
	WebpageURL      string
	Uploader        string
}

// Result describes extracted audio for one video.
type Result struct {
	VideoID         string
	Title           string
	DurationSeconds float64
	AudioPath       string
	Cached          bool
}

// Downloader is the behaviour the pipeline needs from this package.
type Downloader interface {
	Expand(ctx context.Context, inputs []string) (Expansion, error)
	Resolve(ctx context.Context, url string) (Metadata, error)
	Download(ctx context.Context, url string) (Result, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithSleeper replaces the wait between download attempts.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary       string
	ffmpeg       string
	audioDir     string
	audioFormat  string
	audioQuality string
	attempts     int
	retryDelay   time.Duration
	timeout      time.Duration
	exec         Executor
	sleep        func(context.Context, time.Duration) error
	logger       *slog.Logger
}

// New constructs a yt-dlp client writing audio into audioDir.
func New(cfg config.Download, audioDir string, logger *slog.Logger, opts ...Option) (*Client, error) {
	binary := strings.TrimSpace(cfg.YTDLPBinary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageDownload, "init", "yt-dlp binary required", nil)
	}
	if strings.TrimSpace(audioDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageDownload, "init", "audio cache directory required", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	attempts := cfg.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	format := strings.TrimSpace(cfg.AudioFormat)
	if format == "" {
		format = "mp3"
	}
	client := &Client{
		binary:       binary,
		ffmpeg:       strings.TrimSpace(cfg.FFmpegBinary),
		audioDir:     audioDir,
		audioFormat:  format,
		audioQuality: strings.TrimSpace(cfg.AudioQuality),
		attempts:     attempts,
		retryDelay:   time.Duration(cfg.RetryDelaySeconds) * time.Second,
		timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		exec:         commandExecutor{},
		sleep:        sleepContext,
		logger:       logging.NewComponentLogger(logger, "ytdlp"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// AudioPath returns where audio for videoID is cached.
func (c *Client) AudioPath(videoID string) string {
	return filepath.Join(c.audioDir, videoID+"."+c.audioFormat)
}

// Expand turns inputs into individual videos. Playlist URLs (including watch
// URLs carrying list=) are expanded in order; single-video URLs are reduced
// to their canonical watch URL without a network call. Inputs that fail to
// expand are reported in Expansion.Failed and skipped. Results are
// de-duplicated by video ID, first occurrence wins.
func (c *Client) Expand(ctx context.Context, inputs []string) (Expansion, error) {
	var out Expansion
	seen := make(map[string]struct{})
	add := func(e Entry) {
		if _, dup := seen[e.VideoID]; dup {
			return
		}
		seen[e.VideoID] = struct{}{}
		out.Entries = append(out.Entries, e)
	}

	for _, input := range inputs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if playlistURL, ok := contentid.PlaylistURL(input); ok {
			entries, err := c.expandRemote(ctx, input, playlistURL)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return out, ctxErr
				}
				out.Failed = append(out.Failed, InputFailure{Input: input, Err: err})
				c.warnExpand(input, err)
				continue
			}
			for _, e := range entries {
				add(e)
			}
			continue
		}

		if id, ok := contentid.FromURL(input); ok {
			add(Entry{VideoID: id, URL: contentid.WatchURL(id), Input: input})
			continue
		}

		entries, err := c.expandRemote(ctx, input, input)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			out.Failed = append(out.Failed, InputFailure{Input: input, Err: err})
			c.warnExpand(input, err)
			continue
		}
		for _, e := range entries {
			add(e)
		}
	}
	return out, nil
}

func (c *Client) warnExpand(input string, err error) {
	logging.WarnWithContext(c.logger, "failed to expand input; skipping", "input_expand_failed",
		logging.String("input", input),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check the URL and that yt-dlp is up to date"),
		logging.String(logging.FieldImpact, "videos behind this input are not processed in this run"))
}

func (c *Client) expandRemote(ctx context.Context, input, target string) ([]Entry, error) {
	out, err := c.run(ctx, []string{"--flat-playlist", "-J", "--no-warnings", target})
	if err != nil {
		return nil, services.Wrap(services.ErrDownload, stageDownload, "expand", target, err)
	}
	var info infoJSON
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, services.Wrap(services.ErrDownload, stageDownload, "expand", "parse yt-dlp output", err)
	}

	if info.Type != "playlist" {
		if !contentid.ValidVideoID(info.ID) {
			return nil, services.Wrap(services.ErrDownload, stageDownload, "expand",
				fmt.Sprintf("yt-dlp returned no video id for %s", target), nil)
		}
		return []Entry{{
			VideoID:         info.ID,
			URL:             contentid.WatchURL(info.ID),
			Title:           info.Title,
			DurationSeconds: info.duration(),
			Input:           input,
		}}, nil
	}

	entries := make([]Entry, 0, len(info.Entries))
	for _, e := range info.Entries {
		if e == nil || strings.TrimSpace(e.ID) == "" {
			continue
		}
		entries = append(entries, Entry{
			VideoID:         e.ID,
			URL:             contentid.WatchURL(e.ID),
			Title:           e.Title,
			DurationSeconds: e.duration(),
			Input:           input,
			Playlist:        info.Title,
		})
	}
	c.logger.Info("expanded playlist",
		logging.String("playlist", info.Title),
		logging.Int("videos", len(entries)),
		logging.String(logging.FieldEventType, "playlist_expanded"))
	return entries, nil
}

// Resolve fetches metadata for a single video.
func (c *Client) Resolve(ctx context.Context, url string) (Metadata, error) {
	out, err := c.run(ctx, []string{"-J", "--no-playlist", "--no-warnings", url})
	if err != nil {
		return Metadata{}, services.Wrap(services.ErrDownload, stageDownload, "resolve", url, err)
	}
	var info infoJSON
	if err := json.Unmarshal(out, &info); err != nil {
		return Metadata{}, services.Wrap(services.ErrDownload, stageDownload, "resolve", "parse yt-dlp output", err)
	}
	if strings.TrimSpace(info.ID) == "" {
		return Metadata{}, services.Wrap(services.ErrDownload, stageDownload, "resolve",
			fmt.Sprintf("yt-dlp returned no video id for %s", url), nil)
	}
	title := strings.TrimSpace(info.Title)
	if title == "" {
		title = info.ID
	}
	return Metadata{
		VideoID:         info.ID,
		Title:           title,
		DurationSeconds: info.duration(),
		WebpageURL:      info.WebpageURL,
		Uploader:        info.Uploader,
	}, nil
}

// Download resolves url and extracts its audio, retrying up to the
// configured number of attempts.
func (c *Client) Download(ctx context.Context, url string) (Result, error) {
	logger := logging.WithContext(ctx, c.logger)
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		result, err := c.downloadOnce(ctx, url)
		if err == nil {
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		lastErr = err
		logging.WarnWithContext(logger, "download attempt failed", "download_attempt_failed",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", c.attempts),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "transient network errors usually clear on retry"),
			logging.String(logging.FieldImpact, "video is retried after a short delay"))
		if attempt < c.attempts {
			if err := c.sleep(ctx, c.retryDelay); err != nil {
				return Result{}, err
			}
		}
	}
	return Result{}, services.Wrap(services.ErrDownload, stageDownload, "download",
		fmt.Sprintf("giving up on %s after %d attempts", url, c.attempts), lastErr)
}

func (c *Client) downloadOnce(ctx context.Context, url string) (Result, error) {
	meta, err := c.Resolve(ctx, url)
	if err != nil {
		return Result{}, err
	}
	result := Result{
		VideoID:         meta.VideoID,
		Title:           meta.Title,
		DurationSeconds: meta.DurationSeconds,
		AudioPath:       c.AudioPath(meta.VideoID),
	}
	if info, err := os.Stat(result.AudioPath); err == nil && info.Size() > 0 {
		result.Cached = true
		logging.WithContext(ctx, c.logger).Info("using cached audio",
			logging.String("path", result.AudioPath),
			logging.String(logging.FieldEventType, "audio_cache_hit"))
		return result, nil
	}

	if err := os.MkdirAll(c.audioDir, 0o755); err != nil {
		return Result{}, services.Wrap(services.ErrDownload, stageDownload, "download", "create audio cache directory", err)
	}
	if _, err := c.run(ctx, c.downloadArgs(meta.VideoID, url)); err != nil {
		return Result{}, services.Wrap(services.ErrDownload, stageDownload, "download", "extract audio", err)
	}
	info, err := os.Stat(result.AudioPath)
	if err != nil || info.Size() == 0 {
		if err == nil {
			err = errors.New("empty file")
		}
		return Result{}, services.Wrap(services.ErrDownload, stageDownload, "download",
			fmt.Sprintf("%s audio not generated at %s", c.audioFormat, result.AudioPath), err)
	}
	return result, nil
}

func (c *Client) downloadArgs(videoID, url string) []string {
	args := []string{
		"-f", "bestaudio/best",
		"--no-playlist",
		"-x",
		"--audio-format", c.audioFormat,
	}
	if c.audioQuality != "" {
		args = append(args, "--audio-quality", c.audioQuality)
	}
	if strings.ContainsRune(c.ffmpeg, filepath.Separator) {
		args = append(args, "--ffmpeg-location", c.ffmpeg)
	}
	args = append(args,
		"-o", filepath.Join(c.audioDir, videoID+".%(ext)s"),
		"--retries", "5",
		"--fragment-retries", "5",
		"--socket-timeout", "30",
		"--concurrent-fragments", "1",
		"--quiet",
		"--no-warnings",
		url,
	)
	return args
}

func (c *Client) run(ctx context.Context, args []string) ([]byte, error) {
	runCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	out, err := c.exec.Run(runCtx, c.binary, args)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, services.Wrap(services.ErrTimeout, stageDownload, "run",
			fmt.Sprintf("yt-dlp exceeded %s", c.timeout), err)
	}
	return out, err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type infoJSON struct {
	Type       string      `json:"_type"`
	ID         string      `json:"id"`
	Title      string      `json:"title"`
	Duration   *float64    `json:"duration"`
	WebpageURL string      `json:"webpage_url"`
	Uploader   string      `json:"uploader"`
	Entries    []*infoJSON `json:"entries"`
}

func (i infoJSON) duration() float64 {
	if i.Duration == nil {
		return 0
	}
	return *i.Duration
}
