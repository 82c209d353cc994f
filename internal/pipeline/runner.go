package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"ytscribe/internal/archive"
	"ytscribe/internal/cacheindex"
	"ytscribe/internal/history"
	"ytscribe/internal/logging"
	"ytscribe/internal/services"
	"ytscribe/internal/services/ytdlp"
	"ytscribe/internal/transcript"
	"ytscribe/internal/transcription"
)

// Downloader expands inputs and extracts audio.
type Downloader interface {
	Expand(ctx context.Context, inputs []string) (ytdlp.Expansion, error)
	Download(ctx context.Context, url string) (ytdlp.Result, error)
}

// Index is the processed-state store consulted before each item.
type Index interface {
	ShouldProcess(contentID string) bool
	Lookup(contentID string) (cacheindex.Record, bool)
	MarkPending(contentID string, meta cacheindex.Meta) error
	MarkDone(contentID, outputPath string) error
	MarkFailed(contentID, reason string) error
}

// Archiver snapshots the previous output tree.
type Archiver interface {
	ArchiveExisting(outputRoot string) (archive.Snapshot, error)
}

// TranscriptWriter persists a finished transcript.
type TranscriptWriter interface {
	Write(doc transcript.Document) (string, error)
}

// HistoryRecorder receives run and item outcomes.
type HistoryRecorder interface {
	BeginRun(ctx context.Context, run history.RunStart) error
	RecordItem(ctx context.Context, item history.Item) error
	FinishRun(ctx context.Context, runID string, totals history.RunTotals) error
}

// Dependencies are the collaborators a Runner drives.
type Dependencies struct {
	Downloader  Downloader
	Transcriber transcription.Transcriber
	Index       Index
	Archiver    Archiver
	Writer      TranscriptWriter
	// History is optional.
	History HistoryRecorder
	Logger  *slog.Logger
}

// Options tune one run.
type Options struct {
	RunID       string
	OutputRoot  string
	PromptName  string
	Prompt      string
	Temperature float64
	Provider    string
	// Force reprocesses items whose record is already done.
	Force bool
	Clock func() time.Time
}

// Runner executes batches.
type Runner struct {
	deps   Dependencies
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New validates deps and opts and returns a Runner.
func New(deps Dependencies, opts Options) (*Runner, error) {
	var missing []string
	if deps.Downloader == nil {
		missing = append(missing, "downloader")
	}
	if deps.Transcriber == nil {
		missing = append(missing, "transcriber")
	}
	if deps.Index == nil {
		missing = append(missing, "cache index")
	}
	if deps.Archiver == nil {
		missing = append(missing, "archiver")
	}
	if deps.Writer == nil {
		missing = append(missing, "transcript writer")
	}
	if len(missing) > 0 {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init",
			"missing "+strings.Join(missing, ", "), nil)
	}
	if strings.TrimSpace(opts.OutputRoot) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "output root required", nil)
	}
	if strings.TrimSpace(opts.Prompt) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "prompt text required", nil)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Runner{
		deps:   deps,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "pipeline"),
		now:    now,
	}, nil
}

// Outcome is what happened to one work-list entry.
type Outcome = history.Outcome

// ItemResult is the outcome for one entry.
type ItemResult struct {
	Position   int
	ContentID  string
	SourceURL  string
	Title      string
	Outcome    Outcome
	OutputPath string
	Err        error
	Duration   time.Duration
}

// Summary reports a whole run.
type Summary struct {
	RunID         string
	StartedAt     time.Time
	FinishedAt    time.Time
	Archive       archive.Snapshot
	Items         []ItemResult
	InputFailures []ytdlp.InputFailure
	// Aborted is the error that stopped the run early, if any.
	Aborted error
}

func (s Summary) ids(outcome Outcome) []string {
	var ids []string
	for _, item := range s.Items {
		if item.Outcome == outcome {
			ids = append(ids, item.ContentID)
		}
	}
	return ids
}

// Processed lists content IDs transcribed in this run.
func (s Summary) Processed() []string { return s.ids(history.OutcomeProcessed) }

// Skipped lists content IDs skipped because they were already done.
func (s Summary) Skipped() []string { return s.ids(history.OutcomeSkipped) }

// Failed lists content IDs that failed in this run.
func (s Summary) Failed() []string { return s.ids(history.OutcomeFailed) }

// HasFailures reports whether any item or input failed, or the run aborted.
func (s Summary) HasFailures() bool {
	return s.Aborted != nil || len(s.InputFailures) > 0 || len(s.Failed()) > 0
}

// abortReason renders the history abort column.
func abortReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "deadline exceeded"
	default:
		return err.Error()
	}
}
