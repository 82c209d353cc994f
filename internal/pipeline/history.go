package pipeline

import (
	"context"
	"log/slog"
	"time"

	"ytscribe/internal/history"
	"ytscribe/internal/logging"
	"ytscribe/internal/services"
)

const historyWriteTimeout = 5 * time.Second

func (r *Runner) historyEnabled() bool {
	return r.deps.History != nil && r.opts.RunID != ""
}

func (r *Runner) beginHistory(ctx context.Context, logger *slog.Logger, inputCount int) {
	if !r.historyEnabled() {
		return
	}
	err := r.deps.History.BeginRun(ctx, history.RunStart{
		ID:         r.opts.RunID,
		StartedAt:  r.now(),
		PromptName: r.opts.PromptName,
		Provider:   r.opts.Provider,
		InputCount: inputCount,
	})
	if err != nil {
		warnHistory(logger, "begin run", err)
	}
}

func (r *Runner) recordItem(ctx context.Context, logger *slog.Logger, result ItemResult) {
	if !r.historyEnabled() {
		return
	}
	item := history.Item{
		RunID:      r.opts.RunID,
		Position:   result.Position,
		ContentID:  result.ContentID,
		SourceURL:  result.SourceURL,
		Title:      result.Title,
		Outcome:    result.Outcome,
		OutputPath: result.OutputPath,
		Duration:   result.Duration,
		RecordedAt: r.now(),
	}
	if result.Err != nil {
		item.Error = failureReason(result.Err)
		item.ErrorKind = services.Kind(result.Err)
	}
	// Outcomes of an interrupted item are still written after cancellation.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()
	if err := r.deps.History.RecordItem(writeCtx, item); err != nil {
		warnHistory(logger, "record item", err)
	}
}

func (r *Runner) finishHistory(logger *slog.Logger, summary Summary) {
	if !r.historyEnabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	err := r.deps.History.FinishRun(ctx, r.opts.RunID, history.RunTotals{
		FinishedAt:  summary.FinishedAt,
		ArchivePath: summary.Archive.Path,
		Processed:   len(summary.Processed()),
		Skipped:     len(summary.Skipped()),
		Failed:      len(summary.Failed()),
		AbortReason: abortReason(summary.Aborted),
	})
	if err != nil {
		warnHistory(logger, "finish run", err)
	}
}

func warnHistory(logger *slog.Logger, op string, err error) {
	logging.WarnWithContext(logger, "run history write failed", "history_write_failed",
		logging.String("op", op),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check permissions on history.db or delete it to start a new history"),
		logging.String(logging.FieldImpact, "run history is incomplete; cache index and transcripts are unaffected"))
}
