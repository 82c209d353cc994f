package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ytscribe/internal/cacheindex"
	"ytscribe/internal/history"
	"ytscribe/internal/logging"
	"ytscribe/internal/services"
	"ytscribe/internal/services/ytdlp"
	"ytscribe/internal/transcript"
	"ytscribe/internal/transcription"
)

// Run processes inputs once. The returned error is non-nil only when the run
// stopped early (cache I/O failure, archive failure, or cancellation); item
// failures are reported in the Summary.
func (r *Runner) Run(ctx context.Context, inputs []string) (Summary, error) {
	summary := Summary{RunID: r.opts.RunID, StartedAt: r.now()}
	if r.opts.RunID != "" {
		ctx = services.WithRunID(ctx, r.opts.RunID)
	}
	logger := logging.WithContext(ctx, r.logger)

	r.beginHistory(ctx, logger, len(inputs))
	finish := func(err error) (Summary, error) {
		summary.Aborted = err
		summary.FinishedAt = r.now()
		r.finishHistory(logger, summary)
		r.logSummary(logger, summary)
		return summary, err
	}

	snapshot, err := r.deps.Archiver.ArchiveExisting(r.opts.OutputRoot)
	if err != nil {
		return finish(err)
	}
	summary.Archive = snapshot

	expansion, err := r.deps.Downloader.Expand(ctx, inputs)
	summary.InputFailures = expansion.Failed
	if err != nil {
		return finish(err)
	}
	logger.Info("work list ready",
		logging.Int("inputs", len(inputs)),
		logging.Int("videos", len(expansion.Entries)),
		logging.Int("input_failures", len(expansion.Failed)),
		logging.String(logging.FieldEventType, "work_list_ready"))

	total := len(expansion.Entries)
	for i, entry := range expansion.Entries {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		result, err := r.processEntry(ctx, i+1, total, entry)
		summary.Items = append(summary.Items, result)
		r.recordItem(ctx, logger, result)
		if err != nil {
			return finish(err)
		}
	}
	return finish(nil)
}

// processEntry returns a non-nil error only when the run must stop: any cache
// index write error, or cancellation.
func (r *Runner) processEntry(ctx context.Context, position, total int, entry ytdlp.Entry) (ItemResult, error) {
	start := r.now()
	id := entry.VideoID
	ctx = services.WithContentID(services.WithItemIndex(ctx, position), id)
	logger := logging.WithContext(ctx, r.logger)
	result := ItemResult{
		Position:  position,
		ContentID: id,
		SourceURL: entry.URL,
		Title:     entry.Title,
	}
	done := func(outcome Outcome, err error) ItemResult {
		result.Outcome = outcome
		result.Err = err
		result.Duration = r.now().Sub(start)
		return result
	}

	logger.Info("processing video",
		logging.String("progress", fmt.Sprintf("%d/%d", position, total)),
		logging.String("url", entry.URL),
		logging.String(logging.FieldEventType, "item_start"))

	if !r.deps.Index.ShouldProcess(id) {
		if !r.opts.Force {
			rec, _ := r.deps.Index.Lookup(id)
			result.OutputPath = rec.OutputPath
			if result.Title == "" {
				result.Title = rec.Title
			}
			logger.Info("already transcribed; skipping",
				logging.String("output", rec.OutputPath),
				logging.String(logging.FieldEventType, "item_skipped"))
			return done(history.OutcomeSkipped, nil), nil
		}
		logger.Info("reprocessing completed video (force)",
			logging.String(logging.FieldEventType, "item_forced"))
	}

	if err := r.deps.Index.MarkPending(id, cacheindex.Meta{
		SourceURL:  entry.URL,
		Title:      entry.Title,
		PromptName: r.opts.PromptName,
	}); err != nil {
		return done(history.OutcomeFailed, err), err
	}

	outputPath, title, err := r.transcribeEntry(ctx, entry)
	if title != "" {
		result.Title = title
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if markErr := r.deps.Index.MarkFailed(id, cacheindex.InterruptedReason); markErr != nil {
				logger.Error("failed to record interrupted item", logging.Error(markErr))
			}
			return done(history.OutcomeFailed, ctxErr), ctxErr
		}
		return r.failItem(ctx, done, err)
	}

	if err := r.deps.Index.MarkDone(id, outputPath); err != nil {
		return done(history.OutcomeFailed, err), err
	}
	result.OutputPath = outputPath
	logger.Info("transcript saved",
		logging.String("output", outputPath),
		logging.String(logging.FieldEventType, "item_processed"))
	return done(history.OutcomeProcessed, nil), nil
}

// transcribeEntry runs download, transcription, cleanup, and write.
func (r *Runner) transcribeEntry(ctx context.Context, entry ytdlp.Entry) (string, string, error) {
	dlCtx := services.WithStage(ctx, "download")
	audio, err := r.deps.Downloader.Download(dlCtx, entry.URL)
	if err != nil {
		return "", "", err
	}
	title := audio.Title
	if title == "" {
		title = entry.Title
	}

	txCtx := services.WithStage(ctx, "transcribe")
	raw, err := r.deps.Transcriber.Transcribe(txCtx, transcription.Request{
		AudioPath:   audio.AudioPath,
		PromptName:  r.opts.PromptName,
		Prompt:      r.opts.Prompt,
		Temperature: r.opts.Temperature,
	})
	if err != nil {
		return "", title, err
	}
	text, err := transcript.Clean(raw)
	if err != nil {
		return "", title, err
	}

	path, err := r.deps.Writer.Write(transcript.Document{
		Title:           title,
		SourceURL:       entry.URL,
		VideoID:         entry.VideoID,
		PromptName:      r.opts.PromptName,
		Timestamp:       r.now(),
		DurationSeconds: audio.DurationSeconds,
		Transcript:      text,
	})
	if err != nil {
		return "", title, err
	}
	return path, title, nil
}

func (r *Runner) failItem(ctx context.Context, done func(Outcome, error) ItemResult, cause error) (ItemResult, error) {
	logger := logging.WithContext(ctx, r.logger)
	id, _ := services.ContentIDFromContext(ctx)
	logging.ErrorWithContext(logger, "video failed; continuing with next", "item_failed",
		logging.String("error_kind", services.Kind(cause)),
		logging.Error(cause),
		logging.String(logging.FieldErrorHint, failureHint(cause)))
	if err := r.deps.Index.MarkFailed(id, failureReason(cause)); err != nil {
		return done(history.OutcomeFailed, cause), err
	}
	return done(history.OutcomeFailed, cause), nil
}

func failureReason(err error) string {
	msg := strings.TrimSpace(err.Error())
	const limit = 500
	if runes := []rune(msg); len(runes) > limit {
		msg = string(runes[:limit]) + "..."
	}
	return msg
}

func failureHint(err error) string {
	switch services.Kind(err) {
	case "download":
		return "check the URL in a browser and update yt-dlp; the video is retried on the next run"
	case "transcription":
		return "check API credentials and quota; the video is retried on the next run"
	case "timeout":
		return "raise the timeout in config or retry later"
	default:
		return "see the run log for details; the video is retried on the next run"
	}
}

func (r *Runner) logSummary(logger *slog.Logger, summary Summary) {
	attrs := []logging.Attr{
		logging.Int("processed", len(summary.Processed())),
		logging.Int("skipped", len(summary.Skipped())),
		logging.Int("failed", len(summary.Failed())),
		logging.Int("input_failures", len(summary.InputFailures)),
		logging.String("processed_ids", strings.Join(summary.Processed(), ",")),
		logging.String("skipped_ids", strings.Join(summary.Skipped(), ",")),
		logging.String("failed_ids", strings.Join(summary.Failed(), ",")),
		logging.Duration("elapsed", summary.FinishedAt.Sub(summary.StartedAt)),
		logging.String(logging.FieldEventType, "run_summary"),
	}
	if summary.Archive.Path != "" {
		attrs = append(attrs, logging.String("archive", summary.Archive.Path))
	}
	if summary.Aborted != nil {
		logging.ErrorWithContext(logger, "run aborted", "run_aborted",
			append(attrs,
				logging.Error(summary.Aborted),
				logging.String(logging.FieldErrorHint, abortHint(summary.Aborted)))...)
		return
	}
	logger.Info("run complete", logging.Args(attrs...)...)
}

func abortHint(err error) string {
	if services.IsFatal(err) {
		return "the cache index or archive could not be written; fix the filesystem problem and rerun"
	}
	return "rerun to continue; completed videos are skipped"
}
