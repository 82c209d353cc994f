package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ytscribe/internal/archive"
	"ytscribe/internal/cacheindex"
	"ytscribe/internal/config"
	"ytscribe/internal/history"
	"ytscribe/internal/logging"
	"ytscribe/internal/pipeline"
	"ytscribe/internal/preflight"
	"ytscribe/internal/prompt"
	"ytscribe/internal/services/ytdlp"
	"ytscribe/internal/transcript"
	"ytscribe/internal/transcription"
)

type runFlags struct {
	files        []string
	promptName   string
	provider     string
	outputFormat string
	force        bool
	skipChecks   bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [URL|list.txt]...",
		Short: "Download, transcribe, and save transcripts for videos and playlists",
		Long: "Archive the previous transcripts, then transcribe every video that the cache index\n" +
			"has not completed yet. Exits non-zero if any video or input failed.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyRunOverrides(cfg, flags); err != nil {
				return err
			}
			inputs, err := collectInputs(args, flags.files)
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, err := executeRun(sigCtx, cfg, inputs, flags)
			if summary != nil {
				if ctx.jsonOutput() {
					if encErr := writeJSON(cmd, newRunReport(*summary)); encErr != nil {
						return encErr
					}
				} else {
					printRunSummary(cmd.OutOrStdout(), *summary)
				}
			}
			if err != nil {
				return err
			}
			if summary.HasFailures() {
				return fmt.Errorf("run finished with %d failed video(s) and %d failed input(s)",
					len(summary.Failed()), len(summary.InputFailures))
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&flags.files, "file", "f", nil, "Read URLs from a file (one per line, # comments allowed)")
	cmd.Flags().StringVarP(&flags.promptName, "prompt", "p", "", "Prompt name to use (overrides transcription.prompt_name)")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "Transcription provider: gemini or vertex")
	cmd.Flags().StringVar(&flags.outputFormat, "format", "", "Transcript format: text or json")
	cmd.Flags().BoolVar(&flags.force, "force", false, "Reprocess videos already marked done")
	cmd.Flags().BoolVar(&flags.skipChecks, "skip-checks", false, "Skip preflight checks")
	return cmd
}

func applyRunOverrides(cfg *config.Config, flags runFlags) error {
	if name := strings.TrimSpace(flags.promptName); name != "" {
		cfg.Transcription.PromptName = name
	}
	if provider := strings.ToLower(strings.TrimSpace(flags.provider)); provider != "" {
		cfg.Transcription.Provider = provider
	}
	if format := strings.ToLower(strings.TrimSpace(flags.outputFormat)); format != "" {
		cfg.Output.Format = format
	}
	return cfg.ValidateForRun()
}

// executeRun wires the collaborators for one batch. A nil summary means the
// run never started.
func executeRun(ctx context.Context, cfg *config.Config, inputs []string, flags runFlags) (*pipeline.Summary, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	started := time.Now()
	runLog, err := logging.NewFromConfig(cfg, runID, started)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	defer runLog.Close()
	logger := runLog.Logger

	logger.Info("ytscribe run starting",
		logging.Int("inputs", len(inputs)),
		logging.String("provider", cfg.Transcription.Provider),
		logging.String("model", cfg.Transcription.Model),
		logging.String("prompt", cfg.Transcription.PromptName),
		logging.String("output_dir", cfg.Paths.OutputDir),
		logging.String("run_log", runLog.Path),
		logging.String(logging.FieldEventType, "run_start"))

	if !flags.skipChecks {
		if err := preflight.Err(preflight.RunAll(ctx, cfg, preflight.Options{})); err != nil {
			return nil, err
		}
	}

	promptText, err := prompt.Load(cfg.Transcription.PromptFile, cfg.Transcription.PromptName)
	if err != nil {
		return nil, err
	}

	index, err := cacheindex.Open(cfg.Paths.CacheIndex, logger, cacheindex.Options{})
	if err != nil {
		return nil, err
	}
	defer index.Close()

	downloader, err := ytdlp.New(cfg.Download, cfg.Paths.AudioCacheDir, logger)
	if err != nil {
		return nil, err
	}
	provider, err := transcription.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer provider.Close()
	writer, err := transcript.NewWriter(cfg.Paths.OutputDir, cfg.Output.Format)
	if err != nil {
		return nil, err
	}

	deps := pipeline.Dependencies{
		Downloader:  downloader,
		Transcriber: provider,
		Index:       index,
		Archiver:    archive.New(cfg.Paths.ArchiveDir, logger, nil),
		Writer:      writer,
		Logger:      logger,
	}
	if store := openHistory(cfg, logger); store != nil {
		defer store.Close()
		deps.History = store
	}

	runner, err := pipeline.New(deps, pipeline.Options{
		RunID:       runID,
		OutputRoot:  cfg.Paths.OutputDir,
		PromptName:  cfg.Transcription.PromptName,
		Prompt:      promptText,
		Temperature: cfg.Transcription.Temperature,
		Provider:    provider.Name(),
		Force:       flags.force,
	})
	if err != nil {
		return nil, err
	}

	summary, err := runner.Run(ctx, inputs)
	return &summary, err
}

// openHistory returns nil when the history database is unusable; runs still
// proceed because the cache index is authoritative.
func openHistory(cfg *config.Config, logger *slog.Logger) *history.Store {
	store, err := history.Open(cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
			logging.String("path", cfg.HistoryPath()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "move history.db aside to start a fresh history"),
			logging.String(logging.FieldImpact, "this run will not appear in `ytscribe history`"))
		return nil
	}
	return store
}

type runItemReport struct {
	Position   int    `json:"position"`
	ContentID  string `json:"content_id"`
	SourceURL  string `json:"source_url,omitempty"`
	Title      string `json:"title,omitempty"`
	Outcome    string `json:"outcome"`
	OutputPath string `json:"output_path,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type inputFailureReport struct {
	Input string `json:"input"`
	Error string `json:"error"`
}

type runReport struct {
	RunID         string               `json:"run_id"`
	StartedAt     time.Time            `json:"started_at"`
	FinishedAt    time.Time            `json:"finished_at"`
	ArchivePath   string               `json:"archive_path,omitempty"`
	Processed     []string             `json:"processed"`
	Skipped       []string             `json:"skipped"`
	Failed        []string             `json:"failed"`
	InputFailures []inputFailureReport `json:"input_failures,omitempty"`
	Items         []runItemReport      `json:"items"`
	Aborted       string               `json:"aborted,omitempty"`
}

func newRunReport(s pipeline.Summary) runReport {
	report := runReport{
		RunID:       s.RunID,
		StartedAt:   s.StartedAt,
		FinishedAt:  s.FinishedAt,
		ArchivePath: s.Archive.Path,
		Processed:   nonNil(s.Processed()),
		Skipped:     nonNil(s.Skipped()),
		Failed:      nonNil(s.Failed()),
		Items:       make([]runItemReport, 0, len(s.Items)),
	}
	for _, f := range s.InputFailures {
		report.InputFailures = append(report.InputFailures, inputFailureReport{Input: f.Input, Error: errString(f.Err)})
	}
	for _, item := range s.Items {
		report.Items = append(report.Items, runItemReport{
			Position:   item.Position,
			ContentID:  item.ContentID,
			SourceURL:  item.SourceURL,
			Title:      item.Title,
			Outcome:    string(item.Outcome),
			OutputPath: item.OutputPath,
			Error:      errString(item.Err),
			DurationMS: item.Duration.Milliseconds(),
		})
	}
	if s.Aborted != nil {
		report.Aborted = s.Aborted.Error()
	}
	return report
}

func printRunSummary(out io.Writer, s pipeline.Summary) {
	if len(s.Items) > 0 {
		rows := make([][]string, 0, len(s.Items))
		for _, item := range s.Items {
			detail := item.OutputPath
			if item.Err != nil {
				detail = errString(item.Err)
			}
			rows = append(rows, []string{
				strconv.Itoa(item.Position),
				item.ContentID,
				string(item.Outcome),
				dashIfEmpty(item.Title),
				dashIfEmpty(detail),
			})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Video", "Outcome", "Title", "Output / Error"},
			rows,
			[]columnAlignment{alignRight},
		))
	}
	for _, f := range s.InputFailures {
		fmt.Fprintf(out, "Input failed: %s (%s)\n", f.Input, errString(f.Err))
	}
	if s.Archive.Path != "" {
		fmt.Fprintf(out, "Archived %d previous entries to %s\n", s.Archive.Entries, s.Archive.Path)
	}
	fmt.Fprintf(out, "Processed: %d  Skipped: %d  Failed: %d  (run %s, %s)\n",
		len(s.Processed()), len(s.Skipped()), len(s.Failed()),
		s.RunID, s.FinishedAt.Sub(s.StartedAt).Round(time.Second))
	if s.Aborted != nil {
		reason := "error"
		if errors.Is(s.Aborted, context.Canceled) {
			reason = "interrupted"
		}
		fmt.Fprintf(out, "Run aborted (%s): %v\n", reason, s.Aborted)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
