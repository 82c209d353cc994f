package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ytscribe/internal/history"
)

type historyRunView struct {
	ID          string     `json:"id"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	PromptName  string     `json:"prompt_name,omitempty"`
	Provider    string     `json:"provider,omitempty"`
	InputCount  int        `json:"input_count"`
	ArchivePath string     `json:"archive_path,omitempty"`
	Processed   int        `json:"processed"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	AbortReason string     `json:"abort_reason,omitempty"`
}

type historyItemView struct {
	Position   int    `json:"position"`
	ContentID  string `json:"content_id"`
	Title      string `json:"title,omitempty"`
	Outcome    string `json:"outcome"`
	OutputPath string `json:"output_path,omitempty"`
	Error      string `json:"error,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var videoFlag string

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List past runs, or show the items of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.HistoryPath()
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded yet")
				return nil
			}
			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			switch {
			case videoFlag != "":
				items, err := store.ContentHistory(cmd.Context(), resolveVideoID(videoFlag))
				if err != nil {
					return err
				}
				return renderHistoryItems(cmd, ctx, items, true)
			case len(args) == 1:
				run, err := store.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if run == nil {
					return fmt.Errorf("no run matches %q", args[0])
				}
				items, err := store.RunItems(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, struct {
						Run   historyRunView    `json:"run"`
						Items []historyItemView `json:"items"`
					}{runView(*run), itemViews(items)})
				}
				printRunHeader(cmd, *run)
				return renderHistoryItems(cmd, ctx, items, false)
			default:
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				return renderRuns(cmd, ctx, runs)
			}
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list (0 for all)")
	cmd.Flags().StringVar(&videoFlag, "video", "", "Show every recorded outcome for one video ID or URL")
	return cmd
}

func runView(r history.Run) historyRunView {
	return historyRunView{
		ID:          r.ID,
		StartedAt:   r.StartedAt,
		FinishedAt:  r.FinishedAt,
		PromptName:  r.PromptName,
		Provider:    r.Provider,
		InputCount:  r.InputCount,
		ArchivePath: r.ArchivePath,
		Processed:   r.Processed,
		Skipped:     r.Skipped,
		Failed:      r.Failed,
		AbortReason: r.AbortReason,
	}
}

func itemViews(items []history.Item) []historyItemView {
	views := make([]historyItemView, 0, len(items))
	for _, item := range items {
		views = append(views, historyItemView{
			Position:   item.Position,
			ContentID:  item.ContentID,
			Title:      item.Title,
			Outcome:    string(item.Outcome),
			OutputPath: item.OutputPath,
			Error:      item.Error,
			ErrorKind:  item.ErrorKind,
			DurationMS: item.Duration.Milliseconds(),
		})
	}
	return views
}

func renderRuns(cmd *cobra.Command, ctx *commandContext, runs []history.Run) error {
	if ctx.jsonOutput() {
		views := make([]historyRunView, 0, len(runs))
		for _, r := range runs {
			views = append(views, runView(r))
		}
		return writeJSON(cmd, views)
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet")
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		state := "running"
		switch {
		case r.AbortReason != "":
			state = "aborted"
		case r.Finished():
			state = "finished"
		}
		rows = append(rows, []string{
			shortID(r.ID),
			formatTime(r.StartedAt),
			state,
			dashIfEmpty(r.PromptName),
			strconv.Itoa(r.Processed),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Run", "Started", "State", "Prompt", "Processed", "Skipped", "Failed"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
	return nil
}

func printRunHeader(cmd *cobra.Command, r history.Run) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:       %s\n", r.ID)
	fmt.Fprintf(out, "Started:   %s\n", formatTime(r.StartedAt))
	if r.FinishedAt != nil {
		fmt.Fprintf(out, "Finished:  %s\n", formatTime(*r.FinishedAt))
	}
	fmt.Fprintf(out, "Prompt:    %s (%s)\n", dashIfEmpty(r.PromptName), dashIfEmpty(r.Provider))
	if r.ArchivePath != "" {
		fmt.Fprintf(out, "Archive:   %s\n", r.ArchivePath)
	}
	if r.AbortReason != "" {
		fmt.Fprintf(out, "Aborted:   %s\n", r.AbortReason)
	}
	fmt.Fprintf(out, "Totals:    %d processed, %d skipped, %d failed\n", r.Processed, r.Skipped, r.Failed)
}

func renderHistoryItems(cmd *cobra.Command, ctx *commandContext, items []history.Item, withRun bool) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, itemViews(items))
	}
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No items recorded")
		return nil
	}
	headers := []string{"#", "Video", "Outcome", "Title", "Output / Error"}
	if withRun {
		headers = []string{"Run", "Video", "Outcome", "Recorded", "Output / Error"}
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		detail := item.OutputPath
		if item.Error != "" {
			detail = item.Error
		}
		first, fourth := strconv.Itoa(item.Position), item.Title
		if withRun {
			first, fourth = shortID(item.RunID), formatTime(item.RecordedAt)
		}
		rows = append(rows, []string{first, item.ContentID, string(item.Outcome), dashIfEmpty(fourth), dashIfEmpty(detail)})
	}
	fmt.Fprintln(out, renderTable(headers, rows, nil))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
