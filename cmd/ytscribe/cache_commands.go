package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"ytscribe/internal/cacheindex"
	"ytscribe/internal/contentid"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and edit the processed-video cache index",
	}
	cacheCmd.AddCommand(newCacheListCommand(ctx))
	cacheCmd.AddCommand(newCacheShowCommand(ctx))
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheForgetCommand(ctx))
	return cacheCmd
}

func newCacheListCommand(ctx *commandContext) *cobra.Command {
	var statusFilter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cache records, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := cacheindex.Status(strings.ToLower(strings.TrimSpace(statusFilter)))
			if filter != "" && !filter.Valid() {
				return fmt.Errorf("unknown status %q (expected pending, done, or failed)", statusFilter)
			}
			idx, err := ctx.openIndexReadOnly()
			if err != nil {
				return err
			}
			defer idx.Close()

			records := make([]cacheindex.Record, 0)
			for _, rec := range idx.List() {
				if filter == "" || rec.Status == filter {
					records = append(records, rec)
				}
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, records)
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "Cache index is empty")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.ContentID,
					string(rec.Status),
					strconv.Itoa(rec.Attempts),
					formatTime(rec.UpdatedAt),
					dashIfEmpty(rec.Title),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Video", "Status", "Attempts", "Updated", "Title"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only show records with this status")
	return cmd
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <video-id|url>",
		Short: "Show one cache record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := resolveVideoID(args[0])
			idx, err := ctx.openIndexReadOnly()
			if err != nil {
				return err
			}
			defer idx.Close()

			rec, ok := idx.Lookup(id)
			if !ok {
				return fmt.Errorf("%s is not in the cache index", id)
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, rec)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Video:       %s\n", rec.ContentID)
			fmt.Fprintf(out, "Status:      %s\n", rec.Status)
			fmt.Fprintf(out, "Attempts:    %d\n", rec.Attempts)
			fmt.Fprintf(out, "First seen:  %s\n", formatTime(rec.FirstSeenAt))
			fmt.Fprintf(out, "Updated:     %s\n", formatTime(rec.UpdatedAt))
			fmt.Fprintf(out, "Title:       %s\n", dashIfEmpty(rec.Title))
			fmt.Fprintf(out, "Source:      %s\n", dashIfEmpty(rec.SourceURL))
			fmt.Fprintf(out, "Prompt:      %s\n", dashIfEmpty(rec.PromptName))
			fmt.Fprintf(out, "Output:      %s\n", dashIfEmpty(rec.OutputPath))
			if rec.FailureReason != "" {
				fmt.Fprintf(out, "Failure:     %s\n", rec.FailureReason)
			}
			return nil
		},
	}
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count cache records by status",
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := ctx.openIndexReadOnly()
			if err != nil {
				return err
			}
			defer idx.Close()

			stats := idx.Stats()
			if ctx.jsonOutput() {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Index:   %s\n", idx.Path())
			fmt.Fprintf(out, "Total:   %d\n", stats.Total)
			fmt.Fprintf(out, "Done:    %d\n", stats.Done)
			fmt.Fprintf(out, "Failed:  %d\n", stats.Failed)
			fmt.Fprintf(out, "Pending: %d\n", stats.Pending)
			return nil
		},
	}
}

func newCacheForgetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "forget <video-id|url>...",
		Short: "Remove records so the next run transcribes those videos again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			idx, err := cacheindex.Open(cfg.Paths.CacheIndex, nil, cacheindex.Options{})
			if err != nil {
				return err
			}
			defer idx.Close()

			out := cmd.OutOrStdout()
			for _, arg := range args {
				id := resolveVideoID(arg)
				if err := idx.Forget(id); err != nil {
					return err
				}
				fmt.Fprintf(out, "Forgot %s\n", id)
			}
			return nil
		},
	}
}

// resolveVideoID accepts a bare ID or any URL form contentid understands.
func resolveVideoID(arg string) string {
	arg = strings.TrimSpace(arg)
	if id, ok := contentid.FromURL(arg); ok {
		return id
	}
	return arg
}
