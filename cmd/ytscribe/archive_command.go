package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"ytscribe/internal/archive"
)

func newArchiveCommand(ctx *commandContext) *cobra.Command {
	archiveCmd := &cobra.Command{
		Use:   "archive",
		Short: "Inspect archived transcript snapshots",
	}
	archiveCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			snapshots, err := archive.New(cfg.Paths.ArchiveDir, nil, nil).List()
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				if snapshots == nil {
					snapshots = []archive.Snapshot{}
				}
				return writeJSON(cmd, snapshots)
			}
			out := cmd.OutOrStdout()
			if len(snapshots) == 0 {
				fmt.Fprintf(out, "No snapshots under %s\n", cfg.Paths.ArchiveDir)
				return nil
			}
			rows := make([][]string, 0, len(snapshots))
			for _, s := range snapshots {
				rows = append(rows, []string{s.Name, formatTime(s.CreatedAt), strconv.Itoa(s.Entries), s.Path})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Snapshot", "Created", "Entries", "Path"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	})
	return archiveCmd
}
