package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ytscribe/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check tools, credentials, prompt, and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.Options{Network: !offline})
			failed := preflight.Failed(results)

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				p := newCheckPrinter(cmd.OutOrStdout())
				p.line("config", checkInfo, ctx.configPath)
				p.line("provider", checkInfo, fmt.Sprintf("%s (%s)", cfg.Transcription.Provider, cfg.Transcription.Model))
				for _, r := range results {
					state := checkPass
					if !r.Passed {
						state = checkFail
					}
					p.line(r.Name, state, r.Detail)
				}
			}
			if len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the live API check")
	return cmd
}
