package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ytscribe/internal/prompt"
)

func newPromptsCommand(ctx *commandContext) *cobra.Command {
	var show string
	cmd := &cobra.Command{
		Use:   "prompts",
		Short: "List prompt names in the configured prompt file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			file := cfg.Transcription.PromptFile
			out := cmd.OutOrStdout()
			if show != "" {
				body, err := prompt.Load(file, show)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]string{"name": show, "body": body})
				}
				fmt.Fprintln(out, body)
				return nil
			}

			names, err := prompt.Names(file)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, names)
			}
			fmt.Fprintf(out, "Prompts in %s:\n", file)
			for _, name := range names {
				marker := " "
				if name == cfg.Transcription.PromptName {
					marker = "*"
				}
				fmt.Fprintf(out, " %s %s\n", marker, name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&show, "show", "", "Print the body of one prompt")
	return cmd
}
