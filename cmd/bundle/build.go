package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [entry files...]",
	Short: "Run the full pipeline and report the resulting chunks",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := runPipeline(cmd.Context(), args)
		if err != nil {
			return err
		}
		if result.log.HasErrors() {
			return fmt.Errorf("build failed")
		}

		bold := color.New(color.Bold)
		for _, chunk := range result.chunks {
			bold.Fprintf(cmd.OutOrStdout(), "%s", chunk.Name)
			if chunk.IsFacade {
				fmt.Fprint(cmd.OutOrStdout(), " (facade)")
			}
			fmt.Fprintln(cmd.OutOrStdout())
			for _, m := range chunk.Modules {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", m.ID)
			}
		}
		return nil
	},
}
