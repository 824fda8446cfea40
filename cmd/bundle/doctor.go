package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modulegraph/bundlecore/internal/logger"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor [entry files...]",
	Short: "Run the pipeline and list every warning and error without emitting a chunk report",
	Long: `doctor runs the same resolve/link/order/treeshake/chunk pipeline as
build, but its only output is the accumulated diagnostic log: unresolved
entries, unresolved imports, circular dependencies, namespace export
conflicts, and unused external imports. It exits nonzero if any error
was reported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := runPipeline(cmd.Context(), args)
		if err != nil {
			return err
		}

		msgs := result.log.Done()
		if len(msgs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no issues found")
			return nil
		}

		for _, msg := range msgs {
			kind := "warning"
			if msg.Kind == logger.Error {
				kind = "error"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", kind, msg.Text)
		}

		if result.log.HasErrors() {
			return fmt.Errorf("%d diagnostic(s) reported, at least one fatal", len(msgs))
		}
		return nil
	},
}
