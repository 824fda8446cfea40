package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [entry files...]",
	Short: "Print the resolved module order, cycles, and dynamic import frontier",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := runPipeline(cmd.Context(), args)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "order:")
		for i, id := range result.order.OrderedModuleIDs {
			m := result.g.Modules[id]
			fmt.Fprintf(out, "  %d. %s (distance %d)\n", i, id, m.DistanceFromEntryPoint)
		}

		if len(result.order.Cycles) > 0 {
			fmt.Fprintln(out, "cycles:")
			for _, c := range result.order.Cycles {
				fmt.Fprintf(out, "  %v\n", c.Path)
			}
		}

		if len(result.order.DynamicImports) > 0 {
			fmt.Fprintln(out, "dynamic imports:")
			for _, d := range result.order.DynamicImports {
				fmt.Fprintf(out, "  %s -> %s\n", d.Alias, d.ModuleID)
			}
		}

		if result.log.HasErrors() {
			return fmt.Errorf("graph analysis reported errors")
		}
		return nil
	},
}
