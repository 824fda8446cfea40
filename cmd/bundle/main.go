// Command bundle drives the module-graph core end to end against a
// real filesystem: resolve entry points, load and parse every reachable
// module, link bindings, order execution, tree-shake, and partition
// into chunks. Grounded on jayu-rev-dep's main.go: one shared rootCmd,
// subcommands wired with RunE, config resolved by each subcommand's
// runPipeline call.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig               string
	flagExternal             []string
	flagPreserveModules      bool
	flagInlineDynamicImports bool
	flagShimMissingExports   bool
	flagNoTreeshake          bool
	flagColor                string
)

var rootCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Resolve, link, and chunk a static ES module graph",
	Long: `bundle drives the module-graph core of a static ES-module bundler:
plugin-driven resolution and loading, binding linking across modules,
execution-order analysis, tree-shaking, and chunk partitioning.

It does not emit JavaScript output itself; codegen for a chunk's
contents is left to a separate layer (see internal/graph.Chunk).`,
	SilenceUsage: true,
}

func addSharedFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagConfig, "config", "", "path to bundle.config.jsonc or bundle.config.yaml")
	cmd.Flags().StringSliceVar(&flagExternal, "external", nil, "package name or glob to treat as external")
	cmd.Flags().BoolVar(&flagPreserveModules, "preserve-modules", false, "one chunk per module instead of grouping by entry reachability")
	cmd.Flags().BoolVar(&flagInlineDynamicImports, "inline-dynamic-imports", false, "collapse dynamic import() targets into their importing entry chunk")
	cmd.Flags().BoolVar(&flagShimMissingExports, "shim-missing-exports", false, "synthesize an undefined binding for an import naming a nonexistent export")
	cmd.Flags().BoolVar(&flagNoTreeshake, "no-treeshake", false, "include every statement in the graph, skipping dead-code elimination")
	cmd.Flags().StringVar(&flagColor, "color", "auto", "diagnostic color: auto, always, never")
}

func init() {
	addSharedFlags(buildCmd)
	addSharedFlags(graphCmd)
	addSharedFlags(doctorCmd)
	rootCmd.AddCommand(buildCmd, graphCmd, doctorCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
