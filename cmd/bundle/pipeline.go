package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modulegraph/bundlecore/internal/binder"
	"github.com/modulegraph/bundlecore/internal/buildopts"
	"github.com/modulegraph/bundlecore/internal/chunker"
	"github.com/modulegraph/bundlecore/internal/graph"
	"github.com/modulegraph/bundlecore/internal/jsast"
	"github.com/modulegraph/bundlecore/internal/logger"
	"github.com/modulegraph/bundlecore/internal/order"
	"github.com/modulegraph/bundlecore/internal/scanjs"
	"github.com/modulegraph/bundlecore/internal/treeshake"
)

// pipelineResult is everything a subcommand might want to report after
// a run: the graph itself, the order analysis, and the chunks the
// partitioner produced.
type pipelineResult struct {
	log    logger.Log
	g      *graph.Graph
	order  *order.Result
	chunks []*graph.Chunk
}

func resolveColor() logger.StderrColor {
	switch flagColor {
	case "always":
		return logger.ColorAlways
	case "never":
		return logger.ColorNever
	default:
		return logger.ColorIfTerminal
	}
}

// loadOptions builds an Options from CLI flags layered on top of an
// optional project config file, the CLI winning on any field it set
// (buildopts.Options.Merge already encodes that precedence).
func loadOptions(entries []string) (*buildopts.Options, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	opts := &buildopts.Options{
		Treeshake: buildopts.DefaultTreeshake(),
	}
	if len(entries) > 0 {
		opts.Input = make(map[string]string, len(entries))
		for _, e := range entries {
			alias := filepath.Base(e)
			ext := filepath.Ext(alias)
			alias = alias[:len(alias)-len(ext)]
			opts.Input[alias] = e
		}
	}
	if len(flagExternal) > 0 {
		opts.External = buildopts.NewGlobExternalMatcher(flagExternal).IsExternal
	}
	if flagPreserveModules {
		opts.PreserveModules = true
	}
	if flagInlineDynamicImports {
		opts.InlineDynamicImports = true
	}
	if flagShimMissingExports {
		opts.ShimMissingExports = true
	}
	if flagNoTreeshake {
		opts.Treeshake.Enabled = false
	}

	cfg, _, err := buildopts.LoadConfigFile(flagConfig, cwd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	opts.Merge(cfg)

	if len(opts.Input) == 0 {
		return nil, fmt.Errorf("no entry points: pass files as arguments or set \"input\" in the config file")
	}
	return opts, nil
}

// runPipeline drives C2 through C7 over a real filesystem project.
func runPipeline(ctx context.Context, entries []string) (*pipelineResult, error) {
	opts, err := loadOptions(entries)
	if err != nil {
		return nil, err
	}

	log := logger.NewStderrLog(logger.StderrOptions{
		IncludeSource: true,
		Color:         resolveColor(),
		LogLevel:      logger.LevelInfo,
	})

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	driver := newFSDriver(cwd, opts.IsExternalID)
	parser := scanjs.New()

	g := graph.NewGraph(driver, parser, opts, log, nil)
	driver.assets = g.Assets()
	if err := g.Build(ctx); err != nil {
		return nil, fmt.Errorf("loading module graph: %w", err)
	}

	linker := binder.NewLinker(g, log, opts.ShimMissingExports)
	if err := linker.Link(); err != nil {
		return nil, fmt.Errorf("linking bindings: %w", err)
	}

	analysis := order.NewAnalyzer(g, log).Analyze()

	shaker := treeshake.NewShaker(g, log, jsast.EffectPolicy{
		PropertyReadSideEffects: opts.Treeshake.Options.PropertyReadSideEffects,
		IsPureExternal:          opts.Treeshake.Options.PureExternalModules,
	})
	if opts.Treeshake.Enabled {
		shaker.Mark(analysis.OrderedModuleIDs)
	} else {
		shaker.IncludeAllInBundle(analysis.OrderedModuleIDs)
	}

	chunks := chunker.NewPartitioner(g, chunker.Options{
		PreserveModules:      opts.PreserveModules,
		InlineDynamicImports: opts.InlineDynamicImports,
		ManualChunks:         opts.ManualChunks,
	}).Partition(analysis.OrderedModuleIDs)

	return &pipelineResult{log: log, g: g, order: analysis, chunks: chunks}, nil
}
