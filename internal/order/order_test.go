package order_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modulegraph/bundlecore/internal/buildopts"
	"github.com/modulegraph/bundlecore/internal/graph"
	"github.com/modulegraph/bundlecore/internal/jsast"
	"github.com/modulegraph/bundlecore/internal/logger"
	"github.com/modulegraph/bundlecore/internal/order"
	"github.com/modulegraph/bundlecore/internal/plugin"
)

func newGraph() *graph.Graph {
	return graph.NewGraph(noopDriver{}, noopParser{}, &buildopts.Options{}, logger.NewDeferLog(), nil)
}

func addModule(g *graph.Graph, id string, sources map[string]string) *graph.Module {
	m := &graph.Module{
		ID:          id,
		ModuleScope: jsast.NewChildScope(g.GlobalScope),
		ResolvedIDs: make(map[string]string),
		Imports:     make(map[string]*graph.ImportBinding),
		Exports:     make(map[string]*jsast.Variable),
		ExportsAll:  make(map[string]string),
	}
	for source, target := range sources {
		m.Sources = append(m.Sources, source)
		m.ResolvedIDs[source] = target
	}
	g.Modules[id] = m
	return m
}

func TestAnalyzeOrdersDependenciesBeforeDependents(t *testing.T) {
	g := newGraph()
	addModule(g, "leaf.js", nil)
	addModule(g, "main.js", map[string]string{"./leaf.js": "leaf.js"})
	g.EntryModuleIDs = []string{"main.js"}

	result := order.NewAnalyzer(g, logger.NewDeferLog()).Analyze()

	require.Equal(t, []string{"leaf.js", "main.js"}, result.OrderedModuleIDs)
	assert.Empty(t, result.Cycles)
}

func TestAnalyzeDetectsCycle(t *testing.T) {
	g := newGraph()
	addModule(g, "a.js", map[string]string{"./b.js": "b.js"})
	addModule(g, "b.js", map[string]string{"./a.js": "a.js"})
	g.EntryModuleIDs = []string{"a.js"}

	result := order.NewAnalyzer(g, logger.NewDeferLog()).Analyze()
	require.Len(t, result.Cycles, 1)
	assert.Contains(t, result.Cycles[0].Path, "a.js")
	assert.Contains(t, result.Cycles[0].Path, "b.js")
}

func TestAnalyzePropagatesEntryPointsHash(t *testing.T) {
	g := newGraph()
	shared := addModule(g, "shared.js", nil)
	addModule(g, "a.js", map[string]string{"./shared.js": "shared.js"})
	addModule(g, "b.js", map[string]string{"./shared.js": "shared.js"})
	g.EntryModuleIDs = []string{"a.js", "b.js"}

	order.NewAnalyzer(g, logger.NewDeferLog()).Analyze()

	assert.True(t, shared.EntryPointsHash.HasBit(0))
	assert.True(t, shared.EntryPointsHash.HasBit(1))
	assert.True(t, g.Modules["a.js"].EntryPointsHash.HasBit(0))
	assert.False(t, g.Modules["a.js"].EntryPointsHash.HasBit(1))
}

func TestAnalyzeAssignsDynamicImportAlias(t *testing.T) {
	g := newGraph()
	lazy := addModule(g, "src/lazy.js", nil)
	lazy.EntryPointKind = graph.EntryPointDynamicImport
	addModule(g, "main.js", nil)
	g.EntryModuleIDs = []string{"main.js", "src/lazy.js"}

	result := order.NewAnalyzer(g, logger.NewDeferLog()).Analyze()

	require.Len(t, result.DynamicImports, 1)
	assert.Equal(t, "src/lazy.js", result.DynamicImports[0].ModuleID)
	assert.Equal(t, "lazy", result.DynamicImports[0].Alias)
}

type noopDriver struct{}

func (noopDriver) ResolveID(context.Context, string, string) (plugin.ResolveResult, error) {
	return plugin.ResolveResult{Kind: plugin.Unhandled}, nil
}
func (noopDriver) Load(context.Context, string) (plugin.LoadResult, error) {
	return plugin.LoadResult{Kind: plugin.Unhandled}, nil
}
func (noopDriver) Transform(context.Context, string, string) (plugin.LoadResult, error) {
	return plugin.LoadResult{Kind: plugin.Unhandled}, nil
}
func (noopDriver) ResolveDynamicImport(context.Context, string, bool, string) (plugin.DynamicImportResult, error) {
	return plugin.DynamicImportResult{Kind: plugin.Unhandled}, nil
}
func (noopDriver) WatchChange(string)                          {}
func (noopDriver) EmitAsset(name string, source []byte) string { return name }

type noopParser struct{}

func (noopParser) Parse(code, id string, scope *jsast.Scope) (*graph.ParseResult, error) {
	return &graph.ParseResult{ModuleScope: scope}, nil
}
