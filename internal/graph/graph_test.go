package graph_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modulegraph/bundlecore/internal/buildopts"
	"github.com/modulegraph/bundlecore/internal/graph"
	"github.com/modulegraph/bundlecore/internal/jsast"
	"github.com/modulegraph/bundlecore/internal/logger"
	"github.com/modulegraph/bundlecore/internal/plugin"
)

// fakeFile is one entry of an in-memory virtual file system used to
// drive the graph builder without touching disk or a real plugin host.
type fakeFile struct {
	code       string
	imports    []graph.ParsedImport
	dynamic    []string // specifiers, "" for a non-literal import()
	exportAll  []string
	external   map[string]bool
}

type fakeDriver struct {
	files map[string]fakeFile

	mu        sync.Mutex
	loadCalls map[string]int
}

func (d *fakeDriver) ResolveID(_ context.Context, source, importer string) (plugin.ResolveResult, error) {
	if importer != "" {
		if f, ok := d.files[importer]; ok && f.external[source] {
			return plugin.ResolveResult{Kind: plugin.ExplicitExternal, ID: source}, nil
		}
	}
	if _, ok := d.files[source]; ok {
		return plugin.ResolveResult{Kind: plugin.Resolved, ID: source}, nil
	}
	return plugin.ResolveResult{Kind: plugin.Unhandled}, nil
}

func (d *fakeDriver) Load(_ context.Context, id string) (plugin.LoadResult, error) {
	d.mu.Lock()
	if d.loadCalls == nil {
		d.loadCalls = make(map[string]int)
	}
	d.loadCalls[id]++
	d.mu.Unlock()

	f, ok := d.files[id]
	if !ok {
		return plugin.LoadResult{Kind: plugin.Unhandled}, nil
	}
	return plugin.LoadResult{Kind: plugin.Resolved, Code: f.code}, nil
}

func (d *fakeDriver) loadCallCount(id string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.loadCalls[id]
}

func (d *fakeDriver) Transform(_ context.Context, code string, _ string) (plugin.LoadResult, error) {
	return plugin.LoadResult{Kind: plugin.Unhandled, Code: code}, nil
}

func (d *fakeDriver) ResolveDynamicImport(_ context.Context, specifier string, isStringLiteral bool, importer string) (plugin.DynamicImportResult, error) {
	if !isStringLiteral {
		return plugin.DynamicImportResult{Kind: plugin.Resolved, NonStringRewrite: true}, nil
	}
	if f, ok := d.files[importer]; ok && f.external[specifier] {
		return plugin.DynamicImportResult{Kind: plugin.Resolved, ResolvedID: specifier, IsExternal: true}, nil
	}
	if _, ok := d.files[specifier]; ok {
		return plugin.DynamicImportResult{Kind: plugin.Resolved, ResolvedID: specifier}, nil
	}
	return plugin.DynamicImportResult{Kind: plugin.Unhandled}, nil
}

func (d *fakeDriver) WatchChange(string) {}

func (d *fakeDriver) EmitAsset(name string, source []byte) string { return name }

// fakeParser turns a fakeFile's declared shape directly into a
// ParseResult, skipping any real tokenizing.
type fakeParser struct {
	files map[string]fakeFile
}

func (p *fakeParser) Parse(_ string, id string, globalScope *jsast.Scope) (*graph.ParseResult, error) {
	f, ok := p.files[id]
	if !ok {
		return nil, fmt.Errorf("no fixture for %s", id)
	}
	scope := jsast.NewChildScope(globalScope)
	result := &graph.ParseResult{
		ModuleScope:      scope,
		Imports:          f.imports,
		ExportAllSources: f.exportAll,
	}
	for _, spec := range f.dynamic {
		result.DynamicImports = append(result.DynamicImports, &jsast.EImportCall{Specifier: spec})
	}
	decl := &jsast.SDeclaration{Names: []string{"value"}}
	decl.Bind(scope)
	result.Exports = []graph.ParsedExport{{ExportedName: "value", Local: decl.DeclaredVariables()[0]}}
	result.Statements = []jsast.Stmt{decl}
	return result, nil
}

func newTestGraph(files map[string]fakeFile, entry string) (*graph.Graph, error) {
	g, _, err := newTestGraphMultiEntry(files, map[string]string{"main": entry})
	return g, err
}

func newTestGraphMultiEntry(files map[string]fakeFile, input map[string]string) (*graph.Graph, *fakeDriver, error) {
	driver := &fakeDriver{files: files}
	parser := &fakeParser{files: files}
	opts := &buildopts.Options{Input: input}
	g := graph.NewGraph(driver, parser, opts, logger.NewDeferLog(), nil)
	err := g.Build(context.Background())
	return g, driver, err
}

func TestBuildFetchesStaticDependenciesTransitively(t *testing.T) {
	files := map[string]fakeFile{
		"main.js": {
			imports: []graph.ParsedImport{{LocalName: "helper", Source: "helper.js", ImportedName: "value"}},
		},
		"helper.js": {},
	}
	g, err := newTestGraph(files, "main.js")
	require.NoError(t, err)
	assert.Contains(t, g.Modules, "main.js")
	assert.Contains(t, g.Modules, "helper.js")
	assert.Equal(t, "helper.js", g.Modules["main.js"].ResolvedIDs["helper.js"])
}

func TestBuildRecordsExternalImports(t *testing.T) {
	files := map[string]fakeFile{
		"main.js": {
			imports:  []graph.ParsedImport{{LocalName: "react", Source: "react", ImportedName: "default"}},
			external: map[string]bool{"react": true},
		},
	}
	g, err := newTestGraph(files, "main.js")
	require.NoError(t, err)
	assert.NotContains(t, g.Modules, "react")
	require.Contains(t, g.ExternalModules, "react")
	assert.Equal(t, []string{"default"}, g.ExternalModules["react"].UnusedImports())
}

func TestBuildPromotesDynamicImportToEntryPoint(t *testing.T) {
	files := map[string]fakeFile{
		"main.js": {
			dynamic: []string{"lazy.js"},
		},
		"lazy.js": {},
	}
	g, err := newTestGraph(files, "main.js")
	require.NoError(t, err)
	require.Contains(t, g.Modules, "lazy.js")
	assert.Equal(t, graph.EntryPointDynamicImport, g.Modules["lazy.js"].EntryPointKind)
	assert.Contains(t, g.EntryModuleIDs, "lazy.js")
}

func TestBuildDedupesConcurrentFetchesOfASharedDependency(t *testing.T) {
	files := map[string]fakeFile{
		"a.js": {
			imports: []graph.ParsedImport{{LocalName: "shared", Source: "shared.js", ImportedName: "value"}},
		},
		"b.js": {
			imports: []graph.ParsedImport{{LocalName: "shared", Source: "shared.js", ImportedName: "value"}},
		},
		"shared.js": {},
	}
	g, driver, err := newTestGraphMultiEntry(files, map[string]string{"a": "a.js", "b": "b.js"})
	require.NoError(t, err)

	require.Contains(t, g.Modules, "shared.js")
	assert.Equal(t, 1, driver.loadCallCount("shared.js"), "two entries racing on the same dependency must load it once")
}

func TestBuildTreatsUnresolvedBareSpecifierAsExternalWarning(t *testing.T) {
	files := map[string]fakeFile{
		"main.js": {
			imports: []graph.ParsedImport{{LocalName: "left-pad", Source: "left-pad", ImportedName: "default"}},
		},
	}
	g, err := newTestGraph(files, "main.js")
	require.NoError(t, err)
	assert.NotContains(t, g.Modules, "left-pad")
	assert.Contains(t, g.ExternalModules, "left-pad")
}

func TestBuildFailsOnUnresolvedRelativeSpecifier(t *testing.T) {
	files := map[string]fakeFile{
		"main.js": {
			imports: []graph.ParsedImport{{LocalName: "missing", Source: "./missing.js", ImportedName: "default"}},
		},
	}
	driver := &fakeDriver{files: files}
	parser := &fakeParser{files: files}
	opts := &buildopts.Options{Input: map[string]string{"main": "main.js"}}
	log := logger.NewDeferLog()
	g := graph.NewGraph(driver, parser, opts, log, nil)
	require.NoError(t, g.Build(context.Background()))

	assert.NotContains(t, g.ExternalModules, "./missing.js")
	assert.True(t, log.HasErrors())
}

func TestExternalModuleUnusedImportsIsSorted(t *testing.T) {
	ext := graph.NewExternalModule("lodash")
	ext.RecordImport("zip")
	ext.RecordImport("debounce")
	ext.RecordImport("map")
	ext.MarkUsed("map")

	assert.Equal(t, []string{"debounce", "zip"}, ext.UnusedImports())
}

func TestBuildFlattensExportAllSourceIntoDependencies(t *testing.T) {
	files := map[string]fakeFile{
		"main.js":     {exportAll: []string{"reexport.js"}},
		"reexport.js": {},
	}
	g, err := newTestGraph(files, "main.js")
	require.NoError(t, err)
	assert.Contains(t, g.Modules, "reexport.js")
	assert.Equal(t, []string{"reexport.js"}, g.Modules["main.js"].ExportAllSources)
}
