package treeshake_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modulegraph/bundlecore/internal/buildopts"
	"github.com/modulegraph/bundlecore/internal/graph"
	"github.com/modulegraph/bundlecore/internal/jsast"
	"github.com/modulegraph/bundlecore/internal/logger"
	"github.com/modulegraph/bundlecore/internal/plugin"
	"github.com/modulegraph/bundlecore/internal/treeshake"
)

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

func newGraph() *graph.Graph {
	return graph.NewGraph(noopDriver{}, noopParser{}, &buildopts.Options{}, logger.NewDeferLog(), nil)
}

func newModule(g *graph.Graph, id string) *graph.Module {
	m := &graph.Module{
		ID:          id,
		ModuleScope: jsast.NewChildScope(g.GlobalScope),
		ResolvedIDs: make(map[string]string),
		Imports:     make(map[string]*graph.ImportBinding),
		Exports:     make(map[string]*jsast.Variable),
		ExportsAll:  make(map[string]string),
	}
	g.Modules[id] = m
	return m
}

func TestMarkIncludesEntryPointExportsAndTheirDependencies(t *testing.T) {
	g := newGraph()

	lib := newModule(g, "lib.js")
	usedDecl := &jsast.SDeclaration{Names: []string{"used"}}
	usedDecl.Bind(lib.ModuleScope)
	unusedDecl := &jsast.SDeclaration{Names: []string{"unused"}}
	unusedDecl.Bind(lib.ModuleScope)
	lib.AST = []jsast.Stmt{usedDecl, unusedDecl}
	lib.Exports["used"] = usedDecl.DeclaredVariables()[0]

	main := newModule(g, "main.js")
	main.EntryPointKind = graph.EntryPointUserSpecified
	// Aliasing "used" directly into main's scope simulates what the
	// binder does once it resolves an import of "used" from lib.js.
	main.ModuleScope.Alias("used", usedDecl.DeclaredVariables()[0])
	valueDecl := &jsast.SDeclaration{Names: []string{"value"}, Init: &jsast.EIdentifier{Name: "used"}}
	valueDecl.Bind(main.ModuleScope)
	main.AST = []jsast.Stmt{valueDecl}
	main.Exports["value"] = valueDecl.DeclaredVariables()[0]

	g.EntryModuleIDs = []string{"main.js"}

	shaker := treeshake.NewShaker(g, logger.NewDeferLog(), jsast.EffectPolicy{})
	shaker.Mark([]string{"lib.js", "main.js"})

	assert.True(t, usedDecl.IsIncluded())
	assert.False(t, unusedDecl.IsIncluded())
	assert.True(t, valueDecl.IsIncluded())
}

func TestMarkReportsUnusedExternalImport(t *testing.T) {
	g := newGraph()
	ext := g.ExternalModules
	main := newModule(g, "main.js")
	main.EntryPointKind = graph.EntryPointUserSpecified
	g.EntryModuleIDs = []string{"main.js"}

	external := graph.NewExternalModule("lodash")
	external.RecordImport("debounce")
	ext["lodash"] = external

	log := logger.NewDeferLog()
	treeshake.NewShaker(g, log, jsast.EffectPolicy{}).Mark([]string{"main.js"})

	found := false
	for _, msg := range log.Done() {
		if msg.ID == logger.MsgID_UnusedExternalImport {
			found = true
		}
	}
	assert.True(t, found)
}

// TestMarkReportsUnusedExternalImportsInExternalIDOrder covers two
// externals that both have an unused import: Mark used to range
// directly over g.ExternalModules, a Go map, so which external's
// warning came first was whatever that run's randomized iteration
// picked.
func TestMarkReportsUnusedExternalImportsInExternalIDOrder(t *testing.T) {
	g := newGraph()
	main := newModule(g, "main.js")
	main.EntryPointKind = graph.EntryPointUserSpecified
	g.EntryModuleIDs = []string{"main.js"}

	zebra := graph.NewExternalModule("zebra-lib")
	zebra.RecordImport("run")
	g.ExternalModules["zebra-lib"] = zebra

	apple := graph.NewExternalModule("apple-lib")
	apple.RecordImport("run")
	g.ExternalModules["apple-lib"] = apple

	var recorded []logger.Msg
	log := logger.Log{
		AddMsg:    func(msg logger.Msg) { recorded = append(recorded, msg) },
		HasErrors: func() bool { return false },
		Done:      func() []logger.Msg { return recorded },
	}
	treeshake.NewShaker(g, log, jsast.EffectPolicy{}).Mark([]string{"main.js"})

	var order []string
	for _, msg := range recorded {
		if msg.ID == logger.MsgID_UnusedExternalImport {
			order = append(order, msg.Text)
		}
	}
	require.Len(t, order, 2)
	assert.Contains(t, order[0], "apple-lib")
	assert.Contains(t, order[1], "zebra-lib")
}

func TestMarkDropsSideEffectImportOfADeclaredPureExternal(t *testing.T) {
	g := newGraph()
	main := newModule(g, "main.js")
	main.EntryPointKind = graph.EntryPointUserSpecified
	pureImport := &jsast.SExpressionStatement{Expr: &jsast.EImportForSideEffect{
		Source: "polyfill", ModuleID: "polyfill", IsExternal: true,
	}}
	main.AST = []jsast.Stmt{pureImport}
	g.EntryModuleIDs = []string{"main.js"}

	policy := jsast.EffectPolicy{IsPureExternal: func(id string) bool { return id == "polyfill" }}
	treeshake.NewShaker(g, logger.NewDeferLog(), policy).Mark([]string{"main.js"})

	assert.False(t, pureImport.IsIncluded())
}

func TestMarkKeepsSideEffectImportOfANonPureExternal(t *testing.T) {
	g := newGraph()
	main := newModule(g, "main.js")
	main.EntryPointKind = graph.EntryPointUserSpecified
	sideEffectImport := &jsast.SExpressionStatement{Expr: &jsast.EImportForSideEffect{
		Source: "reflect-metadata", ModuleID: "reflect-metadata", IsExternal: true,
	}}
	main.AST = []jsast.Stmt{sideEffectImport}
	g.EntryModuleIDs = []string{"main.js"}

	policy := jsast.EffectPolicy{IsPureExternal: func(string) bool { return false }}
	treeshake.NewShaker(g, logger.NewDeferLog(), policy).Mark([]string{"main.js"})

	assert.True(t, sideEffectImport.IsIncluded())
}

func TestIncludeAllInBundleForcesEveryStatement(t *testing.T) {
	g := newGraph()
	lib := newModule(g, "lib.js")
	decl := &jsast.SDeclaration{Names: []string{"neverReferenced"}}
	decl.Bind(lib.ModuleScope)
	lib.AST = []jsast.Stmt{decl}

	treeshake.NewShaker(g, logger.NewDeferLog(), jsast.EffectPolicy{}).IncludeAllInBundle([]string{"lib.js"})

	assert.True(t, decl.IsIncluded())
	assert.True(t, decl.DeclaredVariables()[0].Included)
}
