package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/modulegraph/bundlecore/internal/buildopts"
	"github.com/modulegraph/bundlecore/internal/helpers"
	"github.com/modulegraph/bundlecore/internal/jsast"
	"github.com/modulegraph/bundlecore/internal/logger"
	"github.com/modulegraph/bundlecore/internal/plugin"
)

// Graph owns every Module and ExternalModule reachable from the build's
// entry points (spec §3). It is built up by the loader (C2) and then
// handed, unchanged in shape, to the binder, order analyzer,
// tree-shaker, and chunker in turn.
type Graph struct {
	GlobalScope *jsast.Scope

	mu              sync.Mutex
	Modules         map[string]*Module
	ExternalModules map[string]*ExternalModule
	// User entries sorted by alias (Options.Input is a map, so the order
	// they were listed in is not kept), followed by dynamic-import
	// entries in the order the loader discovered them.
	EntryModuleIDs  []string
	entryAliases    []string // parallel to EntryModuleIDs

	driver  plugin.Driver
	parser  Parser
	options *buildopts.Options
	log     logger.Log
	assets  *AssetRegistry
	cache   *PluginCache

	// wg joins the whole recursive fetch fan-out rooted at Build: a
	// module's own fetch may still be discovering and Add-ing further
	// dependency goroutines while an earlier sibling has already reached
	// Wait, which sync.WaitGroup forbids.
	wg *helpers.ThreadSafeWaitGroup

	errMu     sync.Mutex
	buildErrs []error
}

// NewGraph constructs an empty graph wired to the given plugin driver
// and parser. cache may be nil (a cold build with no warm cache).
func NewGraph(driver plugin.Driver, parser Parser, options *buildopts.Options, log logger.Log, cache *PluginCache) *Graph {
	if cache == nil {
		cache = NewPluginCache()
	}
	return &Graph{
		GlobalScope:     jsast.NewGlobalScope(),
		Modules:         make(map[string]*Module),
		ExternalModules: make(map[string]*ExternalModule),
		driver:          driver,
		parser:          parser,
		options:         options,
		log:             log,
		assets:          NewAssetRegistry(),
		cache:           cache,
	}
}

func (g *Graph) Cache() *PluginCache      { return g.cache }
func (g *Graph) Assets() *AssetRegistry   { return g.assets }
func (g *Graph) Driver() plugin.Driver    { return g.driver }

// Build runs the C2 module loader to completion over every entry point
// in options.Input: resolve each entry, then fan out fetchAllDependencies
// concurrently until the graph is closed under static and dynamic
// imports (spec §4.2).
func (g *Graph) Build(ctx context.Context) error {
	if len(g.options.Input) == 0 {
		g.log.AddErrorWithID(nil, logger.Loc{}, logger.MsgID_UnresolvedEntry, "no input entry points configured")
		return fmt.Errorf("no entry points")
	}

	aliases := make([]string, 0, len(g.options.Input))
	for alias := range g.options.Input {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)

	seen := make(map[string]bool)
	for _, alias := range aliases {
		spec := g.options.Input[alias]
		result, err := g.driver.ResolveID(ctx, spec, "")
		if err != nil {
			return &plugin.HookError{Hook: "resolveId", Cause: err}
		}
		if result.Kind == plugin.Unhandled {
			g.log.AddErrorWithID(nil, logger.Loc{}, logger.MsgID_UnresolvedEntry, fmt.Sprintf("could not resolve entry point %q", spec))
			continue
		}
		if result.Kind == plugin.ExplicitExternal || result.External {
			g.log.AddErrorWithID(nil, logger.Loc{}, logger.MsgID_UnresolvedEntry, fmt.Sprintf("entry point %q resolved external, which is not a valid entry point", spec))
			continue
		}
		if seen[result.ID] {
			g.log.AddWarningWithID(nil, logger.Loc{}, logger.MsgID_DuplicateEntryPoints, fmt.Sprintf("duplicate entry point %q (alias %q)", result.ID, alias))
			continue
		}
		seen[result.ID] = true
		g.EntryModuleIDs = append(g.EntryModuleIDs, result.ID)
		g.entryAliases = append(g.entryAliases, alias)
	}

	if len(g.EntryModuleIDs) == 0 {
		return fmt.Errorf("no entry points resolved")
	}

	g.wg = helpers.MakeThreadSafeWaitGroup()
	for i, id := range g.EntryModuleIDs {
		alias := g.entryAliases[i]
		g.wg.Add(1)
		go func(id, alias string) {
			defer g.wg.Done()
			m, err := g.fetchModule(ctx, id, "")
			if err != nil {
				g.recordErr(err)
				return
			}
			m.EntryPointKind = EntryPointUserSpecified
			m.ChunkAlias = alias
			g.fetchAllDependencies(ctx, m)
		}(id, alias)
	}
	g.wg.Wait()
	return g.firstErr()
}

// recordErr and firstErr collect errors from the recursive fetch
// fan-out, which has no single bounded channel to drain since a module
// can spawn further fetches for as long as new imports keep surfacing.
func (g *Graph) recordErr(err error) {
	g.errMu.Lock()
	defer g.errMu.Unlock()
	g.buildErrs = append(g.buildErrs, err)
}

func (g *Graph) firstErr() error {
	g.errMu.Lock()
	defer g.errMu.Unlock()
	if len(g.buildErrs) == 0 {
		return nil
	}
	return g.buildErrs[0]
}

// fetchModule loads, transforms, and parses a single already-resolved
// module, inserting a placeholder into the graph before any hook
// call so a concurrent caller racing on the same id waits for that
// fetch to finish instead of redoing the work (spec §4.2 step 2: insert
// into moduleById before loading, so recursive imports see it).
func (g *Graph) fetchModule(ctx context.Context, id string, importer string) (*Module, error) {
	g.mu.Lock()
	if m, ok := g.Modules[id]; ok {
		g.mu.Unlock()
		<-m.ready
		return m, m.loadErr
	}
	m := newModule(id, g.GlobalScope)
	g.Modules[id] = m
	g.mu.Unlock()
	defer close(m.ready)

	loadResult, err := g.driver.Load(ctx, id)
	if err != nil {
		m.loadErr = &plugin.HookError{Hook: "load", Cause: err}
		return nil, m.loadErr
	}
	if loadResult.Kind == plugin.Unhandled {
		m.loadErr = fmt.Errorf("no loader handled %q", id)
		return nil, m.loadErr
	}

	transformResult, err := g.driver.Transform(ctx, loadResult.Code, id)
	if err != nil {
		m.loadErr = &plugin.HookError{Hook: "transform", Cause: err}
		return nil, m.loadErr
	}
	code := loadResult.Code
	if transformResult.Kind != plugin.Unhandled {
		code = transformResult.Code
	}

	parsed, err := g.parser.Parse(code, id, g.GlobalScope)
	if err != nil {
		m.loadErr = fmt.Errorf("parsing %s: %w", id, err)
		return nil, m.loadErr
	}

	m.OriginalCode = loadResult.Code
	m.Source = code
	m.AST = parsed.Statements
	m.ModuleScope = parsed.ModuleScope
	m.ExportAllSources = parsed.ExportAllSources
	m.DynamicImportExpressions = parsed.DynamicImports

	for _, imp := range parsed.Imports {
		m.Imports[imp.LocalName] = &ImportBinding{
			LocalName:    imp.LocalName,
			Source:       imp.Source,
			ImportedName: imp.ImportedName,
		}
		if !containsString(m.Sources, imp.Source) {
			m.Sources = append(m.Sources, imp.Source)
		}
	}
	for _, se := range parsed.SideEffectImports {
		m.SideEffectImportsBySource[se.Source] = append(m.SideEffectImportsBySource[se.Source], se)
		if !containsString(m.Sources, se.Source) {
			m.Sources = append(m.Sources, se.Source)
		}
	}
	for _, src := range parsed.ExportAllSources {
		if !containsString(m.Sources, src) {
			m.Sources = append(m.Sources, src)
		}
	}
	for _, exp := range parsed.Exports {
		m.Exports[exp.ExportedName] = exp.Local
	}

	return m, nil
}

// fetchAllDependencies resolves and fetches every static import source
// and every string-literal dynamic import target of m, recursing into
// each new module found (spec §4.2). Every goroutine it spawns joins
// Graph.wg, the single ThreadSafeWaitGroup shared across the whole
// fetch tree rooted at Build, since a deeper module may still be
// Add-ing further work of its own after Build's top-level Wait has
// already started blocking.
func (g *Graph) fetchAllDependencies(ctx context.Context, m *Module) {
	for _, source := range m.Sources {
		g.wg.Add(1)
		go func(source string) {
			defer g.wg.Done()
			if err := g.resolveAndFetch(ctx, source, m); err != nil {
				g.recordErr(err)
			}
		}(source)
	}

	for i, dyn := range m.DynamicImportExpressions {
		g.wg.Add(1)
		go func(i int, dyn *jsast.EImportCall) {
			defer g.wg.Done()
			if err := g.resolveDynamicImport(ctx, dyn, m, i); err != nil {
				g.recordErr(err)
			}
		}(i, dyn)
	}
}

// isRelativeSpecifier reports whether source names a path relative to
// its importer, matching the convention cmd/bundle's filesystem driver
// resolves by (a bare specifier like "lodash" is not relative).
func isRelativeSpecifier(source string) bool {
	return strings.HasPrefix(source, ".") || strings.HasPrefix(source, "/")
}

func (g *Graph) resolveAndFetch(ctx context.Context, source string, importer *Module) error {
	result, err := g.driver.ResolveID(ctx, source, importer.ID)
	if err != nil {
		return &plugin.HookError{Hook: "resolveId", Cause: err}
	}

	if result.Kind == plugin.Unhandled {
		if isRelativeSpecifier(source) {
			g.log.AddErrorWithID(nil, logger.Loc{}, logger.MsgID_UnresolvedImport, fmt.Sprintf("could not resolve %q from %q", source, importer.ID))
			return nil
		}
		// A bare specifier nothing resolved is treated as implicitly
		// external rather than a fatal error (spec §4.2/§7).
		g.log.AddWarningWithID(nil, logger.Loc{}, logger.MsgID_UnresolvedImport, fmt.Sprintf("could not resolve %q from %q, treating as external", source, importer.ID))
		importer.Lock()
		importer.ResolvedIDs[source] = source
		importer.Unlock()
		g.markExternalImport(source, source, importer)
		g.backfillSideEffectImport(importer, source, source, true)
		return nil
	}
	if result.Kind == plugin.ExplicitExternal || result.External {
		importer.Lock()
		importer.ResolvedIDs[source] = result.ID
		importer.Unlock()
		g.markExternalImport(result.ID, source, importer)
		g.backfillSideEffectImport(importer, source, result.ID, true)
		return nil
	}
	importer.Lock()
	importer.ResolvedIDs[source] = result.ID
	importer.Unlock()
	g.backfillSideEffectImport(importer, source, result.ID, false)

	dep, err := g.fetchModule(ctx, result.ID, importer.ID)
	if err != nil {
		return err
	}
	g.fetchAllDependencies(ctx, dep)
	return nil
}

// backfillSideEffectImport fills in the resolution of every bare
// `import "source"` AST node importer holds for that exact specifier,
// mirroring how resolveDynamicImport backfills EImportCall in place.
func (g *Graph) backfillSideEffectImport(importer *Module, source, moduleID string, isExternal bool) {
	importer.Lock()
	defer importer.Unlock()
	for _, se := range importer.SideEffectImportsBySource[source] {
		se.ModuleID = moduleID
		se.IsExternal = isExternal
	}
}

// markExternalImport records that importer imports source (now resolved
// to an external id) so warnUnusedImports (C6) can later check whether
// the binder ever bound a reference to it.
func (g *Graph) markExternalImport(externalID, source string, importer *Module) {
	ext := g.externalModule(externalID)
	for _, binding := range importer.Imports {
		if binding.Source == source {
			ext.RecordImport(binding.ImportedName)
		}
	}
}

func (g *Graph) externalModule(id string) *ExternalModule {
	g.mu.Lock()
	defer g.mu.Unlock()
	ext, ok := g.ExternalModules[id]
	if !ok {
		ext = newExternalModule(id)
		g.ExternalModules[id] = ext
	}
	return ext
}

// resolveDynamicImport handles a single import() call site (spec §4.2 /
// §4.5): a non-string specifier is left as an opaque rewrite target, a
// string specifier is resolved and, if internal, fetched and recursed
// into; the discovered module becomes its own entry point unless it is
// already reachable statically.
func (g *Graph) resolveDynamicImport(ctx context.Context, dyn *jsast.EImportCall, importer *Module, index int) error {
	isStringLiteral := dyn.Specifier != ""
	result, err := g.driver.ResolveDynamicImport(ctx, dyn.Specifier, isStringLiteral, importer.ID)
	if err != nil {
		return &plugin.HookError{Hook: "resolveDynamicImport", Cause: err}
	}

	importer.Lock()
	for len(importer.DynamicImportResolutions) <= index {
		importer.DynamicImportResolutions = append(importer.DynamicImportResolutions, DynamicImportResolution{})
	}
	importer.Unlock()

	if result.Kind == plugin.Unhandled || result.NonStringRewrite {
		importer.Lock()
		importer.DynamicImportResolutions[index] = DynamicImportResolution{}
		importer.Unlock()
		return nil
	}

	importer.Lock()
	importer.DynamicImportResolutions[index] = DynamicImportResolution{
		ResolvedID: result.ResolvedID,
		IsExternal: result.IsExternal,
	}
	dyn.ResolvedModuleID = result.ResolvedID
	dyn.IsExternal = result.IsExternal
	importer.Unlock()

	if result.IsExternal {
		g.externalModule(result.ResolvedID)
		return nil
	}

	dep, err := g.fetchModule(ctx, result.ResolvedID, importer.ID)
	if err != nil {
		return err
	}

	g.mu.Lock()
	if dep.EntryPointKind == EntryPointNone {
		dep.EntryPointKind = EntryPointDynamicImport
		g.EntryModuleIDs = append(g.EntryModuleIDs, dep.ID)
	}
	g.mu.Unlock()

	g.fetchAllDependencies(ctx, dep)
	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
