// Package graph implements the data model of spec §3 and the module
// loader of spec §4.2 (components C2 and the shared Module/Graph
// structures the rest of the core operates on). It is grounded on
// evanw-esbuild's internal/graph package, which solves the same
// "file scanned so far" bookkeeping problem with its LinkerFile /
// EntryBits types, generalized here to the fetch-then-link pipeline
// spec.md describes rather than esbuild's own parse-ahead-of-time one.
package graph

import (
	"sort"
	"sync"

	"github.com/modulegraph/bundlecore/internal/helpers"
	"github.com/modulegraph/bundlecore/internal/jsast"
)

// ImportBinding is one entry of a Module's `imports` map (spec §3):
// local binding name -> {source specifier, imported name}.
type ImportBinding struct {
	LocalName    string
	Source       string
	ImportedName string // "*" for a namespace import, "default" for a default import

	// Resolved once linkDependencies (C4) runs.
	Resolved *jsast.Variable
}

// DynamicImportResolution is the parallel array to
// Module.DynamicImportExpressions (spec §3).
type DynamicImportResolution struct {
	ResolvedID string
	IsExternal bool
	Alias      string // not filled in by any pass; a dynamic entry's alias is on the target Module.ChunkAlias and in order.Result.DynamicImports
}

// EntryPointKind distinguishes a user-specified entry from one
// discovered only through a dynamic import (spec §4.5, grounded on
// evanw-esbuild's graph.EntryPointKind / EntryPointUserSpecified /
// EntryPointDynamicImport).
type EntryPointKind uint8

const (
	EntryPointNone EntryPointKind = iota
	EntryPointUserSpecified
	EntryPointDynamicImport
)

// Module is a loaded source file (spec §3). It is mutated only by the
// loader while fetching, then by the binder, order analyzer, and
// tree-shaker in sequence — never concurrently once fetch completes.
type Module struct {
	ID string

	Source       string
	OriginalCode string
	AST          []jsast.Stmt
	ModuleScope  *jsast.Scope

	// Literal specifiers in source order, and their resolutions.
	Sources     []string
	ResolvedIDs map[string]string

	Imports          map[string]*ImportBinding
	Exports          map[string]*jsast.Variable
	ExportAllSources []string

	// SideEffectImportsBySource holds every bare `import "specifier"`
	// AST node found in this module, keyed by its literal specifier so
	// distinct bare imports of different specifiers never collide (spec
	// §4.6). The loader backfills ModuleID/IsExternal on each entry once
	// that specifier's resolution settles.
	SideEffectImportsBySource map[string][]*jsast.EImportForSideEffect

	// Flattened after link (spec §3): exported name -> originating module id.
	ExportsAll map[string]string

	DynamicImportExpressions []*jsast.EImportCall
	DynamicImportResolutions []DynamicImportResolution

	EntryPointKind  EntryPointKind
	ChunkAlias      string
	EntryPointsHash helpers.BitSet
	Chunk           *Chunk

	// Populated by the execution-order analyzer (C5).
	DistanceFromEntryPoint uint32

	TransformAssets      []string
	CustomTransformCache bool

	// ready closes once fetchModule has finished loading this module, so
	// a concurrent caller that finds the placeholder already in
	// Graph.Modules waits for the real fetch instead of redoing it.
	ready   chan struct{}
	loadErr error

	mu sync.Mutex
}

func (m *Module) IsEntryPoint() bool { return m.EntryPointKind != EntryPointNone }

// HasIncludedStatements reports whether tree-shaking left at least one
// top-level statement in this module's AST marked included. A module
// tree-shaken down to nothing has no output surface left to give a
// chunk of its own.
func (m *Module) HasIncludedStatements() bool {
	for _, stmt := range m.AST {
		if stmt.IsIncluded() {
			return true
		}
	}
	return false
}

// Lock/Unlock let the concurrent static+dynamic dependency fan-out in
// fetchAllDependencies (spec §4.2) safely append to this module's
// per-import bookkeeping without a data race, while every later pass
// (link, order, mark, chunk) runs single-threaded and needs no locking.
func (m *Module) Lock()   { m.mu.Lock() }
func (m *Module) Unlock() { m.mu.Unlock() }

func newModule(id string, globalScope *jsast.Scope) *Module {
	return &Module{
		ID:                        id,
		ResolvedIDs:               make(map[string]string),
		Imports:                   make(map[string]*ImportBinding),
		Exports:                   make(map[string]*jsast.Variable),
		ExportsAll:                make(map[string]string),
		SideEffectImportsBySource: make(map[string][]*jsast.EImportForSideEffect),
		ModuleScope:               jsast.NewChildScope(globalScope),
		ready:                     make(chan struct{}),
	}
}

// ExternalModule stands in for an id the host declares external (spec
// §3). It never has an AST; it only tracks the shape of what's
// imported from it so warnUnusedImports (C6) has something to check.
type ExternalModule struct {
	ID               string
	ExportsNamespace bool

	// importedName -> true once bound to at least one reference.
	usedImports map[string]bool
	// importedName -> true once any module imports it, for
	// UNUSED_EXTERNAL_IMPORT reporting.
	declaredImports map[string]bool

	mu sync.Mutex
}

// NewExternalModule constructs an ExternalModule ready for RecordImport
// / MarkUsed calls, for callers assembling a Graph outside of Build
// (tests, or a host that pre-declares its externals).
func NewExternalModule(id string) *ExternalModule {
	return newExternalModule(id)
}

func newExternalModule(id string) *ExternalModule {
	return &ExternalModule{
		ID:              id,
		usedImports:     make(map[string]bool),
		declaredImports: make(map[string]bool),
	}
}

// RecordImport tracks that some module imported importedName from this
// external module (used purely for the unused-import warning; external
// modules never contribute bindings to the linker beyond a sentinel).
func (e *ExternalModule) RecordImport(importedName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.declaredImports[importedName] = true
}

func (e *ExternalModule) MarkUsed(importedName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.usedImports[importedName] = true
}

// UnusedImports returns every declared import binding that was never
// referenced (spec §4.6: ExternalModule.warnUnusedImports).
func (e *ExternalModule) UnusedImports() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var unused []string
	for name := range e.declaredImports {
		if !e.usedImports[name] {
			unused = append(unused, name)
		}
	}
	sort.Strings(unused)
	return unused
}
