// Package binder implements the two-pass linker (spec §4.4, component
// C4): resolve every import binding to the Variable it actually
// refers to in the exporting module, flatten `export *` chains, then
// walk every module's statements to bind identifier references against
// the now-complete scope. It is grounded on evanw-esbuild's linker.go,
// which performs the same two-phase "resolve exports across files,
// then rewrite/bind identifier references" shape for a much larger AST.
package binder

import (
	"fmt"
	"sort"

	"github.com/modulegraph/bundlecore/internal/graph"
	"github.com/modulegraph/bundlecore/internal/jsast"
	"github.com/modulegraph/bundlecore/internal/logger"
)

// sortedModuleIDs returns every module id in g, sorted, so passes that
// can emit diagnostics never depend on Go's randomized map iteration
// order for their output order.
func sortedModuleIDs(g *graph.Graph) []string {
	ids := make([]string, 0, len(g.Modules))
	for id := range g.Modules {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Linker runs linkDependencies and bindReferences over a graph.Graph
// that the loader (C2) has already fully populated.
type Linker struct {
	g                  *graph.Graph
	log                logger.Log
	shimMissingExports bool
}

func NewLinker(g *graph.Graph, log logger.Log, shimMissingExports bool) *Linker {
	return &Linker{g: g, log: log, shimMissingExports: shimMissingExports}
}

// Link runs both passes in order. bindReferences must run after
// linkDependencies for every module has settled, since a statement in
// one module can reference an import bound to a variable that only
// becomes resolvable once its exporting module's own exports (possibly
// re-exported yet again) have been flattened.
func (l *Linker) Link() error {
	if err := l.linkDependencies(); err != nil {
		return err
	}
	l.bindReferences()
	return nil
}

// linkDependencies flattens each module's `export *` sources into
// ExportsAll and resolves every ImportBinding.Resolved, in dependency
// order so a module's own ExportsAll is complete before any importer
// consults it. Modules participating in an import cycle are linked in
// whatever order iteration finds them; a cycle only breaks correctness
// here if two modules re-export * from each other with genuinely
// conflicting names, which is caught by the namespace-conflict check
// below regardless of visit order.
func (l *Linker) linkDependencies() error {
	visited := make(map[string]bool)
	var visit func(id string) error
	visit = func(id string) error {
		if visited[id] {
			return nil
		}
		visited[id] = true
		m, ok := l.g.Modules[id]
		if !ok {
			return nil // external, nothing to flatten
		}
		for _, src := range m.ExportAllSources {
			depID := m.ResolvedIDs[src]
			if depID == "" {
				continue
			}
			if err := visit(depID); err != nil {
				return err
			}
		}
		l.flattenExportAll(m)
		return nil
	}

	for _, id := range l.g.EntryModuleIDs {
		if err := visit(id); err != nil {
			return err
		}
	}
	// A module reachable only as a plain static dependency (never an
	// export-all source) still needs its own exports flattened so its
	// own re-exports resolve; walk every remaining module too, in a
	// fixed order so NAMESPACE_CONFLICT warnings come out the same way
	// on every run.
	for _, id := range sortedModuleIDs(l.g) {
		if err := visit(id); err != nil {
			return err
		}
	}

	for _, id := range sortedModuleIDs(l.g) {
		m := l.g.Modules[id]
		for _, binding := range m.Imports {
			l.resolveImportBinding(m, binding)
		}
	}
	return nil
}

// flattenExportAll merges each `export * from '...'` source's exports
// (own plus already-flattened ExportsAll) into m.ExportsAll, skipping
// "default" per the ECMAScript export-all rule, and reporting a
// NAMESPACE_CONFLICT warning the first time two different sources
// disagree on the same exported name (spec §4.4).
func (l *Linker) flattenExportAll(m *graph.Module) {
	for _, src := range m.ExportAllSources {
		depID, ok := m.ResolvedIDs[src]
		if !ok {
			continue
		}
		dep, ok := l.g.Modules[depID]
		if !ok {
			continue // export * from an external module contributes nothing statically
		}
		for name := range dep.Exports {
			l.mergeExportAllName(m, name, depID)
		}
		for name, originID := range dep.ExportsAll {
			l.mergeExportAllName(m, name, originID)
		}
	}
}

func (l *Linker) mergeExportAllName(m *graph.Module, name, originID string) {
	if name == "default" {
		return
	}
	if _, ownExport := m.Exports[name]; ownExport {
		return // an explicit export always wins over a re-exported one
	}
	if existing, ok := m.ExportsAll[name]; ok {
		if existing != originID {
			l.log.AddWarningWithID(nil, logger.Loc{}, logger.MsgID_NamespaceConflict,
				fmt.Sprintf("%q re-exports %q from both %q and %q; the first is used", m.ID, name, existing, originID))
		}
		return
	}
	m.ExportsAll[name] = originID
}

// resolveImportBinding sets binding.Resolved to the Variable the
// imported name actually refers to in its resolved source, following
// re-export chains as needed, and aliases it into the importing
// module's own scope under the local binding name so bindReferences
// can resolve identifiers normally.
func (l *Linker) resolveImportBinding(m *graph.Module, binding *graph.ImportBinding) {
	depID, ok := m.ResolvedIDs[binding.Source]
	if !ok {
		return
	}

	dep, ok := l.g.Modules[depID]
	if !ok {
		// External dependency: no cross-module Variable exists. Leave
		// Resolved nil; codegen (out of scope) is responsible for
		// emitting a reference to the external namespace directly.
		return
	}

	if binding.ImportedName == "*" {
		v := m.ModuleScope.Declare(binding.LocalName, jsast.VariableImport)
		binding.Resolved = v
		return
	}

	v, ok := dep.Exports[binding.ImportedName]
	if !ok {
		if originID, ok := dep.ExportsAll[binding.ImportedName]; ok {
			if origin, ok := l.g.Modules[originID]; ok {
				v = origin.Exports[binding.ImportedName]
			}
		}
	}

	if v == nil {
		if l.shimMissingExports {
			v = m.ModuleScope.ShimMissingExportVariable()
		} else {
			l.log.AddErrorWithID(nil, logger.Loc{}, logger.MsgID_UnresolvedImport,
				fmt.Sprintf("%q has no export named %q, imported from %q", depID, binding.ImportedName, m.ID))
			return
		}
	}

	binding.Resolved = v
	m.ModuleScope.Alias(binding.LocalName, v)
}

// bindReferences walks every module's top-level statements now that
// every import binding is resolvable through the module's own scope,
// re-running Stmt.Bind so identifier expressions capture their final
// *jsast.Variable (spec §4.4: "walks statements binding every
// identifier to its Variable").
func (l *Linker) bindReferences() {
	for _, id := range sortedModuleIDs(l.g) {
		m := l.g.Modules[id]
		for _, stmt := range m.AST {
			stmt.Bind(m.ModuleScope)
		}
	}
}
