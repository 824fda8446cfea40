// Package treeshake implements the fixed-point dead-code marking pass
// (spec §4.6, component C6): repeatedly ask every module to include
// whatever its already-included statements now require, until a full
// pass changes nothing. Grounded on evanw-esbuild's tree shaking in
// linker.go, which drives the same "keep visiting until stable" loop
// over its Part graph; here the unit is a whole top-level jsast.Stmt
// rather than an esbuild Part.
package treeshake

import (
	"sort"

	"github.com/modulegraph/bundlecore/internal/graph"
	"github.com/modulegraph/bundlecore/internal/jsast"
	"github.com/modulegraph/bundlecore/internal/logger"
)

// Shaker runs the marking pass over an already-ordered, already-linked
// graph.
type Shaker struct {
	g      *graph.Graph
	log    logger.Log
	policy jsast.EffectPolicy
}

func NewShaker(g *graph.Graph, log logger.Log, policy jsast.EffectPolicy) *Shaker {
	return &Shaker{g: g, log: log, policy: policy}
}

// Mark runs the fixed-point loop over orderedModuleIDs: the declaration
// behind every export of an entry-point module is always included, and
// everything else is included transitively
// through Stmt.Include's reference-driven decision (spec §4.6 invariant
// 3: "an unreferenced top-level declaration with no side effects is
// excluded"). It returns once a full pass over every module makes no
// further inclusion changes.
func (s *Shaker) Mark(orderedModuleIDs []string) {
	for _, id := range orderedModuleIDs {
		m, ok := s.g.Modules[id]
		if !ok {
			continue
		}
		if m.IsEntryPoint() {
			s.markPublicExports(m)
		}
	}

	for {
		changed := false
		for _, id := range orderedModuleIDs {
			m, ok := s.g.Modules[id]
			if !ok {
				continue
			}
			for _, stmt := range m.AST {
				if stmt.Include(s.policy) {
					changed = true
				}
			}
			changed = s.markNamespaceImports(m) || changed
		}
		if !changed {
			break
		}
	}

	externalIDs := make([]string, 0, len(s.g.ExternalModules))
	for id := range s.g.ExternalModules {
		externalIDs = append(externalIDs, id)
	}
	sort.Strings(externalIDs)
	for _, id := range externalIDs {
		ext := s.g.ExternalModules[id]
		for _, name := range ext.UnusedImports() {
			s.log.AddWarningWithID(nil, logger.Loc{}, logger.MsgID_UnusedExternalImport,
				"import \""+name+"\" from \""+ext.ID+"\" is never used")
		}
	}
}

// markPublicExports force-includes the declaration behind every export
// of an entry-point module, since an entry point's public surface must
// always be present in the bundle regardless of whether anything
// inside the graph itself references it (spec §4.6).
func (s *Shaker) markPublicExports(m *graph.Module) {
	for _, v := range m.Exports {
		if fi, ok := v.DeclStmt.(forceIncluder); ok {
			fi.ForceInclude()
			v.Included = true
		}
	}
}

// markNamespaceImports force-includes every export of a module that is
// the target of a `import * as ns` namespace import once that
// namespace binding itself is referenced (spec GLOSSARY: "Namespace
// import ... forces inclusion of every export of the target module").
// It reports whether this changed anything so the caller's fixed-point
// loop keeps iterating.
func (s *Shaker) markNamespaceImports(m *graph.Module) bool {
	changed := false
	for _, stmt := range m.AST {
		expr, ok := stmt.(*jsast.SExpressionStatement)
		if !ok {
			continue
		}
		ns, ok := expr.Expr.(*jsast.ENamespaceImport)
		if !ok || !stmt.IsIncluded() {
			continue
		}
		target, ok := s.g.Modules[ns.ModuleID]
		if !ok {
			continue
		}
		if ns.AllExportVariables == nil {
			for _, v := range target.Exports {
				ns.AllExportVariables = append(ns.AllExportVariables, v)
			}
		}
		for _, v := range ns.AllExportVariables {
			if v.DeclStmt != nil && v.DeclStmt.Include(s.policy) {
				changed = true
			}
		}
	}
	return changed
}

// forceIncluder is implemented by every jsast.Stmt variant via the
// embedded baseStmt.
type forceIncluder interface {
	ForceInclude()
}

// IncludeAllInBundle bypasses the marking pass entirely, including
// every statement in every reachable module unconditionally (spec
// §4.6: the treeshake.enabled=false fallback).
func (s *Shaker) IncludeAllInBundle(orderedModuleIDs []string) {
	for _, id := range orderedModuleIDs {
		m, ok := s.g.Modules[id]
		if !ok {
			continue
		}
		for _, stmt := range m.AST {
			if fi, ok := stmt.(forceIncluder); ok {
				fi.ForceInclude()
			}
			for _, v := range stmt.DeclaredVariables() {
				v.Included = true
			}
		}
	}
}
