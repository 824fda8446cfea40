// Package order implements the execution-order analyzer (spec §4.5,
// component C5): a single topological module order consistent with ES
// module evaluation semantics (a module's static dependencies execute
// before the module itself), cycle detection with reported paths, and
// entry-reachability propagation via bitsets that the chunk partitioner
// (C7) later groups by. Grounded on evanw-esbuild's linker.go, which
// walks the same static-import graph to build a "part order" and a
// per-file EntryBits value using the same repo's helpers.BitSet.
package order

import (
	"path/filepath"
	"strings"

	"github.com/modulegraph/bundlecore/internal/graph"
	"github.com/modulegraph/bundlecore/internal/helpers"
	"github.com/modulegraph/bundlecore/internal/logger"
)

// Cycle is one detected circular static-import chain, reported as the
// sequence of module ids from the module where the cycle was
// discovered back around to itself.
type Cycle struct {
	Path []string
}

// DynamicImportFrontier is one module reachable only through a dynamic
// import(), paired with the alias it will be output under (spec §4.5:
// "dynamicImports[]" / "dynamicImportAliases[]").
type DynamicImportFrontier struct {
	ModuleID string
	Alias    string
}

// Result is everything the tree-shaker and chunk partitioner need out
// of the order analysis.
type Result struct {
	// OrderedModuleIDs is a single global order: every static dependency
	// of a module precedes it, and a module shared by multiple entry
	// points appears exactly once, at the position its first reaching
	// entry point would evaluate it.
	OrderedModuleIDs []string

	Cycles []Cycle

	DynamicImports []DynamicImportFrontier

	// DistanceFromEntryPoint is also written back onto each graph.Module.
}

type Analyzer struct {
	g   *graph.Graph
	log logger.Log
}

func NewAnalyzer(g *graph.Graph, log logger.Log) *Analyzer {
	return &Analyzer{g: g, log: log}
}

// Analyze runs the full C5 pass: order, cycles, entry-bit propagation,
// distances, and dynamic-import frontier collection.
func (a *Analyzer) Analyze() *Result {
	result := &Result{}

	a.assignEntryPointsHash()
	a.computeDistances()

	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var order []string
	var cycles []Cycle

	var visit func(id string, stack []string)
	visit = func(id string, stack []string) {
		if visited[id] {
			return
		}
		if onStack[id] {
			start := 0
			for k, s := range stack {
				if s == id {
					start = k
					break
				}
			}
			cycle := append(append([]string{}, stack[start:]...), id)
			cycles = append(cycles, Cycle{Path: cycle})
			a.log.AddWarningWithID(nil, logger.Loc{}, logger.MsgID_CircularDependency,
				"circular dependency: "+strings.Join(cycle, " -> "))
			return
		}
		m, ok := a.g.Modules[id]
		if !ok {
			return // external
		}
		onStack[id] = true
		nextStack := append(stack, id)
		for _, src := range m.Sources {
			depID, ok := m.ResolvedIDs[src]
			if !ok {
				continue
			}
			visit(depID, nextStack)
		}
		onStack[id] = false
		visited[id] = true
		order = append(order, id)
	}

	for _, id := range a.g.EntryModuleIDs {
		visit(id, nil)
	}

	result.OrderedModuleIDs = order
	result.Cycles = cycles
	result.DynamicImports = a.dynamicImportFrontier()
	return result
}

// assignEntryPointsHash gives each entry point its own bit, then
// propagates it via DFS over the static import graph into every module
// that entry point can reach (spec §4.5: entryPointsHash as "any
// commutative combiner", realized here as bitset OR).
func (a *Analyzer) assignEntryPointsHash() {
	n := uint(len(a.g.EntryModuleIDs))
	if n == 0 {
		return
	}
	for idx, entryID := range a.g.EntryModuleIDs {
		visited := make(map[string]bool)
		var mark func(id string)
		mark = func(id string) {
			if visited[id] {
				return
			}
			visited[id] = true
			m, ok := a.g.Modules[id]
			if !ok {
				return
			}
			if m.EntryPointsHash.String() == "" {
				m.EntryPointsHash = helpers.NewBitSet(n)
			}
			m.EntryPointsHash.SetBit(uint(idx))
			for _, src := range m.Sources {
				if depID, ok := m.ResolvedIDs[src]; ok {
					mark(depID)
				}
			}
		}
		mark(entryID)
	}
}

// computeDistances runs a BFS from the full set of entry points at once
// so DistanceFromEntryPoint on a shared module reflects the shortest
// path from any entry, not just the first one visited.
func (a *Analyzer) computeDistances() {
	type queued struct {
		id       string
		distance uint32
	}
	seen := make(map[string]bool)
	var queue []queued
	for _, id := range a.g.EntryModuleIDs {
		queue = append(queue, queued{id: id, distance: 0})
	}
	for len(queue) > 0 {
		head := queue[0]
		queue = queue[1:]
		if seen[head.id] {
			continue
		}
		seen[head.id] = true
		m, ok := a.g.Modules[head.id]
		if !ok {
			continue
		}
		m.DistanceFromEntryPoint = head.distance
		for _, src := range m.Sources {
			if depID, ok := m.ResolvedIDs[src]; ok && !seen[depID] {
				queue = append(queue, queued{id: depID, distance: head.distance + 1})
			}
		}
	}
}

// dynamicImportFrontier lists every module the loader promoted to an
// entry point because it was only reached via import(), assigning each
// a stable output alias derived from its file name.
func (a *Analyzer) dynamicImportFrontier() []DynamicImportFrontier {
	used := make(map[string]bool)
	var frontier []DynamicImportFrontier
	for _, id := range a.g.EntryModuleIDs {
		m, ok := a.g.Modules[id]
		if !ok || m.EntryPointKind != graph.EntryPointDynamicImport {
			continue
		}
		alias := uniqueAlias(aliasFromID(id), used)
		m.ChunkAlias = alias
		frontier = append(frontier, DynamicImportFrontier{ModuleID: id, Alias: alias})
	}
	return frontier
}

func aliasFromID(id string) string {
	base := filepath.Base(id)
	ext := filepath.Ext(base)
	return strings.TrimSuffix(base, ext)
}

func uniqueAlias(base string, used map[string]bool) string {
	if !used[base] {
		used[base] = true
		return base
	}
	for i := 2; ; i++ {
		candidate := base + string(rune('0'+i%10))
		if !used[candidate] {
			used[candidate] = true
			return candidate
		}
	}
}
