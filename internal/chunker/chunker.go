// Package chunker implements the chunk partitioner (spec §5, component
// C7): group included modules into output chunks by shared
// entry-reachability, synthesize facade chunks for entry points that
// land inside a shared chunk, and collapse everything into the entry's
// own chunk when inlineDynamicImports is set. Grounded on
// evanw-esbuild's chunk assignment in linker.go, which buckets files by
// the same EntryBits equality test used here.
package chunker

import (
	"github.com/modulegraph/bundlecore/internal/graph"
)

// Options mirrors the subset of buildopts.Options the partitioner
// consults.
type Options struct {
	PreserveModules      bool
	InlineDynamicImports bool
	ManualChunks         map[string][]string // chunk name -> module ids forced into it
}

type Partitioner struct {
	g    *graph.Graph
	opts Options
}

func NewPartitioner(g *graph.Graph, opts Options) *Partitioner {
	return &Partitioner{g: g, opts: opts}
}

// Partition assigns every included module a *graph.Chunk and returns
// the full chunk list in a stable order: chunks appear in the order
// their first module appears in orderedModuleIDs (entry order for
// inlineDynamicImports), with any facade chunks appended last, in entry
// order.
func (p *Partitioner) Partition(orderedModuleIDs []string) []*graph.Chunk {
	if p.opts.PreserveModules {
		return p.partitionPreserveModules(orderedModuleIDs)
	}
	if p.opts.InlineDynamicImports {
		return p.partitionInlined(orderedModuleIDs)
	}
	return p.partitionByEntryReachability(orderedModuleIDs)
}

// partitionPreserveModules gives every module its own chunk, named
// after its id, with no facade indirection (spec §5: "preserveModules
// disables all grouping").
func (p *Partitioner) partitionPreserveModules(orderedModuleIDs []string) []*graph.Chunk {
	var chunks []*graph.Chunk
	for _, id := range orderedModuleIDs {
		m := p.g.Modules[id]
		if m == nil {
			continue
		}
		c := &graph.Chunk{Name: id, Modules: []*graph.Module{m}}
		if m.IsEntryPoint() {
			c.EntryModule = m
		}
		m.Chunk = c
		chunks = append(chunks, c)
	}
	return chunks
}

// partitionInlined collapses every module reachable from a given entry
// point (including ones only reachable dynamically) into that entry's
// own chunk, so a dynamic import() never produces a separate output
// file (spec §5.4).
func (p *Partitioner) partitionInlined(orderedModuleIDs []string) []*graph.Chunk {
	moduleIndex := make(map[string]int, len(orderedModuleIDs))
	for i, id := range orderedModuleIDs {
		moduleIndex[id] = i
	}

	var chunks []*graph.Chunk
	for _, entryID := range p.g.EntryModuleIDs {
		entry := p.g.Modules[entryID]
		if entry == nil || entry.EntryPointKind != graph.EntryPointUserSpecified {
			continue
		}
		chunk := &graph.Chunk{Name: entry.ChunkAlias, EntryModule: entry}
		visited := make(map[string]bool)
		var collect func(id string)
		collect = func(id string) {
			if visited[id] {
				return
			}
			visited[id] = true
			m := p.g.Modules[id]
			if m == nil {
				return
			}
			m.Chunk = chunk
			chunk.Modules = append(chunk.Modules, m)
			for _, src := range m.Sources {
				if depID, ok := m.ResolvedIDs[src]; ok {
					collect(depID)
				}
			}
			for _, res := range m.DynamicImportResolutions {
				if res.ResolvedID != "" && !res.IsExternal {
					collect(res.ResolvedID)
				}
			}
		}
		collect(entryID)
		chunks = append(chunks, chunk)
	}
	return chunks
}

// partitionByEntryReachability is the default strategy (spec §5.1–5.3):
// modules sharing the exact same EntryPointsHash are grouped into one
// chunk; a module reachable from more than one entry point (a
// different hash than any single entry alone) becomes its own shared
// chunk; an entry point whose own module ends up grouped with others
// gets a facade chunk that simply re-exports the shared chunk's
// bindings under the entry's name.
func (p *Partitioner) partitionByEntryReachability(orderedModuleIDs []string) []*graph.Chunk {
	byHash := make(map[string]*graph.Chunk)
	var chunkOrder []*graph.Chunk

	manualOwner := make(map[string]string) // module id -> forced chunk name
	for name, ids := range p.opts.ManualChunks {
		for _, id := range ids {
			manualOwner[id] = name
		}
	}
	manualChunks := make(map[string]*graph.Chunk)

	for _, id := range orderedModuleIDs {
		m := p.g.Modules[id]
		if m == nil {
			continue
		}

		_, isManualOwner := manualOwner[id]
		if !m.HasIncludedStatements() && !m.IsEntryPoint() && !isManualOwner {
			continue // tree-shaken down to nothing, no output surface to chunk
		}

		if forcedName, ok := manualOwner[id]; ok {
			c, ok := manualChunks[forcedName]
			if !ok {
				c = &graph.Chunk{Name: forcedName}
				manualChunks[forcedName] = c
				chunkOrder = append(chunkOrder, c)
			}
			c.Modules = append(c.Modules, m)
			m.Chunk = c
			continue
		}

		key := m.EntryPointsHash.String()
		c, ok := byHash[key]
		if !ok {
			c = &graph.Chunk{Name: chunkNameFor(p.g, m)}
			byHash[key] = c
			chunkOrder = append(chunkOrder, c)
		}
		c.Modules = append(c.Modules, m)
		m.Chunk = c
	}

	// orderedModuleIDs visits a module's dependencies before the module
	// itself, so a hash-group chunk's name above may have been taken
	// from an entry's exclusive dependency rather than the entry. Once
	// every module has settled into a chunk, retitle any chunk reachable
	// from exactly one entry point after that entry's own alias, so
	// addEntryFacades below only fires for chunks that genuinely serve
	// more than one entry.
	isManual := make(map[*graph.Chunk]bool, len(manualChunks))
	for _, c := range manualChunks {
		isManual[c] = true
	}
	for _, entryID := range p.g.EntryModuleIDs {
		entry := p.g.Modules[entryID]
		if entry == nil || entry.Chunk == nil || entry.ChunkAlias == "" || isManual[entry.Chunk] {
			continue
		}
		if entry.EntryPointsHash.PopCount() == 1 {
			entry.Chunk.Name = entry.ChunkAlias
		}
	}

	return p.addEntryFacades(chunkOrder, isManual)
}

// chunkNameFor names a new chunk after m, the first module placed in
// it: m's ChunkAlias when m is an entry point with an alias, otherwise
// m's id (a real implementation
// would derive a "shared" or common-prefix name; naming heuristics
// beyond this are outside the graph core's job, per spec §5).
func chunkNameFor(g *graph.Graph, m *graph.Module) string {
	if m.IsEntryPoint() && m.ChunkAlias != "" {
		return m.ChunkAlias
	}
	return m.ID
}

// addEntryFacades ensures every entry point has a chunk of its own to
// point at: if an entry point's module was grouped into a chunk that
// more than one entry point actually reaches, or forced into a manual
// chunk under a different name, synthesize a small facade chunk naming
// the entry, marked as re-exporting the shared chunk (spec §5.3).
func (p *Partitioner) addEntryFacades(chunks []*graph.Chunk, isManual map[*graph.Chunk]bool) []*graph.Chunk {
	for _, entryID := range p.g.EntryModuleIDs {
		entry := p.g.Modules[entryID]
		if entry == nil || entry.Chunk == nil {
			continue
		}
		if len(entry.Chunk.Modules) == 1 && entry.Chunk.Modules[0] == entry {
			continue // the entry already owns a chunk of exactly itself
		}
		if isManual[entry.Chunk] {
			if entry.Chunk.Name == entry.ChunkAlias {
				continue
			}
		} else if entry.EntryPointsHash.PopCount() <= 1 {
			continue // no other entry point reaches this chunk
		}
		facade := &graph.Chunk{
			Name:        entry.ChunkAlias,
			IsFacade:    true,
			FacadeOf:    entry.Chunk,
			EntryModule: entry,
		}
		if facade.Name == "" {
			facade.Name = entry.ID
		}
		chunks = append(chunks, facade)
	}
	return chunks
}
