package testfixture_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modulegraph/bundlecore/internal/binder"
	"github.com/modulegraph/bundlecore/internal/buildopts"
	"github.com/modulegraph/bundlecore/internal/chunker"
	"github.com/modulegraph/bundlecore/internal/graph"
	"github.com/modulegraph/bundlecore/internal/jsast"
	"github.com/modulegraph/bundlecore/internal/logger"
	"github.com/modulegraph/bundlecore/internal/order"
	"github.com/modulegraph/bundlecore/internal/testfixture"
	"github.com/modulegraph/bundlecore/internal/treeshake"
)

// TestFullPipelineTreeShakesAnUnusedExport runs C2 through C7 over a
// small virtual project: main.js imports one named export from lib.js,
// lib.js also exports an unused helper. The unused export's declaration
// must not survive tree-shaking, and the used one must.
func TestFullPipelineTreeShakesAnUnusedExport(t *testing.T) {
	host := testfixture.NewHost()
	host.Files["src/main.js"] = `import { used } from "./lib";
console.log(used);
`
	host.Files["src/lib.js"] = `export const used = 1;
export const unused = 2;
`

	log := logger.NewDeferLog()
	opts := &buildopts.Options{
		Input:     map[string]string{"main": "src/main.js"},
		Treeshake: buildopts.DefaultTreeshake(),
	}

	g := graph.NewGraph(host, testfixture.Parser(), opts, log, nil)
	require.NoError(t, g.Build(context.Background()))

	linker := binder.NewLinker(g, log, false)
	require.NoError(t, linker.Link())

	analysis := order.NewAnalyzer(g, log).Analyze()
	require.Empty(t, analysis.Cycles)

	shaker := treeshake.NewShaker(g, log, jsast.EffectPolicy{PropertyReadSideEffects: true})
	shaker.Mark(analysis.OrderedModuleIDs)

	lib := g.Modules["src/lib.js"]
	require.NotNil(t, lib)
	usedVar := lib.Exports["used"]
	unusedVar := lib.Exports["unused"]
	require.NotNil(t, usedVar)
	require.NotNil(t, unusedVar)
	assert.True(t, usedVar.DeclStmt.IsIncluded())
	assert.False(t, unusedVar.DeclStmt.IsIncluded())

	chunks := chunker.NewPartitioner(g, chunker.Options{}).Partition(analysis.OrderedModuleIDs)
	require.Len(t, chunks, 1)
	assert.False(t, log.HasErrors())
}

// TestFullPipelineFlagsMissingImportAsError exercises the loader's
// error path when a relative static import cannot be resolved by any
// driver hook.
func TestFullPipelineFlagsMissingImportAsError(t *testing.T) {
	host := testfixture.NewHost()
	host.Files["src/main.js"] = `import { missing } from "./absent";
console.log(missing);
`

	log := logger.NewDeferLog()
	opts := &buildopts.Options{Input: map[string]string{"main": "src/main.js"}}
	g := graph.NewGraph(host, testfixture.Parser(), opts, log, nil)

	require.NoError(t, g.Build(context.Background()))
	assert.True(t, log.HasErrors())
}
