package scanjs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modulegraph/bundlecore/internal/jsast"
	"github.com/modulegraph/bundlecore/internal/scanjs"
)

func TestParseExtractsNamedAndDefaultImports(t *testing.T) {
	global := jsast.NewGlobalScope()
	scope := jsast.NewChildScope(global)
	code := `import Foo, { bar, baz as qux } from "./lib";
import * as ns from "./ns";
import "./polyfill";
`
	result, err := scanjs.New().Parse(code, "main.js", scope)
	require.NoError(t, err)
	require.Len(t, result.Imports, 4)

	byLocal := map[string]string{}
	for _, imp := range result.Imports {
		byLocal[imp.LocalName] = imp.ImportedName
	}
	assert.Equal(t, "default", byLocal["Foo"])
	assert.Equal(t, "bar", byLocal["bar"])
	assert.Equal(t, "baz", byLocal["qux"])
	assert.Equal(t, "*", byLocal["ns"])

	require.Len(t, result.SideEffectImports, 1)
	assert.Equal(t, "./polyfill", result.SideEffectImports[0].Source)
}

func TestParseExtractsLocalAndDefaultExports(t *testing.T) {
	global := jsast.NewGlobalScope()
	scope := jsast.NewChildScope(global)
	code := `export const value = 5;
export function helper() { return value; }
export default helper;
`
	result, err := scanjs.New().Parse(code, "lib.js", scope)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, exp := range result.Exports {
		names[exp.ExportedName] = true
		assert.NotNil(t, exp.Local)
	}
	assert.True(t, names["value"])
	assert.True(t, names["helper"])
	assert.True(t, names["default"])
}

func TestParseResolvesDeferredExportList(t *testing.T) {
	global := jsast.NewGlobalScope()
	scope := jsast.NewChildScope(global)
	code := `export { a, b as c };
function a() {}
const b = 1;
`
	result, err := scanjs.New().Parse(code, "lib.js", scope)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, exp := range result.Exports {
		names[exp.ExportedName] = true
	}
	assert.True(t, names["a"])
	assert.True(t, names["c"])
}

func TestParseFlattensExportStar(t *testing.T) {
	global := jsast.NewGlobalScope()
	scope := jsast.NewChildScope(global)
	code := `export * from "./utils";
export * as extras from "./extras";
`
	result, err := scanjs.New().Parse(code, "index.js", scope)
	require.NoError(t, err)
	assert.Contains(t, result.ExportAllSources, "./utils")
	assert.Contains(t, result.ExportAllSources, "./extras")
}

func TestParseFindsDynamicImportInsideFunctionBody(t *testing.T) {
	global := jsast.NewGlobalScope()
	scope := jsast.NewChildScope(global)
	code := `function load() {
  return import("./lazy").then(m => m.run());
}
`
	result, err := scanjs.New().Parse(code, "loader.js", scope)
	require.NoError(t, err)
	require.Len(t, result.DynamicImports, 1)
	assert.Equal(t, "./lazy", result.DynamicImports[0].Specifier)
}

func TestParseKeepsDistinctBareImportsSeparate(t *testing.T) {
	global := jsast.NewGlobalScope()
	scope := jsast.NewChildScope(global)
	code := `import "polyfill-a";
import "polyfill-b";
`
	result, err := scanjs.New().Parse(code, "main.js", scope)
	require.NoError(t, err)
	require.Len(t, result.SideEffectImports, 2)
	assert.Equal(t, "polyfill-a", result.SideEffectImports[0].Source)
	assert.Equal(t, "polyfill-b", result.SideEffectImports[1].Source)

	require.Len(t, result.Statements, 2)
	for i, stmt := range result.Statements {
		expr, ok := stmt.(*jsast.SExpressionStatement)
		require.True(t, ok)
		assert.Same(t, result.SideEffectImports[i], expr.Expr)
	}
}

func TestParseTreatsUnrecognizedTopLevelCodeAsHavingEffects(t *testing.T) {
	global := jsast.NewGlobalScope()
	scope := jsast.NewChildScope(global)
	code := `console.log("side effect");`
	result, err := scanjs.New().Parse(code, "main.js", scope)
	require.NoError(t, err)
	require.Len(t, result.Statements, 1)
	assert.True(t, result.Statements[0].HasEffects(jsast.EffectPolicy{}))
}
