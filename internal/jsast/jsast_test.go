package jsast_test

import (
	"testing"

	"github.com/modulegraph/bundlecore/internal/jsast"
	"github.com/stretchr/testify/assert"
)

func TestFindVariableIsIdempotent(t *testing.T) {
	global := jsast.NewGlobalScope()
	module := jsast.NewChildScope(global)

	a := module.FindVariable("console")
	b := module.FindVariable("console")
	assert.Same(t, a, b)
}

func TestDeclareShadowsGlobal(t *testing.T) {
	global := jsast.NewGlobalScope()
	module := jsast.NewChildScope(global)

	module.Declare("module", jsast.VariableLocal)
	local := module.FindVariable("module")
	globalModule := global.FindVariable("module")
	assert.NotSame(t, local, globalModule)
}

func TestDeclarationIncludesWhenReferencedFromIncludedStatement(t *testing.T) {
	global := jsast.NewGlobalScope()
	scope := jsast.NewChildScope(global)

	decl := &jsast.SDeclaration{Names: []string{"x"}}
	user := &jsast.SExpressionStatement{Expr: &jsast.ECall{
		Callee: &jsast.EIdentifier{Name: "console"},
		Args:   []jsast.Expr{&jsast.EIdentifier{Name: "x"}},
	}}

	decl.Bind(scope)
	user.Bind(scope)

	policy := jsast.EffectPolicy{PropertyReadSideEffects: true}

	// The declaration alone has no effects and nobody has referenced it
	// from an included site yet, so it must not be included.
	assert.False(t, decl.Include(policy))

	// Including the side-effecting statement should, on the next pass,
	// make the referenced declaration includable too.
	assert.True(t, user.Include(policy))
	assert.True(t, decl.Include(policy))
	assert.True(t, decl.DeclaredVariables()[0].Included)
}

func TestPropertyReadWithoutSideEffectsIsInert(t *testing.T) {
	global := jsast.NewGlobalScope()
	scope := jsast.NewChildScope(global)

	stmt := &jsast.SExpressionStatement{Expr: &jsast.EDot{
		Object:   &jsast.EIdentifier{Name: "x"},
		Property: "y",
	}}
	stmt.Bind(scope)

	inert := jsast.EffectPolicy{PropertyReadSideEffects: false}
	assert.False(t, stmt.Include(inert))

	live := jsast.EffectPolicy{PropertyReadSideEffects: true}
	assert.True(t, stmt.Include(live))
}

func TestSideEffectImportOfPureExternalIsDroppable(t *testing.T) {
	imp := &jsast.EImportForSideEffect{Source: "polyfill", ModuleID: "polyfill", IsExternal: true}
	stmt := &jsast.SExpressionStatement{Expr: imp}

	notPure := jsast.EffectPolicy{IsPureExternal: func(string) bool { return false }}
	assert.True(t, stmt.Include(notPure))

	pure := jsast.EffectPolicy{IsPureExternal: func(id string) bool { return id == "polyfill" }}
	fresh := &jsast.SExpressionStatement{Expr: &jsast.EImportForSideEffect{Source: "polyfill", ModuleID: "polyfill", IsExternal: true}}
	assert.False(t, fresh.Include(pure))
}

func TestSideEffectImportOfInternalModuleIsNeverDropped(t *testing.T) {
	imp := &jsast.EImportForSideEffect{Source: "./setup", ModuleID: "./setup", IsExternal: false}
	stmt := &jsast.SExpressionStatement{Expr: imp}

	policy := jsast.EffectPolicy{IsPureExternal: func(string) bool { return true }}
	assert.True(t, stmt.Include(policy))
}
