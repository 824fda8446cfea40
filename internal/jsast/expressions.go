package jsast

// Expr is the tagged-union interface every expression node variant
// implements (spec §9: "Dynamic dispatch over AST nodes → tagged
// variant with per-variant behavior"). There is no base "Node" struct
// to inherit from; each variant carries only the fields it needs and
// switches in the algorithms below dispatch on the concrete type.
type Expr interface {
	isExpr()

	// HasEffects reports whether evaluating this expression is
	// observable under the given policy (spec §4.6 TreeshakingOptions).
	HasEffects(policy EffectPolicy) bool

	// Bind resolves every EIdentifier reachable from this expression
	// against scope, recording stmt as a referencing site on the
	// variable it resolves to.
	Bind(scope *Scope, stmt Stmt)
}

// EffectPolicy carries the two knobs spec §4.6 names.
type EffectPolicy struct {
	PropertyReadSideEffects bool
	IsPureExternal          func(id string) bool
}

type EIdentifier struct {
	Name string

	resolved *Variable
}

func (*EIdentifier) isExpr() {}

func (e *EIdentifier) HasEffects(EffectPolicy) bool { return false }

func (e *EIdentifier) Bind(scope *Scope, stmt Stmt) {
	v := scope.FindVariable(e.Name)
	e.resolved = v
	v.ReferencingStmts = append(v.ReferencingStmts, stmt)
}

func (e *EIdentifier) Resolved() *Variable { return e.resolved }

// ENamespaceImport represents `import * as ns from "m"`; referencing
// it forces inclusion of every export of the target module (spec
// GLOSSARY: "Namespace import"). ModuleID is the already-resolved id
// of the imported module.
type ENamespaceImport struct {
	ModuleID string

	// Populated by the tree-shaker (markNamespaceImports) from the target
	// module's exports, then used by it to force-include every export.
	AllExportVariables []*Variable
}

func (*ENamespaceImport) isExpr() {}

func (e *ENamespaceImport) HasEffects(EffectPolicy) bool { return false }

func (e *ENamespaceImport) Bind(scope *Scope, stmt Stmt) {
	for _, v := range e.AllExportVariables {
		v.ReferencingStmts = append(v.ReferencingStmts, stmt)
	}
}

type ELiteral struct {
	Value string
}

func (*ELiteral) isExpr()                     {}
func (*ELiteral) HasEffects(EffectPolicy) bool { return false }
func (*ELiteral) Bind(*Scope, Stmt)            {}

// EDot is a property read, e.g. "x.y". Per spec §4.6: inert when
// PropertyReadSideEffects is false and it isn't wrapped in a call
// (a wrapping ECall reports its own effects independently).
type EDot struct {
	Object   Expr
	Property string
}

func (*EDot) isExpr() {}

func (e *EDot) HasEffects(policy EffectPolicy) bool {
	if policy.PropertyReadSideEffects && e.Object.HasEffects(policy) {
		return true
	}
	return policy.PropertyReadSideEffects
}

func (e *EDot) Bind(scope *Scope, stmt Stmt) {
	e.Object.Bind(scope, stmt)
}

// ECall is a function call. Pure marks a call annotated (by the host
// AST builder, e.g. from a "/* @__PURE__ */" comment) as having no
// side effects beyond its arguments'.
type ECall struct {
	Callee Expr
	Args   []Expr
	Pure   bool
}

func (*ECall) isExpr() {}

func (e *ECall) HasEffects(policy EffectPolicy) bool {
	if !e.Pure {
		return true
	}
	if e.Callee.HasEffects(policy) {
		return true
	}
	for _, a := range e.Args {
		if a.HasEffects(policy) {
			return true
		}
	}
	return false
}

func (e *ECall) Bind(scope *Scope, stmt Stmt) {
	e.Callee.Bind(scope, stmt)
	for _, a := range e.Args {
		a.Bind(scope, stmt)
	}
}

// EOpaque stands in for source text a parser did not model in detail
// (spec §1 notes the AST builder itself is an external collaborator).
// It is always treated as having effects, so a best-effort parser can
// fall back to it for code it cannot analyze without risking the
// tree-shaker dropping something observable.
//
// MayReference lets that same best-effort parser record every binding
// name visible at the point the unparsed code appeared, since it
// cannot tell which of them the opaque code actually touches. Bind
// resolves each one against scope (so an aliased import binds to its
// real target, same as EIdentifier) and marks it referenced,
// over-including rather than risking a dangling reference into code
// the tree-shaker can't see.
type EOpaque struct {
	MayReference []string
}

func (*EOpaque) isExpr()                     {}
func (*EOpaque) HasEffects(EffectPolicy) bool { return true }

func (e *EOpaque) Bind(scope *Scope, stmt Stmt) {
	for _, name := range e.MayReference {
		v := scope.FindVariable(name)
		v.ReferencingStmts = append(v.ReferencingStmts, stmt)
	}
}

// EImportCall is a dynamic `import(...)` expression. It is always
// observable: starting the fetch of another module (and its module
// side effects) is user-visible even if the resulting promise is
// discarded.
type EImportCall struct {
	// Non-empty for a string-literal specifier; empty when the source
	// AST builder reported a non-string expression, which spec §4.2
	// records as-is without attempting resolution.
	Specifier string

	// Filled in by the loader once resolveDynamicImport settles.
	ResolvedModuleID string
	IsExternal       bool
}

func (*EImportCall) isExpr()                     {}
func (*EImportCall) HasEffects(EffectPolicy) bool { return true }
func (*EImportCall) Bind(*Scope, Stmt)            {}

// EImportForSideEffect represents a bare `import "specifier"`, kept
// only for whatever effects loading and evaluating the target module
// has (spec §4.6: "affects whether import 'pkg' for side effect alone
// is kept").
type EImportForSideEffect struct {
	Source string

	// Filled in by the loader once the specifier's resolution settles,
	// same as EImportCall.ResolvedModuleID/IsExternal above.
	ModuleID   string
	IsExternal bool
}

func (*EImportForSideEffect) isExpr() {}

func (e *EImportForSideEffect) HasEffects(policy EffectPolicy) bool {
	if e.IsExternal && policy.IsPureExternal != nil && policy.IsPureExternal(e.ModuleID) {
		return false
	}
	return true
}

func (e *EImportForSideEffect) Bind(*Scope, Stmt) {}
