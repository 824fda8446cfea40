package jsast

// Stmt is the tagged-union interface for top-level statement variants.
// Only top-level statements participate in tree-shaking (spec §4.6:
// "module.include() visits top-level statements"); nested statement
// bodies (inside functions, blocks) are opaque to this core since code
// generation and per-statement-inside-function shaking are out of
// scope (spec §1).
type Stmt interface {
	isStmt()

	// HasEffects reports whether this statement itself is observable
	// under the given policy, independent of whether anything it
	// declares is referenced.
	HasEffects(policy EffectPolicy) bool

	// DeclaredVariables lists the bindings this statement introduces.
	DeclaredVariables() []*Variable

	// Bind resolves every identifier reference contained in this
	// statement (spec §4.4 bindReferences).
	Bind(scope *Scope)

	// Include marks this statement included if it isn't already.
	// Returns true iff this call changed the inclusion state (spec
	// §4.3: "include() → bool (true iff inclusion state changed)").
	Include(policy EffectPolicy) bool

	// IsIncluded reports whether Include has ever returned true for
	// this statement.
	IsIncluded() bool
}

// baseStmt factors out the include-once bookkeeping shared by every
// variant so each concrete type only implements what's specific to it.
type baseStmt struct {
	included bool
}

func (b *baseStmt) IsIncluded() bool { return b.included }

// ForceInclude marks this statement included unconditionally, bypassing
// shouldInclude. Used by the treeshake.enabled=false fallback, which
// must keep every statement regardless of whether anything references
// what it declares.
func (b *baseStmt) ForceInclude() { b.included = true }

// shouldInclude is the shared decision spec §4.6 describes: a
// statement includes itself if it has observable effects, or if any
// binding it declares is referenced from a statement that is itself
// already included.
func shouldInclude(s Stmt, policy EffectPolicy) bool {
	if s.HasEffects(policy) {
		return true
	}
	for _, v := range s.DeclaredVariables() {
		for _, ref := range v.ReferencingStmts {
			if ref.IsIncluded() {
				return true
			}
		}
	}
	return false
}

// SDeclaration is a top-level const/let/var/function/class declaration.
// The first Bind declares Names through Scope.Declare; every later Bind
// reuses those same Variables, so the Variables a module's Exports map
// and its importers' aliases point at stay the ones this statement
// declares.
type SDeclaration struct {
	baseStmt

	Names []string
	Init  Expr // nil for a bare `function f(){}`-style declaration with no evaluated initializer

	declared []*Variable
}

func (*SDeclaration) isStmt() {}

func (s *SDeclaration) DeclaredVariables() []*Variable { return s.declared }

func (s *SDeclaration) HasEffects(policy EffectPolicy) bool {
	return s.Init != nil && s.Init.HasEffects(policy)
}

func (s *SDeclaration) Bind(scope *Scope) {
	if len(s.declared) == 0 {
		for _, name := range s.Names {
			v := scope.Declare(name, VariableLocal)
			v.DeclStmt = s
			s.declared = append(s.declared, v)
		}
	}
	if s.Init != nil {
		s.Init.Bind(scope, s)
	}
}

func (s *SDeclaration) Include(policy EffectPolicy) bool {
	if s.included {
		return false
	}
	if !shouldInclude(s, policy) {
		return false
	}
	s.included = true
	for _, v := range s.declared {
		v.Included = true
	}
	return true
}

// SExpressionStatement is a bare expression evaluated for its side
// effects, e.g. `foo()`, `import "polyfill"`, or a dynamic import
// whose result is discarded.
type SExpressionStatement struct {
	baseStmt

	Expr Expr
}

func (*SExpressionStatement) isStmt()                            {}
func (s *SExpressionStatement) DeclaredVariables() []*Variable    { return nil }
func (s *SExpressionStatement) HasEffects(policy EffectPolicy) bool {
	return s.Expr.HasEffects(policy)
}

func (s *SExpressionStatement) Bind(scope *Scope) {
	s.Expr.Bind(scope, s)
}

func (s *SExpressionStatement) Include(policy EffectPolicy) bool {
	if s.included {
		return false
	}
	if !s.HasEffects(policy) {
		return false
	}
	s.included = true
	return true
}
