package jsast

// Scope and Variable model the lexical binding layer of spec §4.3. A
// GlobalScope is owned by the graph (one per build); each module gets
// its own child Scope. FindVariable is idempotent: repeated lookups of
// the same name in the same scope always return the same *Variable,
// and an unresolved global is lazily materialized into a sentinel the
// first time it's asked for.

type VariableKind uint8

const (
	// A binding introduced by an import declaration; resolved to the
	// exporting module's variable during linkDependencies (C4).
	VariableImport VariableKind = iota

	// A local declaration (const/let/var/function/class).
	VariableLocal

	// A synthesized global such as "module", "exports", or a shim.
	VariableGlobal
)

type Variable struct {
	Name string
	Kind VariableKind

	// Changed only by MarkReferenced. Bind records references in
	// ReferencingStmts and leaves this count alone.
	referenceCount int

	// True once the declaration that introduces this variable has been
	// included in the bundle by the tree-shaker (spec §4.6 invariant 4:
	// every referenced binding must belong to an included declaration).
	Included bool

	// The statement that declares this variable, if any (globals and
	// shims have none). Set by SDeclaration.Bind when it declares the variable.
	DeclStmt Stmt

	// Every statement (in any module, once cross-module import bindings
	// are resolved) that contains a reference to this variable. Consulted
	// by the tree-shaker to decide whether DeclStmt should be included.
	ReferencingStmts []Stmt
}

func (v *Variable) MarkReferenced() {
	v.referenceCount++
}

func (v *Variable) IsReferenced() bool {
	return v.referenceCount > 0
}

// Scope is a lexical scope. The core only needs two levels of nesting
// (global, module) to express spec §4.3's binding model, but the tree
// is kept general so a real parser could plug in block/function scopes
// without changing the linker or tree-shaker.
type Scope struct {
	Parent    *Scope
	Children  []*Scope
	Variables map[string]*Variable

	// True only for the process-wide root scope. FindVariable on the
	// global scope creates sentinels for names it has never seen.
	isGlobal bool
}

// GlobalScope is unique per Graph (spec §4.3: "Scopes form a tree
// rooted in a GlobalScope owned by the graph").
func NewGlobalScope() *Scope {
	s := &Scope{Variables: make(map[string]*Variable), isGlobal: true}
	for _, name := range []string{"module", "exports", "_interopDefault", "_missingExportShim"} {
		s.Variables[name] = &Variable{Name: name, Kind: VariableGlobal}
	}
	return s
}

func NewChildScope(parent *Scope) *Scope {
	child := &Scope{Parent: parent, Variables: make(map[string]*Variable)}
	parent.Children = append(parent.Children, child)
	return child
}

// FindVariable walks up the scope chain looking for name. If it
// reaches the global scope without finding a declaration it
// materializes (and caches) a global sentinel, so repeated lookups of
// an undeclared identifier like "console" always return the same
// *Variable rather than allocating a fresh one per reference.
func (s *Scope) FindVariable(name string) *Variable {
	for scope := s; scope != nil; scope = scope.Parent {
		if v, ok := scope.Variables[name]; ok {
			return v
		}
		if scope.isGlobal {
			v := &Variable{Name: name, Kind: VariableGlobal, Included: true}
			scope.Variables[name] = v
			return v
		}
	}
	panic("jsast: scope chain does not terminate at a global scope")
}

// Declare introduces a new local binding directly in this scope,
// shadowing anything of the same name in an ancestor.
func (s *Scope) Declare(name string, kind VariableKind) *Variable {
	v := &Variable{Name: name, Kind: kind}
	s.Variables[name] = v
	return v
}

// Alias binds name directly to an existing Variable owned by another
// scope, rather than declaring a fresh one. This is how the linker
// (C4) makes an imported local name resolve straight through to the
// exporting module's own Variable, so a later identifier lookup in
// this scope and one in the exporting module's scope land on the same
// *Variable.
func (s *Scope) Alias(name string, v *Variable) {
	s.Variables[name] = v
}

// ShimMissingExportVariable returns the well-known sentinel used by
// shimMissingExports (spec §4.4): a single shared variable so every
// missing export in a build resolves to the same synthetic binding.
func (s *Scope) ShimMissingExportVariable() *Variable {
	root := s
	for root.Parent != nil {
		root = root.Parent
	}
	return root.FindVariable("_missingExportShim")
}
