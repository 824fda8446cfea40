package graph

import "github.com/modulegraph/bundlecore/internal/jsast"

// ParsedImport is what a Parser reports for a single static import
// declaration, before resolution.
type ParsedImport struct {
	LocalName    string
	Source       string
	ImportedName string
}

// ParsedExport is a single named export a Parser found in a module's
// top-level statements, bound to the local variable it re-exports.
type ParsedExport struct {
	ExportedName string
	Local        *jsast.Variable
}

// ParseResult is everything fetchModule needs out of turning source
// text into the shapes the rest of the core operates on.
type ParseResult struct {
	Statements       []jsast.Stmt
	ModuleScope      *jsast.Scope
	Imports          []ParsedImport
	Exports          []ParsedExport
	ExportAllSources []string
	DynamicImports   []*jsast.EImportCall

	// SideEffectImports is one entry per bare `import "specifier"` found
	// at the top level, already wrapped in its own SExpressionStatement
	// inside Statements. The loader fills in ModuleID/IsExternal on each
	// once resolution settles.
	SideEffectImports []*jsast.EImportForSideEffect
}

// Parser turns transformed source code into a module's AST. The actual
// tokenizer/parser is out of scope for this core (spec §1: "the parser
// itself" is an external collaborator) — this interface is the seam a
// real front end plugs into, and Module.AST/Imports/Exports are what it
// must produce.
type Parser interface {
	Parse(code string, id string, globalScope *jsast.Scope) (*ParseResult, error)
}
