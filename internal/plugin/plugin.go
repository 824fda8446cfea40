// Package plugin defines the contract the graph core consumes from its
// external plugin host (spec §4.1, C1). The host itself — the thing
// that actually owns a list of registered plugins and knows how to run
// a JS/CSS-style resolve/load/transform chain — is out of scope; this
// package only pins down the shape the core depends on.
package plugin

import "context"

// HookResult is the three-valued outcome spec §9 calls for: "Polymorphic
// hook return (string | false | null | object) → explicit three-valued
// result. Use Resolved(id) | ExplicitExternal | Unhandled; never
// conflate falsy values." A plugin hook that returns nothing meaningful
// yields Unhandled so the driver falls through to the next plugin;
// returning `false` (ExplicitExternal) is a distinct, meaningful signal
// from returning nothing.
type HookResultKind uint8

const (
	Unhandled HookResultKind = iota
	Resolved
	ExplicitExternal
)

type ResolveResult struct {
	Kind HookResultKind
	ID   string

	// External is only meaningful when Kind == Resolved; a plugin can
	// resolve an id and simultaneously mark it external in one shot.
	External bool
}

// LoadResult mirrors the host's `load`/`transform` return shape: a bare
// string, or an object carrying code plus optional map/ast, or nothing
// (Unhandled, meaning fall through to the next hook or the host's disk
// fallback).
type LoadResult struct {
	Kind HookResultKind
	Code string
	Map  string
	AST  any // opaque; a real AST builder would populate this to skip re-parsing
}

// DynamicImportResult is resolveDynamicImport's three outcomes (spec
// §4.2): a non-string replacement recorded as-is, a string that
// resolves external, or a string that resolves internal.
type DynamicImportResult struct {
	Kind             HookResultKind
	ResolvedID       string
	IsExternal       bool
	NonStringRewrite bool
}

// Driver is the contract the loader (C2) calls into. Real
// implementations invoke every registered plugin in registration order
// and return the first non-nullish result (spec §4.1: hookFirst).
type Driver interface {
	ResolveID(ctx context.Context, source string, importer string) (ResolveResult, error)
	Load(ctx context.Context, id string) (LoadResult, error)
	Transform(ctx context.Context, code string, id string) (LoadResult, error)
	ResolveDynamicImport(ctx context.Context, specifier string, isStringLiteral bool, importer string) (DynamicImportResult, error)

	// WatchChange is a synchronous, in-order notification (spec §4.1:
	// hookSeqSync) with no return value.
	WatchChange(id string)

	// EmitAsset registers a non-JS artifact keyed by a content-derived
	// id and returns that id.
	EmitAsset(name string, source []byte) string
}

// HookError wraps a failure raised inside a plugin hook so it carries
// the originating plugin's name (spec §4.1: "Failures inside a hook
// surface as structured errors with a `plugin` field attached").
type HookError struct {
	PluginName string
	Hook       string
	Cause      error
}

func (e *HookError) Error() string {
	if e.PluginName == "" {
		return e.Hook + ": " + e.Cause.Error()
	}
	return "(" + e.PluginName + ") " + e.Hook + ": " + e.Cause.Error()
}

func (e *HookError) Unwrap() error { return e.Cause }
