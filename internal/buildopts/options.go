// Package buildopts implements the configuration surface the graph
// core consumes (spec §6), grounded on the option-struct style of
// evanw-esbuild's internal/config (JSXOptions, StrictOptions, ...) but
// populated from a JSONC/YAML project file the way jayu-rev-dep loads
// rev-dep.config.json with github.com/tidwall/jsonc.
package buildopts

import "github.com/modulegraph/bundlecore/internal/logger"

// ExternalSentinel is never a real resolved id (spec §3: "the sentinel
// EXTERNAL").
const ExternalSentinel = "\x00EXTERNAL"

type TreeshakingOptions struct {
	// Default true. If false, a bare property read like "x.y" is inert.
	PropertyReadSideEffects bool

	// nil means externals are never pure-by-default (conservative). A
	// non-nil predicate narrows exactly which external ids are pure.
	PureExternalModules func(id string) bool
}

type Treeshake struct {
	Enabled bool
	Options TreeshakingOptions
}

func DefaultTreeshake() Treeshake {
	return Treeshake{Enabled: true, Options: TreeshakingOptions{PropertyReadSideEffects: true}}
}

// ModuleContextFunc resolves the "this" value for a given module id;
// falls back to Options.Context when it returns "".
type ModuleContextFunc func(id string) string

type Options struct {
	// Entry points, alias -> specifier. A config file's `input` list is
	// normalized into this form by Merge, using each specifier's base
	// name without its extension as the alias.
	Input map[string]string

	// External reports whether id should be treated as external. Ids
	// beginning with "\x00" are never external regardless (spec §6).
	External func(id string, importer string, isResolved bool) bool

	Treeshake Treeshake

	Cache *WarmCache

	ExperimentalCacheExpiry int

	Context       string
	ModuleContext ModuleContextFunc

	ShimMissingExports bool
	PreferConst        bool

	ExperimentalTopLevelAwait bool

	OnWarn func(logger.Msg)

	// Chunk partitioning (§4.7).
	PreserveModules     bool
	InlineDynamicImports bool
	ManualChunks         map[string][]string
}

// IsExternalID reports whether id should be treated as external. Ids
// beginning with "\x00" are never external regardless (spec §6).
func (o *Options) IsExternalID(id, importer string, isResolved bool) bool {
	if len(id) > 0 && id[0] == 0 {
		return false
	}
	if o.External == nil {
		return false
	}
	return o.External(id, importer, isResolved)
}

// ContextFor resolves the "this" value for id (spec §6: moduleContext
// falls back to the global context option).
func (o *Options) ContextFor(id string) string {
	if o.ModuleContext != nil {
		if c := o.ModuleContext(id); c != "" {
			return c
		}
	}
	if o.Context != "" {
		return o.Context
	}
	return "undefined"
}

func (o *Options) CacheExpiry() int {
	if o.ExperimentalCacheExpiry <= 0 {
		return 1000
	}
	return o.ExperimentalCacheExpiry
}
