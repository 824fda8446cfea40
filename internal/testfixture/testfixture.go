// Package testfixture is an in-memory plugin.Driver over a virtual
// file map, so the graph/binder/order/treeshake/chunker pipeline can be
// exercised end to end in tests without touching a real filesystem.
// Grounded on evanw-esbuild's test infrastructure style (a map of path
// to contents driving a fake resolver), adapted to the three-valued
// plugin.Driver contract this core defines.
package testfixture

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/modulegraph/bundlecore/internal/graph"
	"github.com/modulegraph/bundlecore/internal/plugin"
	"github.com/modulegraph/bundlecore/internal/scanjs"
)

// Host is a virtual module host: Files maps a resolved id to its
// source, and External marks specifiers (matched verbatim, not
// resolved to an id first) that should resolve external regardless of
// whether they appear in Files.
type Host struct {
	Files    map[string]string
	External map[string]bool

	assets *graph.AssetRegistry
}

func NewHost() *Host {
	return &Host{
		Files:    make(map[string]string),
		External: make(map[string]bool),
		assets:   graph.NewAssetRegistry(),
	}
}

func (h *Host) Assets() *graph.AssetRegistry { return h.assets }

// resolve mimics a relative-path Node-style resolver: "./foo" against
// importer "src/main.js" becomes "src/foo.js" once an extension is
// found in Files, trying the specifier verbatim first.
func (h *Host) resolve(specifier, importer string) (string, bool) {
	if _, ok := h.Files[specifier]; ok {
		return specifier, true
	}
	if !strings.HasPrefix(specifier, ".") {
		return "", false
	}
	dir := path.Dir(importer)
	joined := path.Clean(path.Join(dir, specifier))
	candidates := []string{joined, joined + ".js", joined + ".mjs", joined + "/index.js"}
	for _, c := range candidates {
		if _, ok := h.Files[c]; ok {
			return c, true
		}
	}
	return "", false
}

func (h *Host) ResolveID(_ context.Context, source string, importer string) (plugin.ResolveResult, error) {
	if h.External[source] {
		return plugin.ResolveResult{Kind: plugin.Resolved, ID: source, External: true}, nil
	}
	id, ok := h.resolve(source, importer)
	if !ok {
		return plugin.ResolveResult{Kind: plugin.Unhandled}, nil
	}
	return plugin.ResolveResult{Kind: plugin.Resolved, ID: id}, nil
}

func (h *Host) Load(_ context.Context, id string) (plugin.LoadResult, error) {
	code, ok := h.Files[id]
	if !ok {
		return plugin.LoadResult{Kind: plugin.Unhandled}, fmt.Errorf("testfixture: no file registered for %q", id)
	}
	return plugin.LoadResult{Kind: plugin.Resolved, Code: code}, nil
}

func (h *Host) Transform(_ context.Context, code string, _ string) (plugin.LoadResult, error) {
	return plugin.LoadResult{Kind: plugin.Unhandled, Code: code}, nil
}

func (h *Host) ResolveDynamicImport(_ context.Context, specifier string, isStringLiteral bool, importer string) (plugin.DynamicImportResult, error) {
	if !isStringLiteral || specifier == "" {
		return plugin.DynamicImportResult{Kind: plugin.Resolved, NonStringRewrite: true}, nil
	}
	if h.External[specifier] {
		return plugin.DynamicImportResult{Kind: plugin.Resolved, ResolvedID: specifier, IsExternal: true}, nil
	}
	id, ok := h.resolve(specifier, importer)
	if !ok {
		return plugin.DynamicImportResult{Kind: plugin.Unhandled}, nil
	}
	return plugin.DynamicImportResult{Kind: plugin.Resolved, ResolvedID: id}, nil
}

func (h *Host) WatchChange(string) {}

func (h *Host) EmitAsset(name string, source []byte) string {
	return h.assets.Emit(name, source)
}

// Parser exposes the shared best-effort scanner as this fixture's
// graph.Parser, so a virtual project's source strings get real
// import/export/declaration metadata instead of a stub.
func Parser() graph.Parser { return scanjs.New() }

var _ plugin.Driver = (*Host)(nil)
