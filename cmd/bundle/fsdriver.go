package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modulegraph/bundlecore/internal/graph"
	"github.com/modulegraph/bundlecore/internal/plugin"
)

// fsDriver is the default plugin.Driver used when no plugin host is
// configured: it resolves specifiers against disk the way Node's
// require resolution probes extensions and index files, loads source
// straight off disk, and never transforms. Grounded on jayu-rev-dep's
// resolveModule.go extension-probing order (bare file, then each
// extension, then an index file per extension).
type fsDriver struct {
	root       string
	extensions []string
	isExternal func(id string, importer string, isResolved bool) bool
	assets     *graph.AssetRegistry
}

// newFSDriver leaves assets unset; the caller wires it to the owning
// Graph's own registry once the graph exists (Graph.NewGraph needs a
// driver up front, so this is necessarily a two-step construction).
func newFSDriver(root string, isExternal func(id, importer string, isResolved bool) bool) *fsDriver {
	return &fsDriver{
		root:       root,
		extensions: []string{"", ".js", ".mjs", ".jsx", ".ts", ".tsx", ".json"},
		isExternal: isExternal,
	}
}

func (d *fsDriver) ResolveID(_ context.Context, source string, importer string) (plugin.ResolveResult, error) {
	if d.isExternal != nil && d.isExternal(source, importer, false) {
		return plugin.ResolveResult{Kind: plugin.ExplicitExternal, ID: source, External: true}, nil
	}
	if !strings.HasPrefix(source, ".") && !strings.HasPrefix(source, "/") {
		// Bare specifier with no external matcher hit: treat it as a
		// dependency this build cannot see inside, per the loader's own
		// fallback (spec §4.2's "resolves to itself, marked external").
		return plugin.ResolveResult{Kind: plugin.Resolved, ID: source, External: true}, nil
	}

	base := source
	if !filepath.IsAbs(base) {
		dir := d.root
		if importer != "" {
			dir = filepath.Dir(importer)
		}
		base = filepath.Join(dir, source)
	}

	if id, ok := d.probe(base); ok {
		return plugin.ResolveResult{Kind: plugin.Resolved, ID: id}, nil
	}
	return plugin.ResolveResult{Kind: plugin.Unhandled}, nil
}

func (d *fsDriver) probe(base string) (string, bool) {
	for _, ext := range d.extensions {
		candidate := base + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	for _, ext := range d.extensions[1:] {
		candidate := filepath.Join(base, "index"+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

func (d *fsDriver) Load(_ context.Context, id string) (plugin.LoadResult, error) {
	code, err := os.ReadFile(id)
	if err != nil {
		return plugin.LoadResult{Kind: plugin.Unhandled}, fmt.Errorf("reading %s: %w", id, err)
	}
	return plugin.LoadResult{Kind: plugin.Resolved, Code: string(code)}, nil
}

func (d *fsDriver) Transform(_ context.Context, code string, _ string) (plugin.LoadResult, error) {
	return plugin.LoadResult{Kind: plugin.Unhandled, Code: code}, nil
}

func (d *fsDriver) ResolveDynamicImport(_ context.Context, specifier string, isStringLiteral bool, importer string) (plugin.DynamicImportResult, error) {
	if !isStringLiteral || specifier == "" {
		return plugin.DynamicImportResult{Kind: plugin.Resolved, NonStringRewrite: true}, nil
	}
	resolved, err := d.ResolveID(context.Background(), specifier, importer)
	if err != nil || resolved.Kind == plugin.Unhandled {
		return plugin.DynamicImportResult{Kind: plugin.Unhandled}, err
	}
	return plugin.DynamicImportResult{Kind: plugin.Resolved, ResolvedID: resolved.ID, IsExternal: resolved.External}, nil
}

func (d *fsDriver) WatchChange(string) {}

func (d *fsDriver) EmitAsset(name string, source []byte) string {
	return d.assets.Emit(name, source)
}

var _ plugin.Driver = (*fsDriver)(nil)
