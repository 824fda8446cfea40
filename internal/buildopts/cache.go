package buildopts

// ModuleJSON round-trips a single cached module (spec §6: "Persisted
// cache shape"). AST is left opaque here since the AST builder itself
// is an external collaborator (spec §1); a real host would serialize
// whatever its parser produces into this field.
type ModuleJSON struct {
	ID                    string
	OriginalCode          string
	OriginalSourcemap     string
	AST                   []byte
	Dependencies          []string
	TransformDependencies []string
	TransformAssets       []string
	ResolvedIDs           map[string]string
	CustomTransformCache  bool
}

// PluginCacheEntry is the [counter, value] pair spec §5/§6 describes.
// graph.PluginCache.Get increments Counter on every read. Nothing in
// this module evicts an entry because its Counter reached
// ExperimentalCacheExpiry, and there is no GetCache sweep: entries
// leave a PluginCache only through Delete or LRU capacity eviction.
type PluginCacheEntry struct {
	Counter int
	Value   any
}

// WarmCache is the `cache: false | {modules, plugins}` option (spec
// §6), the persisted shape of a previous build. The loader does not
// read it: every module is loaded, transformed and parsed afresh on
// each build, whether or not its OriginalCode matches a cached entry.
// graph.Restore seeds a PluginCache from Plugins.
type WarmCache struct {
	Modules []ModuleJSON
	Plugins map[string]map[string]PluginCacheEntry
}

// ByID indexes Modules by id.
func (w *WarmCache) ByID() map[string]ModuleJSON {
	byID := make(map[string]ModuleJSON, len(w.Modules))
	for _, m := range w.Modules {
		byID[m.ID] = m
	}
	return byID
}
