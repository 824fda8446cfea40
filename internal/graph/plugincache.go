package graph

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/modulegraph/bundlecore/internal/buildopts"
)

// pluginCacheCapacity bounds how many distinct cache keys a single
// plugin can accumulate across a watch session before the oldest
// entries are evicted. Unbounded growth here is the actual failure
// mode this is meant to prevent: a plugin that caches per-module data
// keyed by a changing hash otherwise leaks memory for the lifetime of
// a long-running watch process.
const pluginCacheCapacity = 4096

// PluginCache is the counter-versioned cache.get()/cache.set() surface
// Rollup exposes to plugins (this.cache in a plugin's context), stored
// here per plugin name with a bounded LRU so it survives across a
// rebuild in --watch without growing without limit. Grounded on
// buildopts.PluginCacheEntry's shape, which is what gets persisted to
// and restored from the on-disk warm cache (spec §6).
type PluginCache struct {
	byPlugin map[string]*lru.Cache[string, buildopts.PluginCacheEntry]
}

func NewPluginCache() *PluginCache {
	return &PluginCache{byPlugin: make(map[string]*lru.Cache[string, buildopts.PluginCacheEntry])}
}

func (c *PluginCache) forPlugin(pluginName string) *lru.Cache[string, buildopts.PluginCacheEntry] {
	l, ok := c.byPlugin[pluginName]
	if !ok {
		l, _ = lru.New[string, buildopts.PluginCacheEntry](pluginCacheCapacity)
		c.byPlugin[pluginName] = l
	}
	return l
}

// Get returns the cached value and bumps its use counter, or reports
// found=false if the plugin has never set this key.
func (c *PluginCache) Get(pluginName, key string) (value any, found bool) {
	l := c.forPlugin(pluginName)
	entry, ok := l.Get(key)
	if !ok {
		return nil, false
	}
	entry.Counter++
	l.Add(key, entry)
	return entry.Value, true
}

func (c *PluginCache) Set(pluginName, key string, value any) {
	l := c.forPlugin(pluginName)
	entry, ok := l.Get(key)
	if !ok {
		entry = buildopts.PluginCacheEntry{}
	}
	entry.Value = value
	l.Add(key, entry)
}

// Delete removes key from the plugin's cache unconditionally, whatever
// its use counter.
func (c *PluginCache) Delete(pluginName, key string) {
	if l, ok := c.byPlugin[pluginName]; ok {
		l.Remove(key)
	}
}

// Snapshot exports the current state in the shape buildopts.WarmCache
// persists to disk.
func (c *PluginCache) Snapshot() map[string]map[string]buildopts.PluginCacheEntry {
	out := make(map[string]map[string]buildopts.PluginCacheEntry, len(c.byPlugin))
	for pluginName, l := range c.byPlugin {
		entries := make(map[string]buildopts.PluginCacheEntry)
		for _, key := range l.Keys() {
			if entry, ok := l.Peek(key); ok {
				entries[key] = entry
			}
		}
		out[pluginName] = entries
	}
	return out
}

// Restore seeds the cache from a warm cache loaded off disk, copying
// every entry with its stored counter unchanged; no entry is dropped
// or aged here.
func Restore(warm *buildopts.WarmCache) *PluginCache {
	c := NewPluginCache()
	if warm == nil {
		return c
	}
	for pluginName, entries := range warm.Plugins {
		l := c.forPlugin(pluginName)
		for key, entry := range entries {
			l.Add(key, entry)
		}
	}
	return c
}
