package buildopts

import "github.com/gobwas/glob"

// GlobExternalMatcher compiles the `external: string[]` option (spec
// §6) into gobwas/glob matchers, grounded on jayu-rev-dep's
// createGlobMatchers.go: a spec with no glob metacharacter ("*", "?",
// "[", "{") matches that exact id only, anything else compiles as a
// glob pattern.
type GlobExternalMatcher struct {
	exact    map[string]bool
	patterns []glob.Glob
}

func NewGlobExternalMatcher(specs []string) *GlobExternalMatcher {
	m := &GlobExternalMatcher{exact: make(map[string]bool)}
	for _, spec := range specs {
		if !containsGlobMeta(spec) {
			m.exact[spec] = true
			continue
		}
		if g, err := glob.Compile(spec, '/'); err == nil {
			m.patterns = append(m.patterns, g)
		}
	}
	return m
}

func containsGlobMeta(s string) bool {
	for _, c := range s {
		if c == '*' || c == '?' || c == '[' || c == '{' {
			return true
		}
	}
	return false
}

// IsExternal matches the func(id, importer, isResolved) bool shape of
// Options.External so a *GlobExternalMatcher can be dropped in
// directly (SPEC_FULL §1.5).
func (m *GlobExternalMatcher) IsExternal(id, _ string, _ bool) bool {
	if m.exact[id] {
		return true
	}
	for _, g := range m.patterns {
		if g.Match(id) {
			return true
		}
	}
	return false
}
