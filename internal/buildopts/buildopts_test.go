package buildopts_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/modulegraph/bundlecore/internal/buildopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobExternalMatcherExactAndPattern(t *testing.T) {
	m := buildopts.NewGlobExternalMatcher([]string{"react", "@scope/**"})
	assert.True(t, m.IsExternal("react", "", false))
	assert.False(t, m.IsExternal("react-dom", "", false))
	assert.True(t, m.IsExternal("@scope/utils/index.js", "", false))
	assert.False(t, m.IsExternal("lodash", "", false))
}

func TestEngineGateAllowsAndRejects(t *testing.T) {
	gate, err := buildopts.NewEngineGate("18.0.0")
	require.NoError(t, err)
	assert.True(t, gate.Allows(">=14.0.0"))
	assert.False(t, gate.Allows("<16.0.0"))
	assert.True(t, gate.Allows(""))
	assert.True(t, gate.Allows("not-a-constraint"))
}

func TestLoadConfigFileJSONC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.config.jsonc")
	contents := `{
		// entry points
		"input": ["src/main.js"],
		"external": ["react"],
		"shimMissingExports": true,
	}`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, resolved, err := buildopts.LoadConfigFile(path, dir)
	require.NoError(t, err)
	assert.Equal(t, path, resolved)
	assert.Equal(t, []string{"src/main.js"}, cfg.Input)
	assert.True(t, cfg.ShimMissingExports)

	opts := &buildopts.Options{}
	opts.Merge(cfg)
	assert.Equal(t, "src/main.js", opts.Input["main"])
	assert.True(t, opts.IsExternalID("react", "", false))
}

func TestMergeDoesNotOverrideCLISetFields(t *testing.T) {
	opts := &buildopts.Options{Context: "globalThis"}
	cfg := &buildopts.ConfigFile{Context: "this"}
	opts.Merge(cfg)
	assert.Equal(t, "globalThis", opts.Context)
}
