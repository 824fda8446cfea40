package buildopts

// Project config loading, grounded on jayu-rev-dep's configProcessor.go
// / config.go: a config file next to the entry points, resolved either
// as a direct path or a directory containing a default file name, with
// JSONC (comments allowed) as the primary format and YAML as a fallback
// when no bundle.config.jsonc file is present.

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

const (
	defaultJSONConfigName = "bundle.config.jsonc"
	defaultYAMLConfigName = "bundle.config.yaml"
)

// ConfigFile is the on-disk shape of a project config. It is
// intentionally a thin, JSON-friendly mirror of Options: External is a
// list of names and glob patterns that Merge compiles into the
// Options.External function, and the other function-typed fields
// (ModuleContext, OnWarn) aren't representable in a config file and are
// left for the CLI/API caller to set after Load.
type ConfigFile struct {
	Input                     []string          `json:"input" yaml:"input"`
	External                  []string          `json:"external,omitempty" yaml:"external,omitempty"`
	PropertyReadSideEffects   *bool             `json:"propertyReadSideEffects,omitempty" yaml:"propertyReadSideEffects,omitempty"`
	PureExternalModules       []string          `json:"pureExternalModules,omitempty" yaml:"pureExternalModules,omitempty"`
	ShimMissingExports        bool              `json:"shimMissingExports,omitempty" yaml:"shimMissingExports,omitempty"`
	PreferConst               bool              `json:"preferConst,omitempty" yaml:"preferConst,omitempty"`
	ExperimentalTopLevelAwait bool              `json:"experimentalTopLevelAwait,omitempty" yaml:"experimentalTopLevelAwait,omitempty"`
	ExperimentalCacheExpiry   int               `json:"experimentalCacheExpiry,omitempty" yaml:"experimentalCacheExpiry,omitempty"`
	Context                   string            `json:"context,omitempty" yaml:"context,omitempty"`
	PreserveModules           bool              `json:"preserveModules,omitempty" yaml:"preserveModules,omitempty"`
	InlineDynamicImports      bool              `json:"inlineDynamicImports,omitempty" yaml:"inlineDynamicImports,omitempty"`
	ManualChunks              map[string][]string `json:"manualChunks,omitempty" yaml:"manualChunks,omitempty"`
}

// LoadConfigFile resolves configPath (a file, a directory containing a
// default file name, or "" to search cwd) the way rev-dep's LoadConfig
// resolves rev-dep.config.json.
func LoadConfigFile(configPath, cwd string) (*ConfigFile, string, error) {
	if configPath == "" {
		if p := filepath.Join(cwd, defaultJSONConfigName); fileExists(p) {
			configPath = p
		} else if p := filepath.Join(cwd, defaultYAMLConfigName); fileExists(p) {
			configPath = p
		} else {
			return &ConfigFile{}, "", nil
		}
	}

	info, err := os.Stat(configPath)
	if err != nil {
		return nil, "", err
	}
	actualPath := configPath
	if info.IsDir() {
		if p := filepath.Join(configPath, defaultJSONConfigName); fileExists(p) {
			actualPath = p
		} else {
			actualPath = filepath.Join(configPath, defaultYAMLConfigName)
		}
	}

	raw, err := os.ReadFile(actualPath)
	if err != nil {
		return nil, "", err
	}

	cfg := &ConfigFile{}
	if filepath.Ext(actualPath) == ".yaml" || filepath.Ext(actualPath) == ".yml" {
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, "", fmt.Errorf("parsing %s: %w", actualPath, err)
		}
	} else {
		if err := json.Unmarshal(jsonc.ToJSON(raw), cfg); err != nil {
			return nil, "", fmt.Errorf("parsing %s: %w", actualPath, err)
		}
	}
	return cfg, actualPath, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Merge applies the config file's settings onto Options, leaving any
// field the CLI already set (non-zero) untouched — CLI flags win over
// the project config, per SPEC_FULL §1.6.
func (o *Options) Merge(cfg *ConfigFile) {
	if len(o.Input) == 0 && len(cfg.Input) > 0 {
		o.Input = inputsToMap(cfg.Input)
	}
	if cfg.External != nil {
		matcher := NewGlobExternalMatcher(cfg.External)
		if o.External == nil {
			o.External = matcher.IsExternal
		}
	}
	if cfg.PropertyReadSideEffects != nil {
		o.Treeshake.Options.PropertyReadSideEffects = *cfg.PropertyReadSideEffects
	}
	if len(cfg.PureExternalModules) > 0 {
		pure := NewGlobExternalMatcher(cfg.PureExternalModules)
		o.Treeshake.Options.PureExternalModules = func(id string) bool {
			return pure.IsExternal(id, "", false)
		}
	}
	if cfg.ShimMissingExports {
		o.ShimMissingExports = true
	}
	if cfg.PreferConst {
		o.PreferConst = true
	}
	if cfg.ExperimentalTopLevelAwait {
		o.ExperimentalTopLevelAwait = true
	}
	if cfg.ExperimentalCacheExpiry > 0 && o.ExperimentalCacheExpiry == 0 {
		o.ExperimentalCacheExpiry = cfg.ExperimentalCacheExpiry
	}
	if cfg.Context != "" && o.Context == "" {
		o.Context = cfg.Context
	}
	if cfg.PreserveModules {
		o.PreserveModules = true
	}
	if cfg.InlineDynamicImports {
		o.InlineDynamicImports = true
	}
	if len(cfg.ManualChunks) > 0 && o.ManualChunks == nil {
		o.ManualChunks = cfg.ManualChunks
	}
}

func inputsToMap(inputs []string) map[string]string {
	out := make(map[string]string, len(inputs))
	for _, in := range inputs {
		alias := filepath.Base(in)
		ext := filepath.Ext(alias)
		alias = alias[:len(alias)-len(ext)]
		out[alias] = in
	}
	return out
}
