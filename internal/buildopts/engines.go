package buildopts

import "github.com/Masterminds/semver/v3"

// EngineGate reports whether a package's declared "engines" range
// admits the build's target runtime. No loader or resolver in this
// module calls it.
type EngineGate struct {
	target *semver.Version
}

func NewEngineGate(targetVersion string) (*EngineGate, error) {
	v, err := semver.NewVersion(targetVersion)
	if err != nil {
		return nil, err
	}
	return &EngineGate{target: v}, nil
}

// Allows reports whether enginesConstraint (e.g. ">=14.0.0") permits
// the gate's target runtime. An empty or unparsable constraint is
// treated as "no constraint" rather than a hard failure, since a
// malformed engines field in a dependency shouldn't abort a build the
// same way a resolution failure would.
func (g *EngineGate) Allows(enginesConstraint string) bool {
	if g == nil || enginesConstraint == "" {
		return true
	}
	c, err := semver.NewConstraint(enginesConstraint)
	if err != nil {
		return true
	}
	return c.Check(g.target)
}
