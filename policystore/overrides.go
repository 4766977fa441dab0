package policystore

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/reglet-dev/reglet-command-host/policy"
	"github.com/reglet-dev/reglet-command-host/registry"
)

// CurrentVersion is the overrides document version written by Save.
const CurrentVersion = 1

// Rule changes the untrusted access of every command matching Pattern.
type Rule struct {
	Pattern string        `yaml:"pattern" json:"pattern" jsonschema:"minLength=1"`
	Access  policy.Access `yaml:"access" json:"access"`
}

// Overrides is the persisted set of access rules. Later rules win.
type Overrides struct {
	Rules []Rule `yaml:"overrides" json:"overrides,omitempty"`
	// Requires is an optional semver constraint on the host version.
	Requires string `yaml:"requires,omitempty" json:"requires,omitempty"`
	Version  int    `yaml:"version" json:"version,omitempty" jsonschema:"minimum=1"`
}

// IsEmpty reports whether there are no rules.
func (o *Overrides) IsEmpty() bool {
	return o == nil || len(o.Rules) == 0
}

// Validate checks every pattern and access level.
func (o *Overrides) Validate() error {
	if o == nil {
		return nil
	}
	if o.Requires != "" {
		if _, err := semver.NewConstraint(o.Requires); err != nil {
			return &ValidationError{Field: "requires", Reason: err.Error()}
		}
	}
	for i, r := range o.Rules {
		if r.Pattern == "" {
			return &ValidationError{Field: fmt.Sprintf("overrides[%d].pattern", i), Reason: "must not be empty"}
		}
		if !doublestar.ValidatePattern(r.Pattern) {
			return &ValidationError{Field: fmt.Sprintf("overrides[%d].pattern", i), Reason: fmt.Sprintf("invalid pattern %q", r.Pattern)}
		}
		if !r.Access.Valid() {
			return &ValidationError{Field: fmt.Sprintf("overrides[%d].access", i), Reason: fmt.Sprintf("invalid access %d", int(r.Access))}
		}
	}
	return nil
}

// CheckHost reports whether hostVersion satisfies Requires.
func (o *Overrides) CheckHost(hostVersion string) error {
	if o == nil || o.Requires == "" {
		return nil
	}
	c, err := semver.NewConstraint(o.Requires)
	if err != nil {
		return &ValidationError{Field: "requires", Reason: err.Error()}
	}
	v, err := semver.NewVersion(hostVersion)
	if err != nil {
		return fmt.Errorf("invalid host version %q: %w", hostVersion, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: host %s does not satisfy %q", ErrIncompatibleHost, v, o.Requires)
	}
	return nil
}

// Resolve returns the access of the last rule matching name.
func (o *Overrides) Resolve(name string) (policy.Access, bool) {
	if o == nil {
		return 0, false
	}
	var (
		access  policy.Access
		matched bool
	)
	for _, r := range o.Rules {
		ok, err := doublestar.Match(r.Pattern, name)
		if err != nil || !ok {
			continue
		}
		access, matched = r.Access, true
	}
	return access, matched
}

// Apply re-registers every registered command whose access is overridden and
// returns the names that changed.
func (o *Overrides) Apply(reg registry.CommandRegistry) []string {
	if o.IsEmpty() {
		return nil
	}
	var changed []string
	for _, name := range reg.Names() {
		access, ok := o.Resolve(name)
		if !ok {
			continue
		}
		entry, found := reg.Lookup(name)
		if !found || entry.Access == access {
			continue
		}
		reg.Register(name, access, entry.Handler)
		changed = append(changed, name)
	}
	return changed
}

// Set appends a rule, replacing an earlier rule with the same pattern.
func (o *Overrides) Set(pattern string, access policy.Access) {
	kept := o.Rules[:0]
	for _, r := range o.Rules {
		if r.Pattern != pattern {
			kept = append(kept, r)
		}
	}
	o.Rules = append(kept, Rule{Pattern: pattern, Access: access})
}
