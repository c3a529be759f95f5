package library

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dpml/depot/directive"
	"github.com/hashicorp/go-multierror"
)

// Well known property names.
const (
	SignatureProperty = "build.signature"
	BasedirProperty   = "basedir"
	NameProperty      = "project.name"
	GroupProperty     = "project.group"
	VersionProperty   = "project.version"
)

// TimestampSignature asks for a UTC timestamp version.
const TimestampSignature = "project.timestamp"

// rawProperty resolves key against r, its enclosing modules and finally the
// library, without symbol expansion.
func (r *Resource) rawProperty(key string) (string, bool) {
	for p := r; p != nil; p = p.parent {
		if v, ok := p.syntheticProperty(key); ok {
			return v, true
		}
		if p.d != nil {
			if v, ok := p.d.Properties.Get(key); ok {
				return v, true
			}
		}
	}
	return r.lib.props.Get(key)
}

func (r *Resource) syntheticProperty(key string) (string, bool) {
	if r.d == nil {
		return "", false
	}
	switch key {
	case BasedirProperty:
		return r.basedir, r.basedir != ""
	case NameProperty:
		return r.Name(), true
	case GroupProperty:
		return r.Group(), true
	case VersionProperty:
		return r.Version(), true
	}
	return "", false
}

// Property returns the expanded value of key. Values whose expansion fails
// are returned unexpanded.
func (r *Resource) Property(key string) (string, bool) {
	v, ok := r.rawProperty(key)
	if !ok {
		return "", false
	}
	if s, err := r.expand(v, []string{key}); err == nil {
		return s, true
	}
	return v, true
}

// ResolvedProperties returns every property visible from r with its value
// expanded. Failed expansions, such as reference cycles, are left out of the
// map and returned together as the error.
func (r *Resource) ResolvedProperties() (map[string]string, error) {
	props := make(map[string]string)
	var merr *multierror.Error
	for _, key := range r.PropertyNames() {
		v, _ := r.rawProperty(key)
		s, err := r.expand(v, []string{key})
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", r, err))
			continue
		}
		props[key] = s
	}
	return props, merr.ErrorOrNil()
}

// propertyErrors expands every property visible from r and returns the
// failures r introduces. A failure r inherits unchanged from its parent
// belongs to the parent.
func (r *Resource) propertyErrors() []error {
	var errs []error
	for _, key := range r.PropertyNames() {
		v, _ := r.rawProperty(key)
		_, err := r.expand(v, []string{key})
		if err == nil {
			continue
		}
		if p := r.parent; p != nil {
			if pv, ok := p.rawProperty(key); ok && pv == v {
				if _, perr := p.expand(pv, []string{key}); perr != nil {
					continue
				}
			}
		}
		errs = append(errs, err)
	}
	return errs
}

// PropertyNames returns every property name visible from r, sorted.
func (r *Resource) PropertyNames() []string {
	seen := make(map[string]bool)
	add := func(p directive.Properties) {
		for _, k := range p.Names() {
			seen[k] = true
		}
	}
	for p := r; p != nil; p = p.parent {
		if p.d != nil {
			add(p.d.Properties)
		}
	}
	add(r.lib.props)
	for _, k := range []string{NameProperty, GroupProperty, VersionProperty} {
		seen[k] = true
	}
	if r.basedir != "" {
		seen[BasedirProperty] = true
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Expand replaces ${name} symbols in s with property values. Unknown
// symbols are left in place.
func (r *Resource) Expand(s string) (string, error) {
	return r.expand(s, nil)
}

func (r *Resource) expand(s string, active []string) (string, error) {
	var b strings.Builder
	for {
		i := strings.Index(s, "${")
		if i < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		j := strings.IndexByte(s[i+2:], '}')
		if j < 0 {
			b.WriteString(s)
			return b.String(), nil
		}
		b.WriteString(s[:i])
		name := s[i+2 : i+2+j]
		s = s[i+3+j:]

		if slices.Contains(active, name) {
			return "", fmt.Errorf("%w: property %s references itself via %s",
				ErrCycle, name, strings.Join(append(active, name), " -> "))
		}
		v, ok := r.rawProperty(name)
		if !ok {
			b.WriteString("${" + name + "}")
			continue
		}
		v, err := r.expand(v, append(slices.Clone(active), name))
		if err != nil {
			return "", err
		}
		b.WriteString(v)
	}
}

// Filters returns the filters visible from r, inherited filters first
// overridden by closer declarations, ordered by token.
func (r *Resource) Filters() []directive.FilterDirective {
	merged := make(map[string]directive.FilterDirective)
	var chain []*Resource
	for p := r; p != nil; p = p.parent {
		chain = append(chain, p)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		for k, f := range chain[i].filters {
			merged[k] = f
		}
	}
	tokens := make([]string, 0, len(merged))
	for k := range merged {
		tokens = append(tokens, k)
	}
	slices.Sort(tokens)
	list := make([]directive.FilterDirective, len(tokens))
	for i, k := range tokens {
		list[i] = merged[k]
	}
	return list
}

// FilterValue resolves the replacement value of f in the context of r.
func (r *Resource) FilterValue(f directive.FilterDirective) (string, error) {
	switch f := f.(type) {
	case directive.SimpleFilter:
		return r.Expand(f.Value)
	case directive.FeatureFilter:
		return r.featureValue(f)
	}
	return "", fmt.Errorf("unsupported filter %T", f)
}

func (r *Resource) featureValue(f directive.FeatureFilter) (string, error) {
	target := r
	if f.Ref != "" {
		ref, err := r.Expand(f.Ref)
		if err != nil {
			return "", err
		}
		if target, err = r.lib.Resource(ref); err != nil {
			return "", fmt.Errorf("filter %s: %w", f.Token, err)
		}
	}
	if f.Type != "" && !target.Isa(f.Type) {
		return "", fmt.Errorf("filter %s: resource %s does not produce type %q", f.Token, target, f.Type)
	}
	needType := func() error {
		if f.Type == "" {
			return fmt.Errorf("filter %s: feature %s requires a type attribute", f.Token, f.Feature)
		}
		return nil
	}

	switch f.Feature {
	case directive.FeatureName:
		return target.Name(), nil
	case directive.FeatureGroup:
		return target.Group(), nil
	case directive.FeatureVersion:
		return target.Version(), nil
	case directive.FeatureDecimal:
		return decimal(target.Version()), nil
	case directive.FeatureSpec:
		return target.Module().String(), nil
	case directive.FeatureBasedir:
		if target.basedir == "" {
			return "", fmt.Errorf("filter %s: resource %s has no base directory", f.Token, target)
		}
		return target.basedir, nil
	case directive.FeatureURI:
		if err := needType(); err != nil {
			return "", err
		}
		if f.Alias {
			a, err := target.LinkArtifact(f.Type)
			return a.String(), err
		}
		a, err := target.Artifact(f.Type)
		return a.String(), err
	case directive.FeaturePath:
		if err := needType(); err != nil {
			return "", err
		}
		a, err := target.Artifact(f.Type)
		if err != nil {
			return "", err
		}
		return filepath.Join(r.lib.cache, filepath.FromSlash(a.LayoutPath())), nil
	case directive.FeatureFilename:
		if err := needType(); err != nil {
			return "", err
		}
		a, err := target.Artifact(f.Type)
		return a.Filename(), err
	}
	return "", fmt.Errorf("filter %s: unsupported feature %q", f.Token, f.Feature)
}

// decimal returns the leading dotted numeric part of v, "1.2.3" for
// "1.2.3-SNAPSHOT", or "0" when v has none.
func decimal(v string) string {
	end := 0
	for i, c := range v {
		if c >= '0' && c <= '9' {
			end = i + 1
			continue
		}
		if c != '.' {
			break
		}
	}
	if d := strings.TrimRight(v[:end], "."); d != "" {
		return d
	}
	return "0"
}
