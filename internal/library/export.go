package library

import (
	"fmt"

	"github.com/dpml/depot/directive"
)

// Export returns an external descriptor of the module r suitable for
// publishing. Providers within the module are referenced by path, all
// other providers by artifact uri. Enclosing modules are kept as empty
// wrappers so the exported module keeps its path.
func (r *Resource) Export() (*directive.ResourceDirective, error) {
	if !r.IsModule() {
		return nil, fmt.Errorf("%w: %s", ErrNotModule, r.path)
	}
	d, err := r.export(r)
	if err != nil {
		return nil, err
	}
	for p := r.Parent(); p != nil; p = p.Parent() {
		w := directive.NewModule(p.Name(), d)
		w.Version = p.Version()
		d = w
	}
	return d, nil
}

func (r *Resource) export(m *Resource) (*directive.ResourceDirective, error) {
	d := &directive.ResourceDirective{
		Name:       r.Name(),
		Version:    r.Version(),
		Scheme:     r.d.Scheme,
		Classifier: directive.External,
		Info:       r.d.Info,
		Properties: r.d.Properties.Clone(),
	}
	for _, t := range r.d.Types {
		d.Types = append(d.Types, directive.TypeDirective{ID: t.ID, Version: t.Version, Alias: t.Alias})
	}

	if r.IsModule() {
		d.Kind = directive.KindModule
		for _, c := range r.children {
			x, err := c.export(m)
			if err != nil {
				return nil, err
			}
			d.Resources = append(d.Resources, x)
		}
		return d, nil
	}

	d.Kind = directive.KindResource
	dep := directive.DependencyDirective{Scope: directive.Runtime}
	t := &trail{}
	for _, category := range directive.Categories {
		providers, err := r.direct(directive.Runtime, true, category, t)
		if err != nil {
			return nil, err
		}
		for _, p := range providers {
			if p.isDescendantOf(m) {
				dep.Includes = append(dep.Includes, directive.IncludeDirective{
					Mode:     directive.ByRef,
					Category: category,
					Value:    p.path,
				})
				continue
			}
			for _, typ := range p.d.Types {
				a, err := p.Artifact(typ.ID)
				if err != nil {
					return nil, err
				}
				dep.Includes = append(dep.Includes, directive.IncludeDirective{
					Mode:     directive.ByURI,
					Category: category,
					Value:    a.String(),
				})
			}
		}
	}
	if len(dep.Includes) > 0 {
		d.Dependencies = []directive.DependencyDirective{dep}
	}
	return d, nil
}
