package library

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dpml/depot/directive"
)

// anyCategory selects includes regardless of their category.
const anyCategory directive.Category = -100

const classpathType = "jar"

type providerKey struct {
	r     *Resource
	scope directive.Scope
}

// trail tracks the modules whose build providers are being computed so
// that a module reached again through its own children reports a cycle
// instead of recursing forever.
type trail struct {
	active []*Resource
}

func (t *trail) enter(r *Resource) error {
	if i := slices.Index(t.active, r); i >= 0 {
		var names []string
		for _, m := range t.active[i:] {
			names = append(names, m.path)
		}
		names = append(names, r.path)
		return fmt.Errorf("%w: %s", ErrCycle, strings.Join(names, " -> "))
	}
	t.active = append(t.active, r)
	return nil
}

func (t *trail) leave() {
	t.active = t.active[:len(t.active)-1]
}

// include resolves a single include directive declared by r.
func (r *Resource) include(scope directive.Scope, inc directive.IncludeDirective) (*Resource, error) {
	value, err := r.Expand(inc.Value)
	if err != nil {
		return nil, err
	}
	var p *Resource
	switch inc.Mode {
	case directive.ByURI:
		p, err = r.lib.anonymousResource(value, inc.Properties)
	case directive.ByKey:
		if g := r.Group(); g != "" {
			value = g + "/" + value
		}
		p, err = r.lib.Resource(value)
	default:
		p, err = r.lib.Resource(value)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to resolve %s include %q in %s: %w", scope, inc.Value, r, err)
	}
	return p, nil
}

// declared returns the resources r includes for scope and category,
// excluding the implicit providers of modules.
func (r *Resource) declared(scope directive.Scope, category directive.Category) ([]*Resource, error) {
	if r.d == nil {
		return nil, nil
	}
	var list []*Resource
	for _, inc := range r.d.DependenciesFor(scope).Includes {
		if category != anyCategory && inc.Category != category {
			continue
		}
		p, err := r.include(scope, inc)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(list, p) {
			list = append(list, p)
		}
	}
	return list, nil
}

// local returns the direct providers of r for scope. The build providers
// of a module also cover its children and whatever they need.
func (r *Resource) local(scope directive.Scope, category directive.Category, t *trail) ([]*Resource, error) {
	list, err := r.declared(scope, category)
	if err != nil {
		return nil, err
	}
	if r.IsModule() && scope == directive.Build {
		if err := t.enter(r); err != nil {
			return nil, err
		}
		defer t.leave()
		if err := r.moduleProviders(r, &list, true, t); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// moduleProviders adds the children of r (when self is set), the providers
// of nested modules and the modules enclosing the test providers of
// non-module children to stack. Modules within top are never added.
func (r *Resource) moduleProviders(top *Resource, stack *[]*Resource, self bool, t *trail) error {
	if self {
		for _, c := range r.children {
			if !slices.Contains(*stack, c) {
				*stack = append(*stack, c)
			}
		}
	}
	for _, c := range r.children {
		if c.IsModule() {
			if err := c.moduleProviders(top, stack, false, t); err != nil {
				return err
			}
			continue
		}
		providers, err := c.aggregated(directive.Test, true, false, t)
		if err != nil {
			return err
		}
		for _, p := range providers {
			if p.IsAnonymous() {
				continue
			}
			parent := p.Parent()
			if parent == nil || parent.isDescendantOf(top) || slices.Contains(*stack, parent) {
				continue
			}
			*stack = append(*stack, parent)
		}
	}
	return nil
}

// direct returns the providers of r for exactly scope, optionally expanded
// to their transitive closure.
func (r *Resource) direct(scope directive.Scope, expand bool, category directive.Category, t *trail) ([]*Resource, error) {
	providers, err := r.local(scope, category, t)
	if err != nil || !expand {
		return providers, err
	}
	return closure(providers, scope, t)
}

// aggregated returns the providers of r for scope and every narrower scope.
// filtered keeps only classpath entries.
func (r *Resource) aggregated(scope directive.Scope, expand, filtered bool, t *trail) ([]*Resource, error) {
	var list []*Resource
	if !expand && !filtered {
		if cached, ok := r.lib.providers.Get(providerKey{r, scope}); ok {
			return cached, nil
		}
	}
	for _, s := range directive.Scopes {
		if s > scope || (filtered && s == directive.Build) {
			continue
		}
		providers, err := r.local(s, anyCategory, t)
		if err != nil {
			return nil, err
		}
		for _, p := range providers {
			if !slices.Contains(list, p) {
				list = append(list, p)
			}
		}
	}
	if expand {
		var err error
		if list, err = closure(list, scope, t); err != nil {
			return nil, err
		}
	}
	if filtered {
		list = slices.DeleteFunc(list, func(p *Resource) bool {
			return !p.Isa(classpathType)
		})
	}
	if !expand && !filtered {
		r.lib.providers.Add(providerKey{r, scope}, list)
	}
	return list, nil
}

// closure expands roots to their transitive providers, each provider
// listed after the resources it depends on.
func closure(roots []*Resource, scope directive.Scope, t *trail) ([]*Resource, error) {
	visited := make(map[*Resource]bool)
	var stack []*Resource
	var visit func(*Resource) error
	visit = func(r *Resource) error {
		if visited[r] {
			return nil
		}
		visited[r] = true
		providers, err := r.aggregated(scope, false, false, t)
		if err != nil {
			return err
		}
		for _, p := range providers {
			if err := visit(p); err != nil {
				return err
			}
		}
		stack = append(stack, r)
		return nil
	}
	for _, r := range roots {
		if err := visit(r); err != nil {
			return nil, err
		}
	}
	return stack, nil
}

// Providers returns the resources r includes under exactly scope. expand
// adds transitive providers and sorted orders the result providers first.
func (r *Resource) Providers(scope directive.Scope, expand, sorted bool) ([]*Resource, error) {
	list, err := r.direct(scope, expand, anyCategory, &trail{})
	if err != nil {
		return nil, err
	}
	return order(slices.Clone(list), scope, sorted), nil
}

// AggregatedProviders is like Providers but covers scope and every
// narrower scope.
func (r *Resource) AggregatedProviders(scope directive.Scope, expand, sorted bool) ([]*Resource, error) {
	list, err := r.aggregated(scope, expand, false, &trail{})
	if err != nil {
		return nil, err
	}
	return order(slices.Clone(list), scope, sorted), nil
}

// ClasspathProviders returns the sorted transitive jar providers needed at
// scope. Build scope providers are tools and never on a classpath.
func (r *Resource) ClasspathProviders(scope directive.Scope) ([]*Resource, error) {
	list, err := r.aggregated(scope, true, true, &trail{})
	if err != nil {
		return nil, err
	}
	return sortResources(slices.Clone(list), scope), nil
}

// CategoryClasspath returns the sorted runtime providers of category that
// are not already reachable through a narrower category.
func (r *Resource) CategoryClasspath(category directive.Category) ([]*Resource, error) {
	t := &trail{}
	var lower []*Resource
	for _, c := range directive.Categories {
		if c >= category {
			break
		}
		list, err := r.direct(directive.Runtime, true, c, t)
		if err != nil {
			return nil, err
		}
		lower = append(lower, list...)
	}
	list, err := r.direct(directive.Runtime, true, category, t)
	if err != nil {
		return nil, err
	}
	list = slices.DeleteFunc(slices.Clone(list), func(p *Resource) bool {
		return slices.Contains(lower, p)
	})
	return sortResources(list, directive.Runtime), nil
}

// Consumers returns the declared resources that depend on r in any scope.
// expand follows consumers transitively.
func (r *Resource) Consumers(expand, sorted bool) ([]*Resource, error) {
	direct, err := r.consumers()
	if err != nil {
		return nil, err
	}
	list := direct
	if expand {
		visited := make(map[*Resource]bool)
		list = nil
		var visit func(*Resource) error
		visit = func(c *Resource) error {
			if visited[c] {
				return nil
			}
			visited[c] = true
			list = append(list, c)
			next, err := c.consumers()
			if err != nil {
				return err
			}
			for _, n := range next {
				if err := visit(n); err != nil {
					return err
				}
			}
			return nil
		}
		for _, c := range direct {
			if err := visit(c); err != nil {
				return nil, err
			}
		}
	}
	return order(list, directive.Test, sorted), nil
}

func (r *Resource) consumers() ([]*Resource, error) {
	var list []*Resource
	for _, c := range r.lib.resources() {
		if c == r {
			continue
		}
		providers, err := c.aggregated(directive.Test, false, false, &trail{})
		if err != nil {
			return nil, err
		}
		if slices.Contains(providers, r) {
			list = append(list, c)
		}
	}
	return list, nil
}

// sortResources orders resources so that each appears after the members of
// resources it depends on. Resolution errors leave the affected resource
// where the walk reached it; Validate reports them.
func sortResources(resources []*Resource, scope directive.Scope) []*Resource {
	members := make(map[*Resource]bool, len(resources))
	for _, r := range resources {
		members[r] = true
	}
	visited := make(map[*Resource]bool)
	stack := make([]*Resource, 0, len(resources))
	for _, r := range resources {
		r.sortInto(visited, &stack, members, scope)
	}
	return stack
}

func (r *Resource) sortInto(visited map[*Resource]bool, stack *[]*Resource, members map[*Resource]bool, scope directive.Scope) {
	if visited[r] {
		return
	}
	visited[r] = true
	if r.IsModule() {
		providers, _ := r.providerModules(scope)
		for _, p := range providers {
			if members[p] {
				p.sortInto(visited, stack, members, scope)
			}
		}
		for _, c := range r.children {
			if members[c] {
				c.sortInto(visited, stack, members, scope)
			}
		}
	} else {
		providers, _ := r.aggregated(scope, false, false, &trail{})
		for _, p := range providers {
			if members[p] {
				p.sortInto(visited, stack, members, scope)
			}
		}
	}
	if !slices.Contains(*stack, r) {
		*stack = append(*stack, r)
	}
}

// providerModules returns the modules the module r depends on: modules
// reachable from its own providers and those of its nested modules.
func (r *Resource) providerModules(scope directive.Scope) ([]*Resource, error) {
	visited := make(map[*Resource]bool)
	var stack []*Resource
	t := &trail{}
	var visit func(*Resource) error
	visit = func(m *Resource) error {
		if visited[m] {
			return nil
		}
		visited[m] = true
		if m.IsAnonymous() {
			return nil
		}
		providers, err := m.aggregated(scope, true, false, t)
		if err != nil {
			return err
		}
		if !m.IsModule() {
			for _, p := range providers {
				if parent := p.Parent(); parent != nil {
					if err := visit(parent); err != nil {
						return err
					}
				}
			}
			return nil
		}
		for _, p := range providers {
			if err := visit(p); err != nil {
				return err
			}
		}
		for _, c := range m.Modules() {
			if err := visit(c); err != nil {
				return err
			}
		}
		if m != r {
			stack = append(stack, m)
		}
		return nil
	}
	if err := visit(r); err != nil {
		return nil, err
	}
	return stack, nil
}

// Sort orders resources so that each follows the members it depends on
// at scope.
func Sort(resources []*Resource, scope directive.Scope) []*Resource {
	return sortResources(slices.Clone(resources), scope)
}

// ProviderModules returns the modules the module r depends on, providers
// first.
func (r *Resource) ProviderModules() ([]*Resource, error) {
	if !r.IsModule() {
		return nil, fmt.Errorf("%w: %s", ErrNotModule, r.path)
	}
	modules, err := r.providerModules(directive.Test)
	if err != nil {
		return nil, err
	}
	return sortResources(modules, directive.Test), nil
}
