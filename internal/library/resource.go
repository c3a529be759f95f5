package library

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dpml/depot/directive"
	"github.com/dpml/depot/mod/module"
)

// Resource is a node of the library: a module, a local project or an
// external resource. Resources are immutable once the library is loaded.
type Resource struct {
	lib    *Library
	d      *directive.ResourceDirective // nil for a virtual root
	parent *Resource
	path   string

	basedir string
	filters map[string]directive.FilterDirective

	children []*Resource
	byName   map[string]*Resource
}

func newRoot(lib *Library) *Resource {
	return &Resource{lib: lib, byName: make(map[string]*Resource)}
}

func newResource(lib *Library, parent *Resource, d *directive.ResourceDirective) (*Resource, error) {
	r := &Resource{
		lib:     lib,
		d:       d,
		parent:  parent,
		path:    d.Name,
		filters: make(map[string]directive.FilterDirective),
	}
	if !parent.isRoot() {
		r.path = parent.path + "/" + d.Name
	}

	if d.Basedir != "" {
		r.basedir = resolveBasedir(parent.anchor(), d.Basedir)
	} else if d.Classifier == directive.Local {
		return nil, fmt.Errorf("missing base directory declaration in resource %s", r.path)
	}

	for _, f := range d.Filters {
		r.filters[f.FilterToken()] = f
	}

	if d.IsModule() {
		r.byName = make(map[string]*Resource)
		for _, c := range d.Resources {
			if err := r.add(c); err != nil {
				return nil, err
			}
		}
	}
	return r, nil
}

func resolveBasedir(anchor, basedir string) string {
	p := filepath.FromSlash(basedir)
	if !filepath.IsAbs(p) {
		p = filepath.Join(anchor, p)
	}
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	return filepath.Clean(p)
}

// add attaches a child directive to the module r, merging repeated module
// declarations.
func (r *Resource) add(d *directive.ResourceDirective) error {
	existing, ok := r.byName[d.Name]
	if !ok {
		child, err := newResource(r.lib, r, d)
		if err != nil {
			return err
		}
		r.byName[d.Name] = child
		r.children = append(r.children, child)
		return nil
	}
	if !d.IsModule() || !existing.IsModule() {
		return fmt.Errorf("%w: %s", ErrDuplicate, existing.path)
	}
	if d.Basedir != "" && existing.basedir != "" {
		if base := resolveBasedir(r.anchor(), d.Basedir); base != existing.basedir {
			return fmt.Errorf("cannot merge module %s with different base directories: %s and %s",
				existing.path, existing.basedir, base)
		}
	}
	if d.Version != "" && existing.d.Version != "" && d.Version != existing.d.Version {
		return fmt.Errorf("cannot merge module %s with different versions: %s and %s",
			existing.path, existing.d.Version, d.Version)
	}
	if len(d.Types) > 0 {
		return fmt.Errorf("cannot merge module %s: merging declaration produces types", existing.path)
	}
	if len(d.Dependencies) > 0 {
		return fmt.Errorf("cannot merge module %s: merging declaration declares dependencies", existing.path)
	}
	for _, c := range d.Resources {
		if err := existing.add(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resource) isRoot() bool {
	return r.d == nil
}

// anchor is the directory relative base directories of children resolve
// against: the base directory of r, else the library root.
func (r *Resource) anchor() string {
	if r.basedir != "" {
		return r.basedir
	}
	return r.lib.root
}

// Name returns the resource name.
func (r *Resource) Name() string {
	if r.d == nil {
		return ""
	}
	return r.d.Name
}

// Path returns the slash separated resource path, e.g. "dpml/util/dpml-util-cli".
func (r *Resource) Path() string { return r.path }

// Parent returns the enclosing module, or nil for a top-level module.
func (r *Resource) Parent() *Resource {
	if r.parent == nil || r.parent.isRoot() {
		return nil
	}
	return r.parent
}

// Group returns the path of the enclosing module, or "" at the top level.
func (r *Resource) Group() string {
	if p := r.Parent(); p != nil {
		return p.path
	}
	return ""
}

// Classifier returns where the resource comes from.
func (r *Resource) Classifier() directive.Classifier {
	if r.d == nil {
		return directive.External
	}
	return r.d.Classifier
}

func (r *Resource) IsModule() bool    { return r.d != nil && r.d.IsModule() }
func (r *Resource) IsLocal() bool     { return r.Classifier() == directive.Local }
func (r *Resource) IsAnonymous() bool { return r.Classifier() == directive.Anonymous }

// Basedir returns the absolute base directory of a local resource, or ""
// for resources that are not built here.
func (r *Resource) Basedir() string { return r.basedir }

// Info returns the resource description, if any.
func (r *Resource) Info() *directive.InfoDirective {
	if r.d == nil {
		return nil
	}
	return r.d.Info
}

// Children returns the resources declared directly within a module in
// declaration order.
func (r *Resource) Children() []*Resource {
	return slices.Clone(r.children)
}

// Modules returns the child modules of r.
func (r *Resource) Modules() []*Resource {
	var list []*Resource
	for _, c := range r.children {
		if c.IsModule() {
			list = append(list, c)
		}
	}
	return list
}

// Child returns the direct child named name.
func (r *Resource) Child(name string) (*Resource, bool) {
	c, ok := r.byName[name]
	return c, ok
}

// Types returns the artifact types the resource produces.
func (r *Resource) Types() []directive.TypeDirective {
	if r.d == nil {
		return nil
	}
	return slices.Clone(r.d.Types)
}

// Isa reports whether the resource produces the type id.
func (r *Resource) Isa(id string) bool {
	_, ok := r.Type(id)
	return ok
}

// Type returns the type directive for id.
func (r *Resource) Type(id string) (directive.TypeDirective, bool) {
	if r.d == nil {
		return directive.TypeDirective{}, false
	}
	for _, t := range r.d.Types {
		if t.ID == id {
			return t, true
		}
	}
	return directive.TypeDirective{}, false
}

// Version returns the declared version, inheriting from the enclosing
// module and finally from the build signature.
func (r *Resource) Version() string {
	if r.IsAnonymous() {
		return r.d.Version
	}
	for p := r; p != nil && p.d != nil; p = p.parent {
		if p.d.Version != "" {
			return p.d.Version
		}
	}
	return r.standardVersion()
}

// standardVersion derives a version from the build.signature property.
func (r *Resource) standardVersion() string {
	sig, ok := r.rawProperty(SignatureProperty)
	if !ok || sig == "" {
		sig = r.lib.signature
	}
	if sig == TimestampSignature {
		return r.lib.timestamp
	}
	return sig
}

// Module returns the resource path and version.
func (r *Resource) Module() module.Version {
	return module.Version{Path: r.path, Version: r.Version()}
}

// Artifact returns the artifact produced by r for the type id.
func (r *Resource) Artifact(id string) (module.Artifact, error) {
	if r.d == nil {
		return module.Artifact{}, fmt.Errorf("artifacts are not supported on the virtual root")
	}
	if !r.Isa(id) {
		return module.Artifact{}, fmt.Errorf("type %q not recognized within the scope of resource %s", id, r.path)
	}
	return module.Artifact{
		Scheme:  r.d.ArtifactScheme(),
		Type:    id,
		Group:   r.Group(),
		Name:    r.Name(),
		Version: r.Version(),
	}, nil
}

// LinkArtifact returns the link artifact r publishes as an alias for type
// id. The type must declare an alias.
func (r *Resource) LinkArtifact(id string) (module.Artifact, error) {
	t, ok := r.Type(id)
	if !ok {
		return module.Artifact{}, fmt.Errorf("type %q not recognized within the scope of resource %s", id, r.path)
	}
	if !t.HasAlias() {
		return module.Artifact{}, fmt.Errorf("resource %s does not declare production of an alias for type %q", r, id)
	}
	return module.Artifact{
		Scheme:  module.SchemeLink,
		Type:    id,
		Group:   r.Group(),
		Name:    r.Name(),
		Version: majorMinor(t.Version),
	}, nil
}

// majorMinor truncates a dotted version to its first two components.
func majorMinor(v string) string {
	if v == "" {
		return ""
	}
	parts := strings.SplitN(v, ".", 3)
	if len(parts) == 1 {
		return parts[0] + ".0"
	}
	return parts[0] + "." + parts[1]
}

// LayoutPath returns the cache layout path of the artifact for type id.
func (r *Resource) LayoutPath(id string) (string, error) {
	a, err := r.Artifact(id)
	if err != nil {
		return "", err
	}
	return a.LayoutPath(), nil
}

// isDescendantOf reports whether r is m or lies within m.
func (r *Resource) isDescendantOf(m *Resource) bool {
	for p := r; p != nil; p = p.parent {
		if p == m {
			return true
		}
	}
	return false
}

func (r *Resource) String() string {
	switch {
	case r.d == nil:
		return "root"
	case r.IsModule():
		return "module:" + r.path
	case r.IsLocal():
		return "project:" + r.path + "#" + r.Version()
	default:
		return "resource:" + r.path + "#" + r.Version()
	}
}

func byPath(a, b *Resource) int {
	return cmp.Compare(a.path, b.path)
}
