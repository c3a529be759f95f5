// Package directive defines the immutable descriptors produced when a
// library descriptor is decoded: libraries, modules, projects, resources
// and the type, dependency and filter declarations they carry.
package directive

// Kind is the element a resource directive was declared with.
type Kind int

const (
	KindResource Kind = iota
	KindProject
	KindModule
)

func (k Kind) String() string {
	switch k {
	case KindProject:
		return "project"
	case KindModule:
		return "module"
	default:
		return "resource"
	}
}

// DefaultScheme is the artifact scheme used when a resource names none.
const DefaultScheme = "artifact"

// InfoDirective carries the human readable description of a resource.
type InfoDirective struct {
	Title       string
	Description string
}

// TypeDirective declares an artifact type produced by a resource.
type TypeDirective struct {
	ID string
	// Version is the alias version. Empty with Alias set means a link
	// without a version suffix.
	Version    string
	Alias      bool
	Properties Properties
}

// HasAlias reports whether the type declares production of a link alias.
func (t TypeDirective) HasAlias() bool {
	return t.Alias || t.Version != ""
}

// IncludeMode says how an include value is resolved.
type IncludeMode int

const (
	// ByKey resolves against the enclosing module.
	ByKey IncludeMode = iota
	// ByRef resolves against the library root.
	ByRef
	// ByURI synthesises an anonymous resource from an artifact URI.
	ByURI
)

func (m IncludeMode) String() string {
	switch m {
	case ByRef:
		return "ref"
	case ByURI:
		return "uri"
	default:
		return "key"
	}
}

// IncludeDirective is a single dependency edge.
type IncludeDirective struct {
	Mode       IncludeMode
	Category   Category
	Value      string
	Properties Properties
}

// DependencyDirective groups the includes of one scope.
type DependencyDirective struct {
	Scope    Scope
	Includes []IncludeDirective
}

// IncludesFor returns the includes tagged with category.
func (d DependencyDirective) IncludesFor(category Category) []IncludeDirective {
	var list []IncludeDirective
	for _, inc := range d.Includes {
		if inc.Category == category {
			list = append(list, inc)
		}
	}
	return list
}

// FilterDirective replaces a token during resource filtering.
type FilterDirective interface {
	FilterToken() string
}

// SimpleFilter substitutes a literal value.
type SimpleFilter struct {
	Token string
	Value string
}

func (f SimpleFilter) FilterToken() string { return f.Token }

// FeatureFilter substitutes a feature of a (possibly other) resource.
type FeatureFilter struct {
	Token   string
	Ref     string // empty means the filtered resource itself
	Feature Feature
	Type    string
	Alias   bool
}

func (f FeatureFilter) FilterToken() string { return f.Token }

// ResourceDirective describes a resource, project or module.
type ResourceDirective struct {
	Kind         Kind
	Name         string
	Version      string
	Scheme       string
	Classifier   Classifier
	Basedir      string
	Info         *InfoDirective
	Types        []TypeDirective
	Dependencies []DependencyDirective
	Filters      []FilterDirective
	Properties   Properties

	// Resources holds the children of a module.
	Resources []*ResourceDirective
}

// IsModule reports whether d was declared as a module.
func (d *ResourceDirective) IsModule() bool {
	return d.Kind == KindModule
}

// IsLocal reports whether d is buildable in this library.
func (d *ResourceDirective) IsLocal() bool {
	return d.Classifier == Local
}

// DependenciesFor returns the dependency directive for scope. It never
// returns nil includes for a missing scope, only an empty directive.
func (d *ResourceDirective) DependenciesFor(scope Scope) DependencyDirective {
	for _, dep := range d.Dependencies {
		if dep.Scope == scope {
			return dep
		}
	}
	return DependencyDirective{Scope: scope}
}

// ArtifactScheme returns the scheme used for the resource's artifacts.
func (d *ResourceDirective) ArtifactScheme() string {
	if d.Scheme == "" {
		return DefaultScheme
	}
	return d.Scheme
}

// NewModule wraps children in an external module directive named name.
func NewModule(name string, children ...*ResourceDirective) *ResourceDirective {
	return &ResourceDirective{
		Kind:       KindModule,
		Name:       name,
		Classifier: External,
		Resources:  children,
	}
}

// ImportMode says where an import is read from.
type ImportMode int

const (
	ImportFile ImportMode = iota
	ImportURI
)

// ImportDirective pulls an externally described module into the library.
type ImportDirective struct {
	Mode       ImportMode
	Value      string
	Properties Properties
}

// LibraryDirective is the decoded root of a library descriptor.
type LibraryDirective struct {
	Imports    []ImportDirective
	Resources  []*ResourceDirective
	Properties Properties
}
