// Package library builds the resource model of a library descriptor:
// modules, projects and resources, their properties and the dependency
// graph between them.
package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/dpml/depot/directive"
	"github.com/dpml/depot/internal/descriptor"
	"github.com/dpml/depot/mod/module"
	"github.com/hashicorp/go-hclog"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/joho/godotenv"
)

var (
	// ErrNotFound is returned when a reference does not name a resource.
	ErrNotFound = errors.New("resource not found")
	// ErrNotModule is returned when a reference names a non-module resource
	// where a module is required.
	ErrNotModule = errors.New("resource is not a module")
	// ErrDuplicate is returned when a name is declared twice in a module.
	ErrDuplicate = errors.New("duplicate resource")
	// ErrCycle is returned for cyclic dependencies and property references.
	ErrCycle = errors.New("cycle detected")
)

// Property files read from the library directory, lowest precedence first.
var propertyFiles = []string{"build.properties", "user.properties"}

// DefaultSignature is the version assigned to resources that declare none
// when no build.signature property is set.
const DefaultSignature = "SNAPSHOT"

// Options configures a Library.
type Options struct {
	Logger hclog.Logger

	// Properties override library level properties.
	Properties map[string]string

	// Signature is the fallback build signature. Empty means SNAPSHOT.
	Signature string

	// Cache is the artifact cache directory used to resolve path features.
	Cache string

	// Parallelism bounds Validate. Zero means a single worker.
	Parallelism int

	// Now returns the time used for timestamp signatures.
	Now func() time.Time
}

// Library is a loaded library descriptor.
type Library struct {
	file      string
	root      string
	cache     string
	signature string
	timestamp string
	workers   int
	props     directive.Properties
	logger    hclog.Logger

	primary *Resource // declared resources
	imports *Resource // imported modules

	mu        sync.Mutex
	anonymous map[string]*Resource

	providers *lru.Cache[providerKey, []*Resource]
}

// Load decodes the library descriptor at file together with its imports
// and the property files next to it.
func Load(ctx context.Context, file string, opts Options) (*Library, error) {
	d, err := descriptor.Decode(file)
	if err != nil {
		return nil, err
	}
	file, err = filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	props := directive.NewProperties()
	props.Merge(d.Properties)
	for _, name := range propertyFiles {
		m, err := godotenv.Read(filepath.Join(filepath.Dir(file), name))
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		for _, k := range sortedKeys(m) {
			props.Set(k, m[k])
		}
	}
	d.Properties = props

	var imported []*directive.ResourceDirective
	for _, imp := range d.Imports {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := descriptor.DecodeResource(imp.Value, filepath.Dir(file))
		if err != nil {
			return nil, fmt.Errorf("import %s: %w", imp.Value, err)
		}
		r.Properties.Merge(imp.Properties)
		imported = append(imported, r)
	}
	return New(file, d, imported, opts)
}

// New builds a library from a decoded descriptor. file locates the library
// and anchors relative base directories; imports are modules pulled in from
// other descriptors.
func New(file string, d *directive.LibraryDirective, imports []*directive.ResourceDirective, opts Options) (*Library, error) {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	lib := &Library{
		file:      file,
		root:      filepath.Dir(file),
		cache:     opts.Cache,
		signature: opts.Signature,
		timestamp: now().UTC().Format("20060102.150405"),
		workers:   max(opts.Parallelism, 1),
		props:     d.Properties.Clone(),
		logger:    logger.Named("library"),
		anonymous: make(map[string]*Resource),
	}
	if lib.signature == "" {
		lib.signature = DefaultSignature
	}
	for _, k := range sortedKeys(opts.Properties) {
		lib.props.Set(k, opts.Properties[k])
	}

	cache, err := lru.New[providerKey, []*Resource](4096)
	if err != nil {
		return nil, err
	}
	lib.providers = cache

	lib.imports = newRoot(lib)
	for _, r := range imports {
		if !r.IsModule() {
			return nil, fmt.Errorf("import %s: %w", r.Name, ErrNotModule)
		}
		lib.logger.Debug("importing module", "module", r.Name)
		if err := lib.imports.add(r); err != nil {
			return nil, err
		}
	}
	lib.primary = newRoot(lib)
	for _, r := range d.Resources {
		if err := lib.primary.add(r); err != nil {
			return nil, err
		}
	}
	lib.logger.Debug("loaded library", "file", file, "modules", len(lib.primary.children))
	return lib, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// File returns the absolute path of the library descriptor.
func (l *Library) File() string { return l.file }

// Root returns the library directory.
func (l *Library) Root() string { return l.root }

// Property returns a library level property.
func (l *Library) Property(key string) (string, bool) {
	return l.props.Get(key)
}

// Modules returns the top-level modules in declaration order.
func (l *Library) Modules() []*Resource {
	return l.primary.Modules()
}

// AllModules returns every module in the library, providers first.
func (l *Library) AllModules() []*Resource {
	var list []*Resource
	for _, r := range l.resources() {
		if r.IsModule() {
			list = append(list, r)
		}
	}
	return sortResources(list, directive.Test)
}

// resources returns every declared resource in pre-order.
func (l *Library) resources() []*Resource {
	var list []*Resource
	var walk func(*Resource)
	walk = func(r *Resource) {
		for _, c := range r.children {
			list = append(list, c)
			walk(c)
		}
	}
	walk(l.primary)
	return list
}

// Resource returns the resource at ref, a slash separated path. Declared
// resources take precedence over imported ones.
func (l *Library) Resource(ref string) (*Resource, error) {
	ref = strings.Trim(ref, "/")
	if ref == "" {
		return nil, fmt.Errorf("%w: empty reference", ErrNotFound)
	}
	for _, root := range []*Resource{l.primary, l.imports} {
		if r := root.lookup(strings.Split(ref, "/")); r != nil {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, ref)
}

func (r *Resource) lookup(elems []string) *Resource {
	c, ok := r.Child(elems[0])
	if !ok {
		return nil
	}
	if len(elems) == 1 {
		return c
	}
	return c.lookup(elems[1:])
}

// Module returns the module at ref.
func (l *Library) Module(ref string) (*Resource, error) {
	r, err := l.Resource(ref)
	if err != nil {
		return nil, err
	}
	if !r.IsModule() {
		return nil, fmt.Errorf("%w: %s", ErrNotModule, ref)
	}
	return r, nil
}

// Select returns the declared resources whose path matches the doublestar
// pattern. local restricts the result to local resources and sorted orders
// it providers first.
func (l *Library) Select(pattern string, local, sorted bool) ([]*Resource, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid selection pattern %q", pattern)
	}
	var list []*Resource
	for _, r := range l.resources() {
		if local && !r.IsLocal() {
			continue
		}
		if ok, _ := doublestar.Match(pattern, r.path); ok {
			list = append(list, r)
		}
	}
	return order(list, directive.Test, sorted), nil
}

// SelectDir returns the local resources with a base directory under dir.
// self includes a resource whose base directory is dir itself.
func (l *Library) SelectDir(dir string, self, sorted bool) ([]*Resource, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	var list []*Resource
	for _, r := range l.resources() {
		if !r.IsLocal() {
			continue
		}
		if r.basedir == dir {
			if self {
				list = append(list, r)
			}
			continue
		}
		if strings.HasPrefix(r.basedir, dir+string(filepath.Separator)) {
			list = append(list, r)
		}
	}
	return order(list, directive.Test, sorted), nil
}

// Locate returns the resource whose base directory is dir.
func (l *Library) Locate(dir string) (*Resource, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	for _, r := range l.resources() {
		if r.basedir == dir {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: no resource with base directory %s", ErrNotFound, dir)
}

// order sorts list providers first when sorted is set and otherwise keeps
// it as collected.
func order(list []*Resource, scope directive.Scope, sorted bool) []*Resource {
	if sorted {
		return sortResources(list, scope)
	}
	return list
}

// anonymousResource returns the resource synthesised for an artifact uri.
// Each uri yields the same resource for the lifetime of the library.
func (l *Library) anonymousResource(uri string, props directive.Properties) (*Resource, error) {
	a, err := module.ParseArtifact(uri)
	if err != nil {
		return nil, err
	}
	if !a.IsRecognized() {
		return nil, fmt.Errorf("artifact %q: unsupported scheme %q", uri, a.Scheme)
	}
	key := a.String()

	l.mu.Lock()
	defer l.mu.Unlock()
	if r, ok := l.anonymous[key]; ok {
		return r, nil
	}

	d := &directive.ResourceDirective{
		Kind:       directive.KindResource,
		Name:       a.Name,
		Version:    a.Version,
		Scheme:     a.Scheme,
		Classifier: directive.Anonymous,
		Types:      []directive.TypeDirective{{ID: a.Type}},
		Properties: props.Clone(),
	}
	if a.Scheme == directive.DefaultScheme {
		d.Scheme = ""
	}
	top := d
	if a.Group != "" {
		groups := strings.Split(a.Group, "/")
		for i := len(groups) - 1; i >= 0; i-- {
			top = directive.NewModule(groups[i], top)
			top.Classifier = directive.Anonymous
		}
	}
	root := newRoot(l)
	if err := root.add(top); err != nil {
		return nil, err
	}
	r := root.lookup(strings.Split(a.Path(), "/"))
	l.anonymous[key] = r
	return r, nil
}

// anonymousResources returns the synthesised resources seen so far.
func (l *Library) anonymousResources() []*Resource {
	l.mu.Lock()
	defer l.mu.Unlock()
	list := make([]*Resource, 0, len(l.anonymous))
	for _, r := range l.anonymous {
		list = append(list, r)
	}
	slices.SortFunc(list, byPath)
	return list
}
