// Package descriptor reads and writes library descriptors: the XML files
// that declare modules, projects and resources and their dependencies.
package descriptor

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/antchfx/xmlquery"
	"github.com/dpml/depot/directive"
)

// Element names.
const (
	libraryElement      = "library"
	importsElement      = "imports"
	importElement       = "import"
	propertiesElement   = "properties"
	propertyElement     = "property"
	resourceElement     = "resource"
	projectElement      = "project"
	moduleElement       = "module"
	infoElement         = "info"
	descriptionElement  = "description"
	typesElement        = "types"
	typeElement         = "type"
	dependenciesElement = "dependencies"
	includeElement      = "include"
	filtersElement      = "filters"
	filterElement       = "filter"
	featureElement      = "feature"
)

// DefaultFilename is the conventional name of a library descriptor.
const DefaultFilename = "library.xml"

// Decode reads the library descriptor at file.
func Decode(file string) (*directive.LibraryDirective, error) {
	info, err := os.Stat(file)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s references a directory", file)
	}
	file, err = filepath.Abs(file)
	if err != nil {
		return nil, err
	}
	root, err := parseFile(file)
	if err != nil {
		return nil, err
	}
	dec := &decoder{root: filepath.Dir(file)}
	lib, err := dec.decodeLibrary(root)
	if err != nil {
		return nil, withFile(err, file)
	}
	return lib, nil
}

// DecodeResource reads a standalone module or resource descriptor. The uri
// may be a file: URI or a filesystem path; relative paths resolve against
// base.
func DecodeResource(uri, base string) (*directive.ResourceDirective, error) {
	file, err := localFile(uri, base)
	if err != nil {
		return nil, err
	}
	root, err := parseFile(file)
	if err != nil {
		return nil, err
	}
	dec := &decoder{root: filepath.Dir(file)}
	d, err := dec.decodeResourceElement(dec.root, root, "")
	if err != nil {
		return nil, withFile(err, file)
	}
	return d, nil
}

func localFile(uri, base string) (string, error) {
	u, err := url.Parse(uri)
	if err == nil && u.Scheme != "" && len(u.Scheme) > 1 {
		if u.Scheme != "file" {
			return "", fmt.Errorf("import %s: unsupported scheme %q", uri, u.Scheme)
		}
		uri = u.Path
		if u.Opaque != "" {
			// file:relative/path
			uri = u.Opaque
		}
	}
	if !filepath.IsAbs(uri) {
		uri = filepath.Join(base, uri)
	}
	return filepath.Clean(uri), nil
}

// decoder holds the directory base directories fall back to when no
// enclosing module declares one.
type decoder struct {
	root string
}

func (dec *decoder) decodeLibrary(root *xmlquery.Node) (*directive.LibraryDirective, error) {
	if root.Data != libraryElement {
		return nil, errorAt(root, "element is not a library")
	}
	lib := &directive.LibraryDirective{}
	for _, c := range children(root) {
		switch c.Data {
		case propertiesElement:
			props, err := decodeProperties(c)
			if err != nil {
				return nil, err
			}
			lib.Properties = props
		case importsElement:
			imports, err := decodeImports(c)
			if err != nil {
				return nil, err
			}
			lib.Imports = imports
		default:
			d, err := dec.decodeResourceElement(dec.root, c, "")
			if err != nil {
				return nil, err
			}
			lib.Resources = append(lib.Resources, d)
		}
	}
	return lib, nil
}

// decodeResourceElement decodes el, following a file attribute to the
// descriptor it names. offset is the basedir of el relative to base
// accumulated across file includes.
func (dec *decoder) decodeResourceElement(base string, el *xmlquery.Node, offset string) (*directive.ResourceDirective, error) {
	path, ok := attr(el, "file")
	if !ok {
		return dec.decodeResource(base, el, offset)
	}
	// an included document that is itself an include is relative to its
	// own directory
	dir := base
	if offset != "" {
		dir = filepath.Join(base, filepath.FromSlash(offset))
	}
	source := filepath.Clean(filepath.Join(dir, path))
	info, err := os.Stat(source)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, errorAt(el, "local file %s does not exist (base %s)", path, dir)
	case err != nil:
		return nil, errorAt(el, "%w", err)
	case info.IsDir():
		return nil, errorAt(el, "local file %s references a directory (base %s)", path, dir)
	}
	root, err := parseFile(source)
	if err != nil {
		return nil, errorAt(el, "%w", err)
	}
	rel, err := filepath.Rel(base, filepath.Dir(source))
	if err != nil {
		return nil, errorAt(el, "%w", err)
	}
	d, err := dec.decodeResourceElement(base, root, filepath.ToSlash(rel))
	if err != nil {
		return nil, withFile(err, source)
	}
	return d, nil
}

func (dec *decoder) decodeResource(base string, el *xmlquery.Node, offset string) (*directive.ResourceDirective, error) {
	d := &directive.ResourceDirective{}
	switch el.Data {
	case resourceElement:
		d.Kind = directive.KindResource
	case projectElement:
		d.Kind = directive.KindProject
	case moduleElement:
		d.Kind = directive.KindModule
	default:
		return nil, errorAt(el, "invalid element name %q", el.Data)
	}

	name, ok := attr(el, "name")
	if !ok || name == "" {
		return nil, errorAt(el, "missing name attribute")
	}
	d.Name = name
	d.Version, _ = attr(el, "version")
	d.Scheme, _ = attr(el, "scheme")

	basedir, hasBasedir := attr(el, "basedir")
	if offset != "" {
		if hasBasedir {
			basedir = offset + "/" + basedir
		} else {
			basedir = offset
		}
		hasBasedir = true
	}

	switch d.Kind {
	case directive.KindProject:
		d.Classifier = directive.Local
		if !hasBasedir {
			basedir = "."
		}
	case directive.KindModule:
		if hasBasedir {
			d.Classifier = directive.Local
		} else {
			d.Classifier = directive.External
		}
	default:
		d.Classifier = directive.External
	}
	d.Basedir = basedir

	var err error
	if d.Info, err = decodeInfo(child(el, infoElement)); err != nil {
		return nil, err
	}
	if d.Types, err = decodeTypes(child(el, typesElement)); err != nil {
		return nil, err
	}
	if d.Dependencies, err = decodeDependencies(child(el, dependenciesElement)); err != nil {
		return nil, err
	}
	if d.Filters, err = decodeFilters(child(el, filtersElement)); err != nil {
		return nil, err
	}
	if p := child(el, propertiesElement); p != nil {
		if d.Properties, err = decodeProperties(p); err != nil {
			return nil, err
		}
	}

	if d.Kind != directive.KindModule {
		return d, nil
	}
	// children of a module without a basedir anchor at the root, as they
	// do once loaded
	anchor := dec.root
	if hasBasedir {
		if filepath.IsAbs(basedir) {
			anchor = filepath.Clean(basedir)
		} else {
			anchor = filepath.Join(base, filepath.FromSlash(basedir))
		}
	}
	for _, c := range children(el) {
		switch c.Data {
		case resourceElement, projectElement, moduleElement:
			r, err := dec.decodeResourceElement(anchor, c, "")
			if err != nil {
				return nil, err
			}
			d.Resources = append(d.Resources, r)
		case infoElement, typesElement, dependenciesElement, filtersElement, propertiesElement:
		default:
			return nil, errorAt(c, "invalid element name %q within module", c.Data)
		}
	}
	return d, nil
}

func decodeImports(el *xmlquery.Node) ([]directive.ImportDirective, error) {
	var imports []directive.ImportDirective
	for _, c := range children(el) {
		if c.Data != importElement {
			return nil, errorAt(c, "invalid import element name %q", c.Data)
		}
		props, err := decodeProperties(c)
		if err != nil {
			return nil, err
		}
		imp := directive.ImportDirective{Properties: props}
		if v, ok := attr(c, "file"); ok {
			imp.Mode, imp.Value = directive.ImportFile, v
		} else if v, ok := attr(c, "uri"); ok {
			imp.Mode, imp.Value = directive.ImportURI, v
		} else {
			return nil, errorAt(c, "import does not declare a 'file' or 'uri' attribute")
		}
		imports = append(imports, imp)
	}
	return imports, nil
}

func decodeInfo(el *xmlquery.Node) (*directive.InfoDirective, error) {
	if el == nil {
		return nil, nil
	}
	info := &directive.InfoDirective{}
	info.Title, _ = attr(el, "title")
	if d := child(el, descriptionElement); d != nil {
		info.Description = trimText(d.InnerText())
	}
	return info, nil
}

func decodeTypes(el *xmlquery.Node) ([]directive.TypeDirective, error) {
	if el == nil {
		return nil, nil
	}
	var types []directive.TypeDirective
	for _, c := range children(el) {
		id, ok := attr(c, "id")
		if !ok {
			if c.Data == typeElement {
				return nil, errorAt(c, "missing type 'id'")
			}
			// specialised type elements name the type they produce
			id = c.Data
		}
		alias, err := boolAttr(c, "alias")
		if err != nil {
			return nil, err
		}
		props, err := decodeProperties(c)
		if err != nil {
			return nil, err
		}
		types = append(types, directive.TypeDirective{
			ID:         id,
			Version:    attrOr(c, "version", ""),
			Alias:      alias,
			Properties: props,
		})
	}
	return types, nil
}

func decodeDependencies(el *xmlquery.Node) ([]directive.DependencyDirective, error) {
	if el == nil {
		return nil, nil
	}
	var deps []directive.DependencyDirective
	for _, c := range children(el) {
		scope, err := directive.ParseScope(c.Data)
		if err != nil {
			return nil, errorAt(c, "%w", err)
		}
		dep := directive.DependencyDirective{Scope: scope}
		for _, inc := range children(c) {
			include, err := decodeInclude(inc, scope == directive.Runtime)
			if err != nil {
				return nil, err
			}
			dep.Includes = append(dep.Includes, include)
		}
		deps = append(deps, dep)
	}
	return deps, nil
}

// decodeInclude decodes an include element. Only runtime includes are
// tagged with a category.
func decodeInclude(el *xmlquery.Node, tagged bool) (directive.IncludeDirective, error) {
	var inc directive.IncludeDirective
	if el.Data != includeElement {
		return inc, errorAt(el, "invalid include element name %q", el.Data)
	}
	inc.Category = directive.Undefined
	if tagged {
		c, err := directive.ParseCategory(attrOr(el, "tag", ""))
		if err != nil {
			return inc, errorAt(el, "%w", err)
		}
		inc.Category = c
	}
	props, err := decodeProperties(el)
	if err != nil {
		return inc, err
	}
	inc.Properties = props

	if v, ok := attr(el, "key"); ok {
		inc.Mode, inc.Value = directive.ByKey, v
	} else if v, ok := attr(el, "ref"); ok {
		inc.Mode, inc.Value = directive.ByRef, v
	} else if v, ok := attr(el, "uri"); ok {
		inc.Mode, inc.Value = directive.ByURI, v
	} else {
		return inc, errorAt(el, "include does not declare a 'uri', 'key' or 'ref' attribute")
	}
	return inc, nil
}

func decodeFilters(el *xmlquery.Node) ([]directive.FilterDirective, error) {
	if el == nil {
		return nil, nil
	}
	var filters []directive.FilterDirective
	for _, c := range children(el) {
		token, _ := attr(c, "token")
		switch c.Data {
		case filterElement:
			filters = append(filters, directive.SimpleFilter{
				Token: token,
				Value: attrOr(c, "value", ""),
			})
		case featureElement:
			feature, err := directive.ParseFeature(attrOr(c, "id", ""))
			if err != nil {
				return nil, errorAt(c, "%w", err)
			}
			alias, err := boolAttr(c, "alias")
			if err != nil {
				return nil, err
			}
			filters = append(filters, directive.FeatureFilter{
				Token:   token,
				Ref:     attrOr(c, "ref", ""),
				Feature: feature,
				Type:    attrOr(c, "type", ""),
				Alias:   alias,
			})
		default:
			return nil, errorAt(c, "element name not recognized (expecting 'filter' or 'feature')")
		}
	}
	return filters, nil
}

// decodeProperties collects the property children of el.
func decodeProperties(el *xmlquery.Node) (directive.Properties, error) {
	var props directive.Properties
	for _, c := range children(el) {
		if c.Data != propertyElement {
			continue
		}
		name, ok := attr(c, "name")
		if !ok {
			return props, errorAt(c, "property declaration does not contain a 'name' attribute")
		}
		props.Set(name, attrOr(c, "value", ""))
	}
	return props, nil
}
