package descriptor

import (
	"encoding/xml"
	"fmt"
	"io"

	"github.com/dpml/depot/directive"
)

type xmlProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type xmlProperties struct {
	Properties []xmlProperty `xml:"property"`
}

type xmlInfo struct {
	Title       string `xml:"title,attr,omitempty"`
	Description string `xml:"description,omitempty"`
}

type xmlType struct {
	ID         string        `xml:"id,attr"`
	Version    string        `xml:"version,attr,omitempty"`
	Alias      bool          `xml:"alias,attr,omitempty"`
	Properties []xmlProperty `xml:"property"`
}

type xmlTypes struct {
	Types []xmlType `xml:"type"`
}

type xmlInclude struct {
	Key        string        `xml:"key,attr,omitempty"`
	Ref        string        `xml:"ref,attr,omitempty"`
	URI        string        `xml:"uri,attr,omitempty"`
	Tag        string        `xml:"tag,attr,omitempty"`
	Properties []xmlProperty `xml:"property"`
}

type xmlScope struct {
	XMLName  xml.Name
	Includes []xmlInclude `xml:"include"`
}

type xmlDependencies struct {
	Scopes []xmlScope
}

type xmlFilter struct {
	XMLName xml.Name
	Token   string `xml:"token,attr"`
	Value   string `xml:"value,attr,omitempty"`
	ID      string `xml:"id,attr,omitempty"`
	Ref     string `xml:"ref,attr,omitempty"`
	Type    string `xml:"type,attr,omitempty"`
	Alias   bool   `xml:"alias,attr,omitempty"`
}

type xmlFilters struct {
	Filters []xmlFilter
}

type xmlResource struct {
	XMLName      xml.Name
	Name         string           `xml:"name,attr"`
	Version      string           `xml:"version,attr,omitempty"`
	Scheme       string           `xml:"scheme,attr,omitempty"`
	Basedir      string           `xml:"basedir,attr,omitempty"`
	Info         *xmlInfo         `xml:"info,omitempty"`
	Types        *xmlTypes        `xml:"types,omitempty"`
	Dependencies *xmlDependencies `xml:"dependencies,omitempty"`
	Filters      *xmlFilters      `xml:"filters,omitempty"`
	Properties   *xmlProperties   `xml:"properties,omitempty"`
	Resources    []*xmlResource
}

// Encode writes d, and its children when d is a module, as an indented XML
// descriptor that DecodeResource reads back.
func Encode(w io.Writer, d *directive.ResourceDirective) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(toXML(d)); err != nil {
		return fmt.Errorf("encode %s: %w", d.Name, err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func toXML(d *directive.ResourceDirective) *xmlResource {
	x := &xmlResource{
		XMLName: xml.Name{Local: d.Kind.String()},
		Name:    d.Name,
		Version: d.Version,
		Scheme:  d.Scheme,
		Basedir: d.Basedir,
	}
	if d.Kind == directive.KindProject && d.Basedir == "." {
		x.Basedir = ""
	}
	if d.Info != nil {
		x.Info = &xmlInfo{Title: d.Info.Title, Description: d.Info.Description}
	}
	if len(d.Types) > 0 {
		x.Types = &xmlTypes{}
		for _, t := range d.Types {
			x.Types.Types = append(x.Types.Types, xmlType{
				ID:         t.ID,
				Version:    t.Version,
				Alias:      t.Alias,
				Properties: toXMLProperties(t.Properties),
			})
		}
	}
	if deps := toXMLDependencies(d.Dependencies); deps != nil {
		x.Dependencies = deps
	}
	if len(d.Filters) > 0 {
		x.Filters = &xmlFilters{}
		for _, f := range d.Filters {
			x.Filters.Filters = append(x.Filters.Filters, toXMLFilter(f))
		}
	}
	if d.Properties.Len() > 0 {
		x.Properties = &xmlProperties{Properties: toXMLProperties(d.Properties)}
	}
	for _, r := range d.Resources {
		x.Resources = append(x.Resources, toXML(r))
	}
	return x
}

func toXMLDependencies(deps []directive.DependencyDirective) *xmlDependencies {
	var x xmlDependencies
	for _, dep := range deps {
		if len(dep.Includes) == 0 {
			continue
		}
		s := xmlScope{XMLName: xml.Name{Local: dep.Scope.String()}}
		for _, inc := range dep.Includes {
			xi := xmlInclude{Properties: toXMLProperties(inc.Properties)}
			switch inc.Mode {
			case directive.ByRef:
				xi.Ref = inc.Value
			case directive.ByURI:
				xi.URI = inc.Value
			default:
				xi.Key = inc.Value
			}
			if dep.Scope == directive.Runtime && inc.Category != directive.Undefined {
				xi.Tag = inc.Category.String()
			}
			s.Includes = append(s.Includes, xi)
		}
		x.Scopes = append(x.Scopes, s)
	}
	if len(x.Scopes) == 0 {
		return nil
	}
	return &x
}

func toXMLFilter(f directive.FilterDirective) xmlFilter {
	switch f := f.(type) {
	case directive.SimpleFilter:
		return xmlFilter{XMLName: xml.Name{Local: filterElement}, Token: f.Token, Value: f.Value}
	case directive.FeatureFilter:
		return xmlFilter{
			XMLName: xml.Name{Local: featureElement},
			Token:   f.Token,
			ID:      string(f.Feature),
			Ref:     f.Ref,
			Type:    f.Type,
			Alias:   f.Alias,
		}
	}
	return xmlFilter{XMLName: xml.Name{Local: filterElement}, Token: f.FilterToken()}
}

func toXMLProperties(p directive.Properties) []xmlProperty {
	var list []xmlProperty
	for _, name := range p.Names() {
		v, _ := p.Get(name)
		list = append(list, xmlProperty{Name: name, Value: v})
	}
	return list
}
