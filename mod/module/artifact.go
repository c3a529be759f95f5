package module

import (
	"fmt"
	"path"
	"strings"
)

// Known artifact schemes.
const (
	SchemeArtifact = "artifact"
	SchemeLink     = "link"
	SchemeLocal    = "local"
)

// Artifact is a parsed artifact URI of the form
//
//	<scheme>:<type>:<group>/<name>#<version>
//
// The group and version parts are optional.
type Artifact struct {
	Scheme  string
	Type    string
	Group   string
	Name    string
	Version string
}

// ParseArtifact parses an artifact URI.
func ParseArtifact(uri string) (Artifact, error) {
	scheme, rest, ok := strings.Cut(uri, ":")
	if !ok || scheme == "" {
		return Artifact{}, fmt.Errorf("artifact %q: missing scheme", uri)
	}
	typ, spec, ok := strings.Cut(rest, ":")
	if !ok || typ == "" {
		return Artifact{}, fmt.Errorf("artifact %q: missing type", uri)
	}
	spec, version, _ := strings.Cut(spec, "#")
	spec = strings.Trim(spec, "/")
	if spec == "" {
		return Artifact{}, fmt.Errorf("artifact %q: missing name", uri)
	}
	group, name := "", spec
	if i := strings.LastIndex(spec, "/"); i >= 0 {
		group, name = spec[:i], spec[i+1:]
	}
	return Artifact{
		Scheme:  scheme,
		Type:    typ,
		Group:   group,
		Name:    name,
		Version: version,
	}, nil
}

// IsRecognized reports whether the scheme is one this package understands.
func (a Artifact) IsRecognized() bool {
	switch a.Scheme {
	case SchemeArtifact, SchemeLink, SchemeLocal:
		return true
	}
	return false
}

// Path returns group/name, or just the name when there is no group.
func (a Artifact) Path() string {
	if a.Group == "" {
		return a.Name
	}
	return a.Group + "/" + a.Name
}

// Module returns the artifact's path and version.
func (a Artifact) Module() Version {
	return Version{Path: a.Path(), Version: a.Version}
}

// Filename returns name-version.type, or name.type without a version.
func (a Artifact) Filename() string {
	if a.Version == "" {
		return a.Name + "." + a.Type
	}
	return a.Name + "-" + a.Version + "." + a.Type
}

// LayoutPath returns the slash separated cache location of the artifact:
// group/types/filename.
func (a Artifact) LayoutPath() string {
	return path.Join(a.Group, a.Type+"s", a.Filename())
}

func (a Artifact) String() string {
	s := a.Scheme + ":" + a.Type + ":" + a.Path()
	if a.Version != "" {
		s += "#" + a.Version
	}
	return s
}
