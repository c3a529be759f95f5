// Package module defines the module.Version and Artifact types used to
// address library resources outside the library, along with support code.
package module

import (
	"errors"
	"path/filepath"
)

// A Version identifies a resource at a specific version.
type Version struct {
	Path    string // Resource path in the form "group/name"
	Version string // Version string (e.g., "1.0.0" or "SNAPSHOT")
}

func (v Version) String() string {
	if v.Version == "" {
		return v.Path
	}
	return v.Path + "#" + v.Version
}

// EscapePath returns the escaped form of the given resource path as a valid
// file system path. It fails if the path is empty or not local.
func EscapePath(path string) (escaped string, err error) {
	if path == "" {
		return "", errors.New("empty path")
	}
	return filepath.Localize(path)
}
