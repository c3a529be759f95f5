package directive

import (
	"fmt"
	"strings"
)

// Scope classifies a dependency edge by the phase that needs it.
// Scopes are cumulative: test includes runtime, runtime includes build.
type Scope int

const (
	Build Scope = iota
	Runtime
	Test
)

var scopeNames = [...]string{"build", "runtime", "test"}

// Scopes lists every scope in ascending order.
var Scopes = []Scope{Build, Runtime, Test}

func (s Scope) String() string {
	if s < Build || s > Test {
		return fmt.Sprintf("scope(%d)", int(s))
	}
	return scopeNames[s]
}

// Includes reports whether s covers other, e.g. Test.Includes(Build) is true.
func (s Scope) Includes(other Scope) bool {
	return other <= s
}

// ParseScope parses a scope name. The match is case-insensitive.
func ParseScope(name string) (Scope, error) {
	for i, n := range scopeNames {
		if strings.EqualFold(n, name) {
			return Scope(i), nil
		}
	}
	return Build, fmt.Errorf("unrecognized scope %q", name)
}

// Category tags a runtime include with its visibility. Lower categories are
// loaded by parent classloaders.
type Category int

const (
	Undefined Category = iota - 1
	System
	Public
	Protected
	Private
)

var categoryNames = [...]string{"system", "public", "protected", "private"}

// Categories lists the defined categories in classloader order.
var Categories = []Category{System, Public, Protected, Private}

func (c Category) String() string {
	if c == Undefined {
		return "undefined"
	}
	if c < System || c > Private {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory parses a category tag. An empty tag means Private.
func ParseCategory(tag string) (Category, error) {
	if tag == "" {
		return Private, nil
	}
	for i, n := range categoryNames {
		if strings.EqualFold(n, tag) {
			return Category(i), nil
		}
	}
	return Undefined, fmt.Errorf("unrecognized category %q", tag)
}

// Classifier says where a resource comes from.
type Classifier int

const (
	// External resources are published elsewhere and never built here.
	External Classifier = iota
	// Local resources have a base directory and are buildable.
	Local
	// Anonymous resources are synthesised from an artifact URI include.
	Anonymous
)

func (c Classifier) String() string {
	switch c {
	case Local:
		return "local"
	case Anonymous:
		return "anonymous"
	default:
		return "external"
	}
}
