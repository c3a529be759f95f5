// Package versions orders resource version strings.
//
// Versions that are valid semantic versions (with or without a leading "v")
// are ordered by semver precedence. Anything else, such as "1.0.0-SNAPSHOT"
// or "20060501.120000", falls back to GNU version ordering.
package versions

import (
	"slices"
	"strings"

	"golang.org/x/mod/semver"
)

// Compare returns -1, 0 or +1 as a is lower, equal or higher than b.
func Compare(a, b string) int {
	sa, sb := canonical(a), canonical(b)
	if sa != "" && sb != "" {
		return semver.Compare(sa, sb)
	}
	return sign(gnuCompare(a, b))
}

// Max returns the highest of vs, or "" if vs is empty.
func Max(vs ...string) string {
	if len(vs) == 0 {
		return ""
	}
	return slices.MaxFunc(vs, Compare)
}

// Sort orders vs from lowest to highest in place.
func Sort(vs []string) {
	slices.SortStableFunc(vs, Compare)
}

func canonical(v string) string {
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return v
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}
