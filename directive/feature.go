package directive

import (
	"fmt"
	"strings"
)

// Feature names an attribute of a resource that a feature filter
// substitutes for its token.
type Feature string

const (
	FeatureName     Feature = "name"
	FeatureGroup    Feature = "group"
	FeatureVersion  Feature = "version"
	FeatureDecimal  Feature = "decimal"
	FeatureURI      Feature = "uri"
	FeatureSpec     Feature = "spec"
	FeaturePath     Feature = "path"
	FeatureFilename Feature = "filename"
	FeatureBasedir  Feature = "basedir"
)

var features = []Feature{
	FeatureName, FeatureGroup, FeatureVersion, FeatureDecimal, FeatureURI,
	FeatureSpec, FeaturePath, FeatureFilename, FeatureBasedir,
}

// ParseFeature parses a feature name, ignoring case.
func ParseFeature(s string) (Feature, error) {
	for _, f := range features {
		if strings.EqualFold(string(f), s) {
			return f, nil
		}
	}
	return "", fmt.Errorf("unrecognized feature %q", s)
}
