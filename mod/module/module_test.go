package module

import (
	"path/filepath"
	"testing"
)

func TestEscapePath(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		wantEscaped string
		wantErr     bool
	}{
		{
			name:        "simple path",
			path:        "dpml/util",
			wantEscaped: filepath.Join("dpml", "util"),
		},
		{
			name:    "empty string",
			path:    "",
			wantErr: true,
		},
		{
			name:    "escapes root",
			path:    "../etc",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			escaped, err := EscapePath(tt.path)
			if (err != nil) != tt.wantErr {
				t.Errorf("EscapePath() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if escaped != tt.wantEscaped {
				t.Errorf("EscapePath() = %v, want %v", escaped, tt.wantEscaped)
			}
		})
	}
}

func TestParseArtifact(t *testing.T) {
	tests := []struct {
		uri     string
		want    Artifact
		wantErr bool
	}{
		{
			uri:  "artifact:jar:org/apache/ant/ant#1.6.5",
			want: Artifact{Scheme: "artifact", Type: "jar", Group: "org/apache/ant", Name: "ant", Version: "1.6.5"},
		},
		{
			uri:  "link:part:dpml/transit/dpml-transit-main",
			want: Artifact{Scheme: "link", Type: "part", Group: "dpml/transit", Name: "dpml-transit-main"},
		},
		{
			uri:  "artifact:jar:junit#3.8.1",
			want: Artifact{Scheme: "artifact", Type: "jar", Name: "junit", Version: "3.8.1"},
		},
		{uri: "jar", wantErr: true},
		{uri: "artifact:jar", wantErr: true},
		{uri: "artifact:jar:#1.0", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := ParseArtifact(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseArtifact(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseArtifact(%q) = %+v, want %+v", tt.uri, got, tt.want)
			}
			if err == nil && got.String() != tt.uri {
				t.Errorf("String() = %q, want %q", got.String(), tt.uri)
			}
		})
	}
}

func TestArtifactLayout(t *testing.T) {
	a := Artifact{Scheme: "artifact", Type: "jar", Group: "dpml/util", Name: "dpml-util-cli", Version: "1.0.0"}
	if got, want := a.LayoutPath(), "dpml/util/jars/dpml-util-cli-1.0.0.jar"; got != want {
		t.Errorf("LayoutPath() = %q, want %q", got, want)
	}
	a.Version = ""
	if got, want := a.Filename(), "dpml-util-cli.jar"; got != want {
		t.Errorf("Filename() = %q, want %q", got, want)
	}
	if got := a.Module(); got.Path != "dpml/util/dpml-util-cli" {
		t.Errorf("Module().Path = %q", got.Path)
	}
}
