package versions

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		// semver
		{"1.0.0", "1.0.1", -1},
		{"v1.2.0", "1.10.0", -1},
		{"1.0.0-rc1", "1.0.0", -1},
		{"2.0.0", "2.0.0", 0},

		// gnu fallback
		{"1.10", "1.9", 1},
		{"1.01", "1.1", 0},
		{"1.0~rc1", "1.0", -1},
		{"SNAPSHOT", "SNAPSHOT", 0},
		{"20060501.120000", "20060430.235959", 1},
		{"", "1", -1},
		{"1.0a", "1.0b", -1},
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if got := Compare(tt.b, tt.a); got != -tt.want {
				t.Errorf("Compare(%q, %q) = %d, want %d", tt.b, tt.a, got, -tt.want)
			}
		})
	}
}

func TestMaxAndSort(t *testing.T) {
	vs := []string{"1.2", "1.10", "1.9", "1.0"}
	if got := Max(vs...); got != "1.10" {
		t.Errorf("Max() = %q, want 1.10", got)
	}
	if got := Max(); got != "" {
		t.Errorf("Max() of nothing = %q", got)
	}
	Sort(vs)
	if diff := cmp.Diff([]string{"1.0", "1.2", "1.9", "1.10"}, vs); diff != "" {
		t.Errorf("Sort() mismatch (-want +got):\n%s", diff)
	}
}
