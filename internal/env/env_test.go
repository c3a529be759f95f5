package env

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-hclog"
)

func TestWorkDir(t *testing.T) {
	dir, err := WorkDir()
	if err != nil {
		t.Fatalf("WorkDir() returned error: %v", err)
	}
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		t.Fatalf("os.UserCacheDir() returned error: %v", err)
	}
	if want := filepath.Join(userCacheDir, ".depot"); dir != want {
		t.Errorf("WorkDir() = %q, want %q", dir, want)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())
	for _, k := range []string{SignatureEnv, BuilderEnv, LogLevelEnv, ParallelismEnv} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Signature != "" {
		t.Errorf("Signature = %q, want empty", cfg.Signature)
	}
	if diff := cmp.Diff([]string{"ant"}, cfg.Builder); diff != "" {
		t.Errorf("Builder mismatch (-want +got):\n%s", diff)
	}
	if cfg.Parallelism != runtime.NumCPU() {
		t.Errorf("Parallelism = %d", cfg.Parallelism)
	}
	if cfg.LogLevel != "info" || cfg.Workspace == "" || cfg.Cache == "" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)
	t.Setenv(SignatureEnv, "")
	t.Setenv(LogLevelEnv, "")
	t.Setenv(ParallelismEnv, "")
	content := `signature: 1.0.0
builder: [make, -s]
workspace: /tmp/ws
cache: /tmp/cache
parallelism: 2
log_level: warn
`
	if err := os.WriteFile(filepath.Join(home, ConfigFilename), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(BuilderEnv, "ant -quiet")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := &Config{
		Signature:   "1.0.0",
		Builder:     []string{"ant", "-quiet"},
		Workspace:   "/tmp/ws",
		Cache:       "/tmp/cache",
		Parallelism: 2,
		LogLevel:    "warn",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}

	t.Setenv(ParallelismEnv, "many")
	if _, err := Load(); err == nil {
		t.Error("Load() should reject a non-numeric parallelism")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)
	if err := os.WriteFile(filepath.Join(home, ConfigFilename), []byte("builder: [unterminated"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Error("Load() should fail on invalid yaml")
	}
}

func TestLogger(t *testing.T) {
	tests := []struct {
		level   string
		verbose bool
		want    hclog.Level
	}{
		{"info", false, hclog.Info},
		{"info", true, hclog.Debug},
		{"trace", true, hclog.Trace},
		{"bogus", false, hclog.Info},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			cfg := &Config{LogLevel: tt.level}
			if got := cfg.Logger(os.Stderr, tt.verbose).GetLevel(); got != tt.want {
				t.Errorf("GetLevel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFindLibrary(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, LibraryFilename)
	if err := os.WriteFile(file, []byte("<library/>"), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := FindLibrary(nested)
	if err != nil {
		t.Fatalf("FindLibrary() error = %v", err)
	}
	if got != file {
		t.Errorf("FindLibrary() = %q, want %q", got, file)
	}
}
