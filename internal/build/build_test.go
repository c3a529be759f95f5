package build

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/dpml/depot/internal/library"
	"github.com/google/go-cmp/cmp"
)

const testLibrary = `<library>
  <properties>
    <property name="build.signature" value="1.0"/>
  </properties>
  <module name="demo" basedir=".">
    <resource name="junit" version="3.8.1">
      <types><type id="jar"/></types>
    </resource>
    <project name="core" basedir="core">
      <types><type id="jar"/></types>
      <dependencies>
        <test><include key="junit"/></test>
      </dependencies>
    </project>
    <project name="app" basedir="app">
      <types><type id="jar"/></types>
      <dependencies>
        <runtime><include key="core"/></runtime>
      </dependencies>
    </project>
  </module>
</library>
`

// fakeBuilder records the resources it was asked to build.
type fakeBuilder struct {
	built []string
	fail  string
}

func (b *fakeBuilder) Build(ctx context.Context, r *library.Resource, targets []string) error {
	if r.Path() == b.fail {
		return errors.New("boom")
	}
	b.built = append(b.built, r.Path())
	return nil
}

func loadLibrary(t *testing.T) *library.Library {
	t.Helper()
	return loadLibraryContent(t, testLibrary)
}

func loadLibraryContent(t *testing.T, content string) *library.Library {
	t.Helper()
	dir := t.TempDir()
	for _, d := range []string{"core", "app"} {
		if err := os.MkdirAll(filepath.Join(dir, d), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	file := filepath.Join(dir, "library.xml")
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	lib, err := library.Load(context.Background(), file, library.Options{})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return lib
}

func selectAll(t *testing.T, lib *library.Library) []*library.Resource {
	t.Helper()
	list, err := lib.Select("demo/*", false, true)
	if err != nil {
		t.Fatal(err)
	}
	return list
}

func TestSequence(t *testing.T) {
	lib := loadLibrary(t)
	b := &fakeBuilder{}
	seq := &Sequence{Builder: b, Workspace: t.TempDir()}

	results, err := seq.Run(context.Background(), selectAll(t, lib), []string{"install"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if diff := cmp.Diff([]string{"demo/core", "demo/app"}, b.built); diff != "" {
		t.Errorf("build order mismatch (-want +got):\n%s", diff)
	}
	if len(results) != 2 || results[0].Skipped {
		t.Errorf("results = %+v", results)
	}

	// a second run finds both resources up to date
	b.built = nil
	results, err = seq.Run(context.Background(), selectAll(t, lib), []string{"install"})
	if err != nil {
		t.Fatal(err)
	}
	if len(b.built) != 0 || !results[0].Skipped || !results[1].Skipped {
		t.Errorf("second run built %v, results %+v", b.built, results)
	}

	// other targets are not covered by the cache
	if _, err := seq.Run(context.Background(), selectAll(t, lib), []string{"clean", "install"}); err != nil {
		t.Fatal(err)
	}
	if len(b.built) != 2 {
		t.Errorf("new targets built %v", b.built)
	}

	b.built = nil
	seq.Force = true
	if _, err := seq.Run(context.Background(), selectAll(t, lib), []string{"install"}); err != nil {
		t.Fatal(err)
	}
	if len(b.built) != 2 {
		t.Errorf("forced run built %v", b.built)
	}
}

func TestSequenceFailureStops(t *testing.T) {
	lib := loadLibrary(t)
	b := &fakeBuilder{fail: "demo/core"}
	seq := &Sequence{Builder: b, Workspace: t.TempDir()}

	_, err := seq.Run(context.Background(), selectAll(t, lib), nil)
	if err == nil {
		t.Fatal("Run() should fail")
	}
	if len(b.built) != 0 {
		t.Errorf("built %v after a failure", b.built)
	}
}

func TestSequenceDryRun(t *testing.T) {
	lib := loadLibrary(t)
	b := &fakeBuilder{}
	ws := t.TempDir()
	seq := &Sequence{Builder: b, Workspace: ws, DryRun: true}

	if _, err := seq.Run(context.Background(), selectAll(t, lib), nil); err != nil {
		t.Fatal(err)
	}
	if len(b.built) != 0 {
		t.Errorf("dry run built %v", b.built)
	}
	if entries, _ := os.ReadDir(ws); len(entries) != 0 {
		t.Errorf("dry run wrote to the workspace: %v", entries)
	}
}

func TestCacheRoundTrip(t *testing.T) {
	seq := &Sequence{Workspace: t.TempDir()}
	var cache buildCache
	cache.set("1.0", []string{"install"}, &buildEntry{Targets: []string{"install"}})
	if err := seq.saveCache("demo/core", &cache); err != nil {
		t.Fatalf("saveCache failed: %v", err)
	}
	loaded, err := seq.loadCache("demo/core")
	if err != nil {
		t.Fatalf("loadCache failed: %v", err)
	}
	if _, ok := loaded.get("1.0", []string{"install"}); !ok {
		t.Error("cache entry lost")
	}
	if _, ok := loaded.get("1.1", []string{"install"}); ok {
		t.Error("unexpected entry for another version")
	}
}

func TestLoadCache_InvalidJSON(t *testing.T) {
	seq := &Sequence{Workspace: t.TempDir()}
	dir, _ := seq.cacheDir("demo/core")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, cacheFile), []byte("invalid json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := seq.loadCache("demo/core"); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

func TestEnviron(t *testing.T) {
	lib := loadLibrary(t)
	app, err := lib.Resource("demo/app")
	if err != nil {
		t.Fatal(err)
	}
	vars, err := Environ(app, "/cache")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		"DEPOT_RESOURCE=demo/app",
		"DEPOT_NAME=app",
		"DEPOT_GROUP=demo",
		"DEPOT_VERSION=1.0",
		"DEPOT_CLASSPATH=" + filepath.Join("/cache", "demo", "jars", "core-1.0.jar"),
		"DEPOT_PROPERTY_BUILD_SIGNATURE=1.0",
	}
	for _, v := range want {
		if !slices.Contains(vars, v) {
			t.Errorf("Environ() missing %q in %v", v, vars)
		}
	}
}

func TestEnvironPropertyCycle(t *testing.T) {
	lib := loadLibraryContent(t, `<library>
  <module name="demo" basedir=".">
    <properties>
      <property name="a" value="${b}"/>
      <property name="b" value="${a}"/>
    </properties>
    <project name="core" basedir="core"/>
  </module>
</library>`)
	core, err := lib.Resource("demo/core")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Environ(core, "/cache"); !errors.Is(err, library.ErrCycle) {
		t.Errorf("Environ() error = %v, want ErrCycle", err)
	}
}

func TestExecBuilder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	lib := loadLibrary(t)
	core, err := lib.Resource("demo/core")
	if err != nil {
		t.Fatal(err)
	}
	b := &ExecBuilder{
		Command: []string{"sh", "-c", `printf '%s %s' "$DEPOT_NAME" "$1" > out.txt`, "sh"},
	}
	if err := b.Build(context.Background(), core, []string{"install"}); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	data, err := os.ReadFile(filepath.Join(core.Basedir(), "out.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(data)); got != "core install" {
		t.Errorf("builder output = %q", got)
	}

	b.Command = []string{"sh", "-c", "exit 3"}
	if err := b.Build(context.Background(), core, nil); err == nil {
		t.Error("Build() should report a failing command")
	}
}
