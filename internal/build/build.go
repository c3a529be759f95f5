// Package build drives an external builder over a sorted selection of
// library projects.
package build

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/dpml/depot/directive"
	"github.com/dpml/depot/internal/library"
	"github.com/hashicorp/go-hclog"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// A Builder builds a single resource.
type Builder interface {
	Build(ctx context.Context, r *library.Resource, targets []string) error
}

// ExecBuilder runs an external command in the base directory of each
// resource, passing the targets as arguments and describing the resource
// through DEPOT_* environment variables.
type ExecBuilder struct {
	Command []string
	// Cache is the artifact cache root classpath entries are laid out in.
	Cache  string
	Stdout io.Writer
	Stderr io.Writer
	Logger hclog.Logger
}

func (b *ExecBuilder) Build(ctx context.Context, r *library.Resource, targets []string) error {
	if len(b.Command) == 0 {
		return errors.New("no builder command configured")
	}
	if r.Basedir() == "" {
		return fmt.Errorf("%s has no base directory", r)
	}
	vars, err := Environ(r, b.Cache)
	if err != nil {
		return err
	}
	args := append(append([]string{}, b.Command[1:]...), targets...)
	cmd := exec.CommandContext(ctx, b.Command[0], args...)
	cmd.Dir = r.Basedir()
	cmd.Env = append(os.Environ(), vars...)
	cmd.Stdout = b.Stdout
	cmd.Stderr = b.Stderr
	if b.Logger != nil {
		b.Logger.Debug("running builder", "resource", r.Path(), "command", cmd.String(), "dir", cmd.Dir)
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build %s: %w", r.Path(), err)
	}
	return nil
}

// Environ returns the DEPOT_* variables describing r. Classpaths list the
// cache locations of the jar providers, providers first.
func Environ(r *library.Resource, cache string) ([]string, error) {
	vars := []string{
		"DEPOT_RESOURCE=" + r.Path(),
		"DEPOT_NAME=" + r.Name(),
		"DEPOT_GROUP=" + r.Group(),
		"DEPOT_VERSION=" + r.Version(),
		"DEPOT_BASEDIR=" + r.Basedir(),
	}
	for _, scope := range []directive.Scope{directive.Runtime, directive.Test} {
		providers, err := r.ClasspathProviders(scope)
		if err != nil {
			return nil, err
		}
		var entries []string
		for _, p := range providers {
			layout, err := p.LayoutPath("jar")
			if err != nil {
				return nil, err
			}
			entries = append(entries, filepath.Join(cache, filepath.FromSlash(layout)))
		}
		name := "DEPOT_CLASSPATH"
		if scope == directive.Test {
			name = "DEPOT_TEST_CLASSPATH"
		}
		vars = append(vars, name+"="+strings.Join(entries, string(os.PathListSeparator)))
	}
	props, err := r.ResolvedProperties()
	if err != nil {
		return nil, err
	}
	for _, key := range r.PropertyNames() {
		vars = append(vars, "DEPOT_PROPERTY_"+envName(key)+"="+props[key])
	}
	return vars, nil
}

func envName(key string) string {
	return strings.Map(func(c rune) rune {
		switch {
		case c >= 'a' && c <= 'z':
			return c - 'a' + 'A'
		case c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			return c
		}
		return '_'
	}, key)
}

// Result records the outcome for one resource of a sequence.
type Result struct {
	Resource *library.Resource
	Skipped  bool
	Duration time.Duration
}

// Sequence builds resources in order, one at a time.
type Sequence struct {
	Builder Builder
	// Workspace holds per-resource locks and build caches.
	Workspace string
	// Force rebuilds resources with an up-to-date cache entry.
	Force bool
	// DryRun lists the sequence without building.
	DryRun bool
	Logger hclog.Logger
	Now    func() time.Time
}

func (s *Sequence) logger() hclog.Logger {
	if s.Logger == nil {
		return hclog.NewNullLogger()
	}
	return s.Logger
}

func (s *Sequence) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// Run builds resources in the given order, stopping at the first failure.
// Non-local resources are skipped.
func (s *Sequence) Run(ctx context.Context, resources []*library.Resource, targets []string) ([]Result, error) {
	logger := s.logger()
	var local []*library.Resource
	for _, r := range resources {
		if !r.IsLocal() {
			logger.Debug("skipping non-local resource", "resource", r.Path())
			continue
		}
		local = append(local, r)
	}

	logger.Info(fmt.Sprintf("Initiating build sequence: (%d)", len(local)))
	for i, r := range local {
		logger.Info(fmt.Sprintf("  (%d)\t%s", i+1, r))
	}
	if s.DryRun {
		return nil, nil
	}

	var results []Result
	for _, r := range local {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := s.build(ctx, r, targets)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Sequence) build(ctx context.Context, r *library.Resource, targets []string) (Result, error) {
	logger := s.logger()
	dir, err := s.cacheDir(r.Path())
	if err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Result{}, err
	}
	unlock, err := lockedfile.MutexAt(filepath.Join(dir, lockFile)).Lock()
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	// Check the cache after acquiring the lock; another process may have built it
	cache, err := s.loadCache(r.Path())
	if err != nil {
		cache = &buildCache{}
	}
	if _, ok := cache.get(r.Version(), targets); ok && !s.Force {
		logger.Info("up to date", "resource", r.Path(), "version", r.Version())
		return Result{Resource: r, Skipped: true}, nil
	}

	logger.Info("building", "resource", r.Path(), "version", r.Version())
	start := s.now()
	if err := s.Builder.Build(ctx, r, targets); err != nil {
		return Result{}, err
	}
	cache.set(r.Version(), targets, &buildEntry{Targets: targets, BuildTime: s.now()})
	if err := s.saveCache(r.Path(), cache); err != nil {
		return Result{}, err
	}
	return Result{Resource: r, Duration: s.now().Sub(start)}, nil
}
