package library

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dpml/depot/directive"
	"github.com/dpml/depot/internal/par"
	"github.com/dpml/depot/mod/versions"
	"github.com/hashicorp/go-multierror"
)

// Conflict reports an artifact included at more than one version.
type Conflict struct {
	Path     string
	Versions []string // ascending
}

// Highest returns the version a build would settle on.
func (c Conflict) Highest() string {
	return versions.Max(c.Versions...)
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s included at versions %s", c.Path, strings.Join(c.Versions, ", "))
}

// Validate resolves every include and property of every declared resource
// and checks the dependency graph for cycles. All problems found are
// returned together.
func (l *Library) Validate(ctx context.Context) error {
	var root *multierror.Error
	for _, err := range l.primary.propertyErrors() {
		root = multierror.Append(root, fmt.Errorf("%s: %w", l.file, err))
	}

	var w par.Work[*Resource]
	for _, r := range l.resources() {
		w.Add(r)
	}
	errs := w.Do(ctx, l.workers, func(r *Resource) error {
		var merr *multierror.Error
		for _, scope := range directive.Scopes {
			if _, err := r.declared(scope, anyCategory); err != nil {
				merr = multierror.Append(merr, err)
			}
		}
		for _, err := range r.propertyErrors() {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", r, err))
		}
		if !r.IsModule() {
			for _, f := range r.Filters() {
				if _, err := r.FilterValue(f); err != nil {
					merr = multierror.Append(merr, fmt.Errorf("%s: %w", r, err))
				}
			}
		}
		return merr.ErrorOrNil()
	})
	if errs != nil || root != nil {
		// cycle detection needs a fully resolvable graph
		return multierror.Append(root, errs).ErrorOrNil()
	}
	if err := l.checkCycles(); err != nil {
		return err
	}
	l.logger.Debug("validated library", "resources", len(l.resources()))
	return nil
}

// checkCycles walks the declared include graph.
func (l *Library) checkCycles() error {
	const (
		unvisited = iota
		active
		done
	)
	state := make(map[*Resource]int)
	var path []*Resource
	var merr *multierror.Error

	var visit func(*Resource) error
	visit = func(r *Resource) error {
		switch state[r] {
		case active:
			i := slices.Index(path, r)
			var names []string
			for _, p := range path[i:] {
				names = append(names, p.path)
			}
			names = append(names, r.path)
			merr = multierror.Append(merr, fmt.Errorf("%w: %s", ErrCycle, strings.Join(names, " -> ")))
			return nil
		case done:
			return nil
		}
		state[r] = active
		path = append(path, r)
		for _, scope := range directive.Scopes {
			providers, err := r.declared(scope, anyCategory)
			if err != nil {
				return err
			}
			for _, p := range providers {
				if err := visit(p); err != nil {
					return err
				}
			}
		}
		path = path[:len(path)-1]
		state[r] = done
		return nil
	}
	for _, r := range l.resources() {
		if err := visit(r); err != nil {
			return err
		}
	}
	return merr.ErrorOrNil()
}

// Conflicts reports artifacts that were included at different versions by
// resources resolved so far. Run Validate first to resolve everything.
func (l *Library) Conflicts() []Conflict {
	seen := make(map[string][]string)
	var paths []string
	for _, r := range l.anonymousResources() {
		if _, ok := seen[r.path]; !ok {
			paths = append(paths, r.path)
		}
		if v := r.Version(); !slices.Contains(seen[r.path], v) {
			seen[r.path] = append(seen[r.path], v)
		}
	}
	var list []Conflict
	for _, p := range paths {
		vs := seen[p]
		if len(vs) < 2 {
			continue
		}
		versions.Sort(vs)
		list = append(list, Conflict{Path: p, Versions: vs})
	}
	return list
}
