package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dpml/depot/mod/module"
)

// Workspace directory layout:
//
//	workspaceDir/
//	  <escaped>/          # resource-level dir (cacheDir)
//	    .lock             # held while the resource builds
//	    .cache.json       # build cache: maps "version-targets" → buildEntry
const (
	cacheFile = ".cache.json"
	lockFile  = ".lock"
)

// buildEntry contains metadata about a single successful build.
type buildEntry struct {
	Targets   []string  `json:"targets,omitempty"`
	BuildTime time.Time `json:"build_time"`
}

// buildCache maps "version-targets" keys to their build entries.
type buildCache struct {
	Cache map[string]*buildEntry `json:"cache"`
}

func cacheKey(version string, targets []string) string {
	return version + "-" + strings.Join(targets, ",")
}

func (c *buildCache) get(version string, targets []string) (*buildEntry, bool) {
	entry, ok := c.Cache[cacheKey(version, targets)]
	return entry, ok
}

func (c *buildCache) set(version string, targets []string, entry *buildEntry) {
	if c.Cache == nil {
		c.Cache = make(map[string]*buildEntry)
	}
	c.Cache[cacheKey(version, targets)] = entry
}

// cacheDir returns the resource-level directory for cache storage: workspaceDir/<escapedPath>.
func (s *Sequence) cacheDir(path string) (string, error) {
	escaped, err := module.EscapePath(path)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Workspace, escaped), nil
}

// loadCache reads the cache file for a resource from the workspace directory.
func (s *Sequence) loadCache(path string) (*buildCache, error) {
	dir, err := s.cacheDir(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, cacheFile))
	if err != nil {
		return nil, err
	}
	var cache buildCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, err
	}
	return &cache, nil
}

// saveCache writes the cache file for a resource to the workspace directory.
func (s *Sequence) saveCache(path string, cache *buildCache) error {
	dir, err := s.cacheDir(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, cacheFile), data, 0o644)
}
