// Package env locates the depot workspace and loads user configuration.
package env

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/hashicorp/go-hclog"
	"gopkg.in/yaml.v3"
)

// ConfigFilename is the name of the user configuration file.
const ConfigFilename = "depot.yaml"

// LibraryFilename is the name searched for by FindLibrary.
const LibraryFilename = "library.xml"

// Environment variables consulted by Load.
const (
	HomeEnv        = "DEPOT_HOME"
	SignatureEnv   = "DEPOT_SIGNATURE"
	BuilderEnv     = "DEPOT_BUILDER"
	LogLevelEnv    = "DEPOT_LOG_LEVEL"
	ParallelismEnv = "DEPOT_PARALLELISM"
)

// Config is the user configuration.
type Config struct {
	// Signature is the default build signature.
	Signature string `yaml:"signature"`
	// Builder is the command, and leading arguments, run for each project.
	Builder []string `yaml:"builder"`
	// Workspace holds build locks and the build cache.
	Workspace string `yaml:"workspace"`
	// Cache is the artifact cache layout root.
	Cache       string `yaml:"cache"`
	Parallelism int    `yaml:"parallelism"`
	LogLevel    string `yaml:"log_level"`
}

// WorkDir returns the per-user depot directory.
func WorkDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(userCacheDir, ".depot"), nil
}

// ConfigFile returns the location of the configuration file: $DEPOT_HOME
// when set, otherwise the user config directory.
func ConfigFile() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return filepath.Join(home, ConfigFilename), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "depot", ConfigFilename), nil
}

// Load reads the configuration file, if any, and applies DEPOT_*
// environment overrides and defaults.
func Load() (*Config, error) {
	var cfg Config
	file, err := ConfigFile()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(file)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	if v := os.Getenv(SignatureEnv); v != "" {
		cfg.Signature = v
	}
	if v := os.Getenv(BuilderEnv); v != "" {
		cfg.Builder = strings.Fields(v)
	}
	if v := os.Getenv(LogLevelEnv); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv(ParallelismEnv); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ParallelismEnv, err)
		}
		cfg.Parallelism = n
	}

	if cfg.Workspace == "" || cfg.Cache == "" {
		work, err := WorkDir()
		if err != nil {
			return nil, err
		}
		if cfg.Workspace == "" {
			cfg.Workspace = filepath.Join(work, "workspace")
		}
		if cfg.Cache == "" {
			cfg.Cache = filepath.Join(work, "cache")
		}
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = runtime.NumCPU()
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if len(cfg.Builder) == 0 {
		cfg.Builder = []string{"ant"}
	}
	return &cfg, nil
}

// Logger returns the root logger. verbose forces debug output.
func (c *Config) Logger(w io.Writer, verbose bool) hclog.Logger {
	level := hclog.LevelFromString(c.LogLevel)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	if verbose && level > hclog.Debug {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "depot",
		Level:  level,
		Output: w,
	})
}

// FindLibrary walks up from dir to the nearest library descriptor.
func FindLibrary(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		file := filepath.Join(dir, LibraryFilename)
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			return file, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found in %s or any parent directory", LibraryFilename, dir)
		}
		dir = parent
	}
}
