package internal

import (
	"fmt"
	"path/filepath"

	"github.com/dpml/depot/directive"
	"github.com/dpml/depot/internal/library"
	"github.com/spf13/cobra"
)

var (
	classpathScope    string
	classpathCategory string
	classpathLayout   bool
)

var classpathCmd = &cobra.Command{
	Use:   "classpath <ref>",
	Short: "Print the classpath of a resource",
	Long: `Classpath prints the jar artifacts a resource needs at the given scope,
providers first. With --category only the runtime entries of that category
not already reachable through a narrower category are printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runClasspath,
}

func init() {
	classpathCmd.Flags().StringVar(&classpathScope, "scope", "runtime", "Dependency scope (build, runtime or test)")
	classpathCmd.Flags().StringVar(&classpathCategory, "category", "", "Runtime category (system, public, protected or private)")
	classpathCmd.Flags().BoolVar(&classpathLayout, "layout", false, "Print artifact cache locations instead of uris")
	rootCmd.AddCommand(classpathCmd)
}

func runClasspath(cmd *cobra.Command, args []string) error {
	s, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	r, err := s.lib.Resource(args[0])
	if err != nil {
		return err
	}

	var entries []*library.Resource
	if classpathCategory != "" {
		category, err := directive.ParseCategory(classpathCategory)
		if err != nil {
			return err
		}
		entries, err = r.CategoryClasspath(category)
		if err != nil {
			return err
		}
	} else {
		scope, err := directive.ParseScope(classpathScope)
		if err != nil {
			return err
		}
		if entries, err = r.ClasspathProviders(scope); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	for _, p := range entries {
		a, err := p.Artifact("jar")
		if err != nil {
			return err
		}
		if classpathLayout {
			fmt.Fprintln(out, filepath.Join(s.cfg.Cache, filepath.FromSlash(a.LayoutPath())))
			continue
		}
		fmt.Fprintln(out, a)
	}
	return nil
}
