package internal

import (
	"fmt"
	"os"
	"strings"

	"github.com/dpml/depot/directive"
	"github.com/dpml/depot/internal/build"
	"github.com/dpml/depot/internal/library"
	"github.com/spf13/cobra"
)

var (
	buildSelect    string
	buildConsumers bool
	buildForce     bool
	buildDryRun    bool
	buildBuilder   string
)

var buildCmd = &cobra.Command{
	Use:   "build [targets...]",
	Short: "Build the selected projects in dependency order",
	Long: `Build runs the builder over the selected local projects, providers first.
Without --select the projects under the working directory are built. The
targets are passed to the builder unchanged.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildSelect, "select", "s", "", "Select resources by path pattern (e.g. dpml/util/**)")
	buildCmd.Flags().BoolVarP(&buildConsumers, "consumers", "c", false, "Also build every consumer of the selected resource")
	buildCmd.Flags().BoolVar(&buildForce, "force", false, "Rebuild resources that are up to date")
	buildCmd.Flags().BoolVar(&buildDryRun, "dry-run", false, "List the build sequence without building")
	buildCmd.Flags().StringVar(&buildBuilder, "builder", "", "Builder command (overrides configuration)")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	s, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	resources, err := buildSelection(s.lib)
	if err != nil {
		return err
	}
	if len(resources) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Empty selection.")
		return nil
	}

	command := s.cfg.Builder
	if buildBuilder != "" {
		command = strings.Fields(buildBuilder)
	}
	logger := s.logger.Named("build")
	seq := &build.Sequence{
		Builder: &build.ExecBuilder{
			Command: command,
			Cache:   s.cfg.Cache,
			Stdout:  cmd.OutOrStdout(),
			Stderr:  cmd.ErrOrStderr(),
			Logger:  logger,
		},
		Workspace: s.cfg.Workspace,
		Force:     buildForce,
		DryRun:    buildDryRun,
		Logger:    logger,
	}
	_, err = seq.Run(commandContext(cmd), resources, args)
	return err
}

// buildSelection resolves the resources named by the build flags.
func buildSelection(lib *library.Library) ([]*library.Resource, error) {
	var list []*library.Resource
	if buildSelect != "" {
		var err error
		if list, err = lib.Select(buildSelect, true, true); err != nil {
			return nil, err
		}
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		if r, err := lib.Locate(wd); err == nil && !r.IsModule() {
			list = []*library.Resource{r}
		} else if list, err = lib.SelectDir(wd, true, true); err != nil {
			return nil, err
		}
	}

	if !buildConsumers {
		return list, nil
	}
	if len(list) != 1 {
		return nil, fmt.Errorf("consumer expansion requires a single resource, the selection contains %d", len(list))
	}
	consumers, err := list[0].Consumers(true, true)
	if err != nil {
		return nil, err
	}
	for _, c := range consumers {
		if c.IsLocal() {
			list = append(list, c)
		}
	}
	return library.Sort(list, directive.Test), nil
}
