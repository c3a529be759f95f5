package internal

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the library",
	Long: `Check resolves every include in the library and reports unresolvable
references, dependency cycles and artifacts included at conflicting versions.`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	if err := s.lib.Validate(commandContext(cmd)); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, c := range s.lib.Conflicts() {
		s.logger.Warn("version conflict", "artifact", c.Path, "versions", c.Versions)
		fmt.Fprintf(out, "warning: %s (using %s)\n", c, c.Highest())
	}
	all, err := s.lib.Select("**", false, false)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s: %d resources OK\n", s.lib.File(), len(all))
	return nil
}
