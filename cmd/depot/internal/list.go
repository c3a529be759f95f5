package internal

import (
	"fmt"
	"io"

	"github.com/dpml/depot/directive"
	"github.com/dpml/depot/internal/library"
	"github.com/spf13/cobra"
)

var listConsumers bool

var listCmd = &cobra.Command{
	Use:   "list [pattern]",
	Short: "List modules, projects and resources",
	Long: `List prints the resources whose path matches pattern. A single module or
resource is listed in detail; several are listed as a numbered selection.
Without a pattern the top-level modules are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listConsumers, "consumers", "c", false, "List the consumers of the selected resource")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	var list []*library.Resource
	if len(args) == 0 {
		list = s.lib.Modules()
	} else if list, err = s.lib.Select(args[0], false, true); err != nil {
		return err
	}

	if listConsumers {
		if len(list) != 1 {
			return fmt.Errorf("consumer listing requires a single resource, the selection contains %d", len(list))
		}
		consumers, err := list[0].Consumers(true, true)
		if err != nil {
			return err
		}
		printSelection(out, consumers)
		return nil
	}

	switch {
	case len(list) == 0:
		fmt.Fprintln(out, "Empty selection.")
		return nil
	case len(list) > 1:
		printSelection(out, list)
		return nil
	case list[0].IsModule():
		return printModule(out, list[0])
	default:
		return printResource(out, list[0])
	}
}

func printSelection(w io.Writer, list []*library.Resource) {
	fmt.Fprintf(w, "Selection: [%d]\n", len(list))
	for i, r := range list {
		fmt.Fprintf(w, "  [%d]\t%s\n", i+1, r)
	}
}

func printHeader(w io.Writer, r *library.Resource) {
	fmt.Fprintln(w, r)
	if info := r.Info(); info != nil && info.Title != "" {
		fmt.Fprintf(w, "  title: %s\n", info.Title)
	}
	fmt.Fprintf(w, "  version: %s\n", r.Version())
	if r.Basedir() != "" {
		fmt.Fprintf(w, "  basedir: %s\n", r.Basedir())
	}
}

func printModule(w io.Writer, m *library.Resource) error {
	printHeader(w, m)
	imports, err := m.ProviderModules()
	if err != nil {
		return err
	}
	printList(w, "imports", imports)
	printList(w, "resources", m.Children())
	return nil
}

func printResource(w io.Writer, r *library.Resource) error {
	printHeader(w, r)
	types := r.Types()
	fmt.Fprintf(w, "  types: (%d)\n", len(types))
	for _, t := range types {
		if t.HasAlias() {
			fmt.Fprintf(w, "    %s (alias %s)\n", t.ID, t.Version)
			continue
		}
		fmt.Fprintf(w, "    %s\n", t.ID)
	}
	for _, scope := range directive.Scopes {
		providers, err := r.Providers(scope, false, true)
		if err != nil {
			return err
		}
		printList(w, scope.String()+" providers", providers)
	}
	return nil
}

func printList(w io.Writer, label string, list []*library.Resource) {
	if len(list) == 0 {
		return
	}
	fmt.Fprintf(w, "  %s: (%d)\n", label, len(list))
	for i, r := range list {
		fmt.Fprintf(w, "    [%d]\t%s\n", i+1, r)
	}
}
