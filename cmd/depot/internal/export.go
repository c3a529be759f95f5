package internal

import (
	"os"

	"github.com/dpml/depot/internal/descriptor"
	"github.com/spf13/cobra"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export <module>",
	Short: "Write the external descriptor of a module",
	Long: `Export writes a descriptor of the module suitable for importing into other
libraries. Dependencies on resources outside the module are expressed as
artifact uris.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	m, err := s.lib.Module(args[0])
	if err != nil {
		return err
	}
	d, err := m.Export()
	if err != nil {
		return err
	}
	if exportOutput == "" {
		return descriptor.Encode(cmd.OutOrStdout(), d)
	}
	f, err := os.Create(exportOutput)
	if err != nil {
		return err
	}
	if err := descriptor.Encode(f, d); err != nil {
		f.Close()
		return err
	}
	s.logger.Info("exported module", "module", m.Path(), "file", exportOutput)
	return f.Close()
}
