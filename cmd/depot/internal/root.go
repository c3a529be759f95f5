package internal

import (
	"context"
	"log"
	"os"
	"os/signal"

	"github.com/dpml/depot/internal/env"
	"github.com/dpml/depot/internal/library"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
)

var (
	libraryFile string
	verbose     bool
	signature   string
)

var rootCmd = &cobra.Command{
	Use:   "depot",
	Short: "depot builds libraries of modules and projects",
	Long: `depot reads a library descriptor (library.xml) declaring modules, projects
and resources, resolves the dependencies between them and drives a builder over
the projects in dependency order.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&libraryFile, "library", "f", "", "Library descriptor (default: nearest library.xml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&signature, "signature", "", "Build signature assigned to unversioned resources")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatal(err)
	}
}

// session carries what every command needs: configuration, the root
// logger and the loaded library.
type session struct {
	cfg    *env.Config
	logger hclog.Logger
	lib    *library.Library
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func openLibrary(cmd *cobra.Command) (*session, error) {
	cfg, err := env.Load()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger(cmd.ErrOrStderr(), verbose)

	file := libraryFile
	if file == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		if file, err = env.FindLibrary(wd); err != nil {
			return nil, err
		}
	}

	opts := library.Options{
		Logger:      logger,
		Signature:   cfg.Signature,
		Cache:       cfg.Cache,
		Parallelism: cfg.Parallelism,
	}
	if signature != "" {
		opts.Properties = map[string]string{library.SignatureProperty: signature}
	}
	lib, err := library.Load(commandContext(cmd), file, opts)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, lib: lib}, nil
}
