package cmd

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/snapforge/snapforge/pkg/cfg"
	"github.com/snapforge/snapforge/pkg/environment"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/snapforge/snapforge/pkg/version"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	// configFlag short-circuits configuration discovery when set.
	configFlag string
	// debugFlag raises the log level for this invocation.
	debugFlag bool
)

// NewRootCommand returns the root command with all subcommands attached.
func NewRootCommand(fs afero.Fs, ctx context.Context, environ *environment.Environment, logger *logging.Logger) *cobra.Command {
	cobra.EnableCommandSorting = false
	rootCmd := &cobra.Command{
		Use:   "snapforge",
		Short: "Image upload and processing service.",
		Long: `Snapforge is a self-hosted image upload and processing service. It accepts
JPEG, PNG and WebP uploads over HTTP, runs them through ImageMagick (or a
built-in pure-Go fallback), and serves the results from its public directory.`,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if debugFlag {
				logger.SetLevel(log.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "",
		"Path to a settings file; skips the usual discovery order.")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"Enable debug logging.")

	rootCmd.AddCommand(NewServeCommand(fs, ctx, environ, logger))
	rootCmd.AddCommand(NewSweepCommand(fs, environ, logger))
	rootCmd.AddCommand(NewConfigCommand(fs, ctx, environ, logger))
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}

// resolveSettings loads the effective settings, honoring --config.
func resolveSettings(fs afero.Fs, environ *environment.Environment, logger *logging.Logger) (*cfg.Settings, error) {
	configFile := configFlag
	if configFile == "" {
		found, err := cfg.FindConfiguration(fs, environ, logger)
		if err != nil {
			return nil, err
		}
		configFile = found
	}

	return cfg.LoadSettings(fs, environ, configFile, logger)
}
