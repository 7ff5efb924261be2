package cmd

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/snapforge/snapforge/pkg/cfg"
	"github.com/snapforge/snapforge/pkg/environment"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewConfigCommand groups the settings-file helpers.
func NewConfigCommand(fs afero.Fs, ctx context.Context, environ *environment.Environment, logger *logging.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and manage the settings file",
	}

	cmd.AddCommand(newConfigShowCommand(fs, environ, logger))
	cmd.AddCommand(newConfigInitCommand(fs, environ, logger))
	cmd.AddCommand(newConfigEditCommand(fs, ctx, environ, logger))

	return cmd
}

func newConfigShowCommand(fs afero.Fs, environ *environment.Environment, logger *logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(fs, environ, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "address:          %s\n", settings.Addr())
			fmt.Fprintf(out, "public dir:       %s\n", settings.PublicDir)
			fmt.Fprintf(out, "max upload:       %s\n", humanize.IBytes(uint64(settings.MaxUploadBytes)))
			fmt.Fprintf(out, "rate limit:       %d per %s\n", settings.RateMax, settings.RateWindow())
			fmt.Fprintf(out, "retention age:    %s\n", settings.RetentionAge())
			fmt.Fprintf(out, "convert binary:   %s\n", settings.ConvertBin)
			fmt.Fprintf(out, "identify binary:  %s\n", settings.IdentifyBin)
			fmt.Fprintf(out, "exec timeout:     %s\n", settings.ExecTimeout())
			fmt.Fprintf(out, "allowed origins:  %s\n", settings.AllowOrigins)
			return nil
		},
	}
}

func newConfigInitCommand(fs afero.Fs, environ *environment.Environment, logger *logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter settings file to your home directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, err := cfg.GenerateConfiguration(fs, environ, logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings file ready:", configFile)
			return nil
		},
	}
}

func newConfigEditCommand(fs afero.Fs, ctx context.Context, environ *environment.Environment, logger *logging.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Open the settings file in your editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			configFile, err := cfg.EditConfiguration(fs, ctx, environ, logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Edited:", configFile)
			return nil
		},
	}
}
