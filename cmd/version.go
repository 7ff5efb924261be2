package cmd

import (
	"fmt"

	"github.com/snapforge/snapforge/pkg/version"
	"github.com/spf13/cobra"
)

// NewVersionCommand prints the build version.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the snapforge version",
		Run: func(cmd *cobra.Command, args []string) {
			if version.Commit != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", version.Name, version.Version, version.Commit)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", version.Name, version.Version)
		},
	}
}
