package cmd

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/snapforge/snapforge/pkg/environment"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/snapforge/snapforge/pkg/messages"
	"github.com/snapforge/snapforge/pkg/storage"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var sweepStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)

// NewSweepCommand creates the 'sweep' command which removes expired files
// from the public tree once and exits. The server runs the same sweep after
// each upload; this command exists for cron jobs and manual cleanups.
func NewSweepCommand(fs afero.Fs, environ *environment.Environment, logger *logging.Logger) *cobra.Command {
	var (
		maxAgeFlag string
		dryRunFlag bool
	)

	cmd := &cobra.Command{
		Use:     "sweep",
		Aliases: []string{"gc"},
		Short:   "Remove uploads and outputs older than the retention age",
		Example: "$ snapforge sweep --max-age 48h --dry-run",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(fs, environ, logger)
			if err != nil {
				return err
			}

			maxAge := settings.RetentionAge()
			if maxAgeFlag != "" {
				parsed, err := time.ParseDuration(maxAgeFlag)
				if err != nil {
					return fmt.Errorf("invalid --max-age %q: %w", maxAgeFlag, err)
				}
				maxAge = parsed
			}

			summary, err := runSweep(fs, settings.PublicDir, maxAge, dryRunFlag, logger)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sweepStyle.Render(summary))
			return nil
		},
	}

	cmd.Flags().StringVar(&maxAgeFlag, "max-age", "", "Override the retention age, e.g. 36h")
	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Report what would be removed without deleting anything")

	return cmd
}

// runSweep performs one sweep over publicDir and returns a printable summary.
func runSweep(fs afero.Fs, publicDir string, maxAge time.Duration, dryRun bool, logger *logging.Logger) (string, error) {
	area := storage.NewArea(fs, publicDir, logger)

	logger.Info(messages.MsgSweepStarted, "public-dir", publicDir, "max-age", maxAge, "dry-run", dryRun)
	res, err := area.Sweep(maxAge, dryRun)
	if err != nil {
		logger.Error(messages.MsgSweepFailed, "error", err)
		return "", err
	}

	verb := "removed"
	if dryRun {
		verb = "would remove"
	}
	return fmt.Sprintf("Sweep complete: scanned %d files, %s %d (%s)",
		res.Scanned, verb, res.Removed, humanize.IBytes(uint64(res.BytesFreed))), nil
}
