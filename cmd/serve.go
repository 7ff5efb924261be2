package cmd

import (
	"context"

	"github.com/snapforge/snapforge/pkg/cfg"
	"github.com/snapforge/snapforge/pkg/environment"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/snapforge/snapforge/pkg/magick"
	"github.com/snapforge/snapforge/pkg/server"
	"github.com/snapforge/snapforge/pkg/storage"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the 'serve' command which runs the API server
// until the context is cancelled.
func NewServeCommand(fs afero.Fs, ctx context.Context, environ *environment.Environment, logger *logging.Logger) *cobra.Command {
	var (
		hostFlag string
		portFlag int
	)

	cmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"server", "run"},
		Short:   "Run the upload and processing API server",
		Example: "$ snapforge serve --port 8390",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(fs, environ, logger)
			if err != nil {
				return err
			}

			if hostFlag != "" {
				settings.HostIP = hostFlag
			}
			if portFlag != 0 {
				settings.PortNum = portFlag
			}
			// Inside a container the loopback default would make the
			// service unreachable.
			if environ.DockerMode == "1" && settings.HostIP == "127.0.0.1" {
				settings.HostIP = "0.0.0.0"
			}

			return runServe(fs, ctx, settings, logger)
		},
	}

	cmd.Flags().StringVar(&hostFlag, "host", "", "Interface to bind, overrides SNAPFORGE_HOST")
	cmd.Flags().IntVar(&portFlag, "port", 0, "Port to bind, overrides SNAPFORGE_PORT")

	return cmd
}

// runServe wires the storage area, converter backend and HTTP server
// together and blocks until shutdown.
func runServe(fs afero.Fs, ctx context.Context, settings *cfg.Settings, logger *logging.Logger) error {
	area := storage.NewArea(fs, settings.PublicDir, logger)
	if err := area.EnsureDirs(); err != nil {
		return err
	}

	conv := magick.Detect(fs, settings.ConvertBin, settings.IdentifyBin, settings.ExecTimeout(), logger)

	srv := server.New(server.Config{
		MaxUploadBytes: settings.MaxUploadBytes,
		RateMax:        settings.RateMax,
		RateWindow:     settings.RateWindow(),
		RetentionAge:   settings.RetentionAge(),
		AllowOrigins:   settings.AllowOriginList(),
		TrustedProxies: settings.TrustedProxyList(),
	}, area, conv, logger)

	return srv.Start(ctx, settings.Addr())
}
