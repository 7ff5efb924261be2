package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/snapforge/snapforge/cmd"
	"github.com/snapforge/snapforge/pkg/environment"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/spf13/afero"
)

func main() {
	// Initialize filesystem and context
	fs := afero.NewOsFs()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := logging.GetLogger()

	environ, err := setupEnvironment(fs)
	if err != nil {
		logger.Fatal("failed to set up environment", "error", err)
	}

	setupSignalHandler(cancel, logger)

	rootCmd := cmd.NewRootCommand(fs, ctx, environ, logger)
	if err := rootCmd.Execute(); err != nil {
		logger.Fatal(err)
	}
}

// setupEnvironment initializes the environment using the filesystem.
func setupEnvironment(fs afero.Fs) (*environment.Environment, error) {
	return environment.NewEnvironment(fs, nil)
}

// setupSignalHandler cancels the root context on SIGINT or SIGTERM so the
// server can drain in-flight requests before the process exits.
func setupSignalHandler(cancelFunc context.CancelFunc, logger *logging.Logger) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigs
		logger.Debug("received signal, initiating shutdown...", "signal", sig)
		cancelFunc()
	}()
}
