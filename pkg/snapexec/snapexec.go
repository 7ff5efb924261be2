// Package snapexec is the single place external commands are run from.
// The magick runner shells out through it so command logging, timeout
// enforcement and exit-code handling stay uniform.
package snapexec

import (
	"context"
	"errors"
	"fmt"
	"time"

	execute "github.com/alexellis/go-execute/v2"
	"github.com/snapforge/snapforge/pkg/ktx"
	"github.com/snapforge/snapforge/pkg/logging"
)

// SnapExec executes a command in the foreground and captures its output.
// A positive timeout bounds the run on top of whatever deadline ctx already
// carries; zero leaves ctx alone. Output is captured rather than streamed
// because callers parse it.
func SnapExec(
	ctx context.Context,
	command string,
	args []string,
	workingDir string, // Optional: pass "" to use current working dir
	timeout time.Duration,
	logger *logging.Logger,
) (string, string, int, error) {
	if id, ok := ktx.RequestIDFrom(ctx); ok {
		logger = logger.With("request_id", id)
	}
	logger.Debug("executing", "command", command, "args", args, "dir", workingDir, "timeout", timeout)

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	task := execute.ExecTask{
		Command:     command,
		Args:        args,
		Cwd:         workingDir,
		StreamStdio: false,
	}

	result, err := task.Execute(ctx)
	if err != nil {
		// go-execute surfaces a hit deadline as the context's error.
		if timeout > 0 && errors.Is(err, context.DeadlineExceeded) {
			logger.Error("command timed out", "command", command, "timeout", timeout)
			return result.Stdout, result.Stderr, result.ExitCode, fmt.Errorf("%s timed out after %s", command, timeout)
		}
		logger.Error("command execution failed", "command", command, "error", err)
		return result.Stdout, result.Stderr, result.ExitCode, err
	}

	if result.ExitCode != 0 {
		logger.Warn("command exited with non-zero code", "command", command, "code", result.ExitCode, "stderr", result.Stderr)
		return result.Stdout, result.Stderr, result.ExitCode, errors.New("non-zero exit code")
	}

	logger.Debug("command executed successfully", "command", command, "code", result.ExitCode)
	return result.Stdout, result.Stderr, result.ExitCode, nil
}
