// Package texteditor opens the settings env file in the user's editor.
// Command construction sits behind EditorCmd so tests can swap the real
// editor for a mock.
package texteditor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/spf13/afero"
)

// EditorCmd is the slice of exec.Cmd the launcher needs.
type EditorCmd interface {
	Run() error
	SetIO(stdin, stdout, stderr *os.File)
}

// EditorCmdFunc builds an EditorCmd for the given editor name and file.
type EditorCmdFunc func(editorName, filePath string) (EditorCmd, error)

// EditEnvFunc matches EditEnv's signature so callers can inject a stub.
type EditEnvFunc func(fs afero.Fs, ctx context.Context, filePath string, logger *logging.Logger) error

type execEditorCmd struct{ cmd *exec.Cmd }

func (e *execEditorCmd) Run() error { return e.cmd.Run() }

func (e *execEditorCmd) SetIO(stdin, stdout, stderr *os.File) {
	e.cmd.Stdin, e.cmd.Stdout, e.cmd.Stderr = stdin, stdout, stderr
}

var newEditorCmd = editor.Cmd

func defaultFactory(editorName, filePath string) (EditorCmd, error) {
	cmd, err := newEditorCmd(editorName, filePath)
	if err != nil {
		return nil, err
	}
	return &execEditorCmd{cmd: cmd}, nil
}

// checkEnvFile rejects paths that are not existing .env files.
func checkEnvFile(fs afero.Fs, filePath string) error {
	if filepath.Ext(filePath) != ".env" {
		return fmt.Errorf("file '%s' does not have a .env extension", filePath)
	}
	_, err := fs.Stat(filePath)
	switch {
	case err == nil:
		return nil
	case os.IsNotExist(err):
		return fmt.Errorf("file '%s' does not exist", filePath)
	default:
		return fmt.Errorf("failed to stat file '%s': %w", filePath, err)
	}
}

// EditEnvWithFactory opens filePath with the 'snapforge' editor built by
// factory. NON_INTERACTIVE=1 skips the editor entirely, before any file
// checks, so scripted runs never block on a terminal.
func EditEnvWithFactory(fs afero.Fs, ctx context.Context, filePath string, logger *logging.Logger, factory EditorCmdFunc) error {
	if os.Getenv("NON_INTERACTIVE") == "1" {
		logger.Info("NON_INTERACTIVE=1, skipping editor")
		return nil
	}

	if err := checkEnvFile(fs, filePath); err != nil {
		logger.Error(err.Error())
		return err
	}

	if factory == nil {
		factory = defaultFactory
	}
	edCmd, err := factory("snapforge", filePath)
	if err != nil {
		err = fmt.Errorf("failed to create editor command: %w", err)
		logger.Error(err.Error())
		return err
	}

	edCmd.SetIO(os.Stdin, os.Stdout, os.Stderr)
	if err := edCmd.Run(); err != nil {
		err = fmt.Errorf("editor command failed: %w", err)
		logger.Error(err.Error())
		return err
	}
	return nil
}

// EditEnv opens the settings file in the user's editor.
var EditEnv EditEnvFunc = func(fs afero.Fs, ctx context.Context, filePath string, logger *logging.Logger) error {
	return EditEnvWithFactory(fs, ctx, filePath, logger, nil)
}

// MockEditEnv validates the path like EditEnv but never launches an editor.
var MockEditEnv EditEnvFunc = func(fs afero.Fs, ctx context.Context, filePath string, logger *logging.Logger) error {
	if err := checkEnvFile(fs, filePath); err != nil {
		logger.Error(err.Error())
		return err
	}
	return nil
}
