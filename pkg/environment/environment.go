// Package environment captures the process surroundings the service starts
// from: key directories, docker detection and where the settings file lives.
package environment

import (
	"os"
	"path/filepath"

	env "github.com/Netflix/go-env"
	"github.com/spf13/afero"
)

const SystemConfigFileName = ".snapforge.env"

// Environment holds environment configurations loaded from the OS or defaults.
type Environment struct {
	Root           string `env:"ROOT_DIR,default=/"`
	Home           string `env:"HOME"`
	Pwd            string `env:"PWD"`
	ConfigFile     string `env:"SNAPFORGE_CONFIG"`
	DockerMode     string `env:"DOCKER_MODE,default=0"`
	NonInteractive string `env:"NON_INTERACTIVE,default=0"`
	Extras         env.EnvSet
}

// NewEnvironment builds the runtime picture. A non-nil environ wins over the
// process environment and forces non-interactive mode, which is what tests
// and scripted callers want.
func NewEnvironment(fs afero.Fs, environ *Environment) (*Environment, error) {
	if environ != nil {
		e := finalize(fs, *environ)
		e.NonInteractive = "1"
		return e, nil
	}

	loaded := &Environment{}
	extras, err := env.UnmarshalFromEnviron(loaded)
	if err != nil {
		return nil, err
	}
	loaded.Extras = extras
	loaded.NonInteractive = os.Getenv("NON_INTERACTIVE")

	return finalize(fs, *loaded), nil
}

// finalize settles docker mode and the config path on a copy of base.
// Containers ship their own configuration, so discovery only runs outside
// docker mode, and an explicit ConfigFile always wins.
func finalize(fs afero.Fs, base Environment) *Environment {
	if base.DockerMode == "" {
		base.DockerMode = "0"
	}
	if base.DockerMode != "1" && isDockerEnvironment(fs, base.Root) {
		base.DockerMode = "1"
	}
	if base.ConfigFile == "" && base.DockerMode != "1" {
		base.ConfigFile = findConfig(fs, base.Pwd, base.Home)
	}
	return &base
}

// checkConfig reports the settings file path under baseDir if one exists.
func checkConfig(fs afero.Fs, baseDir string) (string, error) {
	candidate := filepath.Join(baseDir, SystemConfigFileName)
	exists, err := afero.Exists(fs, candidate)
	if err != nil || !exists {
		return "", err
	}
	return candidate, nil
}

// findConfig looks for the settings file in pwd first, then home.
func findConfig(fs afero.Fs, pwd, home string) string {
	for _, dir := range []string{pwd, home} {
		if found, _ := checkConfig(fs, dir); found != "" {
			return found
		}
	}
	return ""
}

// isDockerEnvironment checks for the container sentinel file under root.
func isDockerEnvironment(fs afero.Fs, root string) bool {
	exists, _ := afero.Exists(fs, filepath.Join(root, ".dockerenv"))
	return exists
}
