// Package cfg owns the server settings: discovery of the .snapforge.env
// file, generation of a starter template, and loading of the final Settings
// from the file plus the process environment. Real environment variables
// always win over file values.
package cfg

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/adrg/xdg"
	"github.com/charmbracelet/huh"
	"github.com/joho/godotenv"
	"github.com/snapforge/snapforge/pkg/environment"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/snapforge/snapforge/pkg/texteditor"
	"github.com/spf13/afero"
)

// Settings is the full runtime configuration of the service. Duration knobs
// are declared as strings so the file format stays plain; use the accessor
// methods for the parsed values.
type Settings struct {
	HostIP         string `env:"SNAPFORGE_HOST,default=127.0.0.1"`
	PortNum        int    `env:"SNAPFORGE_PORT,default=8390"`
	PublicDir      string `env:"SNAPFORGE_PUBLIC_DIR"`
	MaxUploadBytes int64  `env:"SNAPFORGE_MAX_UPLOAD,default=10485760"`
	RateWindowRaw  string `env:"SNAPFORGE_RATE_WINDOW,default=15m"`
	RateMax        int    `env:"SNAPFORGE_RATE_MAX,default=100"`
	RetentionRaw   string `env:"SNAPFORGE_RETENTION_AGE,default=24h"`
	ConvertBin     string `env:"SNAPFORGE_CONVERT_BIN,default=convert"`
	IdentifyBin    string `env:"SNAPFORGE_IDENTIFY_BIN,default=identify"`
	ExecTimeoutRaw string `env:"SNAPFORGE_EXEC_TIMEOUT,default=60s"`
	TrustedProxies string `env:"SNAPFORGE_TRUSTED_PROXIES"`
	AllowOrigins   string `env:"SNAPFORGE_ALLOW_ORIGINS,default=*"`
	Extras         env.EnvSet

	rateWindow   time.Duration
	retentionAge time.Duration
	execTimeout  time.Duration
}

// RateWindow returns the parsed upload rate-limit window.
func (s *Settings) RateWindow() time.Duration { return s.rateWindow }

// RetentionAge returns the parsed maximum file age for the sweeper.
func (s *Settings) RetentionAge() time.Duration { return s.retentionAge }

// ExecTimeout returns the parsed per-subprocess timeout.
func (s *Settings) ExecTimeout() time.Duration { return s.execTimeout }

// Addr returns the host:port the API server binds to.
func (s *Settings) Addr() string {
	return net.JoinHostPort(s.HostIP, strconv.Itoa(s.PortNum))
}

// TrustedProxyList returns the proxies allowed to set client-IP headers.
func (s *Settings) TrustedProxyList() []string { return splitList(s.TrustedProxies) }

// AllowOriginList returns the configured CORS origins. A single "*" entry
// means any origin.
func (s *Settings) AllowOriginList() []string { return splitList(s.AllowOrigins) }

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// DefaultPublicDir resolves the public tree location when
// SNAPFORGE_PUBLIC_DIR is unset: a relative public/ inside containers,
// otherwise a directory under the XDG data home.
func DefaultPublicDir(environ *environment.Environment) string {
	if environ != nil && environ.DockerMode == "1" {
		return "public"
	}
	return filepath.Join(xdg.DataHome, "snapforge", "public")
}

// FindConfiguration looks for the settings file in the current directory
// first, then in the home directory. An empty result means defaults only.
func FindConfiguration(fs afero.Fs, environ *environment.Environment, logger *logging.Logger) (string, error) {
	logger.Debug("finding configuration...")

	if environ.ConfigFile != "" {
		if _, err := fs.Stat(environ.ConfigFile); err == nil {
			logger.Debug("configuration file found", "config-file", environ.ConfigFile)
			return environ.ConfigFile, nil
		}
	}

	if environ.Pwd != "" {
		configFile := filepath.Join(environ.Pwd, environment.SystemConfigFileName)
		if _, err := fs.Stat(configFile); err == nil {
			logger.Debug("configuration file found in current directory", "config-file", configFile)
			return configFile, nil
		}
	}

	if environ.Home != "" {
		configFile := filepath.Join(environ.Home, environment.SystemConfigFileName)
		if _, err := fs.Stat(configFile); err == nil {
			logger.Debug("configuration file found in home directory", "config-file", configFile)
			return configFile, nil
		}
	}

	logger.Warn("configuration file not found in any location", "config-file", environment.SystemConfigFileName)
	return "", nil
}

// GenerateConfiguration writes a commented starter template to the home
// directory unless one already exists. Outside non-interactive mode the user
// is asked first.
func GenerateConfiguration(fs afero.Fs, environ *environment.Environment, logger *logging.Logger) (string, error) {
	logger.Debug("generating configuration...")

	if environ.Home == "" {
		return "", errors.New("cannot generate configuration: home directory unknown")
	}
	configFile := filepath.Join(environ.Home, environment.SystemConfigFileName)

	if _, err := fs.Stat(configFile); err == nil {
		return configFile, nil
	}

	skipPrompts := environ.NonInteractive == "1"
	if !skipPrompts {
		var confirm bool
		if err := huh.Run(
			huh.NewConfirm().
				Title("Settings file not found. Do you want to generate one?").
				Description("This writes a commented "+environment.SystemConfigFileName+" template to your home directory.").
				Value(&confirm),
		); err != nil {
			return "", fmt.Errorf("could not create a configuration file: %w", err)
		}
		if !confirm {
			return "", errors.New("aborted by user")
		}
	}

	if err := afero.WriteFile(fs, configFile, []byte(DefaultConfigTemplate), 0o644); err != nil {
		return "", fmt.Errorf("failed to write to %s: %w", configFile, err)
	}

	logger.Info("configuration file generated", "config-file", configFile)
	return configFile, nil
}

// EditConfiguration opens the settings file in the user's editor.
func EditConfiguration(fs afero.Fs, ctx context.Context, environ *environment.Environment, logger *logging.Logger) (string, error) {
	logger.Debug("editing configuration...")

	if environ.Home == "" {
		return "", errors.New("cannot edit configuration: home directory unknown")
	}
	configFile := filepath.Join(environ.Home, environment.SystemConfigFileName)

	if _, err := fs.Stat(configFile); err != nil {
		logger.Warn("configuration file does not exist", "config-file", configFile)
		return configFile, nil
	}

	if environ.NonInteractive != "1" {
		if err := texteditor.EditEnv(fs, ctx, configFile, logger); err != nil {
			return configFile, fmt.Errorf("failed to edit configuration file: %w", err)
		}
	}

	return configFile, nil
}

// LoadSettings seeds the process environment from configFile (when present)
// and unmarshals the final Settings. Values already present in the
// environment are never overridden by the file.
func LoadSettings(fs afero.Fs, environ *environment.Environment, configFile string, logger *logging.Logger) (*Settings, error) {
	if configFile != "" {
		if err := applyEnvFile(fs, configFile); err != nil {
			return nil, fmt.Errorf("error reading config-file '%s': %w", configFile, err)
		}
		logger.Debug("applied settings file", "config-file", configFile)
	}

	settings := &Settings{}
	extras, err := env.UnmarshalFromEnviron(settings)
	if err != nil {
		return nil, err
	}
	settings.Extras = extras

	if err := settings.finalize(environ); err != nil {
		return nil, err
	}

	return settings, nil
}

// applyEnvFile parses a dotenv file and exports each key that the process
// environment does not already define.
func applyEnvFile(fs afero.Fs, path string) error {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return err
	}

	values, err := godotenv.Unmarshal(string(content))
	if err != nil {
		return err
	}

	for key, value := range values {
		if _, exists := os.LookupEnv(key); !exists {
			if err := os.Setenv(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Settings) finalize(environ *environment.Environment) error {
	if s.PublicDir == "" {
		s.PublicDir = DefaultPublicDir(environ)
	}

	if s.PortNum < 1 || s.PortNum > 65535 {
		return fmt.Errorf("SNAPFORGE_PORT out of range: %d", s.PortNum)
	}
	if s.MaxUploadBytes <= 0 {
		return fmt.Errorf("SNAPFORGE_MAX_UPLOAD must be positive, got %d", s.MaxUploadBytes)
	}
	if s.RateMax <= 0 {
		return fmt.Errorf("SNAPFORGE_RATE_MAX must be positive, got %d", s.RateMax)
	}

	var err error
	if s.rateWindow, err = parsePositiveDuration("SNAPFORGE_RATE_WINDOW", s.RateWindowRaw); err != nil {
		return err
	}
	if s.retentionAge, err = parsePositiveDuration("SNAPFORGE_RETENTION_AGE", s.RetentionRaw); err != nil {
		return err
	}
	if s.execTimeout, err = parsePositiveDuration("SNAPFORGE_EXEC_TIMEOUT", s.ExecTimeoutRaw); err != nil {
		return err
	}

	if s.ConvertBin == "" || s.IdentifyBin == "" {
		return errors.New("SNAPFORGE_CONVERT_BIN and SNAPFORGE_IDENTIFY_BIN must not be empty")
	}

	return nil
}

func parsePositiveDuration(name, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, d)
	}
	return d, nil
}

// DefaultConfigTemplate is the commented starter settings file written by
// `snapforge config init`.
const DefaultConfigTemplate = `# snapforge server settings.
# Values here seed the process environment; real environment variables win.

# Address the API server binds to. Inside a container the host is forced to
# 0.0.0.0 at startup.
SNAPFORGE_HOST=127.0.0.1
SNAPFORGE_PORT=8390

# Directory holding the public/uploads and public/processed trees.
# Defaults to $XDG_DATA_HOME/snapforge/public when unset.
#SNAPFORGE_PUBLIC_DIR=

# Upload limits.
SNAPFORGE_MAX_UPLOAD=10485760
SNAPFORGE_RATE_WINDOW=15m
SNAPFORGE_RATE_MAX=100

# Files older than this are removed from the public trees.
SNAPFORGE_RETENTION_AGE=24h

# ImageMagick binaries and the per-subprocess timeout.
SNAPFORGE_CONVERT_BIN=convert
SNAPFORGE_IDENTIFY_BIN=identify
SNAPFORGE_EXEC_TIMEOUT=60s

# Comma-separated proxy IPs allowed to set client-IP headers.
#SNAPFORGE_TRUSTED_PROXIES=

# Comma-separated CORS origins, or * for any.
SNAPFORGE_ALLOW_ORIGINS=*
`
