package cmd

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/snapforge/snapforge/pkg/environment"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// claimEnv registers a restore for each key and clears it, so a test can
// observe the config-file values without interference from the real
// environment. LoadSettings exports file values into the process
// environment, which the registered cleanup undoes.
func claimEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestNewRootCommand(t *testing.T) {
	fs := afero.NewMemMapFs()
	ctx := context.Background()
	environ := &environment.Environment{}
	logger := logging.NewTestLogger()

	cmd := NewRootCommand(fs, ctx, environ, logger)
	require.NotNil(t, cmd)
	assert.Equal(t, "snapforge", cmd.Use)
	assert.Contains(t, cmd.Short, "Image upload and processing")

	configFl := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFl)
	assert.Equal(t, "c", configFl.Shorthand)
	debugFl := cmd.PersistentFlags().Lookup("debug")
	require.NotNil(t, debugFl)
	assert.Equal(t, "d", debugFl.Shorthand)

	var subNames []string
	for _, sub := range cmd.Commands() {
		subNames = append(subNames, sub.Name())
	}
	assert.Contains(t, subNames, "serve")
	assert.Contains(t, subNames, "sweep")
	assert.Contains(t, subNames, "config")
	assert.Contains(t, subNames, "version")
}

func TestRootCommandDebugFlagRaisesLogLevel(t *testing.T) {
	fs := afero.NewMemMapFs()
	ctx := context.Background()
	environ := &environment.Environment{}
	logger := logging.NewTestLogger()
	logger.SetLevel(log.InfoLevel)

	cmd := NewRootCommand(fs, ctx, environ, logger)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetArgs([]string{"--debug", "version"})
	t.Cleanup(func() { debugFlag = false })

	require.NoError(t, cmd.Execute())
	assert.Equal(t, log.DebugLevel, logger.GetLevel())
}

func TestResolveSettingsHonorsConfigFlag(t *testing.T) {
	claimEnv(t, "SNAPFORGE_RETENTION_AGE")

	fs := afero.NewMemMapFs()
	environ := &environment.Environment{}
	logger := logging.NewTestLogger()

	configFile := "/custom/settings.env"
	require.NoError(t, afero.WriteFile(fs, configFile,
		[]byte("SNAPFORGE_RETENTION_AGE=90h\n"), 0o644))

	configFlag = configFile
	t.Cleanup(func() { configFlag = "" })

	settings, err := resolveSettings(fs, environ, logger)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Hour, settings.RetentionAge())
}

func TestResolveSettingsDiscoversHomeFile(t *testing.T) {
	claimEnv(t, "SNAPFORGE_RATE_MAX")

	fs := afero.NewMemMapFs()
	environ := &environment.Environment{Home: "/home/forge"}
	logger := logging.NewTestLogger()

	configFile := "/home/forge/" + environment.SystemConfigFileName
	require.NoError(t, afero.WriteFile(fs, configFile,
		[]byte("SNAPFORGE_RATE_MAX=7\n"), 0o644))

	settings, err := resolveSettings(fs, environ, logger)
	require.NoError(t, err)
	assert.Equal(t, 7, settings.RateMax)
}

func TestResolveSettingsDefaultsWithoutFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	environ := &environment.Environment{}
	logger := logging.NewTestLogger()

	settings, err := resolveSettings(fs, environ, logger)
	require.NoError(t, err)
	assert.NotEmpty(t, settings.PublicDir)
	assert.NotEmpty(t, settings.Addr())
}
