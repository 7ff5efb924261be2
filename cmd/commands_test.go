package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/snapforge/snapforge/pkg/cfg"
	"github.com/snapforge/snapforge/pkg/environment"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/snapforge/snapforge/pkg/version"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServeCommandMetadata(t *testing.T) {
	fs := afero.NewMemMapFs()
	environ := &environment.Environment{}
	logger := logging.NewTestLogger()

	cmd := NewServeCommand(fs, context.Background(), environ, logger)
	require.NotNil(t, cmd)
	assert.Equal(t, "serve", cmd.Use)
	assert.Contains(t, cmd.Aliases, "server")
	require.NotNil(t, cmd.Flags().Lookup("host"))
	require.NotNil(t, cmd.Flags().Lookup("port"))
}

func TestRunServeStartsAndShutsDown(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()

	settings := &cfg.Settings{
		HostIP:         "127.0.0.1",
		PortNum:        0,
		PublicDir:      "/data/public",
		MaxUploadBytes: 1 << 20,
		RateMax:        10,
		ConvertBin:     "snapforge-no-such-binary",
		IdentifyBin:    "snapforge-no-such-binary",
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, runServe(fs, ctx, settings, logger))

	for _, dir := range []string{"/data/public/uploads", "/data/public/processed"} {
		exists, err := afero.DirExists(fs, dir)
		require.NoError(t, err)
		assert.True(t, exists, dir)
	}
}

func TestNewSweepCommandMetadata(t *testing.T) {
	fs := afero.NewMemMapFs()
	environ := &environment.Environment{}
	logger := logging.NewTestLogger()

	cmd := NewSweepCommand(fs, environ, logger)
	require.NotNil(t, cmd)
	assert.Equal(t, "sweep", cmd.Use)
	assert.Contains(t, cmd.Aliases, "gc")
	require.NotNil(t, cmd.Flags().Lookup("max-age"))
	require.NotNil(t, cmd.Flags().Lookup("dry-run"))
}

func TestRunSweepRemovesExpiredFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()

	aged := "/data/public/uploads/aged.png"
	fresh := "/data/public/uploads/fresh.png"
	require.NoError(t, afero.WriteFile(fs, aged, []byte("aged!"), 0o644))
	require.NoError(t, afero.WriteFile(fs, fresh, []byte("fresh"), 0o644))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, fs.Chtimes(aged, past, past))

	summary, err := runSweep(fs, "/data/public", 24*time.Hour, false, logger)
	require.NoError(t, err)
	assert.Contains(t, summary, "scanned 2 files")
	assert.Contains(t, summary, "removed 1")

	exists, err := afero.Exists(fs, aged)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = afero.Exists(fs, fresh)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunSweepDryRunKeepsFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()

	aged := "/data/public/processed/aged.jpg"
	require.NoError(t, afero.WriteFile(fs, aged, []byte("aged"), 0o644))
	past := time.Now().Add(-48 * time.Hour)
	require.NoError(t, fs.Chtimes(aged, past, past))

	summary, err := runSweep(fs, "/data/public", 24*time.Hour, true, logger)
	require.NoError(t, err)
	assert.Contains(t, summary, "would remove 1")

	exists, err := afero.Exists(fs, aged)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestSweepCommandExecutesWithDefaults(t *testing.T) {
	fs := afero.NewMemMapFs()
	environ := &environment.Environment{}
	logger := logging.NewTestLogger()

	cmd := NewSweepCommand(fs, environ, logger)
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs([]string{"--dry-run"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Sweep complete")
}

func TestSweepCommandRejectsBadMaxAge(t *testing.T) {
	fs := afero.NewMemMapFs()
	environ := &environment.Environment{}
	logger := logging.NewTestLogger()

	cmd := NewSweepCommand(fs, environ, logger)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--max-age", "yesterday"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--max-age")
}

func TestConfigShowPrintsEffectiveSettings(t *testing.T) {
	fs := afero.NewMemMapFs()
	environ := &environment.Environment{}
	logger := logging.NewTestLogger()

	cmd := newConfigShowCommand(fs, environ, logger)
	out := new(bytes.Buffer)
	cmd.SetOut(out)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "address:")
	assert.Contains(t, out.String(), "convert binary:")
	assert.Contains(t, out.String(), "retention age:")
}

func TestConfigInitWritesStarterFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	environ := &environment.Environment{Home: "/home/forge", NonInteractive: "1"}
	logger := logging.NewTestLogger()

	cmd := newConfigInitCommand(fs, environ, logger)
	out := new(bytes.Buffer)
	cmd.SetOut(out)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Settings file ready:")

	configFile := "/home/forge/" + environment.SystemConfigFileName
	exists, err := afero.Exists(fs, configFile)
	require.NoError(t, err)
	assert.True(t, exists)

	// Second run must not clobber the existing file.
	require.NoError(t, afero.WriteFile(fs, configFile, []byte("SNAPFORGE_PORT=9001\n"), 0o644))
	require.NoError(t, cmd.Execute())
	content, err := afero.ReadFile(fs, configFile)
	require.NoError(t, err)
	assert.Equal(t, "SNAPFORGE_PORT=9001\n", string(content))
}

func TestConfigEditNonInteractiveLeavesFileAlone(t *testing.T) {
	fs := afero.NewMemMapFs()
	environ := &environment.Environment{Home: "/home/forge", NonInteractive: "1"}
	logger := logging.NewTestLogger()

	configFile := "/home/forge/" + environment.SystemConfigFileName
	require.NoError(t, afero.WriteFile(fs, configFile, []byte("SNAPFORGE_PORT=9001\n"), 0o644))

	cmd := newConfigEditCommand(fs, context.Background(), environ, logger)
	out := new(bytes.Buffer)
	cmd.SetOut(out)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Edited:")

	content, err := afero.ReadFile(fs, configFile)
	require.NoError(t, err)
	assert.Equal(t, "SNAPFORGE_PORT=9001\n", string(content))
}

func TestNewVersionCommandPrintsVersion(t *testing.T) {
	cmd := NewVersionCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), version.Name)
	assert.Contains(t, out.String(), version.Version)
}
