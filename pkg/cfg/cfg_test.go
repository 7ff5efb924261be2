package cfg_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/kr/pretty"
	"github.com/snapforge/snapforge/pkg/cfg"
	"github.com/snapforge/snapforge/pkg/environment"
	"github.com/snapforge/snapforge/pkg/logging"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var settingsKeys = []string{
	"SNAPFORGE_HOST",
	"SNAPFORGE_PORT",
	"SNAPFORGE_PUBLIC_DIR",
	"SNAPFORGE_MAX_UPLOAD",
	"SNAPFORGE_RATE_WINDOW",
	"SNAPFORGE_RATE_MAX",
	"SNAPFORGE_RETENTION_AGE",
	"SNAPFORGE_CONVERT_BIN",
	"SNAPFORGE_IDENTIFY_BIN",
	"SNAPFORGE_EXEC_TIMEOUT",
	"SNAPFORGE_TRUSTED_PROXIES",
	"SNAPFORGE_ALLOW_ORIGINS",
}

// clearSettingsEnv unsets every settings variable for the duration of the
// test. t.Setenv records the original value for restoration.
func clearSettingsEnv(t *testing.T) {
	t.Helper()
	for _, key := range settingsKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func testEnviron() *environment.Environment {
	return &environment.Environment{
		Root: "/",
		Home: "/home/user",
		Pwd:  "/work",
	}
}

func TestDefaultPublicDir(t *testing.T) {
	docker := &environment.Environment{DockerMode: "1"}
	assert.Equal(t, "public", cfg.DefaultPublicDir(docker))

	host := &environment.Environment{DockerMode: "0"}
	got := cfg.DefaultPublicDir(host)
	assert.True(t, strings.HasSuffix(got, filepath.Join("snapforge", "public")), "got %s", got)

	assert.NotEmpty(t, cfg.DefaultPublicDir(nil))
}

func TestFindConfiguration(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()
	environ := testEnviron()

	// Nothing on disk yet.
	configFile, err := cfg.FindConfiguration(fs, environ, logger)
	require.NoError(t, err)
	assert.Empty(t, configFile)

	// Home copy is found once present.
	homeConfig := filepath.Join(environ.Home, environment.SystemConfigFileName)
	require.NoError(t, afero.WriteFile(fs, homeConfig, []byte(""), 0o644))
	configFile, err = cfg.FindConfiguration(fs, environ, logger)
	require.NoError(t, err)
	assert.Equal(t, homeConfig, configFile)

	// The working directory overrides home.
	pwdConfig := filepath.Join(environ.Pwd, environment.SystemConfigFileName)
	require.NoError(t, afero.WriteFile(fs, pwdConfig, []byte(""), 0o644))
	configFile, err = cfg.FindConfiguration(fs, environ, logger)
	require.NoError(t, err)
	assert.Equal(t, pwdConfig, configFile)

	// An explicit path overrides both.
	explicit := "/etc/snapforge/.snapforge.env"
	require.NoError(t, afero.WriteFile(fs, explicit, []byte(""), 0o644))
	environ.ConfigFile = explicit
	configFile, err = cfg.FindConfiguration(fs, environ, logger)
	require.NoError(t, err)
	assert.Equal(t, explicit, configFile)
}

func TestGenerateConfiguration(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()
	environ := testEnviron()
	environ.NonInteractive = "1"

	configFile, err := cfg.GenerateConfiguration(fs, environ, logger)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(environ.Home, environment.SystemConfigFileName), configFile)

	content, err := afero.ReadFile(fs, configFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "SNAPFORGE_PORT=8390")

	// A second call must not clobber user edits.
	require.NoError(t, afero.WriteFile(fs, configFile, []byte("SNAPFORGE_PORT=9999\n"), 0o644))
	_, err = cfg.GenerateConfiguration(fs, environ, logger)
	require.NoError(t, err)
	content, err = afero.ReadFile(fs, configFile)
	require.NoError(t, err)
	assert.Equal(t, "SNAPFORGE_PORT=9999\n", string(content))
}

func TestGenerateConfigurationNoHome(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()

	_, err := cfg.GenerateConfiguration(fs, &environment.Environment{NonInteractive: "1"}, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "home directory unknown")
}

func TestEditConfiguration(t *testing.T) {
	t.Setenv("NON_INTERACTIVE", "1")

	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()
	environ := testEnviron()
	environ.NonInteractive = "1"
	ctx := context.Background()

	// Missing file logs a warning but is not an error.
	configFile, err := cfg.EditConfiguration(fs, ctx, environ, logger)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(environ.Home, environment.SystemConfigFileName), configFile)

	require.NoError(t, afero.WriteFile(fs, configFile, []byte("SNAPFORGE_PORT=8390\n"), 0o644))
	_, err = cfg.EditConfiguration(fs, ctx, environ, logger)
	require.NoError(t, err)
}

func TestLoadSettingsDefaults(t *testing.T) {
	clearSettingsEnv(t)

	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()

	settings, err := cfg.LoadSettings(fs, testEnviron(), "", logger)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", settings.HostIP)
	assert.Equal(t, 8390, settings.PortNum)
	assert.Equal(t, int64(10*1024*1024), settings.MaxUploadBytes)
	assert.Equal(t, 100, settings.RateMax)
	assert.Equal(t, 15*time.Minute, settings.RateWindow())
	assert.Equal(t, 24*time.Hour, settings.RetentionAge())
	assert.Equal(t, 60*time.Second, settings.ExecTimeout())
	assert.Equal(t, "convert", settings.ConvertBin)
	assert.Equal(t, "identify", settings.IdentifyBin)
	assert.NotEmpty(t, settings.PublicDir)
	assert.Equal(t, "127.0.0.1:8390", settings.Addr())
	assert.Equal(t, []string{"*"}, settings.AllowOriginList())
	assert.Empty(t, settings.TrustedProxyList())
}

func TestLoadSettingsFileAndEnvPrecedence(t *testing.T) {
	clearSettingsEnv(t)

	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()

	configFile := "/home/user/.snapforge.env"
	require.NoError(t, afero.WriteFile(fs, configFile, []byte(
		"SNAPFORGE_PORT=8100\nSNAPFORGE_RATE_MAX=5\n",
	), 0o644))

	// A real environment variable must win over the file.
	t.Setenv("SNAPFORGE_PORT", "9000")
	t.Cleanup(func() { os.Unsetenv("SNAPFORGE_RATE_MAX") })

	settings, err := cfg.LoadSettings(fs, testEnviron(), configFile, logger)
	require.NoError(t, err)

	assert.Equal(t, 9000, settings.PortNum, "env var should override file value")
	assert.Equal(t, 5, settings.RateMax, "file value should apply when env var unset")
}

func TestLoadSettingsEveryKnobFromFile(t *testing.T) {
	clearSettingsEnv(t)

	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()

	configFile := "/work/.snapforge.env"
	require.NoError(t, afero.WriteFile(fs, configFile, []byte(strings.Join([]string{
		"SNAPFORGE_HOST=0.0.0.0",
		"SNAPFORGE_PORT=9100",
		"SNAPFORGE_PUBLIC_DIR=/srv/snapforge/public",
		"SNAPFORGE_MAX_UPLOAD=5242880",
		"SNAPFORGE_RATE_WINDOW=1m",
		"SNAPFORGE_RATE_MAX=3",
		"SNAPFORGE_RETENTION_AGE=48h",
		"SNAPFORGE_CONVERT_BIN=magick",
		"SNAPFORGE_IDENTIFY_BIN=magick-identify",
		"SNAPFORGE_EXEC_TIMEOUT=90s",
		"SNAPFORGE_TRUSTED_PROXIES=10.1.2.3",
		"SNAPFORGE_ALLOW_ORIGINS=https://app.example.com,https://admin.example.com",
	}, "\n")+"\n"), 0o644))

	settings, err := cfg.LoadSettings(fs, testEnviron(), configFile, logger)
	require.NoError(t, err)

	type view struct {
		Addr         string
		PublicDir    string
		MaxUpload    int64
		RateMax      int
		RateWindow   time.Duration
		RetentionAge time.Duration
		ConvertBin   string
		IdentifyBin  string
		ExecTimeout  time.Duration
		Proxies      []string
		Origins      []string
	}
	got := view{
		Addr:         settings.Addr(),
		PublicDir:    settings.PublicDir,
		MaxUpload:    settings.MaxUploadBytes,
		RateMax:      settings.RateMax,
		RateWindow:   settings.RateWindow(),
		RetentionAge: settings.RetentionAge(),
		ConvertBin:   settings.ConvertBin,
		IdentifyBin:  settings.IdentifyBin,
		ExecTimeout:  settings.ExecTimeout(),
		Proxies:      settings.TrustedProxyList(),
		Origins:      settings.AllowOriginList(),
	}
	want := view{
		Addr:         "0.0.0.0:9100",
		PublicDir:    "/srv/snapforge/public",
		MaxUpload:    5 << 20,
		RateMax:      3,
		RateWindow:   time.Minute,
		RetentionAge: 48 * time.Hour,
		ConvertBin:   "magick",
		IdentifyBin:  "magick-identify",
		ExecTimeout:  90 * time.Second,
		Proxies:      []string{"10.1.2.3"},
		Origins:      []string{"https://app.example.com", "https://admin.example.com"},
	}

	if diff := pretty.Diff(want, got); len(diff) != 0 {
		t.Errorf("settings mismatch:\n%s", strings.Join(diff, "\n"))
	}
}

func TestLoadSettingsInvalidValues(t *testing.T) {
	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()

	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"bad window", "SNAPFORGE_RATE_WINDOW", "banana", "SNAPFORGE_RATE_WINDOW"},
		{"negative retention", "SNAPFORGE_RETENTION_AGE", "-1h", "SNAPFORGE_RETENTION_AGE"},
		{"bad exec timeout", "SNAPFORGE_EXEC_TIMEOUT", "soon", "SNAPFORGE_EXEC_TIMEOUT"},
		{"port out of range", "SNAPFORGE_PORT", "70000", "SNAPFORGE_PORT"},
		{"negative max upload", "SNAPFORGE_MAX_UPLOAD", "-1", "SNAPFORGE_MAX_UPLOAD"},
		{"zero rate max", "SNAPFORGE_RATE_MAX", "0", "SNAPFORGE_RATE_MAX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearSettingsEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := cfg.LoadSettings(fs, testEnviron(), "", logger)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadSettingsMissingConfigFile(t *testing.T) {
	clearSettingsEnv(t)

	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()

	_, err := cfg.LoadSettings(fs, testEnviron(), "/nope/.snapforge.env", logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config-file")
}

func TestTrustedProxyList(t *testing.T) {
	clearSettingsEnv(t)
	t.Setenv("SNAPFORGE_TRUSTED_PROXIES", " 10.0.0.1, 10.0.0.2 ,")

	fs := afero.NewMemMapFs()
	logger := logging.NewTestLogger()

	settings, err := cfg.LoadSettings(fs, testEnviron(), "", logger)
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, settings.TrustedProxyList())
}

func TestDefaultConfigTemplateParses(t *testing.T) {
	values, err := godotenv.Unmarshal(cfg.DefaultConfigTemplate)
	require.NoError(t, err)

	// The template ships every uncommented knob with the shipped default.
	assert.Equal(t, "127.0.0.1", values["SNAPFORGE_HOST"])
	assert.Equal(t, "8390", values["SNAPFORGE_PORT"])
	assert.Equal(t, "10485760", values["SNAPFORGE_MAX_UPLOAD"])
	assert.Equal(t, "15m", values["SNAPFORGE_RATE_WINDOW"])
	assert.Equal(t, "100", values["SNAPFORGE_RATE_MAX"])
	assert.Equal(t, "24h", values["SNAPFORGE_RETENTION_AGE"])
	assert.Equal(t, "convert", values["SNAPFORGE_CONVERT_BIN"])
	assert.Equal(t, "identify", values["SNAPFORGE_IDENTIFY_BIN"])
	assert.Equal(t, "60s", values["SNAPFORGE_EXEC_TIMEOUT"])
	assert.Equal(t, "*", values["SNAPFORGE_ALLOW_ORIGINS"])

	_, hasPublicDir := values["SNAPFORGE_PUBLIC_DIR"]
	assert.False(t, hasPublicDir, "public dir should stay commented out")
}
