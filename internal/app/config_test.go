package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestViper loads defaults with the config search isolated from the host.
func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(t.TempDir())

	v := viper.New()
	require.NoError(t, loadConfig(v, ""))
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	v := newTestViper(t)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "./tmp", cfg.Workdir)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.False(t, cfg.Log.File.Enabled)
	assert.Equal(t, "ghcr.io", cfg.Registry.GHCR)
	assert.Equal(t, "reg.tmoe.me:2096", cfg.Registry.Reg)
	assert.Equal(t, "docker", cfg.Engine.Binary)
	assert.True(t, cfg.Engine.BuildKit)
	assert.Equal(t, 3, cfg.Command.Attempts)
	assert.Zero(t, cfg.Command.Timeout)
	assert.True(t, cfg.Command.ExitOnFailure)
	assert.Equal(t, 19, cfg.Zstd.Level)
	assert.False(t, cfg.Pipeline.ContinueOnError)
	assert.Empty(t, cfg.Catalog.Path)
	require.NoError(t, cfg.validate())
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "get-ctr.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
workdir = "/srv/get-ctr"

[registry]
reg = "reg.example:5000"

[command]
attempts = 5
timeout = "10m"

[zstd]
level = 22

[pipeline]
continue_on_error = true
`), 0o600))

	v := viper.New()
	require.NoError(t, loadConfig(v, path))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "/srv/get-ctr", cfg.Workdir)
	assert.Equal(t, "reg.example:5000", cfg.Registry.Reg)
	assert.Equal(t, "ghcr.io", cfg.Registry.GHCR)
	assert.Equal(t, 5, cfg.Command.Attempts)
	assert.Equal(t, 10*time.Minute, cfg.Command.Timeout)
	assert.Equal(t, 22, cfg.Zstd.Level)
	assert.True(t, cfg.Pipeline.ContinueOnError)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("GETCTR_ZSTD_LEVEL", "3")
	t.Setenv("GETCTR_REGISTRY_GHCR", "ghcr.example")
	v := newTestViper(t)

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, 3, cfg.Zstd.Level)
	assert.Equal(t, "ghcr.example", cfg.Registry.GHCR)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "get-ctr.toml")
	require.NoError(t, os.WriteFile(path, []byte("workdir = ["), 0o600))

	err := loadConfig(viper.New(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_DotEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("GETCTR_WORKDIR=/from/dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("GETCTR_WORKDIR") })

	_, cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "/from/dotenv", cfg.Workdir)
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"zstd level too high", func(c *Config) { c.Zstd.Level = 23 }, "zstd.level"},
		{"negative zstd level", func(c *Config) { c.Zstd.Level = -1 }, "zstd.level"},
		{"empty workdir", func(c *Config) { c.Workdir = "" }, "workdir"},
		{"negative pool size", func(c *Config) { c.Pool.Size = -2 }, "pool.size"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Config{Workdir: "./tmp"}
			cfg.Zstd.Level = 19
			tc.mutate(&cfg)

			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}
}
