package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "chromium", cfg.Browser.Engine)
	assert.Equal(t, 10*time.Second, cfg.Browser.ImplicitTimeout)
	assert.Equal(t, 30*time.Second, cfg.Browser.PageLoadTimeout)
	assert.False(t, cfg.Grid.HasCredentials())
}

func TestLoad_Defaults(t *testing.T) {
	v, err := New("")
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, Default().Evidence.LogDir, cfg.Evidence.LogDir)
	assert.Equal(t, 4, cfg.Runner.Parallelism)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harness.yaml")
	content := `browser:
  engine: firefox
  headless: false
  page_load_timeout: 45s
evidence:
  log_dir: out/logs
runner:
  parallelism: 8
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	v, err := New(path)
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "firefox", cfg.Browser.Engine)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 45*time.Second, cfg.Browser.PageLoadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Browser.ImplicitTimeout, "unset keys keep their default")
	assert.Equal(t, "out/logs", cfg.Evidence.LogDir)
	assert.Equal(t, 8, cfg.Runner.Parallelism)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("HARNESS_BROWSER_ENGINE", "webkit")
	t.Setenv("BROWSERSTACK_USERNAME", "alice")
	t.Setenv("BROWSERSTACK_ACCESS_KEY", "s3cret")

	v, err := New("")
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "webkit", cfg.Browser.Engine)
	assert.Equal(t, "alice", cfg.Grid.Username)
	assert.Equal(t, "s3cret", cfg.Grid.AccessKey)
	assert.True(t, cfg.Grid.HasCredentials())
}

func TestLoad_PrefixedGridVariablesWin(t *testing.T) {
	t.Setenv("HARNESS_GRID_USERNAME", "bob")
	t.Setenv("BROWSERSTACK_USERNAME", "alice")

	v, err := New("")
	require.NoError(t, err)

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "bob", cfg.Grid.Username)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unknown engine",
			mutate:  func(c *Config) { c.Browser.Engine = "netscape" },
			wantErr: "invalid browser.engine",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Browser.PageLoadTimeout = -time.Second },
			wantErr: "page_load_timeout",
		},
		{
			name:    "zero parallelism",
			mutate:  func(c *Config) { c.Runner.Parallelism = 0 },
			wantErr: "parallelism",
		},
		{
			name:    "missing log dir",
			mutate:  func(c *Config) { c.Evidence.LogDir = "" },
			wantErr: "log_dir",
		},
		{
			name: "credentials without endpoint",
			mutate: func(c *Config) {
				c.Grid.Username = "u"
				c.Grid.AccessKey = "k"
				c.Grid.Endpoint = ""
			},
			wantErr: "grid.endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
