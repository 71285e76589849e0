package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, cfg.API.URL)
	assert.Equal(t, DefaultTimeout, cfg.API.Timeout)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "Load must not create the file")
}

func TestLoad_ParsesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `api:
  url: https://approvals.example.com
  timeout: 5s
defaults:
  format: json
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://approvals.example.com", cfg.API.URL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "json", cfg.Defaults.Format)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format, "unset keys keep defaults")
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unterminated"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	ce, ok := clierrors.As(err)
	require.True(t, ok)
	assert.Equal(t, clierrors.ErrCodeConfig, ce.Code)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	require.NoError(t, cfg.Set("api.timeout", "45s"))
	require.NoError(t, cfg.Set("metrics.textfile", "/tmp/approvals.prom"))
	require.NoError(t, Save(cfg, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAPIURL:   "http://10.0.0.5:9000",
		EnvStateDir: "/var/lib/approvals",
		EnvLogLevel: "debug",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "http://10.0.0.5:9000", cfg.API.URL)
	assert.Equal(t, "/var/lib/approvals", cfg.StateDir)
	assert.Equal(t, "debug", cfg.Logging.Level)

	dir, err := cfg.ResolveStateDir()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/approvals", dir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "relative url", mutate: func(c *Config) { c.API.URL = "localhost:8000" }, wantErr: true},
		{name: "ftp url", mutate: func(c *Config) { c.API.URL = "ftp://host" }, wantErr: true},
		{name: "negative timeout", mutate: func(c *Config) { c.API.Timeout = -time.Second }, wantErr: true},
		{name: "bad format", mutate: func(c *Config) { c.Defaults.Format = "xml" }, wantErr: true},
		{name: "bad sample rate", mutate: func(c *Config) { c.Telemetry.SampleRate = 2 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	v, err := cfg.Get("api.url")
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIURL, v)

	require.NoError(t, cfg.Set("telemetry.enabled", "true"))
	v, err = cfg.Get("telemetry.enabled")
	require.NoError(t, err)
	assert.Equal(t, "true", v)

	assert.Error(t, cfg.Set("telemetry.enabled", "sometimes"))
	assert.Error(t, cfg.Set("api.url", "not a url"))

	_, err = cfg.Get("providers.default")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.url")

	assert.Contains(t, Keys(), "state_dir")
}
