// Package config loads the approvals client configuration from
// ~/.approvals/config.yaml and applies environment overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	clierrors "github.com/felixgeelhaar/approvals/internal/errors"
)

// Environment variables that override the file.
const (
	EnvConfig   = "APPROVALS_CONFIG"
	EnvAPIURL   = "APPROVALS_API_URL"
	EnvStateDir = "APPROVALS_STATE_DIR"
	EnvLogLevel = "APPROVALS_LOG_LEVEL"
)

const (
	DefaultAPIURL  = "http://localhost:8000"
	DefaultTimeout = 30 * time.Second
	dirName        = ".approvals"
	fileName       = "config.yaml"
)

// Config is the on-disk configuration.
type Config struct {
	API       APIConfig       `yaml:"api"`
	Defaults  CommandDefaults `yaml:"defaults,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Telemetry TelemetryConfig `yaml:"telemetry,omitempty"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`
	// StateDir holds persisted sessions and drafts; defaults to ~/.approvals.
	StateDir string `yaml:"state_dir,omitempty"`
}

type APIConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

type CommandDefaults struct {
	Format string `yaml:"format,omitempty"` // "text", "json", "yaml"
}

type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"`
}

type TelemetryConfig struct {
	Enabled    bool    `yaml:"enabled,omitempty"`
	Endpoint   string  `yaml:"endpoint,omitempty"`
	SampleRate float64 `yaml:"sample_rate,omitempty"`
}

// MetricsConfig controls the Prometheus textfile written after each
// command. "-" dumps the metrics to stderr instead.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API:       APIConfig{URL: DefaultAPIURL, Timeout: DefaultTimeout},
		Defaults:  CommandDefaults{Format: "text"},
		Logging:   LoggingConfig{Level: "warn", Format: "text"},
		Telemetry: TelemetryConfig{SampleRate: 1.0},
	}
}

// DefaultDir returns ~/.approvals.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Path returns the config file location, honouring APPROVALS_CONFIG.
func Path() (string, error) {
	if p := os.Getenv(EnvConfig); p != "" {
		return p, nil
	}
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}

// Load reads path. A missing file yields the defaults; it is not created.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, clierrors.NewConfigError("failed to read config", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, clierrors.NewConfigError(fmt.Sprintf("failed to parse %s", path), err).
			WithSuggestion("Fix the YAML syntax or delete the file to restore defaults")
	}
	return cfg, nil
}

// Save writes cfg to path with owner-only permissions.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return clierrors.NewConfigError("failed to marshal config", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return clierrors.NewConfigError("failed to create config directory", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return clierrors.NewConfigError("failed to write config", err)
	}
	return nil
}

// ApplyEnv overlays the APPROVALS_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvAPIURL); v != "" {
		c.API.URL = v
	}
	if v := getenv(EnvStateDir); v != "" {
		c.StateDir = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// ResolveStateDir returns StateDir, falling back to ~/.approvals.
func (c *Config) ResolveStateDir() (string, error) {
	if c.StateDir != "" {
		return expandHome(c.StateDir)
	}
	return DefaultDir()
}

// Validate checks the values that would otherwise fail late.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return clierrors.NewConfigError(fmt.Sprintf("invalid api.url %q", c.API.URL), err).
			WithSuggestion("Use an absolute http(s) URL such as " + DefaultAPIURL)
	}
	if c.API.Timeout < 0 {
		return clierrors.NewConfigError("api.timeout must not be negative", nil)
	}
	switch c.Defaults.Format {
	case "", "text", "json", "yaml":
	default:
		return clierrors.NewConfigError(fmt.Sprintf("invalid defaults.format %q", c.Defaults.Format), nil).
			WithSuggestion("Use text, json or yaml")
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		return clierrors.NewConfigError("telemetry.sample_rate must be between 0 and 1", nil)
	}
	return nil
}

type field struct {
	get func(*Config) string
	set func(*Config, string) error
}

var fields = map[string]field{
	"api.url": {
		get: func(c *Config) string { return c.API.URL },
		set: func(c *Config, v string) error { c.API.URL = v; return nil },
	},
	"api.timeout": {
		get: func(c *Config) string { return c.API.Timeout.String() },
		set: func(c *Config, v string) error {
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			c.API.Timeout = d
			return nil
		},
	},
	"defaults.format": {
		get: func(c *Config) string { return c.Defaults.Format },
		set: func(c *Config, v string) error { c.Defaults.Format = v; return nil },
	},
	"logging.level": {
		get: func(c *Config) string { return c.Logging.Level },
		set: func(c *Config, v string) error { c.Logging.Level = v; return nil },
	},
	"logging.format": {
		get: func(c *Config) string { return c.Logging.Format },
		set: func(c *Config, v string) error { c.Logging.Format = v; return nil },
	},
	"telemetry.enabled": {
		get: func(c *Config) string { return strconv.FormatBool(c.Telemetry.Enabled) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return err
			}
			c.Telemetry.Enabled = b
			return nil
		},
	},
	"telemetry.endpoint": {
		get: func(c *Config) string { return c.Telemetry.Endpoint },
		set: func(c *Config, v string) error { c.Telemetry.Endpoint = v; return nil },
	},
	"telemetry.sample_rate": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Telemetry.SampleRate, 'f', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return err
			}
			c.Telemetry.SampleRate = f
			return nil
		},
	},
	"metrics.textfile": {
		get: func(c *Config) string { return c.Metrics.Textfile },
		set: func(c *Config, v string) error { c.Metrics.Textfile = v; return nil },
	},
	"state_dir": {
		get: func(c *Config) string { return c.StateDir },
		set: func(c *Config, v string) error { c.StateDir = v; return nil },
	},
}

// Keys lists the settable keys in dot notation.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value at a dot-notation key.
func (c *Config) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", unknownKey(key)
	}
	return f.get(c), nil
}

// Set assigns a dot-notation key and re-validates.
func (c *Config) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return unknownKey(key)
	}
	if err := f.set(c, value); err != nil {
		return clierrors.NewConfigError(fmt.Sprintf("invalid value for %s", key), err)
	}
	return c.Validate()
}

func unknownKey(key string) error {
	return clierrors.NewConfigError(fmt.Sprintf("unknown configuration key: %s", key), nil).
		WithSuggestion("Valid keys: " + strings.Join(Keys(), ", "))
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
