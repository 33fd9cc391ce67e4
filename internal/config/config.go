package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Environment variables that override saved configuration.
const (
	EnvServerURL = "IMGSEEK_SERVER_URL"
	EnvLogLevel  = "IMGSEEK_LOG_LEVEL"
	EnvTimeout   = "IMGSEEK_TIMEOUT"
)

// Defaults applied when neither the config file nor the environment set a value.
const (
	DefaultServerURL      = "http://localhost:5000"
	DefaultTimeoutSeconds = 60
	DefaultLogLevel       = "info"
	DefaultTileWidth      = 24
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Config is the imgseek client configuration, stored as {datadir}/client.json.
type Config struct {
	ServerURL      string `json:"server_url" yaml:"server_url"`
	TimeoutSeconds int    `json:"timeout_seconds" yaml:"timeout_seconds"`
	LogLevel       string `json:"log_level" yaml:"log_level"`
	DataDir        string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`

	// HistoryEnabled is a pointer so an absent key keeps the default (on).
	HistoryEnabled *bool  `json:"history_enabled,omitempty" yaml:"history_enabled,omitempty"`
	HistoryPath    string `json:"history_path,omitempty" yaml:"history_path,omitempty"`

	// TileWidth is the width of result thumbnails in terminal columns.
	TileWidth int `json:"tile_width,omitempty" yaml:"tile_width,omitempty"`
}

// Default returns a config populated with defaults.
func Default() *Config {
	enabled := true
	return &Config{
		ServerURL:      DefaultServerURL,
		TimeoutSeconds: DefaultTimeoutSeconds,
		LogLevel:       DefaultLogLevel,
		HistoryEnabled: &enabled,
		TileWidth:      DefaultTileWidth,
	}
}

// Load reads the config file at path on top of the defaults. A missing file
// is not an error; a file that does not parse is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Save writes the config as indented JSON with 0600 permissions, creating the
// parent directory when needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from IMGSEEK_* environment variables.
// IMGSEEK_TIMEOUT accepts whole seconds ("30") or a Go duration ("1m30s").
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvServerURL); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		secs, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTimeout, err)
		}
		c.TimeoutSeconds = secs
	}
	return nil
}

// Validate checks the config for values the client cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server_url %q: %w", c.ServerURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid server_url %q: scheme must be http or https", c.ServerURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid server_url %q: missing host", c.ServerURL)
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds)
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q (want debug, info, warn or error)", c.LogLevel)
	}
	if c.TileWidth < 4 || c.TileWidth > 200 {
		return fmt.Errorf("tile_width must be between 4 and 200, got %d", c.TileWidth)
	}
	return nil
}

// Timeout returns the HTTP timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// History reports whether local search history is enabled.
func (c *Config) History() bool {
	return c.HistoryEnabled == nil || *c.HistoryEnabled
}

// ResolveHistoryPath returns the configured history path with ~ expanded,
// or fallback when none is set.
func (c *Config) ResolveHistoryPath(fallback string) string {
	if c.HistoryPath == "" {
		return fallback
	}
	return expandHome(c.HistoryPath)
}

func (c *Config) applyDefaults() {
	d := Default()
	if c.ServerURL == "" {
		c.ServerURL = d.ServerURL
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = d.TimeoutSeconds
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	c.LogLevel = strings.ToLower(c.LogLevel)
	if c.HistoryEnabled == nil {
		c.HistoryEnabled = d.HistoryEnabled
	}
	if c.TileWidth == 0 {
		c.TileWidth = d.TileWidth
	}
	if c.DataDir != "" {
		c.DataDir = expandHome(c.DataDir)
	}
}

func parseSeconds(v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, err
	}
	return int(d.Round(time.Second) / time.Second), nil
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
