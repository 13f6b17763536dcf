// Package config handles the XDG configuration directory, config.yaml and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "tripboard"

	// SettingsFile is the optional YAML settings filename.
	SettingsFile = "config.yaml"

	// SessionFile is the stored session (user + tokens) filename.
	SessionFile = "session.json"

	// GoogleClientFile is the Google OAuth client credentials filename.
	GoogleClientFile = "oauth_client.json"

	// GoogleTokenFile is the stored Google OAuth token filename.
	GoogleTokenFile = "gtasks_token.json"

	// DefaultAPIURL is used when neither config.yaml nor the environment set one.
	DefaultAPIURL = "http://127.0.0.1:8000/api"

	// DefaultStaleTime is how long a cached read is served without refetching.
	DefaultStaleTime = 5 * time.Minute

	// DefaultMaxRetries is the number of extra attempts for a failed read.
	DefaultMaxRetries = 2

	// DefaultCurrency is used for display when a board has none.
	DefaultCurrency = "USD"

	envAPIURL   = "TRIPBOARD_API_URL"
	envRedisURL = "TRIPBOARD_REDIS_URL"
)

// Settings is the on-disk config.yaml.
type Settings struct {
	APIURL            string        `yaml:"api_url"`
	Currency          string        `yaml:"currency"`
	OptimisticReorder bool          `yaml:"optimistic_reorder"`
	Cache             CacheSettings `yaml:"cache"`
}

// CacheSettings configures the query cache.
type CacheSettings struct {
	StaleTime  string `yaml:"stale_time"`
	MaxRetries *int   `yaml:"max_retries"`
	RedisURL   string `yaml:"redis_url"`
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// JSON switches command output to JSON.
	JSON bool

	// APIURL is the TripBoard API base URL without a trailing slash.
	APIURL string

	// Currency is the fallback display currency.
	Currency string

	// OptimisticReorder applies card moves locally before the server confirms.
	OptimisticReorder bool

	// StaleTime bounds how long cached reads are served.
	StaleTime time.Duration

	// MaxRetries is the number of extra attempts for failed reads.
	MaxRetries int

	// RedisURL enables the shared second-level cache when set.
	RedisURL string
}

// New creates a Config with the default or specified config directory and
// applies config.yaml (if present) and environment overrides.
// If configDir is empty, uses XDG_CONFIG_HOME/tripboard or $HOME/.config/tripboard.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{
		Dir:        dir,
		APIURL:     DefaultAPIURL,
		Currency:   DefaultCurrency,
		StaleTime:  DefaultStaleTime,
		MaxRetries: DefaultMaxRetries,
	}
	if err := cfg.loadSettings(); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

func (c *Config) loadSettings() error {
	data, err := os.ReadFile(c.SettingsPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", SettingsFile, err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid %s: %w", SettingsFile, err)
	}

	if s.APIURL != "" {
		c.APIURL = trimSlash(s.APIURL)
	}
	if s.Currency != "" {
		c.Currency = s.Currency
	}
	c.OptimisticReorder = s.OptimisticReorder
	if s.Cache.StaleTime != "" {
		d, err := time.ParseDuration(s.Cache.StaleTime)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid cache.stale_time: %q (must be a positive duration)", s.Cache.StaleTime)
		}
		c.StaleTime = d
	}
	if s.Cache.MaxRetries != nil {
		if *s.Cache.MaxRetries < 0 {
			return fmt.Errorf("invalid cache.max_retries: %d", *s.Cache.MaxRetries)
		}
		c.MaxRetries = *s.Cache.MaxRetries
	}
	c.RedisURL = s.Cache.RedisURL
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envAPIURL); v != "" {
		c.APIURL = trimSlash(v)
	}
	if v := os.Getenv(envRedisURL); v != "" {
		c.RedisURL = v
	}
}

func trimSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// SessionPath returns the path to the stored session file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// GoogleClientPath returns the path to the Google OAuth client credentials.
func (c *Config) GoogleClientPath() string {
	return filepath.Join(c.Dir, GoogleClientFile)
}

// GoogleTokenPath returns the path to the stored Google OAuth token.
func (c *Config) GoogleTokenPath() string {
	return filepath.Join(c.Dir, GoogleTokenFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasGoogleClient checks if the Google OAuth client credentials file exists.
func (c *Config) HasGoogleClient() bool {
	_, err := os.Stat(c.GoogleClientPath())
	return err == nil
}

// HasGoogleToken checks if the Google token file exists.
func (c *Config) HasGoogleToken() bool {
	_, err := os.Stat(c.GoogleTokenPath())
	return err == nil
}
