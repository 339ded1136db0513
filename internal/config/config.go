// ABOUTME: Configuration loading and parsing for the rokuo admin console
// ABOUTME: Supports YAML files with environment variable expansion

package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete console configuration
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Backend   BackendConfig   `yaml:"backend"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AppConfig holds display settings for the console
type AppConfig struct {
	Name string `yaml:"name"`
}

// ServerConfig holds the console HTTP server configuration
type ServerConfig struct {
	HTTPAddr   string        `yaml:"http_addr"`
	SessionTTL time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	SessionTTLRaw string `yaml:"session_ttl"`
}

// BackendConfig holds the managed backend connection settings.
// URL is the backend base (auth + REST); APIURL is the base for the
// bespoke admin API and defaults to URL when empty.
type BackendConfig struct {
	URL     string `yaml:"url"`
	AnonKey string `yaml:"anon_key"`
	APIURL  string `yaml:"api_url"`
}

// TailscaleConfig holds tsnet configuration for serving the console
// on a tailnet instead of a plain TCP listener.
type TailscaleConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Hostname  string `yaml:"hostname"`
	AuthKey   string `yaml:"auth_key"`
	StateDir  string `yaml:"state_dir"`
	Ephemeral bool   `yaml:"ephemeral"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultSessionTTL is used when server.session_ttl is not set.
const DefaultSessionTTL = 12 * time.Hour

// Load reads a configuration file from the given path and returns a parsed Config.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw YAML content
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// applyDefaults fills optional fields after unmarshaling.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "StreamRokuo Admin"
	}
	if cfg.Backend.APIURL == "" {
		cfg.Backend.APIURL = cfg.Backend.URL
	}
	if cfg.Server.SessionTTL == 0 {
		cfg.Server.SessionTTL = DefaultSessionTTL
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if _, err := url.ParseRequestURI(c.Backend.URL); err != nil {
		return fmt.Errorf("backend.url is not a valid URL: %w", err)
	}
	if c.Backend.AnonKey == "" {
		return fmt.Errorf("backend.anon_key is required")
	}
	if _, err := url.ParseRequestURI(c.Backend.APIURL); err != nil {
		return fmt.Errorf("backend.api_url is not a valid URL: %w", err)
	}

	// HTTP address is required unless the console is served over tsnet
	if !c.Tailscale.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required (or enable tailscale)")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Server.SessionTTLRaw != "" {
		ttl, err := time.ParseDuration(cfg.Server.SessionTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing session_ttl %q: %w", cfg.Server.SessionTTLRaw, err)
		}
		cfg.Server.SessionTTL = ttl
	}

	return nil
}
