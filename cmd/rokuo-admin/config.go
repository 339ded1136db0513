// ABOUTME: Configuration loading for the rokuo-admin CLI
// ABOUTME: Loads TOML config from the XDG path with environment variable overrides

package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/streamrokuo/rokuo-admin/internal/backend"
)

type cliConfig struct {
	Backend backendConfig `toml:"backend"`
	Auth    authConfig    `toml:"auth"`
}

type backendConfig struct {
	URL     string `toml:"url"`
	AnonKey string `toml:"anon_key"`
	APIURL  string `toml:"api_url"`
}

type authConfig struct {
	Email    string `toml:"email"`
	Password string `toml:"password"`
}

// getConfigPath returns the path to the CLI config file.
// Priority: ROKUO_ADMIN_CONFIG env var > XDG_CONFIG_HOME/rokuo/admin.toml > ~/.config/rokuo/admin.toml
func getConfigPath() string {
	if envPath := os.Getenv("ROKUO_ADMIN_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "admin.toml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "rokuo", "admin.toml")
}

func defaultConfigHint() string {
	return "~/.config/rokuo/admin.toml"
}

// loadConfig reads the TOML config file and applies environment overrides.
// A missing file is fine as long as the environment supplies everything.
func loadConfig() (*cliConfig, error) {
	var cfg cliConfig

	path := getConfigPath()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := expandEnvVars(string(data))
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to environment-only config
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if v := os.Getenv("ROKUO_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("ROKUO_ANON_KEY"); v != "" {
		cfg.Backend.AnonKey = v
	}
	if v := os.Getenv("ROKUO_API_URL"); v != "" {
		cfg.Backend.APIURL = v
	}
	if v := os.Getenv("ROKUO_EMAIL"); v != "" {
		cfg.Auth.Email = v
	}
	if v := os.Getenv("ROKUO_PASSWORD"); v != "" {
		cfg.Auth.Password = v
	}

	if cfg.Backend.APIURL == "" {
		cfg.Backend.APIURL = cfg.Backend.URL
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

func (c *cliConfig) validate() error {
	if c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required (or set ROKUO_BACKEND_URL)")
	}
	if _, err := url.ParseRequestURI(c.Backend.URL); err != nil {
		return fmt.Errorf("backend.url is not a valid URL: %w", err)
	}
	if c.Backend.AnonKey == "" {
		return fmt.Errorf("backend.anon_key is required (or set ROKUO_ANON_KEY)")
	}
	if c.Auth.Email == "" {
		return fmt.Errorf("auth.email is required (or set ROKUO_EMAIL)")
	}
	if c.Auth.Password == "" {
		return fmt.Errorf("auth.password is required (or set ROKUO_PASSWORD)")
	}
	return nil
}

func newClient(cfg *cliConfig) *backend.Client {
	httpClient := &http.Client{Timeout: 30 * time.Second}
	return backend.New(cfg.Backend.URL, cfg.Backend.APIURL, cfg.Backend.AnonKey, httpClient)
}
