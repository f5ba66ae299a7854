package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

const (
	VersionV1 = "v1"

	// DefaultClientID is the OAuth app registered for gitswitch.
	DefaultClientID = "Ov23liA2BpF0gI3E4nUX"

	DefaultDeviceURL = "https://github.com"
	DefaultAPIURL    = "https://api.github.com"
)

var DefaultScopes = []string{"repo", "user"}

type Config struct {
	Version  string   `yaml:"version"`
	GitHub   GitHub   `yaml:"github,omitempty"`
	Settings Settings `yaml:"settings,omitempty"`
}

type GitHub struct {
	ClientID string `yaml:"client-id,omitempty"`
	// DeviceURL is the base URL for the OAuth device endpoints
	// (login/device/code, login/oauth/access_token).
	DeviceURL string `yaml:"device-url,omitempty"`
	// APIURL is the base URL for the REST API (user, orgs).
	APIURL string   `yaml:"api-url,omitempty"`
	Scopes []string `yaml:"scopes,omitempty"`
}

type Settings struct {
	OutputFormat string `yaml:"output-format,omitempty"`
	DatabasePath string `yaml:"database-path,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Version: VersionV1,
		Settings: Settings{
			OutputFormat: "table",
		},
	}
}

func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	return &cfg, nil
}

// LoadOrDefault returns the default config when no file exists at path.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			def := DefaultConfig()
			return &def, nil
		}
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if cfg.Version == "" {
		cfg.Version = VersionV1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	content, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, content, 0o600)
}

func (c *Config) ClientID() string {
	if c != nil && c.GitHub.ClientID != "" {
		return c.GitHub.ClientID
	}
	return DefaultClientID
}

func (c *Config) DeviceURL() string {
	if c != nil && c.GitHub.DeviceURL != "" {
		return strings.TrimRight(c.GitHub.DeviceURL, "/")
	}
	return DefaultDeviceURL
}

func (c *Config) APIURL() string {
	if c != nil && c.GitHub.APIURL != "" {
		return strings.TrimRight(c.GitHub.APIURL, "/")
	}
	return DefaultAPIURL
}

func (c *Config) Scopes() []string {
	if c != nil && len(c.GitHub.Scopes) > 0 {
		return c.GitHub.Scopes
	}
	return DefaultScopes
}

func (c *Config) OutputFormat() string {
	if c != nil && c.Settings.OutputFormat != "" {
		return c.Settings.OutputFormat
	}
	return "table"
}

func (c *Config) Validate() error {
	if c.Version == "" {
		return errors.New("config version missing")
	}
	if c.GitHub.DeviceURL != "" && !strings.HasPrefix(c.GitHub.DeviceURL, "http") {
		return fmt.Errorf("github device-url must be an http(s) URL: %s", c.GitHub.DeviceURL)
	}
	if c.GitHub.APIURL != "" && !strings.HasPrefix(c.GitHub.APIURL, "http") {
		return fmt.Errorf("github api-url must be an http(s) URL: %s", c.GitHub.APIURL)
	}
	return nil
}
