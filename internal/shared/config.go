package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Environment variables that override values read from the config file.
const (
	EnvClientID     = "LINESYNC_CLIENT_ID"
	EnvClientSecret = "LINESYNC_CLIENT_SECRET"
	EnvBaseURL      = "LINESYNC_BASE_URL"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Identity IdentityConfig `toml:"identity"`
	Platform PlatformConfig `toml:"platform"`
	Sync     SyncConfig     `toml:"sync"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Log      LogConfig      `toml:"log"`
}

// IdentityConfig holds the token endpoint and the client credentials sent as basic auth.
type IdentityConfig struct {
	TokenURL     string   `toml:"token_url"`
	ClientID     string   `toml:"client_id"`
	ClientSecret string   `toml:"client_secret"`
	Scopes       []string `toml:"scopes"`
}

// PlatformConfig contains REST API transport settings.
type PlatformConfig struct {
	BaseURL           string  `toml:"base_url"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// SyncConfig contains coordinator settings.
type SyncConfig struct {
	RefreshIntervalSeconds int  `toml:"refresh_interval_seconds"`
	PreloadOnStart         bool `toml:"preload_on_start"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains local status server settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig controls logger level and the file used while the terminal UI owns the screen.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Timeout returns the per-request transport timeout.
func (p PlatformConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 20 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// RefreshInterval returns the staleness window and background tick period.
func (s SyncConfig) RefreshInterval() time.Duration {
	if s.RefreshIntervalSeconds <= 0 {
		return 300 * time.Second
	}
	return time.Duration(s.RefreshIntervalSeconds) * time.Second
}

// Addr returns the host:port the status server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Validate reports missing values required to talk to the platform.
func (c *Config) Validate() error {
	if c.Identity.TokenURL == "" {
		return fmt.Errorf("%w: identity.token_url is required", ErrInvalidConfig)
	}
	if c.Identity.ClientID == "" {
		return fmt.Errorf("%w: identity.client_id is required", ErrMissingCredentials)
	}
	if c.Platform.BaseURL == "" {
		return fmt.Errorf("%w: platform.base_url is required", ErrInvalidConfig)
	}
	return nil
}

// ApplyEnv overrides credentials and base URL from the environment when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvClientID); v != "" {
		c.Identity.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		c.Identity.ClientSecret = v
	}
	if v := os.Getenv(EnvBaseURL); v != "" {
		c.Platform.BaseURL = v
	}
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
