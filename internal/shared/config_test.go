package shared

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "./linesync.db" {
			t.Errorf("expected database path ./linesync.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Sync.RefreshInterval() != 300*time.Second {
			t.Errorf("expected refresh interval 300s, got %v", config.Sync.RefreshInterval())
		}

		if config.Platform.Timeout() != 20*time.Second {
			t.Errorf("expected timeout 20s, got %v", config.Platform.Timeout())
		}

		if config.Identity.ClientID != "your_client_id" {
			t.Errorf("expected client_id your_client_id, got %s", config.Identity.ClientID)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		if config.Database.Path != DefaultConfig().Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[identity]
token_url = "http://localhost:9999/oauth/token"
client_id = "test_client_id"
client_secret = "test_secret"

[platform]
base_url = "http://localhost:9999"

[sync]
refresh_interval_seconds = 60

[database]
path = "/custom/path.db"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Sync.RefreshInterval() != time.Minute {
			t.Errorf("expected refresh interval 1m, got %v", config.Sync.RefreshInterval())
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected default server port to survive partial config, got %d", config.Server.Port)
		}

		if err := config.Validate(); err != nil {
			t.Errorf("expected valid config, got %v", err)
		}
	})

	t.Run("LoadConfig Invalid TOML", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("[identity\nbroken"), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		_, err := LoadConfig(configPath)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		config := DefaultConfig()
		config.Identity.ClientID = ""
		if err := config.Validate(); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}

		config = DefaultConfig()
		config.Platform.BaseURL = ""
		if err := config.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv(EnvClientID, "env_client")
		t.Setenv(EnvBaseURL, "http://env.example")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.Identity.ClientID != "env_client" {
			t.Errorf("expected env client id, got %s", config.Identity.ClientID)
		}
		if config.Platform.BaseURL != "http://env.example" {
			t.Errorf("expected env base url, got %s", config.Platform.BaseURL)
		}
		if config.Identity.ClientSecret != "your_client_secret" {
			t.Errorf("expected client secret untouched, got %s", config.Identity.ClientSecret)
		}
	})
}
